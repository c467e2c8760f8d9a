package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hitoshi/feedclip/internal/database"
)

// newTestDB は一時ディレクトリにマイグレーション済みのSQLiteデータベースを作成する。
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, dialect, err := database.Open(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(db, dialect); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	return db
}
