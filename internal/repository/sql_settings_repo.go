package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/feedclip/internal/database"
)

// SQLSettingsRepo はsettingsテーブルを使用した設定リポジトリ。
type SQLSettingsRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

var _ SettingsRepository = (*SQLSettingsRepo)(nil)

// NewSQLSettingsRepo はSQLSettingsRepoを生成する。
func NewSQLSettingsRepo(db *sql.DB, dialect database.Dialect) *SQLSettingsRepo {
	return &SQLSettingsRepo{db: db, dialect: dialect}
}

// Get は設定値を返す。未設定の場合はokがfalseになる。
func (r *SQLSettingsRepo) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT value FROM settings WHERE name = ?`),
		name,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("設定値の取得に失敗しました (%s): %w", name, err)
	}
	return value, true, nil
}

// Set は設定値を保存する。既存の値は上書きする。
func (r *SQLSettingsRepo) Set(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO settings (name, value) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value`),
		name, value,
	)
	if err != nil {
		return fmt.Errorf("設定値の保存に失敗しました (%s): %w", name, err)
	}
	return nil
}
