package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect は接続先データベースの種類を表す。
// 値はdatabase/sqlのドライバ名とマイグレーションディレクトリ名を兼ねる。
type Dialect string

const (
	// DialectSQLite はローカルのSQLiteファイル。端末内のオフラインストアとして使う。
	DialectSQLite Dialect = "sqlite3"
	// DialectPostgres はPostgreSQL。
	DialectPostgres Dialect = "postgres"
)

// DetectDialect はデータベースURLのスキームから方言を判定する。
// postgres:// または postgresql:// 以外はSQLiteのファイルパスとして扱う。
func DetectDialect(databaseURL string) Dialect {
	lower := strings.ToLower(databaseURL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open はデータベース接続を開く。
// SQLiteの場合は外部キー制約を有効にし、書き込みを直列化するため接続数を1に制限する。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*sql.DB, Dialect, error) {
	dialect := DetectDialect(databaseURL)

	dsn := databaseURL
	if dialect == DialectSQLite {
		dsn = sqliteDSN(databaseURL)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, dialect, nil
}

// sqliteDSN はSQLiteの接続文字列に外部キー制約とビジータイムアウトのパラメータを付与する。
func sqliteDSN(databaseURL string) string {
	dsn := databaseURL
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(dsn, prefix) {
			dsn = strings.TrimPrefix(dsn, prefix)
			break
		}
	}

	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys=") && !strings.Contains(dsn, "_fk=") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout=") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Rebind は ? プレースホルダのクエリを方言に合わせて書き換える。
// PostgreSQLでは $1, $2, ... に置換し、SQLiteではそのまま返す。
// クエリ文字列のリテラル内に ? を含めないこと。
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
