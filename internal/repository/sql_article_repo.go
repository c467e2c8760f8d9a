package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/feedclip/internal/database"
	"github.com/hitoshi/feedclip/internal/model"
)

// SQLArticleRepo はSQLite/PostgreSQLを使用した記事リポジトリ。
type SQLArticleRepo struct {
	db      *sql.DB
	tx      TxBeginner
	dialect database.Dialect
}

var _ ArticleRepository = (*SQLArticleRepo)(nil)

// NewSQLArticleRepo はSQLArticleRepoを生成する。
func NewSQLArticleRepo(db *sql.DB, dialect database.Dialect) *SQLArticleRepo {
	return &SQLArticleRepo{db: db, tx: db, dialect: dialect}
}

// pub_dateは正規化済みのUTC ISO-8601文字列なので文字列比較で時系列順になる。
// 空文字列（日時不明）は末尾に並べる。
const articleOrder = `ORDER BY CASE WHEN a.pub_date = '' THEN 1 ELSE 0 END, a.pub_date DESC, a.id DESC`

const articleWithSubscriptionColumns = `a.id, a.subscription_id, a.guid, a.title, a.link, a.pub_date,
		        a.content, a.thumbnail_url, s.name, s.icon_url`

// FindByID は指定IDの記事を購読情報付きで取得する。見つからない場合はnilを返す。
func (r *SQLArticleRepo) FindByID(ctx context.Context, id int64) (*model.ArticleWithSubscription, error) {
	a := &model.ArticleWithSubscription{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT `+articleWithSubscriptionColumns+`
		 FROM articles a
		 JOIN subscriptions s ON s.id = a.subscription_id
		 WHERE a.id = ?`),
		id,
	).Scan(
		&a.ID, &a.SubscriptionID, &a.GUID, &a.Title, &a.Link, &a.PubDate,
		&a.Content, &a.ThumbnailURL, &a.SubscriptionName, &a.SubscriptionIconURL,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return a, nil
}

// ListAll は全記事を購読情報付きで公開日時の降順に返す。
func (r *SQLArticleRepo) ListAll(ctx context.Context) ([]model.ArticleWithSubscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleWithSubscriptionColumns+`
		 FROM articles a
		 JOIN subscriptions s ON s.id = a.subscription_id
		 `+articleOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	articles := []model.ArticleWithSubscription{}
	for rows.Next() {
		var a model.ArticleWithSubscription
		if err := rows.Scan(
			&a.ID, &a.SubscriptionID, &a.GUID, &a.Title, &a.Link, &a.PubDate,
			&a.Content, &a.ThumbnailURL, &a.SubscriptionName, &a.SubscriptionIconURL,
		); err != nil {
			return nil, fmt.Errorf("記事行の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// ListBySubscription は購読に所属する記事を公開日時の降順に返す。
func (r *SQLArticleRepo) ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Article, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT a.id, a.subscription_id, a.guid, a.title, a.link, a.pub_date, a.content, a.thumbnail_url
		 FROM articles a
		 WHERE a.subscription_id = ?
		 `+articleOrder),
		subscriptionID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読別記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		var a model.Article
		if err := rows.Scan(&a.ID, &a.SubscriptionID, &a.GUID, &a.Title, &a.Link, &a.PubDate, &a.Content, &a.ThumbnailURL); err != nil {
			return nil, fmt.Errorf("記事行の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読別記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// UpsertAll は記事を1トランザクションで一括UPSERTし、書き込んだ件数を返す。
// GUIDが衝突した場合は既存行の全列を新しい内容で置き換える（IDは維持）。
// 購読が既に削除されている場合はErrSubscriptionGoneを返し、何も書き込まない。
func (r *SQLArticleRepo) UpsertAll(ctx context.Context, articles []model.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := r.tx.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.dialect.Rebind(
		`INSERT INTO articles (subscription_id, guid, title, link, pub_date, content, thumbnail_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (guid) DO UPDATE SET
		     subscription_id = excluded.subscription_id,
		     title = excluded.title,
		     link = excluded.link,
		     pub_date = excluded.pub_date,
		     content = excluded.content,
		     thumbnail_url = excluded.thumbnail_url`))
	if err != nil {
		return 0, fmt.Errorf("記事UPSERT文の準備に失敗しました: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		if _, err := stmt.ExecContext(ctx,
			a.SubscriptionID, a.GUID, a.Title, a.Link, a.PubDate, a.Content, a.ThumbnailURL,
		); err != nil {
			if isForeignKeyViolation(err) {
				return 0, fmt.Errorf("subscription_id=%d: %w", a.SubscriptionID, ErrSubscriptionGone)
			}
			return 0, fmt.Errorf("記事のUPSERTに失敗しました (guid=%s): %w", a.GUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return len(articles), nil
}

// DeleteBySubscription は購読に所属する全記事を削除し、削除件数を返す。
func (r *SQLArticleRepo) DeleteBySubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`DELETE FROM articles WHERE subscription_id = ?`),
		subscriptionID,
	)
	if err != nil {
		return 0, fmt.Errorf("購読別記事の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// DeleteOrphans は存在しない購読を参照する記事を削除し、削除件数を返す。
// 外部キー制約が無効な接続で書き込まれたデータの修復に使う。
func (r *SQLArticleRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM articles
		 WHERE NOT EXISTS (SELECT 1 FROM subscriptions s WHERE s.id = articles.subscription_id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("孤立記事の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}
