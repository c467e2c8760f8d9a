package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/feedclip/internal/database"
	"github.com/hitoshi/feedclip/internal/model"
)

// SQLSubscriptionRepo はSQLite/PostgreSQLを使用した購読リポジトリ。
type SQLSubscriptionRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

var _ SubscriptionRepository = (*SQLSubscriptionRepo)(nil)

// NewSQLSubscriptionRepo はSQLSubscriptionRepoを生成する。
func NewSQLSubscriptionRepo(db *sql.DB, dialect database.Dialect) *SQLSubscriptionRepo {
	return &SQLSubscriptionRepo{db: db, dialect: dialect}
}

// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
func (r *SQLSubscriptionRepo) FindByID(ctx context.Context, id int64) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT id, url, name, icon_url, category
		 FROM subscriptions WHERE id = ?`),
		id,
	).Scan(&sub.ID, &sub.URL, &sub.Name, &sub.IconURL, &sub.Category)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}

	return sub, nil
}

// List は全購読を表示名の昇順で返す。
func (r *SQLSubscriptionRepo) List(ctx context.Context) ([]*model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, name, icon_url, category
		 FROM subscriptions ORDER BY name ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	subs := []*model.Subscription{}
	for rows.Next() {
		sub := &model.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.URL, &sub.Name, &sub.IconURL, &sub.Category); err != nil {
			return nil, fmt.Errorf("購読行の読み取りに失敗しました: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の走査に失敗しました: %w", err)
	}
	return subs, nil
}

// Create は購読を作成し、採番されたIDを返す。
// sub.IDにも採番結果を設定する。
func (r *SQLSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) (int64, error) {
	category := sub.Category
	if category == "" {
		category = model.DefaultCategory
	}

	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`INSERT INTO subscriptions (url, name, icon_url, category)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`),
		sub.URL, sub.Name, sub.IconURL, category,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("購読の作成に失敗しました: %w", err)
	}

	sub.ID = id
	sub.Category = category
	return id, nil
}

// Update は購読のURL・表示名・アイコン・カテゴリを更新する。
func (r *SQLSubscriptionRepo) Update(ctx context.Context, sub *model.Subscription) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`UPDATE subscriptions
		 SET url = ?, name = ?, icon_url = ?, category = ?
		 WHERE id = ?`),
		sub.URL, sub.Name, sub.IconURL, sub.Category, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("購読の更新に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDの購読を削除する。
// 所属する記事は外部キーのON DELETE CASCADEで同時に削除される。
func (r *SQLSubscriptionRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`DELETE FROM subscriptions WHERE id = ?`),
		id,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// requireAffected は更新件数が0件の場合にErrNotFoundを返す。
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
