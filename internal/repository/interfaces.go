// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/feedclip/internal/model"
)

// ErrNotFound は更新・削除対象の行が存在しない場合に返す。
var ErrNotFound = errors.New("record not found")

// ErrSubscriptionGone は記事の挿入時に所属する購読が既に存在しない場合に返す。
// 同期中に購読が削除された競合であり、ストレージ障害ではない。
var ErrSubscriptionGone = errors.New("subscription no longer exists")

// SubscriptionRepository は購読データの永続化インターフェース。
type SubscriptionRepository interface {
	// FindByID は指定IDの購読を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Subscription, error)

	// List は全購読を表示名の昇順で返す。
	List(ctx context.Context) ([]*model.Subscription, error)

	// Create は購読を作成し、採番されたIDを返す。
	Create(ctx context.Context, sub *model.Subscription) (int64, error)

	// Update は購読のURL・表示名・アイコン・カテゴリを更新する。
	// 対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, sub *model.Subscription) error

	// Delete は指定IDの購読を削除する。
	// 所属する記事は外部キーのON DELETE CASCADEで削除される。
	// 対象が存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id int64) error
}

// ArticleRepository は記事データの永続化インターフェース。
// 記事の同一性はGUIDで判定し、同じGUIDの記事は置き換える。
type ArticleRepository interface {
	// FindByID は指定IDの記事を購読情報付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.ArticleWithSubscription, error)

	// ListAll は全記事を購読情報付きで公開日時の降順に返す。
	// 公開日時が空の記事は末尾に並ぶ。
	ListAll(ctx context.Context) ([]model.ArticleWithSubscription, error)

	// ListBySubscription は購読に所属する記事を公開日時の降順に返す。
	ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Article, error)

	// UpsertAll は記事を1トランザクションで一括UPSERTし、書き込んだ件数を返す。
	// GUIDが衝突した場合は既存行を新しい内容で置き換える。
	// 途中で失敗した場合は何も書き込まない。
	UpsertAll(ctx context.Context, articles []model.Article) (int, error)

	// DeleteBySubscription は購読に所属する全記事を削除し、削除件数を返す。
	DeleteBySubscription(ctx context.Context, subscriptionID int64) (int64, error)

	// DeleteOrphans は存在しない購読を参照する記事を削除し、削除件数を返す。
	DeleteOrphans(ctx context.Context) (int64, error)
}

// SettingsRepository はアプリ設定（キーと文字列値）の永続化インターフェース。
type SettingsRepository interface {
	// Get は設定値を返す。未設定の場合はokがfalseになる。
	Get(ctx context.Context, name string) (value string, ok bool, err error)

	// Set は設定値を保存する。既存の値は上書きする。
	Set(ctx context.Context, name, value string) error
}

// TxBeginner はトランザクション開始用のインターフェース。*sql.DBが実装する。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
