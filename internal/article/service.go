// Package article はタイムライン（全購読の記事を統合した一覧）の取得と更新を提供する。
package article

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/syncer"
)

// ErrRefreshInProgress は同期中に再度同期を要求された場合のエラー。
var ErrRefreshInProgress = model.NewSyncInProgressError()

// Store は記事の参照とライブビューのインターフェース。store.ArticleStoreが実装する。
type Store interface {
	FindByID(ctx context.Context, id int64) (*model.ArticleWithSubscription, error)
	ListAll(ctx context.Context) ([]model.ArticleWithSubscription, error)
	ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Article, error)
	WatchAll(ctx context.Context) <-chan []model.ArticleWithSubscription
	WatchBySubscription(ctx context.Context, subscriptionID int64) <-chan []model.Article
	DeleteAllForSubscription(ctx context.Context, subscriptionID int64) (int64, error)
}

// Refresher は全購読の同期を行うインターフェース。
type Refresher interface {
	SyncAllSubscriptions(ctx context.Context) error
}

// Service はタイムラインと記事詳細を提供する。
type Service struct {
	store      Store
	refresher  Refresher
	logger     *slog.Logger
	refreshing atomic.Bool
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store Store, refresher Refresher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, refresher: refresher, logger: logger}
}

// Timeline は記事を公開日時の降順で返す。subscriptionIDが0の場合は全購読の記事を返す。
func (s *Service) Timeline(ctx context.Context, subscriptionID int64) ([]model.ArticleWithSubscription, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("タイムラインの取得に失敗しました: %w", err)
	}
	return FilterBySubscription(all, subscriptionID), nil
}

// WatchTimeline はタイムラインのライブビューを返す。subscriptionIDが0の場合は絞り込まない。
func (s *Service) WatchTimeline(ctx context.Context, subscriptionID int64) <-chan []model.ArticleWithSubscription {
	in := s.store.WatchAll(ctx)
	if subscriptionID == 0 {
		return in
	}

	out := make(chan []model.ArticleWithSubscription, 1)
	go func() {
		defer close(out)
		for snapshot := range in {
			filtered := FilterBySubscription(snapshot, subscriptionID)
			select {
			case <-out:
			default:
			}
			out <- filtered
		}
	}()
	return out
}

// GetArticle は記事を取得する。見つからない場合は*model.APIErrorを返す。
func (s *Service) GetArticle(ctx context.Context, id int64) (*model.ArticleWithSubscription, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewArticleNotFoundError(id)
	}
	return a, nil
}

// ListBySubscription は購読に所属する記事を返す。
func (s *Service) ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Article, error) {
	articles, err := s.store.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("購読の記事一覧の取得に失敗しました: %w", err)
	}
	return articles, nil
}

// WatchBySubscription は購読に所属する記事のライブビューを返す。
func (s *Service) WatchBySubscription(ctx context.Context, subscriptionID int64) <-chan []model.Article {
	return s.store.WatchBySubscription(ctx, subscriptionID)
}

// ClearSubscription は購読に所属する全記事を削除し、削除件数を返す。購読自体は残る。
func (s *Service) ClearSubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	n, err := s.store.DeleteAllForSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("購読の記事削除に失敗しました: %w", err)
	}
	s.logger.Info("購読の記事を削除しました",
		slog.Int64("subscription_id", subscriptionID),
		slog.Int64("deleted", n),
	)
	return n, nil
}

// Refresh は全購読を同期する。同期中に呼ばれた場合はErrRefreshInProgressを返す。
// ローカルストアの障害は*model.APIErrorに変換する。
func (s *Service) Refresh(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		return ErrRefreshInProgress
	}
	defer s.refreshing.Store(false)

	if err := s.refresher.SyncAllSubscriptions(ctx); err != nil {
		if syncer.IsFatal(err) {
			s.logger.Error("タイムラインの更新に失敗しました", slog.String("error", err.Error()))
			return model.NewSyncFailedError()
		}
		return err
	}
	return nil
}

// IsRefreshing は同期中かどうかを返す。
func (s *Service) IsRefreshing() bool {
	return s.refreshing.Load()
}

// FilterBySubscription は指定購読の記事だけを返す。subscriptionIDが0の場合はそのまま返す。
func FilterBySubscription(articles []model.ArticleWithSubscription, subscriptionID int64) []model.ArticleWithSubscription {
	if subscriptionID == 0 {
		return articles
	}
	filtered := make([]model.ArticleWithSubscription, 0, len(articles))
	for _, a := range articles {
		if a.SubscriptionID == subscriptionID {
			filtered = append(filtered, a)
		}
	}
	return filtered
}
