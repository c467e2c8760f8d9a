package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/repository"
)

// ArticleStore は記事の書き込みと変更通知、ライブビューを提供する。
type ArticleStore struct {
	repo     repository.ArticleRepository
	notifier *Notifier
	logger   *slog.Logger
}

// NewArticleStore はArticleStoreを生成する。
func NewArticleStore(repo repository.ArticleRepository, notifier *Notifier, logger *slog.Logger) *ArticleStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArticleStore{repo: repo, notifier: notifier, logger: logger}
}

// InsertAll は記事を1トランザクションで一括保存する。
// 同じGUIDの記事は新しい内容で置き換える。
func (s *ArticleStore) InsertAll(ctx context.Context, articles []model.Article) (int, error) {
	n, err := s.repo.UpsertAll(ctx, articles)
	if err != nil {
		return 0, fmt.Errorf("記事の一括保存に失敗: %w", err)
	}
	if n > 0 {
		s.notifier.Publish(TopicArticles)
	}
	return n, nil
}

// DeleteAllForSubscription は購読に所属する全記事を削除する。
func (s *ArticleStore) DeleteAllForSubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	n, err := s.repo.DeleteBySubscription(ctx, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("購読の記事削除に失敗: %w", err)
	}
	if n > 0 {
		s.notifier.Publish(TopicArticles)
	}
	return n, nil
}

// DeleteOrphans は存在しない購読を参照する記事を削除する。
func (s *ArticleStore) DeleteOrphans(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteOrphans(ctx)
	if err != nil {
		return 0, fmt.Errorf("孤立記事の削除に失敗: %w", err)
	}
	if n > 0 {
		s.notifier.Publish(TopicArticles)
	}
	return n, nil
}

// FindByID は記事を購読情報付きで取得する。見つからない場合はnilを返す。
func (s *ArticleStore) FindByID(ctx context.Context, id int64) (*model.ArticleWithSubscription, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAll は全記事のスナップショットを返す。
func (s *ArticleStore) ListAll(ctx context.Context) ([]model.ArticleWithSubscription, error) {
	return s.repo.ListAll(ctx)
}

// ListBySubscription は購読に所属する記事のスナップショットを返す。
func (s *ArticleStore) ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Article, error) {
	return s.repo.ListBySubscription(ctx, subscriptionID)
}

// WatchAll は全記事のライブビューを返す。
// 購読名やアイコンの変更も反映するため、購読の変更でも再送する。
func (s *ArticleStore) WatchAll(ctx context.Context) <-chan []model.ArticleWithSubscription {
	return watch(ctx, s.notifier, s.logger, "articles", s.repo.ListAll, TopicArticles, TopicSubscriptions)
}

// WatchBySubscription は購読に所属する記事のライブビューを返す。
func (s *ArticleStore) WatchBySubscription(ctx context.Context, subscriptionID int64) <-chan []model.Article {
	query := func(ctx context.Context) ([]model.Article, error) {
		return s.repo.ListBySubscription(ctx, subscriptionID)
	}
	return watch(ctx, s.notifier, s.logger, "articles_by_subscription", query, TopicArticles)
}
