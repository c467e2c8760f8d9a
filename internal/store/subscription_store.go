package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/repository"
)

// SubscriptionStore は購読の書き込みと変更通知、ライブビューを提供する。
type SubscriptionStore struct {
	repo     repository.SubscriptionRepository
	notifier *Notifier
	logger   *slog.Logger
}

// NewSubscriptionStore はSubscriptionStoreを生成する。
func NewSubscriptionStore(repo repository.SubscriptionRepository, notifier *Notifier, logger *slog.Logger) *SubscriptionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionStore{repo: repo, notifier: notifier, logger: logger}
}

// Insert は購読を作成し、採番されたIDを返す。
func (s *SubscriptionStore) Insert(ctx context.Context, sub *model.Subscription) (int64, error) {
	id, err := s.repo.Create(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("購読の作成に失敗: %w", err)
	}
	s.notifier.Publish(TopicSubscriptions)
	return id, nil
}

// Update は購読を更新する。対象が存在しない場合はrepository.ErrNotFoundを返す。
func (s *SubscriptionStore) Update(ctx context.Context, sub *model.Subscription) error {
	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("購読の更新に失敗: %w", err)
	}
	s.notifier.Publish(TopicSubscriptions)
	return nil
}

// Delete は購読を削除する。所属する記事はストレージ層で連鎖削除される。
func (s *SubscriptionStore) Delete(ctx context.Context, sub *model.Subscription) error {
	if err := s.repo.Delete(ctx, sub.ID); err != nil {
		return fmt.Errorf("購読の削除に失敗: %w", err)
	}
	s.notifier.Publish(TopicSubscriptions, TopicArticles)
	return nil
}

// FindByID は購読を取得する。見つからない場合はnilを返す。
func (s *SubscriptionStore) FindByID(ctx context.Context, id int64) (*model.Subscription, error) {
	return s.repo.FindByID(ctx, id)
}

// List は全購読のスナップショットを表示名順に返す。
func (s *SubscriptionStore) List(ctx context.Context) ([]*model.Subscription, error) {
	return s.repo.List(ctx)
}

// WatchAll は全購読のライブビューを表示名順に返す。
func (s *SubscriptionStore) WatchAll(ctx context.Context) <-chan []*model.Subscription {
	return watch(ctx, s.notifier, s.logger, "subscriptions", s.repo.List, TopicSubscriptions)
}
