// Package subscription は購読管理のドメインロジックを提供する。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/repository"
)

// Store は購読の永続化と変更通知のインターフェース。store.SubscriptionStoreが実装する。
type Store interface {
	Insert(ctx context.Context, sub *model.Subscription) (int64, error)
	Update(ctx context.Context, sub *model.Subscription) error
	Delete(ctx context.Context, sub *model.Subscription) error
	FindByID(ctx context.Context, id int64) (*model.Subscription, error)
	List(ctx context.Context) ([]*model.Subscription, error)
	WatchAll(ctx context.Context) <-chan []*model.Subscription
}

// MetadataFetcher は購読登録時にフィードのタイトルとアイコンを取得するインターフェース。
type MetadataFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (*model.NetworkFeed, error)
}

// IconResolver はサイトのアイコンURLを推測するインターフェース。見つからない場合は空文字列を返す。
type IconResolver interface {
	ResolveIcon(ctx context.Context, siteURL string) string
}

// URLValidator は購読URLの検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Service は購読の登録・更新・削除と一覧のライブビューを提供する。
type Service struct {
	store     Store
	fetcher   MetadataFetcher
	icons     IconResolver
	validator URLValidator
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// iconsとvalidatorはnilでもよい。
func NewService(store Store, fetcher MetadataFetcher, icons IconResolver, validator URLValidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		fetcher:   fetcher,
		icons:     icons,
		validator: validator,
		logger:    logger,
	}
}

// AddSubscription はフィードを購読し、採番されたIDを返す。
// メタデータの取得に失敗しても購読は作成し、表示名はURL、アイコンは空文字列になる。
func (s *Service) AddSubscription(ctx context.Context, rawURL string) (int64, error) {
	feedURL := strings.TrimSpace(rawURL)
	if feedURL == "" {
		return 0, model.NewInvalidURLError("URLが空です")
	}
	// URL検証での拒否は取得失敗として扱わず、購読を作成しない
	if s.validator != nil {
		if err := s.validator.ValidateURL(feedURL); err != nil {
			return 0, model.NewInvalidURLError(err.Error())
		}
	}

	sub := &model.Subscription{
		URL:      feedURL,
		Name:     feedURL,
		IconURL:  "",
		Category: model.DefaultCategory,
	}

	nf, err := s.fetcher.FetchFeed(ctx, feedURL)
	if err != nil {
		s.logger.Warn("フィードのメタデータ取得に失敗したためURLを表示名にします",
			slog.String("url", feedURL),
			slog.String("error", err.Error()),
		)
	} else {
		if title := strings.TrimSpace(nf.Title); title != "" {
			sub.Name = title
		}
		sub.IconURL = s.resolveIcon(ctx, feedURL, nf)
	}

	id, err := s.store.Insert(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("購読の作成に失敗しました: %w", err)
	}

	s.logger.Info("購読を追加しました",
		slog.Int64("subscription_id", id),
		slog.String("url", feedURL),
		slog.String("name", sub.Name),
	)
	return id, nil
}

// resolveIcon はチャンネル画像を優先し、なければサイトのアイコンを探す。
func (s *Service) resolveIcon(ctx context.Context, feedURL string, nf *model.NetworkFeed) string {
	if icon := httpURLOrEmpty(nf.IconURL); icon != "" || s.icons == nil {
		return icon
	}
	site := nf.SiteURL
	if site == "" {
		site = feedURL
	}
	return s.icons.ResolveIcon(ctx, site)
}

// httpURLOrEmpty はhttp/httpsの絶対URLだけを返す。
func httpURLOrEmpty(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

// UpdateSubscription は購読の表示名・カテゴリ・アイコンを更新する。
// 表示名が空の場合は検証エラー、カテゴリが空の場合は既定カテゴリにする。
func (s *Service) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub == nil {
		return model.NewValidationError("購読が指定されていません")
	}
	sub.Name = strings.TrimSpace(sub.Name)
	if sub.Name == "" {
		return model.NewValidationError("表示名を入力してください")
	}
	sub.Category = strings.TrimSpace(sub.Category)
	if sub.Category == "" {
		sub.Category = model.DefaultCategory
	}

	if err := s.store.Update(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSubscriptionNotFoundError(sub.ID)
		}
		return fmt.Errorf("購読の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteSubscription は購読を削除する。所属する記事はストレージ層で連鎖削除される。
func (s *Service) DeleteSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub == nil {
		return model.NewValidationError("購読が指定されていません")
	}
	if err := s.store.Delete(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSubscriptionNotFoundError(sub.ID)
		}
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}

	s.logger.Info("購読を削除しました",
		slog.Int64("subscription_id", sub.ID),
		slog.String("url", sub.URL),
	)
	return nil
}

// GetSubscription は購読を取得する。見つからない場合は*model.APIErrorを返す。
func (s *Service) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	sub, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	if sub == nil {
		return nil, model.NewSubscriptionNotFoundError(id)
	}
	return sub, nil
}

// ListSubscriptions は全購読を表示名順に返す。
func (s *Service) ListSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	subs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	return subs, nil
}

// GetAll は全購読のライブビューを表示名順に返す。ctxが終了するとチャネルが閉じる。
func (s *Service) GetAll(ctx context.Context) <-chan []*model.Subscription {
	return s.store.WatchAll(ctx)
}
