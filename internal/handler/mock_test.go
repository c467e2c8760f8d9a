package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedclip/internal/model"
)

// --- モック定義 ---

// mockSubscriptionService はSubscriptionServiceInterfaceのモック実装。
type mockSubscriptionService struct {
	addFn    func(ctx context.Context, rawURL string) (int64, error)
	updateFn func(ctx context.Context, sub *model.Subscription) error
	deleteFn func(ctx context.Context, sub *model.Subscription) error
	getFn    func(ctx context.Context, id int64) (*model.Subscription, error)
	listFn   func(ctx context.Context) ([]*model.Subscription, error)
}

func (m *mockSubscriptionService) AddSubscription(ctx context.Context, rawURL string) (int64, error) {
	if m.addFn != nil {
		return m.addFn(ctx, rawURL)
	}
	return 1, nil
}

func (m *mockSubscriptionService) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, sub)
	}
	return nil
}

func (m *mockSubscriptionService) DeleteSubscription(ctx context.Context, sub *model.Subscription) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, sub)
	}
	return nil
}

func (m *mockSubscriptionService) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Subscription{ID: id, URL: "https://example.com/feed.xml", Name: "Example", Category: model.DefaultCategory}, nil
}

func (m *mockSubscriptionService) ListSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// mockSyncer はSubscriptionSyncerのモック実装。
type mockSyncer struct {
	trySyncFn func(ctx context.Context, feedURL string, subscriptionID int64) (int, error)
}

func (m *mockSyncer) TrySyncSubscription(ctx context.Context, feedURL string, subscriptionID int64) (int, error) {
	if m.trySyncFn != nil {
		return m.trySyncFn(ctx, feedURL, subscriptionID)
	}
	return 0, nil
}

// mockArticleService はArticleServiceInterfaceのモック実装。
type mockArticleService struct {
	timelineFn func(ctx context.Context, subscriptionID int64) ([]model.ArticleWithSubscription, error)
	getFn      func(ctx context.Context, id int64) (*model.ArticleWithSubscription, error)
	listFn     func(ctx context.Context, subscriptionID int64) ([]model.Article, error)
	clearFn    func(ctx context.Context, subscriptionID int64) (int64, error)
	refreshFn  func(ctx context.Context) error
}

func (m *mockArticleService) Timeline(ctx context.Context, subscriptionID int64) ([]model.ArticleWithSubscription, error) {
	if m.timelineFn != nil {
		return m.timelineFn(ctx, subscriptionID)
	}
	return nil, nil
}

func (m *mockArticleService) GetArticle(ctx context.Context, id int64) (*model.ArticleWithSubscription, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewArticleNotFoundError(id)
}

func (m *mockArticleService) ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Article, error) {
	if m.listFn != nil {
		return m.listFn(ctx, subscriptionID)
	}
	return nil, nil
}

func (m *mockArticleService) ClearSubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	if m.clearFn != nil {
		return m.clearFn(ctx, subscriptionID)
	}
	return 0, nil
}

func (m *mockArticleService) Refresh(ctx context.Context) error {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return nil
}

// mockSettingsService はSettingsServiceInterfaceのモック実装。
type mockSettingsService struct {
	hours int
	setFn func(ctx context.Context, hours int) error
}

func (m *mockSettingsService) SyncIntervalHours(ctx context.Context) (int, error) {
	return m.hours, nil
}

func (m *mockSettingsService) SetSyncIntervalHours(ctx context.Context, hours int) error {
	if m.setFn != nil {
		return m.setFn(ctx, hours)
	}
	m.hours = hours
	return nil
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// newJSONRequest はJSONボディ付きのリクエストを生成する。
func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
