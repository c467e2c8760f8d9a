package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/feedclip/internal/model"
)

// mockFetcher はFeedFetcherのモック。
type mockFetcher struct {
	fetchFn func(ctx context.Context, feedURL string) (*model.NetworkFeed, error)
}

func (m *mockFetcher) FetchFeed(ctx context.Context, feedURL string) (*model.NetworkFeed, error) {
	return m.fetchFn(ctx, feedURL)
}

// mockArticleWriter はArticleWriterのモック。呼び出しを記録する。
type mockArticleWriter struct {
	mu       sync.Mutex
	calls    [][]model.Article
	insertFn func(ctx context.Context, articles []model.Article) (int, error)
}

func (m *mockArticleWriter) InsertAll(ctx context.Context, articles []model.Article) (int, error) {
	m.mu.Lock()
	m.calls = append(m.calls, articles)
	m.mu.Unlock()
	if m.insertFn != nil {
		return m.insertFn(ctx, articles)
	}
	return len(articles), nil
}

func (m *mockArticleWriter) inserted() []model.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Article
	for _, c := range m.calls {
		all = append(all, c...)
	}
	return all
}

// mockLister はSubscriptionListerのモック。
type mockLister struct {
	listFn func(ctx context.Context) ([]*model.Subscription, error)
}

func (m *mockLister) List(ctx context.Context) ([]*model.Subscription, error) {
	return m.listFn(ctx)
}

func staticLister(subs ...*model.Subscription) *mockLister {
	return &mockLister{listFn: func(ctx context.Context) ([]*model.Subscription, error) {
		return subs, nil
	}}
}

// mockRecorder はmetrics.SyncRecorderのモック。
type mockRecorder struct {
	mu        sync.Mutex
	successes int
	failures  map[string]int
	parseFail int
	upserted  int
	runs      int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{failures: make(map[string]int)}
}

func (m *mockRecorder) RecordSyncSuccess(int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes++
}

func (m *mockRecorder) RecordSyncFailure(_ int64, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *mockRecorder) RecordParseFailure(int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parseFail++
}

func (m *mockRecorder) RecordHTTPStatus(int)              {}
func (m *mockRecorder) RecordFetchDuration(time.Duration) {}

func (m *mockRecorder) RecordArticlesUpserted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted += n
}

func (m *mockRecorder) RecordSyncRun(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

// upperSanitizer は呼び出されたことが分かるように本文を加工するサニタイザー。
type upperSanitizer struct{}

func (upperSanitizer) Sanitize(html string) string { return "[safe]" + html }
func (upperSanitizer) CleanURL(rawURL string) string {
	if rawURL == "javascript:alert(1)" {
		return ""
	}
	return rawURL
}
