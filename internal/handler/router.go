package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/feedclip/internal/middleware"
)

// HealthChecker はデータベースの疎通確認を行うインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 購読
	SubscriptionService SubscriptionServiceInterface
	SubscriptionSyncer  SubscriptionSyncer

	// 記事
	ArticleService ArticleServiceInterface

	// 設定
	SettingsService SettingsServiceInterface

	// ライブビュー
	TimelineWatcher     TimelineWatcher
	SubscriptionWatcher SubscriptionWatcher
	IntervalWatcher     IntervalWatcher
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Logging → Recovery → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	subHandler := NewSubscriptionHandler(deps.SubscriptionService, deps.SubscriptionSyncer, logger)
	articleHandler := NewArticleHandler(deps.ArticleService, logger)
	settingsHandler := NewSettingsHandler(deps.SettingsService, logger)
	eventsHandler := NewEventsHandler(deps.TimelineWatcher, deps.SubscriptionWatcher, deps.IntervalWatcher, logger)

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", subHandler.ListSubscriptions)
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.SubscriptionAddMiddleware()).Post("/", subHandler.AddSubscription)
			} else {
				r.Post("/", subHandler.AddSubscription)
			}

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", subHandler.GetSubscription)
				r.Put("/", subHandler.UpdateSubscription)
				r.Delete("/", subHandler.DeleteSubscription)
				r.Post("/sync", subHandler.SyncSubscription)

				r.Get("/articles", articleHandler.ListBySubscription)
				r.Delete("/articles", articleHandler.ClearSubscription)
			})
		})

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", articleHandler.Timeline)
			r.Get("/{id}", articleHandler.GetArticle)
		})

		r.Post("/sync", articleHandler.Refresh)

		r.Get("/settings/sync-interval", settingsHandler.GetSyncInterval)
		r.Put("/settings/sync-interval", settingsHandler.PutSyncInterval)

		r.Get("/events", eventsHandler.Stream)
	})

	return r
}

// healthHandler はデータベースへの疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
