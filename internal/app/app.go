package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/feedclip/internal/article"
	"github.com/hitoshi/feedclip/internal/config"
	"github.com/hitoshi/feedclip/internal/database"
	"github.com/hitoshi/feedclip/internal/feed"
	"github.com/hitoshi/feedclip/internal/handler"
	"github.com/hitoshi/feedclip/internal/logger"
	"github.com/hitoshi/feedclip/internal/metrics"
	"github.com/hitoshi/feedclip/internal/middleware"
	"github.com/hitoshi/feedclip/internal/repository"
	"github.com/hitoshi/feedclip/internal/security"
	"github.com/hitoshi/feedclip/internal/store"
	"github.com/hitoshi/feedclip/internal/subscription"
	"github.com/hitoshi/feedclip/internal/syncer"
	"github.com/hitoshi/feedclip/internal/worker/cleanup"
	"github.com/hitoshi/feedclip/internal/worker/schedule"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database", maskDatabaseURL(cfg.DatabaseURL)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandSync:
		return runSync(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// components はサブコマンド間で共有する依存関係のまとまり。
type components struct {
	db       *sql.DB
	registry *prometheus.Registry

	subscriptions *store.SubscriptionStore
	articles      *store.ArticleStore
	settings      *store.SettingsStore

	ssrfGuard    *security.SSRFGuard
	synchronizer *syncer.Synchronizer
	subService   *subscription.Service
	articleSvc   *article.Service
	cleanupJob   *cleanup.CleanupJob
}

// openDatabase はDB接続を開き、疎通確認とマイグレーションを行う。
func openDatabase(cfg *config.Config) (*sql.DB, database.Dialect, error) {
	db, dialect, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(db, dialect); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database connection established", slog.String("dialect", string(dialect)))
	return db, dialect, nil
}

// build は設定から全依存関係をワイヤリングする。
func build(cfg *config.Config) (*components, error) {
	// 1. DB接続
	db, dialect, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	log := slog.Default()

	// 2. リポジトリとストアの初期化
	notifier := store.NewNotifier()
	subscriptions := store.NewSubscriptionStore(repository.NewSQLSubscriptionRepo(db, dialect), notifier, log)
	articles := store.NewArticleStore(repository.NewSQLArticleRepo(db, dialect), notifier, log)
	settings := store.NewSettingsStore(repository.NewSQLSettingsRepo(db, dialect), notifier, cfg.SyncIntervalHours, log)

	// 3. メトリクス
	registry := metrics.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard(cfg.AllowPrivateNetworks)
	sanitizer := security.NewContentSanitizer()

	// 5. フィードクライアントと同期処理
	client := feed.NewClient(ssrfGuard, feed.ClientConfig{
		Timeout:      cfg.FetchTimeout,
		MaxBodySize:  cfg.FetchMaxSize,
		UserAgent:    cfg.FetchUserAgent,
		HostInterval: cfg.FetchHostInterval,
	}, collector, log)
	icons := feed.NewIconResolver(ssrfGuard, cfg.FetchUserAgent, log)

	synchronizer := syncer.NewSynchronizer(client, articles, subscriptions, sanitizer, collector, log, cfg.SyncMaxConcurrent)

	// 6. ドメインサービス
	return &components{
		db:            db,
		registry:      registry,
		subscriptions: subscriptions,
		articles:      articles,
		settings:      settings,
		ssrfGuard:     ssrfGuard,
		synchronizer:  synchronizer,
		subService:    subscription.NewService(subscriptions, client, icons, ssrfGuard, log),
		articleSvc:    article.NewService(articles, synchronizer, log),
		cleanupJob:    cleanup.NewCleanupJob(articles, log),
	}, nil
}

// runServe はAPIサーバーと定期同期を起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	c, err := build(cfg)
	if err != nil {
		return err
	}
	defer c.db.Close()

	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSubscriptionAdd))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker:  c.db,
		MetricsHandler: metrics.Handler(c.registry),

		SubscriptionService: c.subService,
		SubscriptionSyncer:  c.synchronizer,
		ArticleService:      c.articleSvc,
		SettingsService:     c.settings,

		TimelineWatcher:     c.articleSvc,
		SubscriptionWatcher: c.subService,
		IntervalWatcher:     c.settings,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		// 全体同期の応答を待てる長さにする。SSEはハンドラー側で期限を解除する
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	// 定期同期と孤立記事の掃除。手動更新と同じ多重実行ガードを通す
	scheduler := schedule.NewScheduler(schedule.SyncRunnerFunc(c.articleSvc.Refresh), c.settings, slog.Default())
	scheduler.AddPeriodic("orphan_cleanup", cfg.CleanupInterval, func(ctx context.Context) error {
		return c.cleanupJob.Run(ctx)
	})

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server listen error: %w", err)
		}
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-schedulerDone

	slog.Info("API server stopped gracefully")
	return runErr
}

// runSync は全購読を1回だけ同期する。
// 個別購読の失敗はログに記録して成功扱いとし、ローカルストアの障害のみエラーを返す。
func runSync(ctx context.Context, cfg *config.Config) error {
	c, err := build(cfg)
	if err != nil {
		return err
	}
	defer c.db.Close()

	if err := c.synchronizer.SyncAllSubscriptions(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	db, _, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
// SQLiteのファイルパスはそのまま返す。
func maskDatabaseURL(raw string) string {
	if database.DetectDialect(raw) != database.DialectPostgres {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
