// Package syncer は購読フィードの取得・変換・保存を行う同期処理を提供する。
// 1購読の取得失敗は他の購読に影響させず、ローカルストアの障害のみを呼び出し元に伝播する。
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/feedclip/internal/metrics"
	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/repository"
)

// FeedFetcher はフィード取得のインターフェース。
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (*model.NetworkFeed, error)
}

// ArticleWriter は記事の一括保存インターフェース。
type ArticleWriter interface {
	InsertAll(ctx context.Context, articles []model.Article) (int, error)
}

// SubscriptionLister は購読一覧のスナップショット取得インターフェース。
type SubscriptionLister interface {
	List(ctx context.Context) ([]*model.Subscription, error)
}

// Synchronizer は購読単位・全購読の同期を行う。同期間隔は関知しない。
type Synchronizer struct {
	fetcher       FeedFetcher
	articles      ArticleWriter
	subscriptions SubscriptionLister
	sanitizer     ContentSanitizer
	recorder      metrics.SyncRecorder
	logger        *slog.Logger
	maxConcurrent int
}

// NewSynchronizer はSynchronizerを生成する。
// maxConcurrentが0以下の場合は1（逐次実行）になる。
func NewSynchronizer(
	fetcher FeedFetcher,
	articles ArticleWriter,
	subscriptions SubscriptionLister,
	sanitizer ContentSanitizer,
	recorder metrics.SyncRecorder,
	logger *slog.Logger,
	maxConcurrent int,
) *Synchronizer {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		fetcher:       fetcher,
		articles:      articles,
		subscriptions: subscriptions,
		sanitizer:     sanitizer,
		recorder:      recorder,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// SyncSubscription は1購読のフィードを取得して記事を保存する。
// 取得・解析の失敗はログに記録してnilを返す。ローカルストアの障害は*FatalLocalErrorを返す。
// ctxがキャンセルされた場合はctx.Err()を返す。
func (s *Synchronizer) SyncSubscription(ctx context.Context, feedURL string, subscriptionID int64) error {
	_, err := s.syncOne(ctx, s.logger, feedURL, subscriptionID)
	if IsRecoverable(err) {
		return nil
	}
	return err
}

// TrySyncSubscription はSyncSubscriptionと同じ処理を行い、保存件数と分類済みのエラーをそのまま返す。
// 利用者に結果を見せたい手動同期で使う。
func (s *Synchronizer) TrySyncSubscription(ctx context.Context, feedURL string, subscriptionID int64) (int, error) {
	return s.syncOne(ctx, s.logger, feedURL, subscriptionID)
}

// SyncAllSubscriptions は購読一覧のスナップショットを取り、各購読を並列数の上限内で同期する。
// 個別の失敗は吸収し、ローカルストアの障害のみ*FatalLocalErrorとして返す。
func (s *Synchronizer) SyncAllSubscriptions(ctx context.Context) error {
	start := time.Now()
	logger := s.logger.With(slog.String("sync_run_id", uuid.NewString()))

	subs, err := s.subscriptions.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("購読一覧の取得に失敗しました", slog.String("error", err.Error()))
		return &FatalLocalError{Err: err}
	}

	logger.Info("全購読の同期を開始します",
		slog.Int("subscription_count", len(subs)),
		slog.Int("max_concurrent", s.maxConcurrent),
	)

	var succeeded, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, sub := range subs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := s.syncOne(gctx, logger, sub.URL, sub.ID)
			switch {
			case err == nil:
				succeeded.Add(1)
				return nil
			case IsRecoverable(err):
				skipped.Add(1)
				return nil
			default:
				return err
			}
		})
	}

	err = g.Wait()
	duration := time.Since(start)
	s.recorder.RecordSyncRun(duration)

	if ctx.Err() != nil {
		logger.Info("全購読の同期が中断されました", slog.String("error", ctx.Err().Error()))
		return ctx.Err()
	}
	if err != nil {
		logger.Error("ローカルストアの障害により全購読の同期を中断しました",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", duration.Milliseconds()),
		)
		return err
	}

	logger.Info("全購読の同期が完了しました",
		slog.Int("subscription_count", len(subs)),
		slog.Int64("succeeded", succeeded.Load()),
		slog.Int64("skipped", skipped.Load()),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
	return nil
}

// syncOne は1購読を同期し、分類済みのエラーを返す。
// フェッチが完了するまで保存は行わないため、失敗時に部分的な書き込みは残らない。
func (s *Synchronizer) syncOne(ctx context.Context, logger *slog.Logger, feedURL string, subscriptionID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	nf, err := s.fetcher.FetchFeed(ctx, feedURL)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		reason := classifyFetchError(err)
		s.recorder.RecordSyncFailure(subscriptionID, reason)
		if reason == metrics.ReasonParse {
			s.recorder.RecordParseFailure(subscriptionID)
		}
		logger.Warn("フィードの取得に失敗したため同期をスキップします",
			slog.Int64("subscription_id", subscriptionID),
			slog.String("url", feedURL),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return 0, &RecoverableSyncError{SubscriptionID: subscriptionID, URL: feedURL, Reason: reason, Err: err}
	}

	articles := MapArticles(subscriptionID, nf.Articles, s.sanitizer)

	n, err := s.articles.InsertAll(ctx, articles)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionGone) {
			s.recorder.RecordSyncFailure(subscriptionID, metrics.ReasonSubscriptionGone)
			logger.Warn("同期中に購読が削除されたため記事を破棄します",
				slog.Int64("subscription_id", subscriptionID),
				slog.String("url", feedURL),
			)
			return 0, &RecoverableSyncError{
				SubscriptionID: subscriptionID,
				URL:            feedURL,
				Reason:         metrics.ReasonSubscriptionGone,
				Err:            err,
			}
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		s.recorder.RecordSyncFailure(subscriptionID, metrics.ReasonStore)
		logger.Error("記事の保存に失敗しました",
			slog.Int64("subscription_id", subscriptionID),
			slog.String("url", feedURL),
			slog.String("error", err.Error()),
		)
		return 0, &FatalLocalError{SubscriptionID: subscriptionID, Err: err}
	}

	s.recorder.RecordSyncSuccess(subscriptionID)
	s.recorder.RecordArticlesUpserted(n)
	logger.Debug("購読を同期しました",
		slog.Int64("subscription_id", subscriptionID),
		slog.String("url", feedURL),
		slog.Int("entries", len(nf.Articles)),
		slog.Int("upserted", n),
	)
	return n, nil
}
