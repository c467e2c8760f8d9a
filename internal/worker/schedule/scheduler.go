// Package schedule はバックグラウンドの定期同期とメンテナンスジョブを提供する。
// 同期間隔は設定ストアから読み込み、変更を監視して再スケジュールする。
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/feedclip/internal/config"
	"github.com/hitoshi/feedclip/internal/model"
)

// SyncRunner は全購読の同期を実行するインターフェース。
type SyncRunner interface {
	SyncAllSubscriptions(ctx context.Context) error
}

// SyncRunnerFunc は関数をSyncRunnerとして使うためのアダプタ。
type SyncRunnerFunc func(ctx context.Context) error

// SyncAllSubscriptions はf(ctx)を呼び出す。
func (f SyncRunnerFunc) SyncAllSubscriptions(ctx context.Context) error {
	return f(ctx)
}

// IntervalSource は同期間隔（時間単位）の取得と監視を行うインターフェース。
type IntervalSource interface {
	SyncIntervalHours(ctx context.Context) (int, error)
	WatchSyncIntervalHours(ctx context.Context) <-chan int
}

type periodicJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// Scheduler は定期同期ジョブをcronで管理する。
// 同一ジョブの多重実行はSkipIfStillRunningで抑止する。
type Scheduler struct {
	syncer    SyncRunner
	intervals IntervalSource
	logger    *slog.Logger
	unit      time.Duration

	mu       sync.Mutex
	cron     *cron.Cron
	syncJob  cron.Job
	syncID   cron.EntryID
	interval time.Duration
	jobs     []periodicJob
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(syncer SyncRunner, intervals IntervalSource, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		syncer:    syncer,
		intervals: intervals,
		logger:    logger,
		unit:      time.Hour,
	}
}

// AddPeriodic は同期以外の定期ジョブを登録する。Startより前に呼び出すこと。
// 登録したジョブは起動直後に1回、その後interval毎に実行される。
func (s *Scheduler) AddPeriodic(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, periodicJob{name: name, interval: interval, run: run})
}

// Interval は現在スケジュールされている同期間隔を返す。未起動の場合は0を返す。
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Start はスケジューラを起動する。
// 起動直後に同期を1回実行し、コンテキストがキャンセルされるまで
// 同期間隔の変更を監視し続ける。
func (s *Scheduler) Start(ctx context.Context) {
	cronLogger := newCronLogger(s.logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	hours, err := s.intervals.SyncIntervalHours(ctx)
	if err != nil {
		s.logger.Error("同期間隔の読み込みに失敗しました。デフォルト値を使用します",
			slog.String("error", err.Error()),
			slog.Int("default_hours", config.DefaultSyncIntervalHours),
		)
		hours = config.DefaultSyncIntervalHours
	}

	syncJob := cron.NewChain(cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(func() {
		s.runSync(ctx)
	}))

	s.mu.Lock()
	s.cron = c
	s.syncJob = syncJob
	jobs := append([]periodicJob(nil), s.jobs...)
	s.mu.Unlock()

	s.reschedule(hours)

	var extras []cron.Job
	for _, j := range jobs {
		job := cron.NewChain(cron.SkipIfStillRunning(cronLogger)).Then(s.wrapPeriodic(ctx, j))
		c.Schedule(cron.Every(j.interval), job)
		extras = append(extras, job)
		s.logger.Info("定期ジョブを登録しました",
			slog.String("job", j.name),
			slog.Duration("interval", j.interval),
		)
	}

	c.Start()
	s.logger.Info("同期スケジューラを開始しました",
		slog.Int("interval_hours", hours),
	)

	// 起動直後に1回実行
	syncJob.Run()
	for _, job := range extras {
		job.Run()
	}

	updates := s.intervals.WatchSyncIntervalHours(ctx)
	for {
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
			s.logger.Info("同期スケジューラを停止しました")
			return
		case h, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if time.Duration(h)*s.unit != s.Interval() {
				s.reschedule(h)
				s.logger.Info("同期間隔を変更しました",
					slog.Int("interval_hours", h),
				)
			}
		}
	}
}

// reschedule は同期ジョブを新しい間隔で登録し直す。
func (s *Scheduler) reschedule(hours int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.syncID != 0 {
		s.cron.Remove(s.syncID)
	}
	s.interval = time.Duration(hours) * s.unit
	s.syncID = s.cron.Schedule(cron.Every(s.interval), s.syncJob)
}

func (s *Scheduler) runSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.syncer.SyncAllSubscriptions(ctx); err != nil {
		if ctx.Err() != nil {
			s.logger.Info("同期はキャンセルされました")
			return
		}
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeSyncInProgress {
			s.logger.Info("手動同期の実行中のため定期同期をスキップしました")
			return
		}
		s.logger.Error("定期同期に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("定期同期が完了しました",
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

func (s *Scheduler) wrapPeriodic(ctx context.Context, j periodicJob) cron.Job {
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if err := j.run(ctx); err != nil {
			s.logger.Error("定期ジョブの実行に失敗しました",
				slog.String("job", j.name),
				slog.String("error", err.Error()),
			)
		}
	})
}

// cronLogger はcron.Loggerをslogに橋渡しする。
type cronLogger struct {
	logger *slog.Logger
}

func newCronLogger(logger *slog.Logger) cron.Logger {
	return cronLogger{logger: logger.With(slog.String("component", "cron"))}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err.Error())...)
}
