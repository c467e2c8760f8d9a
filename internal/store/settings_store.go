package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hitoshi/feedclip/internal/config"
	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/repository"
)

// SyncIntervalKey は同期間隔（時間）を保存する設定キー。
const SyncIntervalKey = "sync_interval_hours"

// SettingsStore はユーザー設定の読み書きとライブビューを提供する。
type SettingsStore struct {
	repo         repository.SettingsRepository
	notifier     *Notifier
	logger       *slog.Logger
	defaultHours int
}

// NewSettingsStore はSettingsStoreを生成する。
// defaultHoursは同期間隔が未保存の場合に返す値。
func NewSettingsStore(repo repository.SettingsRepository, notifier *Notifier, defaultHours int, logger *slog.Logger) *SettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	if !validSyncInterval(defaultHours) {
		defaultHours = config.DefaultSyncIntervalHours
	}
	return &SettingsStore{repo: repo, notifier: notifier, logger: logger, defaultHours: defaultHours}
}

// SyncIntervalHours は現在の同期間隔（時間）を返す。
// 保存値が壊れている場合は既定値にフォールバックする。
func (s *SettingsStore) SyncIntervalHours(ctx context.Context) (int, error) {
	raw, ok, err := s.repo.Get(ctx, SyncIntervalKey)
	if err != nil {
		return 0, fmt.Errorf("同期間隔の取得に失敗: %w", err)
	}
	if !ok {
		return s.defaultHours, nil
	}

	hours, err := strconv.Atoi(raw)
	if err != nil || !validSyncInterval(hours) {
		s.logger.Warn("保存された同期間隔が不正なため既定値を使用します",
			slog.String("value", raw),
			slog.Int("default_hours", s.defaultHours),
		)
		return s.defaultHours, nil
	}
	return hours, nil
}

// SetSyncIntervalHours は同期間隔を保存する。範囲外の値は*model.APIErrorを返す。
func (s *SettingsStore) SetSyncIntervalHours(ctx context.Context, hours int) error {
	if !validSyncInterval(hours) {
		return model.NewInvalidSyncIntervalError(hours, config.MinSyncIntervalHours, config.MaxSyncIntervalHours)
	}
	if err := s.repo.Set(ctx, SyncIntervalKey, strconv.Itoa(hours)); err != nil {
		return fmt.Errorf("同期間隔の保存に失敗: %w", err)
	}
	s.notifier.Publish(TopicSettings)
	return nil
}

// WatchSyncIntervalHours は同期間隔のライブビューを返す。
func (s *SettingsStore) WatchSyncIntervalHours(ctx context.Context) <-chan int {
	return watch(ctx, s.notifier, s.logger, "sync_interval", s.SyncIntervalHours, TopicSettings)
}

func validSyncInterval(hours int) bool {
	return hours >= config.MinSyncIntervalHours && hours <= config.MaxSyncIntervalHours
}
