package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/feedclip/internal/config"
)

// SettingsServiceInterface は設定ハンドラーが必要とするインターフェース。
type SettingsServiceInterface interface {
	SyncIntervalHours(ctx context.Context) (int, error)
	SetSyncIntervalHours(ctx context.Context, hours int) error
}

// SettingsHandler はアプリケーション設定のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
	logger  *slog.Logger
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{service: service, logger: logger}
}

// syncIntervalBody は同期間隔のリクエスト・レスポンスボディ。
type syncIntervalBody struct {
	Hours    int `json:"hours"`
	MinHours int `json:"min_hours,omitempty"`
	MaxHours int `json:"max_hours,omitempty"`
}

// GetSyncInterval は現在の同期間隔を返す。
// GET /api/settings/sync-interval
func (h *SettingsHandler) GetSyncInterval(w http.ResponseWriter, r *http.Request) {
	hours, err := h.service.SyncIntervalHours(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, syncIntervalBody{
		Hours:    hours,
		MinHours: config.MinSyncIntervalHours,
		MaxHours: config.MaxSyncIntervalHours,
	})
}

// PutSyncInterval は同期間隔を更新する。範囲外の値は400を返す。
// PUT /api/settings/sync-interval
func (h *SettingsHandler) PutSyncInterval(w http.ResponseWriter, r *http.Request) {
	var req syncIntervalBody
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SetSyncIntervalHours(r.Context(), req.Hours); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, syncIntervalBody{
		Hours:    req.Hours,
		MinHours: config.MinSyncIntervalHours,
		MaxHours: config.MaxSyncIntervalHours,
	})
}
