// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedclip/internal/metrics"
	"github.com/hitoshi/feedclip/internal/middleware"
	"github.com/hitoshi/feedclip/internal/model"
	"github.com/hitoshi/feedclip/internal/syncer"
)

// maxRequestBodySize はJSONリクエストボディの上限。
const maxRequestBodySize = 64 * 1024

// writeJSON はvをJSONとして書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをdstに読み込む。失敗した場合は400を書き込んでfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// idParam はURLパスパラメータを正の整数IDとして解析する。
// 失敗した場合は400を書き込んでfalseを返す。
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("IDは正の整数で指定してください"))
		return 0, false
	}
	return id, true
}

// optionalIDQuery はクエリパラメータを任意の購読IDとして解析する。未指定の場合は0を返す。
func optionalIDQuery(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(name+"は0以上の整数で指定してください"))
		return 0, false
	}
	return id, true
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットで書き込む。
// 5xxになるエラーのみ詳細をログに残す。
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if status := middleware.WriteError(w, err); status >= 500 {
		logger.Error("internal server error",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}
}

// syncAPIError は同期エラーをAPIErrorに変換する。
func syncAPIError(err error) error {
	var recoverable *syncer.RecoverableSyncError
	if errors.As(err, &recoverable) {
		if recoverable.Reason == metrics.ReasonSubscriptionGone {
			return model.NewSubscriptionNotFoundError(recoverable.SubscriptionID)
		}
		return model.NewFeedUnavailableError(recoverable.Reason)
	}
	if syncer.IsFatal(err) {
		return model.NewSyncFailedError()
	}
	return err
}
