package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/feedclip/internal/model"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	AddSubscription(ctx context.Context, rawURL string) (int64, error)
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	DeleteSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, id int64) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]*model.Subscription, error)
}

// SubscriptionSyncer は単一購読の手動同期を行うインターフェース。
type SubscriptionSyncer interface {
	TrySyncSubscription(ctx context.Context, feedURL string, subscriptionID int64) (int, error)
}

// SubscriptionHandler は購読管理のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
	syncer  SubscriptionSyncer
	logger  *slog.Logger
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface, syncer SubscriptionSyncer, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{service: service, syncer: syncer, logger: logger}
}

// subscriptionResponse は購読情報のAPIレスポンス。
type subscriptionResponse struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	IconURL  string `json:"icon_url"`
	Category string `json:"category"`
}

func toSubscriptionResponse(sub *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:       sub.ID,
		URL:      sub.URL,
		Name:     sub.Name,
		IconURL:  sub.IconURL,
		Category: sub.Category,
	}
}

// addSubscriptionRequest は購読追加リクエストのボディ。
type addSubscriptionRequest struct {
	URL string `json:"url"`
}

// updateSubscriptionRequest は購読更新リクエストのボディ。
type updateSubscriptionRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	IconURL  *string `json:"icon_url"`
}

// syncResponse は手動同期の結果。
type syncResponse struct {
	SubscriptionID int64  `json:"subscription_id"`
	Articles       int    `json:"articles"`
	Error          string `json:"error,omitempty"`
}

// addSubscriptionResponse は購読追加のAPIレスポンス。追加直後の同期結果を含む。
type addSubscriptionResponse struct {
	Subscription subscriptionResponse `json:"subscription"`
	Sync         syncResponse         `json:"sync"`
}

// ListSubscriptions は購読一覧を表示名順に返す。
// GET /api/subscriptions
func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListSubscriptions(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, toSubscriptionResponse(sub))
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddSubscription は購読を追加し、続けてその購読を同期する。
// 同期に失敗しても購読の追加は取り消さない。
// POST /api/subscriptions
func (h *SubscriptionHandler) AddSubscription(w http.ResponseWriter, r *http.Request) {
	var req addSubscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.service.AddSubscription(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	sub, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := addSubscriptionResponse{
		Subscription: toSubscriptionResponse(sub),
		Sync:         h.sync(r, sub),
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetSubscription は購読を1件返す。
// GET /api/subscriptions/{id}
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	sub, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// UpdateSubscription は購読の表示名・カテゴリ・アイコンを更新する。
// icon_urlを省略した場合は現在のアイコンを維持する。
// PUT /api/subscriptions/{id}
func (h *SubscriptionHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req updateSubscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	sub.Name = req.Name
	sub.Category = req.Category
	if req.IconURL != nil {
		sub.IconURL = *req.IconURL
	}

	if err := h.service.UpdateSubscription(r.Context(), sub); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// DeleteSubscription は購読と所属する記事を削除する。
// DELETE /api/subscriptions/{id}
func (h *SubscriptionHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	sub, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if err := h.service.DeleteSubscription(r.Context(), sub); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncSubscription は購読を1件だけ同期し、保存件数を返す。
// 取得・解析の失敗は原因カテゴリ付きのエラーとして返す。
// POST /api/subscriptions/{id}/sync
func (h *SubscriptionHandler) SyncSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	sub, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	n, err := h.syncer.TrySyncSubscription(r.Context(), sub.URL, sub.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, syncAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{SubscriptionID: sub.ID, Articles: n})
}

// sync は追加直後の購読を同期する。失敗はレスポンスのerrorに原因コードを入れて返す。
func (h *SubscriptionHandler) sync(r *http.Request, sub *model.Subscription) syncResponse {
	result := syncResponse{SubscriptionID: sub.ID}

	n, err := h.syncer.TrySyncSubscription(r.Context(), sub.URL, sub.ID)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(syncAPIError(err), &apiErr) {
			result.Error = apiErr.Code
		} else {
			result.Error = "INTERNAL_ERROR"
		}
		h.logger.Warn("追加直後の同期に失敗しました",
			slog.Int64("subscription_id", sub.ID),
			slog.String("error", err.Error()),
		)
		return result
	}
	result.Articles = n
	return result
}
