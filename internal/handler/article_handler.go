package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedclip/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	Timeline(ctx context.Context, subscriptionID int64) ([]model.ArticleWithSubscription, error)
	GetArticle(ctx context.Context, id int64) (*model.ArticleWithSubscription, error)
	ListBySubscription(ctx context.Context, subscriptionID int64) ([]model.Article, error)
	ClearSubscription(ctx context.Context, subscriptionID int64) (int64, error)
	Refresh(ctx context.Context) error
}

// ArticleHandler はタイムラインと記事のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
	logger  *slog.Logger
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, logger *slog.Logger) *ArticleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArticleHandler{service: service, logger: logger}
}

// articleResponse は記事のAPIレスポンス。
// pub_dateは解析できなかった場合に空文字列になる。
type articleResponse struct {
	ID                  int64  `json:"id"`
	SubscriptionID      int64  `json:"subscription_id"`
	GUID                string `json:"guid"`
	Title               string `json:"title"`
	Link                string `json:"link"`
	PubDate             string `json:"pub_date"`
	Content             string `json:"content"`
	ThumbnailURL        string `json:"thumbnail_url"`
	SubscriptionName    string `json:"subscription_name,omitempty"`
	SubscriptionIconURL string `json:"subscription_icon_url,omitempty"`
}

func toArticleResponse(a model.Article) articleResponse {
	return articleResponse{
		ID:             a.ID,
		SubscriptionID: a.SubscriptionID,
		GUID:           a.GUID,
		Title:          a.Title,
		Link:           a.Link,
		PubDate:        a.PubDate,
		Content:        a.Content,
		ThumbnailURL:   a.ThumbnailURL,
	}
}

func toTimelineResponse(a model.ArticleWithSubscription) articleResponse {
	resp := toArticleResponse(a.Article)
	resp.SubscriptionName = a.SubscriptionName
	resp.SubscriptionIconURL = a.SubscriptionIconURL
	return resp
}

func toTimelineResponses(articles []model.ArticleWithSubscription) []articleResponse {
	resp := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, toTimelineResponse(a))
	}
	return resp
}

// Timeline は全購読の記事を公開日時の降順で返す。
// GET /api/articles?subscription_id={id}
func (h *ArticleHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	subscriptionID, ok := optionalIDQuery(w, r, "subscription_id")
	if !ok {
		return
	}

	articles, err := h.service.Timeline(r.Context(), subscriptionID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineResponses(articles))
}

// GetArticle は記事の詳細を返す。
// GET /api/articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	a, err := h.service.GetArticle(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelineResponse(*a))
}

// ListBySubscription は購読に所属する記事を返す。
// GET /api/subscriptions/{id}/articles
func (h *ArticleHandler) ListBySubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	articles, err := h.service.ListBySubscription(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, toArticleResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearSubscription は購読に所属する全記事を削除する。購読自体は残る。
// DELETE /api/subscriptions/{id}/articles
func (h *ArticleHandler) ClearSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	n, err := h.service.ClearSubscription(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Refresh は全購読を同期する。同期中に呼ばれた場合は409を返す。
// POST /api/sync
func (h *ArticleHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.service.Refresh(r.Context()); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "completed",
		"duration_ms": time.Since(start).Milliseconds(),
	})
}
