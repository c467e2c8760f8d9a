package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/feedclip/internal/model"
)

// SSEイベント名。
const (
	eventTimeline      = "timeline"
	eventSubscriptions = "subscriptions"
	eventSyncInterval  = "sync_interval"
)

// defaultKeepAlive はSSE接続を維持するコメント送信の間隔。
const defaultKeepAlive = 25 * time.Second

// TimelineWatcher はタイムラインのライブビューを提供する。
type TimelineWatcher interface {
	WatchTimeline(ctx context.Context, subscriptionID int64) <-chan []model.ArticleWithSubscription
}

// SubscriptionWatcher は購読一覧のライブビューを提供する。
type SubscriptionWatcher interface {
	GetAll(ctx context.Context) <-chan []*model.Subscription
}

// IntervalWatcher は同期間隔のライブビューを提供する。
type IntervalWatcher interface {
	WatchSyncIntervalHours(ctx context.Context) <-chan int
}

// EventsHandler はライブビューをServer-Sent Eventsで配信する。
type EventsHandler struct {
	timeline      TimelineWatcher
	subscriptions SubscriptionWatcher
	intervals     IntervalWatcher
	keepAlive     time.Duration
	logger        *slog.Logger
}

// NewEventsHandler はEventsHandlerを生成する。
func NewEventsHandler(timeline TimelineWatcher, subscriptions SubscriptionWatcher, intervals IntervalWatcher, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		timeline:      timeline,
		subscriptions: subscriptions,
		intervals:     intervals,
		keepAlive:     defaultKeepAlive,
		logger:        logger,
	}
}

// Stream はタイムライン・購読一覧・同期間隔の変更をSSEで送信し続ける。
// 接続直後に現在のスナップショットを送り、以降はストアの変更毎に最新のスナップショットを送る。
// GET /api/events?subscription_id={id}
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	subscriptionID, ok := optionalIDQuery(w, r, "subscription_id")
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// WriteTimeoutで長時間接続が切られないようにする
	_ = rc.SetWriteDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	timeline := h.timeline.WatchTimeline(ctx, subscriptionID)
	subs := h.subscriptions.GetAll(ctx)
	intervals := h.intervals.WatchSyncIntervalHours(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("SSEのフラッシュに対応していません", slog.String("error", err.Error()))
		return
	}

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		var (
			event string
			data  any
		)
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			continue
		case snapshot, ok := <-timeline:
			if !ok {
				return
			}
			event, data = eventTimeline, toTimelineResponses(snapshot)
		case snapshot, ok := <-subs:
			if !ok {
				return
			}
			resp := make([]subscriptionResponse, 0, len(snapshot))
			for _, sub := range snapshot {
				resp = append(resp, toSubscriptionResponse(sub))
			}
			event, data = eventSubscriptions, resp
		case hours, ok := <-intervals:
			if !ok {
				return
			}
			event, data = eventSyncInterval, syncIntervalBody{Hours: hours}
		}

		if err := writeEvent(w, event, data); err != nil {
			h.logger.Debug("SSE接続が切断されました", slog.String("error", err.Error()))
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// writeEvent はSSE形式で1イベントを書き込む。JSONは改行を含まない。
func writeEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
