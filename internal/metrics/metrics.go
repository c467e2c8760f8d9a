// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 同期失敗の理由ラベル。
const (
	ReasonNetwork          = "network"
	ReasonHTTPStatus       = "http_status"
	ReasonParse            = "parse"
	ReasonSubscriptionGone = "subscription_gone"
	ReasonStore            = "store"
)

// SyncRecorder は同期処理のメトリクス記録インターフェース。
// 同期処理とフィード取得クライアントから利用する。
type SyncRecorder interface {
	RecordSyncSuccess(subscriptionID int64)
	RecordSyncFailure(subscriptionID int64, reason string)
	RecordParseFailure(subscriptionID int64)
	RecordHTTPStatus(statusCode int)
	RecordFetchDuration(d time.Duration)
	RecordArticlesUpserted(count int)
	RecordSyncRun(d time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess      prometheus.Counter
	syncFail         *prometheus.CounterVec
	parseFail        prometheus.Counter
	httpStatus       *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	articlesUpserted prometheus.Counter
	syncRunDuration  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedclip_sync_success_total",
			Help: "購読同期成功の合計数",
		}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedclip_sync_fail_total",
			Help: "購読同期失敗の合計数（理由別）",
		}, []string{"reason"}),
		parseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedclip_parse_fail_total",
			Help: "フィードパース失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedclip_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedclip_fetch_latency_seconds",
			Help:    "フィードフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		articlesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedclip_articles_upserted_total",
			Help: "保存された記事の合計数",
		}),
		syncRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedclip_sync_run_duration_seconds",
			Help:    "全購読同期1回あたりの所要時間（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.parseFail,
		c.httpStatus,
		c.fetchLatency,
		c.articlesUpserted,
		c.syncRunDuration,
	)

	return c
}

// RecordSyncSuccess は同期成功を記録する。
func (c *Collector) RecordSyncSuccess(subscriptionID int64) {
	c.syncSuccess.Inc()
}

// RecordSyncFailure は同期失敗を理由別に記録する。
func (c *Collector) RecordSyncFailure(subscriptionID int64, reason string) {
	c.syncFail.WithLabelValues(reason).Inc()
}

// RecordParseFailure はパース失敗を記録する。
func (c *Collector) RecordParseFailure(subscriptionID int64) {
	c.parseFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchDuration はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchDuration(d time.Duration) {
	c.fetchLatency.Observe(d.Seconds())
}

// RecordArticlesUpserted は保存された記事数を記録する。
func (c *Collector) RecordArticlesUpserted(count int) {
	c.articlesUpserted.Add(float64(count))
}

// RecordSyncRun は全購読同期の所要時間を記録する。
func (c *Collector) RecordSyncRun(d time.Duration) {
	c.syncRunDuration.Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewRegistry はGoランタイムとプロセスのコレクターを登録済みのレジストリを返す。
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Nop は何も記録しないSyncRecorder。メトリクスを使わないCLIとテストで使う。
type Nop struct{}

func (Nop) RecordSyncSuccess(int64)           {}
func (Nop) RecordSyncFailure(int64, string)   {}
func (Nop) RecordParseFailure(int64)          {}
func (Nop) RecordHTTPStatus(int)              {}
func (Nop) RecordFetchDuration(time.Duration) {}
func (Nop) RecordArticlesUpserted(int)        {}
func (Nop) RecordSyncRun(time.Duration)       {}

var (
	_ SyncRecorder = (*Collector)(nil)
	_ SyncRecorder = Nop{}
)
