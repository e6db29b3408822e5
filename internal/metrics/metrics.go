// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// リフレッシュスケジューラから利用する。
type MetricsCollector interface {
	RecordFetchSuccess(deals int)
	RecordFetchFailure(kind string)
	RecordFetchLatency(duration time.Duration)
	SetLastSuccess(at time.Time)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess  prometheus.Counter
	fetchFail     *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	dealsTracked  prometheus.Gauge
	lastSuccessAt prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dropwatch_fetch_success_total",
			Help: "フィード取得成功の合計数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dropwatch_fetch_fail_total",
			Help: "フィード取得失敗の合計数（種別: network, http, parse）",
		}, []string{"kind"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dropwatch_fetch_latency_seconds",
			Help:    "フィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		dealsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dropwatch_deals_tracked",
			Help: "現在のスナップショットに含まれる値下げ件数",
		}),
		lastSuccessAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dropwatch_last_success_timestamp_seconds",
			Help: "最後にフィード取得に成功した時刻（UNIX秒）",
		}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.fetchLatency,
		c.dealsTracked,
		c.lastSuccessAt,
	)

	return c
}

// RecordFetchSuccess はフェッチ成功を記録し、保持中の件数を更新する。
func (c *Collector) RecordFetchSuccess(deals int) {
	c.fetchSuccess.Inc()
	c.dealsTracked.Set(float64(deals))
}

// RecordFetchFailure はフェッチ失敗を種別ごとに記録する。
func (c *Collector) RecordFetchFailure(kind string) {
	c.fetchFail.WithLabelValues(kind).Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// SetLastSuccess は最終成功時刻を記録する。
func (c *Collector) SetLastSuccess(at time.Time) {
	c.lastSuccessAt.Set(float64(at.Unix()))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
