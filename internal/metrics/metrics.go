// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証オーケストレーターとミドルウェアから利用する。
type MetricsCollector interface {
	RecordAuthSuccess()
	RecordAuthFailure(reason string)
	RecordConnectionCreated()
	RecordCallbackLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authSuccess        prometheus.Counter
	authFail           *prometheus.CounterVec
	connectionsCreated prometheus.Counter
	callbackLatency    prometheus.Histogram
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mocklogin_auth_success_total",
			Help: "認証成功の合計数",
		}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mocklogin_auth_fail_total",
			Help: "認証失敗の合計数（失敗分類別）",
		}, []string{"reason"}),
		connectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mocklogin_connections_created_total",
			Help: "新規作成されたコネクションの合計数",
		}),
		callbackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mocklogin_callback_latency_seconds",
			Help:    "コールバック配送のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mocklogin_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFail,
		c.connectionsCreated,
		c.callbackLatency,
		c.httpStatus,
	)

	return c
}

// RecordAuthSuccess は認証成功を記録する。
func (c *Collector) RecordAuthSuccess() {
	c.authSuccess.Inc()
}

// RecordAuthFailure は認証失敗を失敗分類付きで記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFail.WithLabelValues(reason).Inc()
}

// RecordConnectionCreated はコネクションの新規作成を記録する。
func (c *Collector) RecordConnectionCreated() {
	c.connectionsCreated.Inc()
}

// RecordCallbackLatency はコールバック配送のレイテンシを記録する。
func (c *Collector) RecordCallbackLatency(duration time.Duration) {
	c.callbackLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
