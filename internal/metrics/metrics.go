// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/botdir/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// パイプライン、Discordクライアント、通知ディスパッチャーから利用する。
type MetricsCollector interface {
	RecordSubmission(result string)
	RecordReview(result string)
	RecordOwnershipCheck(outcome string)
	RecordNotification(kind, outcome string)
	RecordDiscordRequest(endpoint string, duration time.Duration)
	SetCircuitBreakerState(name string, state float64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submissions     *prometheus.CounterVec
	reviews         *prometheus.CounterVec
	ownershipChecks *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	discordLatency  *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botdir_submissions_total",
			Help: "Bot登録リクエストの結果別件数",
		}, []string{"result"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botdir_reviews_total",
			Help: "レビュー投稿リクエストの結果別件数",
		}, []string{"result"}),
		ownershipChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botdir_ownership_checks_total",
			Help: "Discordアプリケーション所有権確認の結果別件数",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botdir_notifications_total",
			Help: "Webhook通知の種別・結果別件数",
		}, []string{"kind", "outcome"}),
		discordLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "botdir_discord_request_duration_seconds",
			Help:    "Discord APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "botdir_circuit_breaker_state",
			Help: "サーキットブレーカーの状態（0=closed, 1=half-open, 2=open）",
		}, []string{"name"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botdir_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.submissions,
		c.reviews,
		c.ownershipChecks,
		c.notifications,
		c.discordLatency,
		c.breakerState,
		c.httpStatus,
	)

	return c
}

// RecordSubmission はBot登録の結果を記録する。
func (c *Collector) RecordSubmission(result string) {
	c.submissions.WithLabelValues(result).Inc()
}

// RecordReview はレビュー投稿の結果を記録する。
func (c *Collector) RecordReview(result string) {
	c.reviews.WithLabelValues(result).Inc()
}

// RecordOwnershipCheck は所有権確認の結果を記録する。
func (c *Collector) RecordOwnershipCheck(outcome string) {
	c.ownershipChecks.WithLabelValues(outcome).Inc()
}

// RecordNotification は通知送信の結果を記録する。
func (c *Collector) RecordNotification(kind, outcome string) {
	c.notifications.WithLabelValues(kind, outcome).Inc()
}

// RecordDiscordRequest はDiscord APIリクエストのレイテンシを記録する。
func (c *Collector) RecordDiscordRequest(endpoint string, duration time.Duration) {
	c.discordLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetCircuitBreakerState はサーキットブレーカーの状態を記録する。
func (c *Collector) SetCircuitBreakerState(name string, state float64) {
	c.breakerState.WithLabelValues(name).Set(state)
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ResultLabel はパイプラインの戻り値をメトリクスのラベル値に変換する。
// 成功は"created"、APIErrorはコードの小文字、それ以外は"error"。
func ResultLabel(err error) string {
	if err == nil {
		return "created"
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return strings.ToLower(apiErr.Code)
	}
	return "error"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
