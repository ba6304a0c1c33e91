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
// 会話サービスやリマインドスケジューラから利用する。
type MetricsCollector interface {
	RecordMessageProcessed(mode string)
	RecordPlanRejected()
	RecordActionExecuted(actionType string)
	RecordReminderSent(kind string)
	RecordReminderFailure()
	RecordDeliveryLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	messagesProcessed *prometheus.CounterVec
	planRejected      prometheus.Counter
	actionsExecuted   *prometheus.CounterVec
	remindersSent     *prometheus.CounterVec
	reminderFail      prometheus.Counter
	deliveryLatency   prometheus.Histogram
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisho_messages_processed_total",
			Help: "処理したメッセージの合計数（mode: sync/async）",
		}, []string{"mode"}),
		planRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hisho_plan_rejected_total",
			Help: "検証で拒否されたアクションプランの合計数",
		}),
		actionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisho_actions_executed_total",
			Help: "実行されたアクションのタイプ別合計数",
		}, []string{"type"}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisho_reminders_sent_total",
			Help: "配信されたリマインドの種別別合計数",
		}, []string{"kind"}),
		reminderFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hisho_reminder_fail_total",
			Help: "配信に失敗したリマインドの合計数",
		}),
		deliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hisho_delivery_latency_seconds",
			Help:    "プッシュ配信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisho_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.messagesProcessed,
		c.planRejected,
		c.actionsExecuted,
		c.remindersSent,
		c.reminderFail,
		c.deliveryLatency,
		c.httpStatus,
	)

	return c
}

// RecordMessageProcessed はメッセージ処理の完了を記録する。
func (c *Collector) RecordMessageProcessed(mode string) {
	c.messagesProcessed.WithLabelValues(mode).Inc()
}

// RecordPlanRejected はプラン検証の拒否を記録する。
func (c *Collector) RecordPlanRejected() {
	c.planRejected.Inc()
}

// RecordActionExecuted はアクションの実行を記録する。
func (c *Collector) RecordActionExecuted(actionType string) {
	c.actionsExecuted.WithLabelValues(actionType).Inc()
}

// RecordReminderSent はリマインドの配信成功を記録する。
func (c *Collector) RecordReminderSent(kind string) {
	c.remindersSent.WithLabelValues(kind).Inc()
}

// RecordReminderFailure はリマインドの配信失敗を記録する。
func (c *Collector) RecordReminderFailure() {
	c.reminderFail.Inc()
}

// RecordDeliveryLatency はプッシュ配信のレイテンシを記録する。
func (c *Collector) RecordDeliveryLatency(duration time.Duration) {
	c.deliveryLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
