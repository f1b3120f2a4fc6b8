// Package metrics は Prometheus メトリクスの収集と公開を行います。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatchedRoute = "unmatched"

// Manager はサービスのメトリクスを保持します。
type Manager struct {
	namespace        string
	histogramBuckets []float64
	runtimeMetrics   bool
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	resetNotifications  *prometheus.CounterVec
}

// Option は Manager の設定を変更します。
type Option func(*Manager)

// WithNamespace はメトリクス名の名前空間を設定します。
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets はレイテンシのバケットを設定します。
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRuntimeMetrics は Go ランタイムとプロセスのコレクターを登録するかを設定します。
func WithRuntimeMetrics(enabled bool) Option {
	return func(m *Manager) {
		m.runtimeMetrics = enabled
	}
}

// NewManager は専用レジストリを持つ Manager を作成します。
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "userportal",
		histogramBuckets: prometheus.DefBuckets,
		runtimeMetrics:   true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method", "status"})

	m.resetNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "password_reset",
		Name:      "notifications_total",
		Help:      "Password reset notifications by outcome.",
	}, []string{"outcome"})

	m.registry.MustRegister(m.httpRequests, m.httpRequestDuration, m.resetNotifications)
	if m.runtimeMetrics {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry は内部のレジストリを返します。
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest は 1 リクエスト分のメトリクスを記録します。
func (m *Manager) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, code).Observe(elapsed.Seconds())
}

// RecordResetNotification はリセット通知の処理結果を記録します。
// outcome は queued, sent, failed のいずれかです。
func (m *Manager) RecordResetNotification(outcome string) {
	m.resetNotifications.WithLabelValues(outcome).Inc()
}

// Middleware はリクエスト数とレイテンシを記録する Gin ミドルウェアです。
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.RecordHTTPRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Handler は /metrics 用のハンドラーを返します。
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
