package observability

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	paymentAttempts *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
	paymentLatency  *prometheus.HistogramVec

	realtimeConnections prometheus.Gauge
	realtimeEvents      *prometheus.CounterVec
	realtimeDropped     *prometheus.CounterVec

	redisUp prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics set once. It returns nil when metrics are
// disabled; every method is nil-safe.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics registers a fresh metric set on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gc_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gc_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_aggregate_operations_total",
			Help: "Aggregate writes by operation/status.",
		}, []string{"operation", "status"}),
		aggregateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gc_aggregate_operation_duration_seconds",
			Help:    "Aggregate write latency by operation/status.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "status"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_aggregate_conflicts_total",
			Help: "Version conflicts by operation.",
		}, []string{"operation"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_aggregate_retryable_total",
			Help: "Retryable aggregate failures by operation.",
		}, []string{"operation"}),
		paymentAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_payment_attempts_total",
			Help: "Charge/refund attempts by kind/status.",
		}, []string{"kind", "status"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_payment_amount_minor_units_total",
			Help: "Successfully charged/refunded amount in minor units.",
		}, []string{"kind"}),
		paymentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gc_payment_call_duration_seconds",
			Help:    "Payment processor call latency by kind.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"kind"}),
		realtimeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gc_realtime_connections",
			Help: "Open SSE connections on this node.",
		}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_realtime_inbound_events_total",
			Help: "Inbound realtime events by event/outcome.",
		}, []string{"event", "outcome"}),
		realtimeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gc_realtime_dropped_total",
			Help: "Outbound messages dropped for slow connections.",
		}, []string{"event"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gc_redis_up",
			Help: "1 when the last Redis ping succeeded.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.paymentAttempts, m.paymentAmount, m.paymentLatency,
		m.realtimeConnections, m.realtimeEvents, m.realtimeDropped,
		m.redisUp,
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(name, status).Inc()
	m.aggregateLatency.WithLabelValues(name, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(name).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(name).Inc()
}

// ObservePayment records one processor call. amount counts only on success.
func (m *Metrics) ObservePayment(kind, status string, amount int64, dur time.Duration) {
	if m == nil {
		return
	}
	m.paymentAttempts.WithLabelValues(kind, status).Inc()
	m.paymentLatency.WithLabelValues(kind).Observe(dur.Seconds())
	if status == "success" && amount > 0 {
		m.paymentAmount.WithLabelValues(kind).Add(float64(amount))
	}
}

func (m *Metrics) RealtimeConnected() {
	if m == nil {
		return
	}
	m.realtimeConnections.Inc()
}

func (m *Metrics) RealtimeDisconnected() {
	if m == nil {
		return
	}
	m.realtimeConnections.Dec()
}

func (m *Metrics) IncRealtimeEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) IncRealtimeDropped(event string) {
	if m == nil {
		return
	}
	m.realtimeDropped.WithLabelValues(event).Inc()
}

// StartRedisCollector pings Redis on an interval and exports reachability.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := rdb.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				m.redisUp.Set(0)
				if log != nil {
					log.Debug("redis ping failed", "error", err)
				}
			} else {
				m.redisUp.Set(1)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
