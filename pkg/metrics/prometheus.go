package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every pitwall metric. A nil *Manager is valid and records
// nothing, so components can take one unconditionally.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	resolutions      *prometheus.CounterVec
	resolveDuration  *prometheus.HistogramVec
	generations      *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
	storeConflicts   *prometheus.CounterVec
	queries          *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewManager creates a Manager on its own registry, which also carries the
// Go runtime and process collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "pitwall",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.resolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "resolver",
		Name:      "resolutions_total",
		Help:      "Artifact resolutions by lookup state and outcome",
	}, []string{"state", "outcome"})

	m.resolveDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "resolver",
		Name:      "resolve_duration_seconds",
		Help:      "Time to resolve one artifact, including rendering on a miss",
		Buckets:   m.buckets,
	}, []string{"state"})

	m.generations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "render",
		Name:      "generations_total",
		Help:      "Chart renders by kind and result",
	}, []string{"kind", "result"})

	m.generateDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "render",
		Name:      "generate_duration_seconds",
		Help:      "Time spent rendering one chart",
		Buckets:   m.buckets,
	}, []string{"kind"})

	m.storeConflicts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "resolver",
		Name:      "store_conflicts_total",
		Help:      "Inserts that lost a uniqueness race to a concurrent writer",
	}, []string{"entity"})

	m.queries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "dispatch",
		Name:      "queries_total",
		Help:      "User queries by outcome",
	}, []string{"outcome"})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "telemetry",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   m.buckets,
	}, []string{"method", "route"})
}

// ObserveResolution records one resolver call.
func (m *Manager) ObserveResolution(state, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(state, outcome).Inc()
	m.resolveDuration.WithLabelValues(state).Observe(d.Seconds())
}

// ObserveGeneration records one chart render.
func (m *Manager) ObserveGeneration(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.generations.WithLabelValues(kind, result).Inc()
	m.generateDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncStoreConflict records an insert that lost a uniqueness race.
func (m *Manager) IncStoreConflict(entity string) {
	if m == nil {
		return
	}
	m.storeConflicts.WithLabelValues(entity).Inc()
}

// IncQuery records the outcome of one user query.
func (m *Manager) IncQuery(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

// SetBreakerState records a circuit breaker transition.
func (m *Manager) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(state)
}

// ObserveHTTP records one served HTTP request.
func (m *Manager) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the registry metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
