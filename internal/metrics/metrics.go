package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/obiverse/dojo/pkg/dispatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// knownPaths bounds the path label of HTTP metrics
var knownPaths = map[string]bool{
	"/":                  true,
	"/healthz":           true,
	"/status":            true,
	"/ninjas":            true,
	"/jutsu":             true,
	"/contracts":         true,
	"/dispatch":          true,
	"/shadow-clone-army": true,
	"/combination":       true,
	"/summon":            true,
	"/raw":               true,
	"/metrics":           true,
}

// Metrics holds all Prometheus metrics for the dojo
type Metrics struct {
	registry *prometheus.Registry

	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	BatchSize          prometheus.Histogram
	ChainSteps         prometheus.Histogram

	// Lane metrics
	LaneQueued  *prometheus.GaugeVec
	LaneRunning *prometheus.GaugeVec

	// Coordinator metrics
	WorkersSummonedTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dojo_invocations_total",
				Help: "Total number of inference invocations",
			},
			[]string{"worker", "capability", "status"},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dojo_invocation_duration_seconds",
				Help:    "Duration of inference invocations in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"worker", "capability"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dojo_batch_size",
				Help:    "Number of tasks per shadow clone batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 7),
			},
		),
		ChainSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dojo_chain_steps",
				Help:    "Number of steps per combination chain",
				Buckets: prometheus.LinearBuckets(1, 1, 8),
			},
		),

		LaneQueued: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dojo_lane_queued",
				Help: "Number of calls waiting in each lane",
			},
			[]string{"lane"},
		),
		LaneRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dojo_lane_running",
				Help: "Number of calls running in each lane",
			},
			[]string{"lane"},
		),

		WorkersSummonedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dojo_workers_summoned_total",
				Help: "Total number of workers summoned from contracts",
			},
			[]string{"contract"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dojo_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dojo_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.InvocationsTotal)
	m.registry.MustRegister(m.InvocationDuration)
	m.registry.MustRegister(m.BatchSize)
	m.registry.MustRegister(m.ChainSteps)

	m.registry.MustRegister(m.LaneQueued)
	m.registry.MustRegister(m.LaneRunning)

	m.registry.MustRegister(m.WorkersSummonedTotal)

	m.registry.MustRegister(m.HTTPRequestsTotal)
	m.registry.MustRegister(m.HTTPRequestDuration)
}

// InvocationCompleted records one inference call
func (m *Metrics) InvocationCompleted(event dispatch.Event) {
	status := "success"
	if event.Err != nil {
		status = "error"
	}
	m.InvocationsTotal.WithLabelValues(event.Worker, event.Capability, status).Inc()
	m.InvocationDuration.WithLabelValues(event.Worker, event.Capability).Observe(event.Elapsed.Seconds())
}

// BatchStarted records the size of a shadow clone batch
func (m *Metrics) BatchStarted(size int) {
	m.BatchSize.Observe(float64(size))
}

// ChainStarted records the length of a combination chain
func (m *Metrics) ChainStarted(steps int) {
	m.ChainSteps.Observe(float64(steps))
}

// LaneChanged mirrors a lane's counters
func (m *Metrics) LaneChanged(lane string, queued, running int) {
	m.LaneQueued.WithLabelValues(lane).Set(float64(queued))
	m.LaneRunning.WithLabelValues(lane).Set(float64(running))
}

// WorkerSummoned counts a new worker
func (m *Metrics) WorkerSummoned(contract string) {
	m.WorkersSummonedTotal.WithLabelValues(contract).Inc()
}

// RequestCompleted records one HTTP request
func (m *Metrics) RequestCompleted(path, method string, status int, duration time.Duration) {
	if !knownPaths[path] {
		path = "other"
	}
	m.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
