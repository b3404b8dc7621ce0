// Package metrics provides Prometheus metrics collection for the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Call lifecycle metrics
	CallsStarted    prometheus.Counter
	CallsCompleted  *prometheus.CounterVec
	CallsActive     prometheus.Gauge
	CallDuration    prometheus.Histogram
	CallsGateClosed prometheus.Counter
	CallReentries   *prometheus.CounterVec

	// Node execution metrics
	NodeExecutionsTotal *prometheus.CounterVec
	NodeDeadEndsTotal   prometheus.Counter
	NodePanicsTotal     prometheus.Counter
	LoopLimitTotal      prometheus.Counter

	// HTTP invoker metrics
	APIInvocationsTotal *prometheus.CounterVec
	APIInvokeDuration   *prometheus.HistogramVec
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips prometheus.Counter

	// Agent rendezvous metrics
	QueueHandoffsTotal *prometheus.CounterVec
	AgentsAvailable    prometheus.Gauge

	// Config metrics
	ConfigReloadsTotal *prometheus.CounterVec

	// Registry used for this metrics instance (nil means default registry)
	registry prometheus.Gatherer
}

// NewMetrics creates a new Metrics instance with all collectors registered.
func NewMetrics() *Metrics {
	m := newMetricsWithRegistry(prometheus.DefaultRegisterer)
	m.registry = prometheus.DefaultGatherer
	return m
}

// NewMetricsWithRegistry creates metrics using a custom registry (for testing).
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := newMetricsWithRegistry(reg)
	m.registry = reg
	return m
}

func newMetricsWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		CallsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ivrflow_calls_started_total",
				Help: "Total number of calls accepted by the flow driver",
			},
		),
		CallsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivrflow_calls_completed_total",
				Help: "Total number of calls completed by outcome",
			},
			[]string{"outcome"}, // "normal", "dead_end", "fatal", "aborted", "queued"
		),
		CallsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ivrflow_calls_active",
				Help: "Number of calls currently inside the flow driver",
			},
		),
		CallDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ivrflow_call_duration_seconds",
				Help:    "Time a call spent inside the flow driver",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		CallsGateClosed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ivrflow_calls_gate_closed_total",
				Help: "Total number of calls rejected by the business-hours gate",
			},
		),
		CallReentries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivrflow_call_reentries_total",
				Help: "Total number of queue re-entries by outcome",
			},
			[]string{"outcome"}, // "bridged", "timeout"
		),

		NodeExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivrflow_node_executions_total",
				Help: "Total number of node handler executions by op code and result token",
			},
			[]string{"op_code", "token"},
		),
		NodeDeadEndsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ivrflow_node_dead_ends_total",
				Help: "Total number of calls terminated because no edge matched",
			},
		),
		NodePanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ivrflow_node_panics_total",
				Help: "Total number of handler panics caught at the driver boundary",
			},
		),
		LoopLimitTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ivrflow_loop_limit_total",
				Help: "Total number of calls terminated by the transition loop limit",
			},
		),

		APIInvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivrflow_api_invocations_total",
				Help: "Total number of catalog API invocations by api id and outcome",
			},
			[]string{"api_id", "outcome"}, // outcome: "success", "failure", "circuit_open"
		),
		APIInvokeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ivrflow_api_invoke_duration_seconds",
				Help:    "Duration of catalog API invocations",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{"api_id"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ivrflow_circuit_breaker_state",
				Help: "Circuit breaker state per API (0=closed, 1=half-open, 2=open)",
			},
			[]string{"api_id"},
		),
		CircuitBreakerTrips: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ivrflow_circuit_breaker_trips_total",
				Help: "Total number of circuit breaker openings",
			},
		),

		QueueHandoffsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivrflow_queue_handoffs_total",
				Help: "Total number of queue handoffs by mode",
			},
			[]string{"mode"}, // "plain", "evaluation"
		),
		AgentsAvailable: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ivrflow_agents_available",
				Help: "Number of agents marked available at the last rendezvous scan",
			},
		),

		ConfigReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivrflow_config_reloads_total",
				Help: "Total number of configuration reload attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry != nil {
		return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// RecordCallStarted records a call entering the driver.
func (m *Metrics) RecordCallStarted() {
	m.CallsStarted.Inc()
	m.CallsActive.Inc()
}

// RecordCallCompleted records a call leaving the driver.
func (m *Metrics) RecordCallCompleted(outcome string, duration time.Duration) {
	m.CallsCompleted.WithLabelValues(outcome).Inc()
	m.CallsActive.Dec()
	m.CallDuration.Observe(duration.Seconds())
}

// RecordNodeExecution records one handler run.
func (m *Metrics) RecordNodeExecution(opCode int, token string) {
	m.NodeExecutionsTotal.WithLabelValues(itoa(opCode), token).Inc()
}

// RecordDeadEnd records a dead-end termination.
func (m *Metrics) RecordDeadEnd() {
	m.NodeDeadEndsTotal.Inc()
}

// RecordPanic records a handler panic caught at the fault boundary.
func (m *Metrics) RecordPanic() {
	m.NodePanicsTotal.Inc()
}

// RecordLoopLimit records a loop-protection termination.
func (m *Metrics) RecordLoopLimit() {
	m.LoopLimitTotal.Inc()
}

// RecordAPIInvocation records one catalog API invocation.
func (m *Metrics) RecordAPIInvocation(apiID int, success bool, duration time.Duration) {
	outcome := outcomeFailure
	if success {
		outcome = outcomeSuccess
	}
	m.APIInvocationsTotal.WithLabelValues(itoa(apiID), outcome).Inc()
	m.APIInvokeDuration.WithLabelValues(itoa(apiID)).Observe(duration.Seconds())
}

// RecordCircuitOpen records an invocation rejected by an open breaker.
func (m *Metrics) RecordCircuitOpen(apiID int) {
	m.APIInvocationsTotal.WithLabelValues(itoa(apiID), "circuit_open").Inc()
	m.CircuitBreakerTrips.Inc()
}

// SetCircuitBreakerState sets the breaker gauge for an API.
// State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetCircuitBreakerState(apiID int, state int) {
	m.CircuitBreakerState.WithLabelValues(itoa(apiID)).Set(float64(state))
}

// RecordQueueHandoff records an op 100/101 handoff.
func (m *Metrics) RecordQueueHandoff(evaluation bool) {
	mode := "plain"
	if evaluation {
		mode = "evaluation"
	}
	m.QueueHandoffsTotal.WithLabelValues(mode).Inc()
}

// RecordReentry records a post-bridge re-entry.
func (m *Metrics) RecordReentry(bridged bool) {
	outcome := "timeout"
	if bridged {
		outcome = "bridged"
	}
	m.CallReentries.WithLabelValues(outcome).Inc()
}

// SetAgentsAvailable sets the available-agent gauge.
func (m *Metrics) SetAgentsAvailable(count int) {
	m.AgentsAvailable.Set(float64(count))
}

// RecordGateClosed records a call rejected by the business-hours gate.
func (m *Metrics) RecordGateClosed() {
	m.CallsGateClosed.Inc()
}

// RecordConfigReload records a reload attempt.
func (m *Metrics) RecordConfigReload(success bool) {
	outcome := outcomeFailure
	if success {
		outcome = outcomeSuccess
	}
	m.ConfigReloadsTotal.WithLabelValues(outcome).Inc()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
