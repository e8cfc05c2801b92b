package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Execution metrics
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "executor_executions_total",
			Help: "Total number of signal executions by final status",
		},
		[]string{"status"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "executor_execution_duration_seconds",
			Help:    "Time from slot acquisition to final result",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	submitAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "executor_submit_attempts_total",
			Help: "Order submit attempts by outcome",
		},
		[]string{"outcome"},
	)

	conflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "executor_conflicts_total",
			Help: "Signals dropped because their slot was in flight",
		},
		[]string{"symbol"},
	)

	// Leverage metrics
	leverageUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "executor_leverage_updates_total",
			Help: "Leverage ensure calls by result",
		},
		[]string{"result"},
	)

	// Subscriber metrics
	droppedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "executor_dropped_result_events_total",
			Help: "Execution results not delivered to a slow subscriber",
		},
	)

	// Exchange protection
	circuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "executor_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "executor_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(executionsTotal)
	prometheus.MustRegister(executionDuration)
	prometheus.MustRegister(submitAttempts)
	prometheus.MustRegister(conflictsTotal)
	prometheus.MustRegister(leverageUpdates)
	prometheus.MustRegister(droppedEvents)
	prometheus.MustRegister(circuitState)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordExecution records the final status and latency of one execution
func RecordExecution(status string, d time.Duration) {
	executionsTotal.WithLabelValues(status).Inc()
	executionDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordSubmitAttempt records one SubmitOrder call
func RecordSubmitAttempt(outcome string) {
	submitAttempts.WithLabelValues(outcome).Inc()
}

// RecordConflict records a dropped signal
func RecordConflict(symbol string) {
	conflictsTotal.WithLabelValues(symbol).Inc()
}

// RecordLeverageUpdate records one leverage ensure result
func RecordLeverageUpdate(result string) {
	leverageUpdates.WithLabelValues(result).Inc()
}

// RecordDroppedEvent records a result a subscriber could not take
func RecordDroppedEvent() {
	droppedEvents.Inc()
}

// SetCircuitState publishes a breaker state
func SetCircuitState(name string, state int) {
	circuitState.WithLabelValues(name).Set(float64(state))
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
