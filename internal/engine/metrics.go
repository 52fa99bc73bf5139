package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"

	"github.com/xela07ax/vehicle-health-pipeline/internal/reasoning"
)

type Metrics struct {
	// Latency: сколько занял прогон целиком
	RunDuration *prometheus.HistogramVec

	// Traffic: прогоны по ветке (normal, fault, ota)
	RunsTotal *prometheus.CounterVec

	// Inference: исходы вызовов агентов (success, fallback, error)
	InferenceTotal    *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec

	// Saturation: состояние Circuit Breaker (0 - ок, 1 - выбило, 0.5 - полуоткрыт)
	CircuitBreakerState *prometheus.GaugeVec

	// Compliance: вердикты по статусам
	ComplianceVerdicts *prometheus.CounterVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RunDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vhp_run_duration_seconds",
			Help:    "Histogram of pipeline run latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"branch"}),

		RunsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vhp_runs_total",
			Help: "Total number of pipeline runs by branch.",
		}, []string{"branch"}),

		InferenceTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vhp_inference_total",
			Help: "Reasoning agent invocations by task and outcome.",
		}, []string{"task", "outcome"}),

		InferenceDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vhp_inference_duration_seconds",
			Help:    "Reasoning agent latency including fallback.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "vhp_circuit_breaker_state",
			Help: "Current state of the inference circuit breaker (0=closed, 0.5=half-open, 1=open).",
		}, []string{"breaker"}),

		ComplianceVerdicts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vhp_compliance_verdicts_total",
			Help: "Compliance verdicts by status.",
		}, []string{"status"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "vhp_audit_buffer_utilization",
			Help: "Current number of entries in audit buffer.",
		}),
	}
}

// ObserveInference реализует reasoning.Observer
func (m *Metrics) ObserveInference(task reasoning.Task, outcome reasoning.Outcome, took time.Duration) {
	m.InferenceTotal.WithLabelValues(string(task), string(outcome)).Inc()
	m.InferenceDuration.WithLabelValues(string(task)).Observe(took.Seconds())
}

// OnBreakerStateChange подключается в reasoning.ReliabilityConfig
func (m *Metrics) OnBreakerStateChange(name string, _, to gobreaker.State) {
	v := 0.0
	switch to {
	case gobreaker.StateOpen:
		v = 1
	case gobreaker.StateHalfOpen:
		v = 0.5
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}
