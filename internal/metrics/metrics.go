// Package metrics exposes Prometheus instrumentation for the execution engine.
//
// A private registry is used instead of the global default so tests can
// build as many Metrics values as they like without duplicate-registration
// panics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for coderun_executions_total.
const (
	OutcomeOK           = "ok"
	OutcomeRuntimeError = "runtime_error"
	OutcomeCompileError = "compile_error"
	OutcomeTimeout      = "timeout"
	OutcomeSystemFault  = "system_fault"
	OutcomeUnsupported  = "unsupported_language"
	OutcomeCanceled     = "canceled"
)

// Phase labels for coderun_phase_duration_seconds.
const (
	PhaseCompile = "compile"
	PhaseRun     = "run"
	PhaseTotal   = "total"
)

// Metrics holds the engine's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	executions *prometheus.CounterVec
	phases     *prometheus.HistogramVec
	inFlight   prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coderun_executions_total",
				Help: "Total number of execution requests by language and outcome.",
			},
			[]string{"language", "outcome"},
		),
		phases: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coderun_phase_duration_seconds",
				Help:    "Wall-clock duration of compile, run and whole-request phases.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"language", "phase"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coderun_executions_in_flight",
				Help: "Number of executions currently running.",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Begin marks an execution as in flight; call the returned func when it ends.
func (m *Metrics) Begin() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// Execution counts one finished request.
func (m *Metrics) Execution(language, outcome string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(language, outcome).Inc()
}

// Phase records how long one phase of a request took.
func (m *Metrics) Phase(language, phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phases.WithLabelValues(language, phase).Observe(d.Seconds())
}
