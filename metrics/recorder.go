// Package metrics exports Prometheus metrics for group chat runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures metric export.
type Config struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// DefaultConfig returns metrics disabled under the "agentchat" namespace.
func DefaultConfig() Config { return Config{Namespace: "agentchat"} }

// Recorder records run, round, function call and termination metrics. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	runsStarted       prometheus.Counter
	runsFinished      *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	activeRuns        prometheus.Gauge
	rounds            *prometheus.CounterVec
	roundDuration     *prometheus.HistogramVec
	functionCalls     *prometheus.CounterVec
	functionDuration  *prometheus.HistogramVec
	terminationChecks *prometheus.CounterVec
	selectionFailures *prometheus.CounterVec
}

// NewRecorder registers the metrics on reg. A nil reg creates unregistered
// collectors.
func NewRecorder(namespace string, reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)

	return &Recorder{
		runsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of group chat runs started",
		}),
		runsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Total number of group chat runs finished",
		}, []string{"status", "reason"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Group chat run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"status"}),
		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Number of group chat runs in progress",
		}),
		rounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of completed rounds per agent",
		}, []string{"agent"}),
		roundDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Duration of one agent turn including function dispatch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent"}),
		functionCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_calls_total",
			Help:      "Total number of executed function calls",
		}, []string{"agent", "function", "status"}),
		functionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_call_duration_seconds",
			Help:      "Function call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
		terminationChecks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "termination_checks_total",
			Help:      "Total number of termination checks by outcome",
		}, []string{"result"}),
		selectionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_failures_total",
			Help:      "Total number of fatal selection failures",
		}, []string{"strategy"}),
	}
}

// RunStarted records the start of a run.
func (r *Recorder) RunStarted() {
	if r == nil {
		return
	}
	r.runsStarted.Inc()
	r.activeRuns.Inc()
}

// RunFinished records the outcome of a run.
func (r *Recorder) RunFinished(status, reason string, d time.Duration) {
	if r == nil {
		return
	}
	r.activeRuns.Dec()
	r.runsFinished.WithLabelValues(status, reason).Inc()
	r.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RoundCompleted records one committed agent turn.
func (r *Recorder) RoundCompleted(agent string, d time.Duration) {
	if r == nil {
		return
	}
	r.rounds.WithLabelValues(agent).Inc()
	r.roundDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// ObserveFunctionCall records one executed function call.
func (r *Recorder) ObserveFunctionCall(agent, function string, success bool, d time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	r.functionCalls.WithLabelValues(agent, function, status).Inc()
	r.functionDuration.WithLabelValues(function).Observe(d.Seconds())
}

// TerminationChecked records a termination decision; err marks failed checks.
func (r *Recorder) TerminationChecked(terminate bool, err error) {
	if r == nil {
		return
	}
	result := "continue"
	switch {
	case err != nil:
		result = "error"
	case terminate:
		result = "terminate"
	}
	r.terminationChecks.WithLabelValues(result).Inc()
}

// SelectionFailed records a fatal selection error.
func (r *Recorder) SelectionFailed(strategy string) {
	if r == nil {
		return
	}
	r.selectionFailures.WithLabelValues(strategy).Inc()
}
