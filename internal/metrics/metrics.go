// Package metrics exports solver activity as Prometheus collectors.
//
// A Metrics value is a solver.Observer. Collectors are registered on the
// Registerer given to New, so tests and one-shot CLI runs use their own
// registry and dump it with WriteTextFile.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chisel/core/solver"
	"chisel/core/spec"
)

const namespace = "chisel"

// Metrics implements solver.Observer.
type Metrics struct {
	rounds       *prometheus.CounterVec
	violation    prometheus.Gauge
	proposals    *prometheus.CounterVec
	evaluations  *prometheus.CounterVec
	evalDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	edits        prometheus.Histogram
}

var _ solver.Observer = (*Metrics)(nil)

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "rounds_total",
			Help:      "Search rounds by phase",
		}, []string{"phase"}),
		violation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "constraint_violation",
			Help:      "Constraint violation at the start of the latest phase-1 round",
		}),
		proposals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "proposals_total",
			Help:      "Mutation proposals by phase and outcome",
		}, []string{"phase", "result"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spec",
			Name:      "evaluations_total",
			Help:      "Specification evaluations by kind and outcome",
		}, []string{"kind", "result"}),
		evalDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "spec",
			Name:      "evaluation_duration_seconds",
			Help:      "Specification evaluation latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12), // 1µs to ~4s
		}, []string{"kind"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed optimization runs by outcome",
		}, []string{"result"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one optimization run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		edits: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_edited_bases",
			Help:      "Bases changed per run",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
	}
}

func phaseName(phase int) string {
	if phase == 1 {
		return "constraints"
	}
	return "objectives"
}

// Kind reduces a specification label to its family name, keeping label
// cardinality bounded: "AvoidPattern(GAATTC)@0-10(+)" is "AvoidPattern".
func Kind(label string) string {
	if i := strings.IndexAny(label, "(@["); i > 0 {
		return label[:i]
	}
	return label
}

func (m *Metrics) OnRound(phase, _ int, violation float64) {
	m.rounds.WithLabelValues(phaseName(phase)).Inc()
	if phase == 1 {
		m.violation.Set(violation)
	}
}

func (m *Metrics) OnProposal(phase int, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.proposals.WithLabelValues(phaseName(phase), result).Inc()
}

func (m *Metrics) OnEvaluation(label string, ev spec.Evaluation, elapsed time.Duration) {
	kind := Kind(label)
	result := "pass"
	switch {
	case ev.Err != nil:
		result = "error"
	case !ev.Passes():
		result = "fail"
	}
	m.evaluations.WithLabelValues(kind, result).Inc()
	m.evalDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRun records the outcome of a finished Solve.
func (m *Metrics) ObserveRun(res *solver.Result, elapsed time.Duration) {
	result := "success"
	if res == nil || !res.Success {
		result = "failure"
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	if res != nil {
		m.edits.Observe(float64(res.EditCount))
	}
}

// WriteTextFile dumps g in the Prometheus text format to path, atomically,
// for the node_exporter textfile collector.
func WriteTextFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
