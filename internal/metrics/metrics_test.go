package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chisel/core/solver"
	"chisel/core/spec"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func TestKind(t *testing.T) {
	tests := []struct{ in, want string }{
		{"AvoidPattern(GAATTC)", "AvoidPattern"},
		{"EnforceGCContent(0.40-0.60, window=50)@0-100(.)", "EnforceGCContent"},
		{"AvoidChanges@3-9(+)", "AvoidChanges"},
		{"Plain", "Plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.in), tt.in)
	}
}

func TestRoundsAndProposals(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.OnRound(1, 1, 3)
	m.OnRound(1, 2, 1.5)
	m.OnRound(2, 100, -4)
	m.OnProposal(1, true)
	m.OnProposal(2, false)
	m.OnProposal(2, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rounds.WithLabelValues("constraints")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rounds.WithLabelValues("objectives")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.violation))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.proposals.WithLabelValues("constraints", "accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.proposals.WithLabelValues("objectives", "rejected")))
}

func TestEvaluations(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.OnEvaluation("AvoidPattern(ATG)", spec.Evaluation{Score: 0}, time.Millisecond)
	m.OnEvaluation("AvoidPattern(ATG)", spec.Evaluation{Score: -2}, time.Millisecond)
	m.OnEvaluation("AvoidHomology(db)", spec.Evaluation{Err: errors.New("x")}, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("AvoidPattern", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("AvoidPattern", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("AvoidHomology", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.evalDuration))

	n, err := testutil.GatherAndCount(reg, "chisel_spec_evaluations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestObserveRun(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.ObserveRun(&solver.Result{Success: true, EditCount: 4}, time.Second)
	m.ObserveRun(nil, time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failure")))
}

func TestWriteTextFile(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.OnRound(1, 1, 2)
	path := filepath.Join(t.TempDir(), "chisel.prom")
	require.NoError(t, WriteTextFile(path, reg))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `chisel_solver_rounds_total{phase="constraints"} 1`)
}

func TestObserverDrivesSolver(t *testing.T) {
	m, _ := newTestMetrics(t)
	p, err := solver.New([]byte("ACGTACGTAC"), nil, nil, solver.Options{Observer: m})
	require.NoError(t, err)
	res, err := p.Solve(t.Context())
	require.NoError(t, err)
	assert.True(t, res.Success)
}
