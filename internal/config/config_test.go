package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chisel/core/solver"
)

func load(t *testing.T, file string) Config {
	t.Helper()
	v, err := New(file)
	require.NoError(t, err)
	c, err := Load(v)
	require.NoError(t, err)
	return c
}

func TestDefaultsMatchSolver(t *testing.T) {
	c := load(t, "")
	assert.Equal(t, solver.DefaultConfig(), c.SolverConfig())
	assert.Equal(t, "text", c.Output.Format)
	assert.True(t, c.Output.Header)
	assert.Equal(t, "blastn", c.Blast.Binary)
	assert.Equal(t, 2*time.Minute, c.Blast.Timeout)
	assert.Equal(t, "info", c.Log.Level)
}

func TestSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
solver:
  max-rounds: 7
  exhaustive-threshold: 500
  target-failing: false
  timeout: 30s
output:
  format: jsonl
blast:
  timeout: 5s
`), 0o644))

	c := load(t, path)
	sc := c.SolverConfig()
	assert.Equal(t, 7, sc.MaxRounds)
	assert.Equal(t, uint64(500), sc.ExhaustiveThreshold)
	assert.False(t, sc.TargetFailing)
	assert.Equal(t, 1000, sc.MaxRandomIters)
	assert.Equal(t, 30*time.Second, c.Solver.Timeout)
	assert.Equal(t, "jsonl", c.Output.Format)
	assert.Equal(t, 5*time.Second, c.Blast.Timeout)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CHISEL_SOLVER_SEED", "42")
	t.Setenv("CHISEL_SOLVER_MAX_ROUNDS", "3")
	t.Setenv("CHISEL_LOG_LEVEL", "debug")

	c := load(t, "")
	assert.Equal(t, int64(42), c.Solver.Seed)
	assert.Equal(t, 3, c.Solver.MaxRounds)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestMissingSettingsFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Output.Format = "xml" }},
		{"walk", func(c *Config) { c.Solver.RandomWalkProb = 1.5 }},
		{"workers", func(c *Config) { c.Solver.Workers = -1 }},
		{"timeout", func(c *Config) { c.Blast.Timeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := load(t, "")
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
