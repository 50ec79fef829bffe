// Package solver runs the two-phase local search: phase 1 resolves the
// constraints, phase 2 climbs the weighted sum of the objectives without
// breaking any constraint.
package solver

import (
	"log/slog"
	"time"

	"chisel/core/spec"
)

// Config tunes the search. A zero Config means DefaultConfig. Otherwise
// booleans are used as given, and ObjectiveIters, LocalMargin and
// RandomWalkProb keep a zero value: no phase 2, no margin around failing
// locations, and no random walk. Every other zero numeric field takes its
// default.
type Config struct {
	// ExhaustiveThreshold: local spaces with fewer combinations are
	// enumerated exactly instead of sampled.
	ExhaustiveThreshold uint64
	MaxRandomIters      int // per local random search
	MaxRounds           int // phase-1 outer iterations
	StagnationLimit     int // rounds without improvement before giving up
	MutationsPerIter    int
	RandomWalkProb      float64 // chance of keeping a non-improving edit
	LocalMargin         int     // bp added around failing locations
	ObjectiveIters      int     // random proposals in phase 2; 0 skips the phase
	PlateauIters        int     // phase 2 stops after this many rejected proposals in a row
	TargetFailing       bool
	Workers             int // parallel exhaustive searches over disjoint clusters
	Seed                int64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ExhaustiveThreshold: 10000,
		MaxRandomIters:      1000,
		MaxRounds:           50,
		StagnationLimit:     5,
		MutationsPerIter:    1,
		LocalMargin:         5,
		ObjectiveIters:      1000,
		PlateauIters:        300,
		TargetFailing:       true,
		Workers:             1,
		Seed:                1,
	}
}

func (c Config) withDefaults() Config {
	if c == (Config{}) {
		return DefaultConfig()
	}
	d := DefaultConfig()
	if c.ExhaustiveThreshold == 0 {
		c.ExhaustiveThreshold = d.ExhaustiveThreshold
	}
	if c.MaxRandomIters <= 0 {
		c.MaxRandomIters = d.MaxRandomIters
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.StagnationLimit <= 0 {
		c.StagnationLimit = d.StagnationLimit
	}
	if c.MutationsPerIter <= 0 {
		c.MutationsPerIter = d.MutationsPerIter
	}
	if c.LocalMargin < 0 {
		c.LocalMargin = 0
	}
	if c.ObjectiveIters < 0 {
		c.ObjectiveIters = 0
	}
	if c.PlateauIters <= 0 {
		c.PlateauIters = d.PlateauIters
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	return c
}

// Observer receives search events. Implementations must be cheap; they are
// called from the search loop.
type Observer interface {
	OnRound(phase, round int, violation float64)
	OnProposal(phase int, accepted bool)
	OnEvaluation(label string, ev spec.Evaluation, elapsed time.Duration)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnRound(int, int, float64)                           {}
func (NopObserver) OnProposal(int, bool)                                {}
func (NopObserver) OnEvaluation(string, spec.Evaluation, time.Duration) {}

// Options configure a Problem.
type Options struct {
	Circular bool
	Config   Config
	Logger   *slog.Logger
	Observer Observer
}
