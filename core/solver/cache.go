package solver

import (
	"context"
	"sort"
	"time"

	"chisel/core/location"
	"chisel/core/spec"
)

// evalCache keeps the last evaluation of each specification. Entries are
// indexed by footprint start, so an edit invalidates only the specifications
// whose footprint it overlaps.
type evalCache struct {
	specs   []spec.Specification
	fps     []location.Location
	byStart []int
	evals   []spec.Evaluation
	valid   []bool
}

type savedEval struct {
	i     int
	ev    spec.Evaluation
	valid bool
}

func newEvalCache(specs []spec.Specification, n int) *evalCache {
	c := &evalCache{
		specs:   specs,
		fps:     make([]location.Location, len(specs)),
		byStart: make([]int, len(specs)),
		evals:   make([]spec.Evaluation, len(specs)),
		valid:   make([]bool, len(specs)),
	}
	for i, s := range specs {
		c.fps[i] = s.Footprint(n)
		c.byStart[i] = i
	}
	sort.SliceStable(c.byStart, func(a, b int) bool { return c.fps[c.byStart[a]].Start < c.fps[c.byStart[b]].Start })
	return c
}

// invalidate drops the entries whose footprint overlaps span and returns
// their previous state for restore.
func (c *evalCache) invalidate(span location.Location) []savedEval {
	if span.Len() == 0 {
		return nil
	}
	hi := sort.Search(len(c.byStart), func(k int) bool { return c.fps[c.byStart[k]].Start >= span.End })
	var saved []savedEval
	for _, i := range c.byStart[:hi] {
		fp := c.fps[i]
		if fp.Len() == 0 || fp.End <= span.Start {
			continue
		}
		saved = append(saved, savedEval{i: i, ev: c.evals[i], valid: c.valid[i]})
		c.valid[i] = false
	}
	return saved
}

func (c *evalCache) restore(saved []savedEval) {
	for _, s := range saved {
		c.evals[s.i], c.valid[s.i] = s.ev, s.valid
	}
}

// evaluate refreshes stale entries and returns all evaluations. Results
// computed under a cancelled context are returned but not cached.
func (c *evalCache) evaluate(ctx context.Context, p spec.Problem, obs Observer) spec.Evaluations {
	out := make(spec.Evaluations, len(c.specs))
	for i, s := range c.specs {
		if !c.valid[i] {
			t0 := time.Now()
			ev := s.Evaluate(ctx, p)
			obs.OnEvaluation(s.Label(), ev, time.Since(t0))
			c.evals[i] = ev
			c.valid[i] = ctx.Err() == nil
		}
		out[i] = c.evals[i]
	}
	return out
}
