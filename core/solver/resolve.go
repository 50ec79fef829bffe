package solver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"chisel/core/location"
	"chisel/core/mutation"
	"chisel/core/spec"
)

// eps separates real improvements from float noise.
const eps = 1e-9

// cluster is a merged neighbourhood of failing locations with its local
// search space and the constraints an edit there can affect.
type cluster struct {
	loc   location.Location
	space *mutation.Space
	specs []spec.Specification
}

// clusters extends the failing locations by LocalMargin and merges them.
func (p *Problem) clusters(failing spec.Evaluations) []cluster {
	n := len(p.seq)
	var locs []location.Location
	for _, l := range p.linearLocations(failing.Locations()) {
		locs = append(locs, l.Extend(p.cfg.LocalMargin, 0, n))
	}
	var out []cluster
	for _, loc := range location.MergeOverlapping(locs, false) {
		loc.Strand = location.None
		c := cluster{loc: loc, space: p.space.Localized(loc, p.seq)}
		for _, s := range p.constraints {
			if ls := s.Localized(loc, p); ls != nil {
				c.specs = append(c.specs, ls)
			}
		}
		out = append(out, c)
	}
	return out
}

// exhaustiveResult is the best combination of a local space.
type exhaustiveResult struct {
	muts       []mutation.Mutation
	base, best float64
}

// searchExhaustive enumerates space on a private copy of seq and returns the
// combination with the lowest violation of specs, stopping at zero.
func searchExhaustive(ctx context.Context, space *mutation.Space, specs []spec.Specification, view spec.Static) (exhaustiveResult, error) {
	res := exhaustiveResult{}
	res.base = spec.EvaluateAll(ctx, view, specs).Violation()
	res.best = res.base
	if res.base == 0 {
		return res, nil
	}
	var err error
	space.Enumerate(func(muts []mutation.Mutation) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		undo := mutation.Apply(view.Seq, muts)
		v := spec.EvaluateAll(ctx, view, specs).Violation()
		mutation.Apply(view.Seq, undo)
		if v < res.best-eps {
			res.best = v
			res.muts = cloneMutations(muts)
		}
		return res.best > 0
	})
	return res, err
}

func cloneMutations(muts []mutation.Mutation) []mutation.Mutation {
	out := make([]mutation.Mutation, len(muts))
	for i, m := range muts {
		out[i] = mutation.Mutation{Loc: m.Loc, Seq: append([]byte(nil), m.Seq...)}
	}
	return out
}

// resolve is phase 1. It returns the number of rounds run and a
// *NoSolutionError when the constraints cannot all be satisfied.
func (p *Problem) resolve(ctx context.Context) (int, error) {
	evals := p.constraintEvals(ctx)
	current := evals.Violation()
	stagnant := 0
	round := 0
	for ; round < p.cfg.MaxRounds; round++ {
		if evals.AllPass() {
			return round, nil
		}
		if err := ctx.Err(); err != nil {
			return round, err
		}
		start := current
		p.obs.OnRound(1, round, current)
		p.log.Debug("resolving constraints", "round", round, "violation", current, "failing", len(evals.Failing()))

		if err := p.tryInsertions(ctx, round, evals, &current); err != nil {
			return round, err
		}

		var small, large []cluster
		for _, c := range p.clusters(p.constraintEvals(ctx).Failing()) {
			size := c.space.Size()
			switch {
			case size <= 1 || len(c.specs) == 0:
			case size < p.cfg.ExhaustiveThreshold:
				small = append(small, c)
			default:
				large = append(large, c)
			}
		}
		if err := p.resolveExhaustive(ctx, round, small, &current); err != nil {
			return round, err
		}
		for _, c := range large {
			if current == 0 {
				break
			}
			if err := p.resolveRandom(ctx, round, c, &current); err != nil {
				return round, err
			}
		}

		evals = p.constraintEvals(ctx)
		current = evals.Violation()
		if current < start-eps {
			stagnant = 0
		} else {
			stagnant++
		}
		if stagnant >= p.cfg.StagnationLimit {
			round++
			return round, p.noSolution("stagnation", round, evals)
		}
	}
	if evals.AllPass() {
		return round, nil
	}
	return round, p.noSolution("round budget exhausted", round, evals)
}

func (p *Problem) noSolution(reason string, rounds int, evals spec.Evaluations) error {
	e := &NoSolutionError{Reason: reason, Rounds: rounds}
	for _, f := range evals.Failing() {
		e.Failing = append(e.Failing, f.String())
		e.Locations = append(e.Locations, f.Locations...)
	}
	location.Sort(e.Locations)
	return e
}

// resolveExhaustive searches the small clusters in parallel on private copies,
// then applies the improving combinations one by one, keeping each only if
// the global violation still drops.
func (p *Problem) resolveExhaustive(ctx context.Context, round int, clusters []cluster, current *float64) error {
	if len(clusters) == 0 {
		return nil
	}
	results := make([]exhaustiveResult, len(clusters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, c := range clusters {
		view := spec.Static{Seq: append([]byte(nil), p.seq...), Orig: p.orig, IsCircle: p.circular}
		g.Go(func() error {
			res, err := searchExhaustive(gctx, c.space, c.specs, view)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, res := range results {
		if res.muts == nil || res.best >= res.base-eps {
			continue
		}
		e := p.apply(res.muts)
		v := p.constraintEvals(ctx).Violation()
		accepted := v < *current-eps
		p.obs.OnProposal(1, accepted)
		if !accepted {
			p.revert(e)
			continue
		}
		*current = v
		p.record(1, round, e, v)
		p.log.Debug("exhaustive search resolved cluster", "cluster", clusters[i].loc.String(), "violation", v)
	}
	return nil
}

// resolveRandom hill-climbs the violation with random mutations inside c,
// favouring choices that overlap failing locations.
func (p *Problem) resolveRandom(ctx context.Context, round int, c cluster, current *float64) error {
	for iter := 0; iter < p.cfg.MaxRandomIters && *current > 0; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var among []int
		if p.cfg.TargetFailing {
			var near []location.Location
			for _, l := range p.linearLocations(p.constraintEvals(ctx).Locations()) {
				if ov, ok := l.Overlap(c.loc); ok {
					near = append(near, ov)
				}
			}
			if len(near) > 0 {
				among = p.space.Free(near)
			}
		}
		if len(among) == 0 {
			among = p.space.Free([]location.Location{c.loc})
		}
		muts := p.space.PickRandom(p.rng, p.seq, p.cfg.MutationsPerIter, among)
		if len(muts) == 0 {
			continue
		}
		e := p.apply(muts)
		v := p.constraintEvals(ctx).Violation()
		accepted := v < *current-eps
		if !accepted && p.cfg.RandomWalkProb > 0 && p.rng.Float64() < p.cfg.RandomWalkProb {
			accepted = true
		}
		p.obs.OnProposal(1, accepted)
		if !accepted {
			p.revert(e)
			continue
		}
		*current = v
		p.record(1, round, e, v)
	}
	return nil
}

// tryInsertions writes an instance of the pattern of each failing
// EnforcePatternOccurrence at the first legal place that lowers the
// violation.
func (p *Problem) tryInsertions(ctx context.Context, round int, evals spec.Evaluations, current *float64) error {
	for _, ev := range evals.Failing() {
		epo, ok := ev.Spec.(*spec.EnforcePatternOccurrence)
		if !ok {
			continue
		}
		tries := 0
		for _, m := range epo.Insertions(p.seq) {
			if tries >= p.cfg.MaxRandomIters {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			muts := []mutation.Mutation{m}
			if !p.legal(muts) {
				continue
			}
			tries++
			e := p.apply(muts)
			v := p.constraintEvals(ctx).Violation()
			accepted := v < *current-eps
			p.obs.OnProposal(1, accepted)
			if !accepted {
				p.revert(e)
				continue
			}
			*current = v
			p.record(1, round, e, v)
			break
		}
	}
	return nil
}
