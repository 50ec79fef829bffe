package solver

import (
	"context"

	"chisel/core/location"
	"chisel/core/mutation"
	"chisel/core/spec"
)

// climb is the state of phase 2: the objective total to beat, the ceiling
// when every objective knows its optimum, and the proposal counters.
type climb struct {
	best    float64
	ceiling float64
	bounded bool
	iters   int // proposals made, enumerated ones included
	budget  int // random proposals left
}

// done reports whether the objectives reached their best possible total.
func (c *climb) done() bool { return c.bounded && c.best >= c.ceiling-eps }

// objectiveCeiling sums the boosted best possible scores. ok is false when
// some objective does not know its optimum.
func objectiveCeiling(objs []spec.Specification) (total float64, ok bool) {
	for _, o := range objs {
		bs, isBest := o.(spec.BestScorer)
		if !isBest {
			return 0, false
		}
		total += bs.BestPossibleScore() * o.Boost()
	}
	return total, true
}

// optimize is phase 2. It returns the number of proposals made. Edits are
// kept only when the objective total rises and every constraint still passes.
//
// A space smaller than ExhaustiveThreshold is enumerated whole. Otherwise
// every objective location, extended by LocalMargin, is improved on its own
// (enumerated when its local space is small, sampled otherwise) before a
// random pass over the whole space spends what is left of ObjectiveIters.
// Every stage stops once the objectives reach their ceiling.
func (p *Problem) optimize(ctx context.Context) (int, error) {
	if len(p.objectives) == 0 || p.cfg.ObjectiveIters == 0 || len(p.space.Free(nil)) == 0 {
		return 0, nil
	}
	c := &climb{best: p.objectiveEvals(ctx).Total(), budget: p.cfg.ObjectiveIters}
	c.ceiling, c.bounded = objectiveCeiling(p.objectives)
	if c.done() {
		return 0, nil
	}
	if p.space.Size() < p.cfg.ExhaustiveThreshold {
		err := p.enumerateObjectives(ctx, c, p.space)
		return c.iters, err
	}
	if err := p.optimizeLocally(ctx, c); err != nil {
		return c.iters, err
	}
	err := p.climbRandom(ctx, c, nil, c.budget)
	p.log.Debug("objectives optimized", "iterations", c.iters, "total", c.best, "at_ceiling", c.done())
	return c.iters, err
}

// optimizeLocally walks the locations each objective reports and searches
// the mutations inside each one, extended by LocalMargin. Choices reaching
// outside the extended location keep their outside bases.
func (p *Problem) optimizeLocally(ctx context.Context, c *climb) error {
	n := len(p.seq)
	for i, obj := range p.objectives {
		ev := p.objectiveEvals(ctx)[i]
		if bs, ok := obj.(spec.BestScorer); ok && ev.Err == nil && ev.Score >= bs.BestPossibleScore()-eps {
			continue
		}
		seen := make(map[location.Location]bool)
		for _, loc := range p.linearLocations(ev.Locations) {
			ext := loc.Extend(p.cfg.LocalMargin, 0, n)
			ext.Strand = location.None
			if seen[ext] {
				continue
			}
			seen[ext] = true

			local := p.space.Localized(ext, p.seq)
			if len(local.Free(nil)) == 0 {
				continue
			}
			var err error
			if local.Size() < p.cfg.ExhaustiveThreshold {
				err = p.enumerateObjectives(ctx, c, local)
			} else {
				err = p.climbRandom(ctx, c, []location.Location{ext}, min(p.cfg.MaxRandomIters, c.budget))
			}
			if err != nil {
				return err
			}
			if c.done() {
				return nil
			}
		}
	}
	return nil
}

// climbRandom makes up to budget random proposals inside within (anywhere
// when within is nil). It stops after PlateauIters rejections in a row.
func (p *Problem) climbRandom(ctx context.Context, c *climb, within []location.Location, budget int) error {
	stale := 0
	for iter := 0; iter < budget && stale < p.cfg.PlateauIters && !c.done(); iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.iters%100 == 0 {
			p.obs.OnRound(2, c.iters/100, -c.best)
		}
		c.iters++
		c.budget--

		among := p.space.Free(within)
		if len(among) == 0 {
			return nil
		}
		if p.cfg.TargetFailing {
			if t := p.space.Free(p.targets(ctx, within)); len(t) > 0 {
				among = t
			}
		}
		muts := p.space.PickRandom(p.rng, p.seq, p.cfg.MutationsPerIter, among)
		if len(muts) == 0 {
			stale++
			continue
		}
		e := p.apply(muts)
		accepted := false
		if p.constraintEvals(ctx).AllPass() {
			if total := p.objectiveEvals(ctx).Total(); total > c.best+eps {
				c.best = total
				accepted = true
			}
		}
		p.obs.OnProposal(2, accepted)
		if !accepted {
			p.revert(e)
			stale++
			continue
		}
		stale = 0
		p.record(2, c.iters, e, c.best)
	}
	return nil
}

// targets lists the objective locations, clipped to within when it is set.
// An empty result means no preference.
func (p *Problem) targets(ctx context.Context, within []location.Location) []location.Location {
	locs := p.objectiveLocations(ctx)
	if within == nil {
		return locs
	}
	var out []location.Location
	for _, l := range locs {
		for _, w := range within {
			if ov, ok := l.Overlap(w); ok {
				out = append(out, ov)
			}
		}
	}
	return out
}

// enumerateObjectives tries every combination of space and keeps the one with
// the best objective total among those passing every constraint.
func (p *Problem) enumerateObjectives(ctx context.Context, c *climb, space *mutation.Space) error {
	var (
		bestMuts []mutation.Mutation
		err      error
	)
	space.Enumerate(func(muts []mutation.Mutation) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		c.iters++
		e := p.apply(muts)
		if p.constraintEvals(ctx).AllPass() {
			if total := p.objectiveEvals(ctx).Total(); total > c.best+eps {
				c.best = total
				bestMuts = cloneMutations(muts)
			}
		}
		p.revert(e)
		return !c.done()
	})
	if err != nil {
		return err
	}
	p.obs.OnRound(2, c.iters/100, -c.best)
	if bestMuts != nil {
		e := p.apply(bestMuts)
		p.obs.OnProposal(2, true)
		p.record(2, c.iters, e, c.best)
	}
	return nil
}

// objectiveLocations lists where the objectives are not yet at their best.
func (p *Problem) objectiveLocations(ctx context.Context) []location.Location {
	return p.linearLocations(p.objectiveEvals(ctx).Locations())
}
