package solver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Solve runs phase 1 and, when it succeeds, phase 2. The result is returned
// even on failure; the error is then a *NoSolutionError or the context error.
// A cancelled run keeps the last accepted sequence.
func (p *Problem) Solve(ctx context.Context) (*Result, error) {
	t0 := time.Now()
	p.log.Info("solving",
		"length", len(p.seq),
		"circular", p.circular,
		"constraints", len(p.constraints),
		"objectives", len(p.objectives),
		"space_size", p.space.Size())

	// final scores are computed even when ctx is done
	final := context.WithoutCancel(ctx)
	rounds, err := p.resolve(ctx)
	if err != nil {
		res := p.result(p.constraintEvals(final), p.objectiveEvals(final), rounds, 0)
		res.Message = err.Error()
		var nse *NoSolutionError
		if errors.As(err, &nse) {
			p.log.Warn("constraints unresolved", "rounds", rounds, "failing", len(nse.Failing))
		}
		return res, err
	}
	p.log.Info("constraints resolved", "rounds", rounds, "edits", len(p.steps))

	iters, err := p.optimize(ctx)
	res := p.result(p.constraintEvals(final), p.objectiveEvals(final), rounds, iters)
	if err != nil {
		res.Message = err.Error()
		return res, err
	}
	res.Message = fmt.Sprintf("all %d constraint(s) pass, %d base(s) changed", len(p.constraints), res.EditCount)
	if len(p.objectives) > 0 {
		res.Message += fmt.Sprintf(", objective total %.4g", res.ObjectiveTotal())
	}
	p.log.Info("solved", "edits", res.EditCount, "objective", res.ObjectiveTotal(), "elapsed", time.Since(t0))
	return res, nil
}
