package solver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"chisel/core/dna"
	"chisel/core/location"
	"chisel/core/mutation"
	"chisel/core/spec"
)

// Problem owns the live sequence, its mutation space, the specifications and
// their evaluation cache. It is not safe for concurrent use.
type Problem struct {
	seq      []byte
	orig     []byte
	circular bool

	space       *mutation.Space
	constraints []spec.Specification
	objectives  []spec.Specification
	cons        *evalCache
	objs        *evalCache

	cfg Config
	log *slog.Logger
	obs Observer
	rng *rand.Rand

	steps []Step
}

// New validates seq and builds the mutation space from the restrictions of
// the constraints. Choices whose current contents are no longer legal are
// set to their first allowed variant.
func New(seq []byte, constraints, objectives []spec.Specification, opt Options) (*Problem, error) {
	norm, err := dna.Normalize(seq)
	if err != nil {
		return nil, err
	}
	n := len(norm)
	var restrictions []mutation.Restriction
	for _, c := range constraints {
		if r, ok := c.(spec.Restrictor); ok {
			restrictions = append(restrictions, r.Restrictions(norm, location.Span(0, n))...)
		}
	}
	space, err := mutation.FromSequence(norm, restrictions)
	if err != nil {
		return nil, fmt.Errorf("build mutation space: %w", err)
	}

	p := &Problem{
		seq:         append([]byte(nil), norm...),
		orig:        norm,
		circular:    opt.Circular,
		space:       space,
		constraints: constraints,
		objectives:  objectives,
		cons:        newEvalCache(constraints, n),
		objs:        newEvalCache(objectives, n),
		cfg:         opt.Config.withDefaults(),
		log:         opt.Logger,
		obs:         opt.Observer,
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	if p.obs == nil {
		p.obs = NopObserver{}
	}
	p.rng = rand.New(rand.NewSource(p.cfg.Seed))

	forced := 0
	for _, c := range space.Choices() {
		if !c.Allows(c.Current(p.seq)) {
			copy(p.seq[c.Loc.Start:c.Loc.End], c.Variants[0])
			forced++
		}
	}
	if forced > 0 {
		p.log.Debug("forced choices to legal contents", "count", forced)
	}
	return p, nil
}

// Sequence is the live sequence. Callers must not modify it.
func (p *Problem) Sequence() []byte { return p.seq }

// Original is the validated input sequence.
func (p *Problem) Original() []byte { return p.orig }

func (p *Problem) Circular() bool                    { return p.circular }
func (p *Problem) Space() *mutation.Space            { return p.space }
func (p *Problem) Constraints() []spec.Specification { return p.constraints }
func (p *Problem) Objectives() []spec.Specification  { return p.objectives }
func (p *Problem) Config() Config                    { return p.cfg }

func (p *Problem) constraintEvals(ctx context.Context) spec.Evaluations { return p.cons.evaluate(ctx, p, p.obs) }
func (p *Problem) objectiveEvals(ctx context.Context) spec.Evaluations  { return p.objs.evaluate(ctx, p, p.obs) }

// Evaluate scores every constraint and objective against the live sequence.
func (p *Problem) Evaluate(ctx context.Context) (constraints, objectives spec.Evaluations) {
	return p.constraintEvals(ctx), p.objectiveEvals(ctx)
}

// edit is an applied batch of mutations, with what is needed to undo it.
type edit struct {
	muts []mutation.Mutation
	undo []mutation.Mutation
	cons []savedEval
	objs []savedEval
}

// apply writes the mutations that change the sequence and invalidates the
// evaluations they can affect.
func (p *Problem) apply(muts []mutation.Mutation) edit {
	var changed []mutation.Mutation
	for _, m := range muts {
		if !bytes.Equal(p.seq[m.Loc.Start:m.Loc.End], m.Seq) {
			changed = append(changed, mutation.Mutation{Loc: m.Loc, Seq: append([]byte(nil), m.Seq...)})
		}
	}
	span, ok := mutation.Span(changed)
	if !ok {
		return edit{}
	}
	return edit{
		muts: changed,
		undo: mutation.Apply(p.seq, changed),
		cons: p.cons.invalidate(span),
		objs: p.objs.invalidate(span),
	}
}

func (p *Problem) revert(e edit) {
	if len(e.undo) == 0 {
		return
	}
	mutation.Apply(p.seq, e.undo)
	p.cons.restore(e.cons)
	p.objs.restore(e.objs)
}

// legal reports whether writing muts keeps every touched choice within its
// variants.
func (p *Problem) legal(muts []mutation.Mutation) bool {
	choices := p.space.Choices()
	for _, m := range muts {
		for _, i := range p.space.Intersecting(m.Loc) {
			c := choices[i]
			next := append([]byte(nil), c.Current(p.seq)...)
			ov, _ := c.Loc.Overlap(m.Loc)
			copy(next[ov.Start-c.Loc.Start:ov.End-c.Loc.Start], m.Seq[ov.Start-m.Loc.Start:ov.End-m.Loc.Start])
			if !c.Allows(next) {
				return false
			}
		}
	}
	return true
}

// linearLocations maps locations onto [0, n), splitting those that wrap.
func (p *Problem) linearLocations(locs []location.Location) []location.Location {
	n := len(p.seq)
	out := make([]location.Location, 0, len(locs))
	for _, l := range locs {
		for _, piece := range l.SplitCircular(n) {
			piece.Start = max(0, min(piece.Start, n))
			piece.End = max(piece.Start, min(piece.End, n))
			if piece.Len() > 0 {
				out = append(out, piece)
			}
		}
	}
	return out
}

func (p *Problem) record(phase, iter int, e edit, score float64) {
	p.steps = append(p.steps, Step{Phase: phase, Iteration: iter, Mutations: e.muts, Score: score})
}
