// Package spec defines specifications, the constraints and objectives a
// sequence is scored against, and the built-in families.
//
// Constraints pass when their score is >= 0 and, when failing, list every
// offending region in Evaluation.Locations. Objectives return any real score;
// higher is better.
package spec

import (
	"context"
	"fmt"
	"strings"

	"chisel/core/location"
	"chisel/core/mutation"
)

// Problem is the read-only view of an optimization problem a specification
// evaluates against.
type Problem interface {
	// Sequence is the live sequence. It must not be modified.
	Sequence() []byte
	// Original is the sequence before any edit.
	Original() []byte
	Circular() bool
}

// Specification scores a sequence.
type Specification interface {
	Evaluate(ctx context.Context, p Problem) Evaluation
	// Localized returns a copy restricted to what can change when loc is
	// edited, or nil when edits in loc cannot affect the score.
	Localized(loc location.Location, p Problem) Specification
	Label() string
	// Footprint is the region whose edits can change the score.
	Footprint(n int) location.Location
	// Boost weights the score when summing objectives.
	Boost() float64
}

// Restrictor is implemented by specifications that are best enforced by
// shrinking the mutation space.
type Restrictor interface {
	Restrictions(seq []byte, within location.Location) []mutation.Restriction
}

// BestScorer is implemented by specifications with a known optimum.
type BestScorer interface {
	BestPossibleScore() float64
}

// Evaluation is the result of scoring one specification.
type Evaluation struct {
	Spec      Specification
	Score     float64
	Locations []location.Location
	Message   string
	Err       error
}

// Passes reports whether the evaluation satisfies a constraint.
func (e Evaluation) Passes() bool { return e.Err == nil && e.Score >= 0 }

// Weighted is Score times the specification's boost.
func (e Evaluation) Weighted() float64 {
	if e.Spec == nil {
		return e.Score
	}
	return e.Score * e.Spec.Boost()
}

func (e Evaluation) String() string {
	status := "PASS"
	if !e.Passes() {
		status = "FAIL"
	}
	label := "<nil>"
	if e.Spec != nil {
		label = e.Spec.Label()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s score=%.4g", status, label, e.Score)
	if e.Err != nil {
		fmt.Fprintf(&b, " error=%v", e.Err)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " (%s)", e.Message)
	}
	return b.String()
}

// Evaluations is an ordered list of evaluations.
type Evaluations []Evaluation

// AllPass reports whether every evaluation passes.
func (es Evaluations) AllPass() bool {
	for _, e := range es {
		if !e.Passes() {
			return false
		}
	}
	return true
}

// Failing returns the evaluations that do not pass.
func (es Evaluations) Failing() Evaluations {
	var out Evaluations
	for _, e := range es {
		if !e.Passes() {
			out = append(out, e)
		}
	}
	return out
}

// Total is the sum of weighted scores.
func (es Evaluations) Total() float64 {
	s := 0.0
	for _, e := range es {
		s += e.Weighted()
	}
	return s
}

// Violation sums the weighted negative scores; 0 when all pass. Errors count
// as a violation of one unit.
func (es Evaluations) Violation() float64 {
	v := 0.0
	for _, e := range es {
		switch {
		case e.Err != nil:
			v += 1
		case e.Score < 0:
			v -= e.Score
		}
	}
	return v
}

// Locations gathers every location of every evaluation.
func (es Evaluations) Locations() []location.Location {
	var out []location.Location
	for _, e := range es {
		out = append(out, e.Locations...)
	}
	return out
}

// Base carries what every specification has: an optional bound location and
// a boost.
type Base struct {
	Location *location.Location
	Weight   float64
}

// At returns a Base bound to loc.
func At(loc location.Location) Base { return Base{Location: &loc} }

func (b Base) Boost() float64 {
	if b.Weight == 0 {
		return 1
	}
	return b.Weight
}

// Region is the bound location clipped to [0, n), or [0, n) when unbound.
func (b Base) Region(n int) location.Location {
	if b.Location == nil {
		return location.Span(0, n)
	}
	l := *b.Location
	l.Start = max(0, min(l.Start, n))
	l.End = max(l.Start, min(l.End, n))
	return l
}

func (b Base) Footprint(n int) location.Location { return b.Region(n) }

func (b Base) bound() bool { return b.Location != nil }

// narrowed returns the part of the region within margin of loc.
func (b Base) narrowed(loc location.Location, margin, n int) (Base, bool) {
	region := b.Region(n)
	ov, ok := region.Overlap(loc.Extend(margin, 0, n))
	if !ok {
		return Base{}, false
	}
	ov.Strand = region.Strand
	return Base{Location: &ov, Weight: b.Weight}, true
}

// intersects reports whether loc overlaps the region.
func (b Base) intersects(loc location.Location, n int) bool {
	return b.Region(n).Intersects(loc)
}

func (b Base) suffix() string {
	if b.Location == nil {
		return ""
	}
	return "@" + b.Location.String()
}

// Static is a Problem over a fixed sequence, for one-off evaluation.
type Static struct {
	Seq      []byte
	Orig     []byte
	IsCircle bool
}

func (s Static) Sequence() []byte { return s.Seq }

func (s Static) Original() []byte {
	if s.Orig == nil {
		return s.Seq
	}
	return s.Orig
}

func (s Static) Circular() bool { return s.IsCircle }

// EvaluateAll scores every specification against p.
func EvaluateAll(ctx context.Context, p Problem, specs []Specification) Evaluations {
	out := make(Evaluations, len(specs))
	for i, s := range specs {
		out[i] = s.Evaluate(ctx, p)
	}
	return out
}

// regionSeq slices the region out of p. Scans wrap around the origin only
// when the region is the whole circular sequence.
func regionSeq(p Problem, region location.Location) (seq []byte, circular bool) {
	full := p.Sequence()
	whole := region.Start == 0 && region.End == len(full)
	return full[region.Start:region.End], whole && p.Circular()
}
