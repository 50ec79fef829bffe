package solver

import (
	"errors"
	"fmt"
	"strings"

	"chisel/core/location"
	"chisel/core/mutation"
	"chisel/core/spec"
)

// ErrNoSolutionFound is matched by every *NoSolutionError.
var ErrNoSolutionFound = errors.New("no solution found")

// NoSolutionError reports a phase-1 failure with the constraints still failing
// and where.
type NoSolutionError struct {
	Reason    string
	Rounds    int
	Failing   []string
	Locations []location.Location
}

func (e *NoSolutionError) Error() string {
	return fmt.Sprintf("%v after %d round(s) (%s): %d constraint(s) failing: %s",
		ErrNoSolutionFound, e.Rounds, e.Reason, len(e.Failing), strings.Join(e.Failing, "; "))
}

func (e *NoSolutionError) Unwrap() error { return ErrNoSolutionFound }

// Edit is a maximal run of changed bases.
type Edit struct {
	Start    int
	Original string
	Final    string
}

// Step is one accepted batch of mutations. Score is the constraint violation
// after the step in phase 1 and the objective total in phase 2.
type Step struct {
	Phase     int
	Iteration int
	Mutations []mutation.Mutation
	Score     float64
}

// Result is the outcome of Solve. It is returned on failure too.
type Result struct {
	Sequence    string
	Original    string
	Constraints spec.Evaluations
	Objectives  spec.Evaluations
	Edits       []Edit
	EditCount   int
	Success     bool
	Message     string
	Steps       []Step
	Rounds      int // phase-1 rounds run
	Iterations  int // phase-2 proposals made
}

// ObjectiveTotal is the weighted sum of the objective scores.
func (r *Result) ObjectiveTotal() float64 { return r.Objectives.Total() }

// diffEdits lists the runs of positions where orig and final differ and
// counts the changed bases.
func diffEdits(orig, final []byte) ([]Edit, int) {
	var (
		out   []Edit
		count int
	)
	for i := 0; i < len(orig) && i < len(final); {
		if orig[i] == final[i] {
			i++
			continue
		}
		j := i
		for j < len(orig) && j < len(final) && orig[j] != final[j] {
			j++
		}
		out = append(out, Edit{Start: i, Original: string(orig[i:j]), Final: string(final[i:j])})
		count += j - i
		i = j
	}
	return out, count
}

func (p *Problem) result(cons, objs spec.Evaluations, rounds, iters int) *Result {
	edits, count := diffEdits(p.orig, p.seq)
	return &Result{
		Sequence:    string(p.seq),
		Original:    string(p.orig),
		Constraints: cons,
		Objectives:  objs,
		Edits:       edits,
		EditCount:   count,
		Success:     cons.AllPass(),
		Steps:       append([]Step(nil), p.steps...),
		Rounds:      rounds,
		Iterations:  iters,
	}
}
