// internal/output/convert.go
package output

import (
	"chisel/core/location"
	"chisel/core/solver"
	"chisel/core/spec"
	"chisel/pkg/api"
)

// Meta identifies a run in the wire schema.
type Meta struct {
	RunID      string
	SequenceID string
	SourceFile string
	Circular   bool
}

// ToAPIResult converts a solver result to the stable wire schema (v1).
func ToAPIResult(m Meta, r *solver.Result) api.ResultV1 {
	v := api.ResultV1{
		RunID:          m.RunID,
		SequenceID:     m.SequenceID,
		SourceFile:     m.SourceFile,
		Circular:       m.Circular,
		Success:        r.Success,
		Message:        r.Message,
		Sequence:       r.Sequence,
		Original:       r.Original,
		Length:         len(r.Sequence),
		EditCount:      r.EditCount,
		Constraints:    ToAPIEvaluations(r.Constraints),
		Objectives:     ToAPIEvaluations(r.Objectives),
		ObjectiveTotal: r.ObjectiveTotal(),
		Rounds:         r.Rounds,
		Iterations:     r.Iterations,
	}
	for _, e := range r.Edits {
		v.Edits = append(v.Edits, api.EditV1{Start: e.Start, Original: e.Original, Final: e.Final})
	}
	v.Steps = ToAPISteps(r.Steps)
	return v
}

// ToAPISteps converts the accepted edit log.
func ToAPISteps(steps []solver.Step) []api.StepV1 {
	if len(steps) == 0 {
		return nil
	}
	out := make([]api.StepV1, len(steps))
	for i, st := range steps {
		muts := make([]api.MutationV1, len(st.Mutations))
		for j, m := range st.Mutations {
			muts[j] = api.MutationV1{Start: m.Loc.Start, End: m.Loc.End, Seq: string(m.Seq)}
		}
		out[i] = api.StepV1{Phase: st.Phase, Iteration: st.Iteration, Score: st.Score, Mutations: muts}
	}
	return out
}

// ToAPIEvaluations converts evaluations, keeping their order. The result is
// never nil so JSON renders an empty list.
func ToAPIEvaluations(es spec.Evaluations) []api.EvaluationV1 {
	out := make([]api.EvaluationV1, 0, len(es))
	for _, e := range es {
		v := api.EvaluationV1{
			Passes:    e.Passes(),
			Score:     e.Score,
			Locations: ToAPILocations(e.Locations),
			Message:   e.Message,
		}
		if e.Spec != nil {
			v.Specification = e.Spec.Label()
			if b := e.Spec.Boost(); b != 1 {
				v.Boost = b
			}
		}
		if e.Err != nil {
			v.Error = e.Err.Error()
		}
		out = append(out, v)
	}
	return out
}

func ToAPILocations(locs []location.Location) []api.LocationV1 {
	if len(locs) == 0 {
		return nil
	}
	out := make([]api.LocationV1, len(locs))
	for i, l := range locs {
		out[i] = api.LocationV1{Start: l.Start, End: l.End, Strand: l.Strand.String()}
	}
	return out
}
