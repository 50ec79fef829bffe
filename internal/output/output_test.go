package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chisel/core/location"
	"chisel/core/mutation"
	"chisel/core/pattern"
	"chisel/core/solver"
	"chisel/core/spec"
	"chisel/internal/fasta"
	"chisel/pkg/api"
)

func sampleResult(t *testing.T) *solver.Result {
	t.Helper()
	avoid := &spec.AvoidPattern{Pattern: pattern.MustDegenerate("ATG")}
	return &solver.Result{
		Sequence:  "ACGTTTAA",
		Original:  "ACGAATAA",
		Success:   false,
		EditCount: 2,
		Edits:     []solver.Edit{{Start: 3, Original: "AA", Final: "TT"}},
		Constraints: spec.Evaluations{
			{Spec: avoid, Score: -1, Locations: []location.Location{location.MustNew(0, 3, location.Forward)}},
			{Spec: avoid, Err: errors.New("blast\tfailed")},
		},
		Objectives: spec.Evaluations{{Spec: avoid, Score: 0.5, Message: "ok"}},
		Steps: []solver.Step{{
			Phase:     1,
			Iteration: 0,
			Score:     1,
			Mutations: []mutation.Mutation{{Loc: location.Span(3, 5), Seq: []byte("TT")}},
		}},
		Rounds: 2,
	}
}

func TestFormats_Stable(t *testing.T) {
	assert.Equal(t, "text", FormatText)
	assert.Equal(t, "tsv", FormatTSV)
	assert.Equal(t, "json", FormatJSON)
	assert.Equal(t, "jsonl", FormatJSONL)
	assert.Equal(t, "fasta", FormatFASTA)
}

func TestTSVHeader_Stable(t *testing.T) {
	const want = "run_id\tsequence_id\trole\tspecification\tpasses\tscore\tlocations\tmessage"
	assert.Equal(t, want, TSVHeader)
}

func TestToAPIResult(t *testing.T) {
	v := ToAPIResult(Meta{RunID: "r1", SequenceID: "s1", Circular: true}, sampleResult(t))
	assert.Equal(t, "r1", v.RunID)
	assert.Equal(t, 8, v.Length)
	assert.True(t, v.Circular)
	assert.Equal(t, []api.EditV1{{Start: 3, Original: "AA", Final: "TT"}}, v.Edits)
	require.Len(t, v.Constraints, 2)
	assert.False(t, v.Constraints[0].Passes)
	assert.Equal(t, []api.LocationV1{{Start: 0, End: 3, Strand: "+"}}, v.Constraints[0].Locations)
	assert.Equal(t, "blast\tfailed", v.Constraints[1].Error)
	assert.InDelta(t, 0.5, v.ObjectiveTotal, 1e-9)
	assert.Zero(t, v.Constraints[0].Boost)
	assert.Equal(t, []api.StepV1{{
		Phase: 1, Score: 1,
		Mutations: []api.MutationV1{{Start: 3, End: 5, Seq: "TT"}},
	}}, v.Steps)
}

func TestStepsReachJSON(t *testing.T) {
	b, err := json.Marshal(ToAPIResult(Meta{}, sampleResult(t)))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"steps":[{"phase":1,"iteration":0,"score":1,"mutations":[{"start":3,"end":5,"seq":"TT"}]}]`)

	b, err = json.Marshal(ToAPIResult(Meta{}, &solver.Result{}))
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"steps"`)
}

func TestToAPIEvaluationsNeverNil(t *testing.T) {
	assert.NotNil(t, ToAPIEvaluations(nil))
	b, err := json.Marshal(ToAPIResult(Meta{}, &solver.Result{}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"constraints":[]`)
}

func TestWriteTSV(t *testing.T) {
	v := ToAPIResult(Meta{RunID: "r1", SequenceID: "s1"}, sampleResult(t))
	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, []api.ResultV1{v}, true))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, TSVHeader, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "r1\ts1\tconstraint\t"))
	assert.Contains(t, lines[1], "\tfalse\t-1\t0-3(+)\t")
	assert.True(t, strings.HasSuffix(lines[2], "error: blast failed"))
	for _, l := range lines {
		assert.Len(t, strings.Split(l, "\t"), 8)
	}
}

func TestRenderText(t *testing.T) {
	v := ToAPIResult(Meta{RunID: "r1", SequenceID: "s1"}, sampleResult(t))
	diffCalled := false
	out := RenderText(v, func(a, b string) string {
		diffCalled = true
		return "DIFF\n"
	})
	assert.True(t, diffCalled)
	assert.Contains(t, out, "FAILURE: 2 constraint(s) fail")
	assert.Contains(t, out, "at 0-3(+)")
	assert.Contains(t, out, "error: blast\tfailed")
	assert.Contains(t, out, "  3\tAA -> TT\n")
	assert.True(t, strings.HasSuffix(out, "DIFF\n"))
}

func TestWriteJSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteFASTA(t *testing.T) {
	v := ToAPIResult(Meta{RunID: "r1", SequenceID: "s1"}, sampleResult(t))
	var buf bytes.Buffer
	require.NoError(t, WriteFASTA(&buf, []api.ResultV1{v}))
	recs, err := fasta.Read(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "s1", recs[0].ID)
	assert.Contains(t, recs[0].Description, "success=false")
	assert.Equal(t, "ACGTTTAA", string(recs[0].Seq))
}
