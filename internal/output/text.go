// internal/output/text.go
package output

import (
	"fmt"
	"io"
	"strings"

	"chisel/pkg/api"
)

// RenderText returns the human-readable report of one run. diff, when not
// nil, renders the original/final comparison block.
func RenderText(r api.ResultV1, diff func(original, final string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s (run %s, %d bp)\n", r.SequenceID, r.RunID, r.Length)
	if r.Success {
		b.WriteString("SUCCESS: all constraints pass\n")
	} else {
		fmt.Fprintf(&b, "FAILURE: %d constraint(s) fail\n", countFailing(r.Constraints))
	}
	if r.Message != "" {
		fmt.Fprintf(&b, "note: %s\n", r.Message)
	}
	writeEvaluations(&b, "constraints", r.Constraints)
	writeEvaluations(&b, "objectives", r.Objectives)
	if len(r.Objectives) > 0 {
		fmt.Fprintf(&b, "objective total: %.4g\n", r.ObjectiveTotal)
	}
	fmt.Fprintf(&b, "edits: %d base(s) changed in %d segment(s)\n", r.EditCount, len(r.Edits))
	for _, e := range r.Edits {
		fmt.Fprintf(&b, "  %d\t%s -> %s\n", e.Start, e.Original, e.Final)
	}
	if diff != nil && r.EditCount > 0 {
		b.WriteString(diff(r.Original, r.Sequence))
	}
	return b.String()
}

func writeEvaluations(b *strings.Builder, title string, es []api.EvaluationV1) {
	if len(es) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, e := range es {
		status := "PASS"
		if !e.Passes {
			status = "FAIL"
		}
		fmt.Fprintf(b, "  %s  %s  score=%.4g", status, e.Specification, e.Score)
		if locs := LocationsCSV(e.Locations); locs != "" && !e.Passes {
			fmt.Fprintf(b, "  at %s", locs)
		}
		if e.Error != "" {
			fmt.Fprintf(b, "  error: %s", e.Error)
		} else if e.Message != "" {
			fmt.Fprintf(b, "  (%s)", e.Message)
		}
		b.WriteByte('\n')
	}
}

func countFailing(es []api.EvaluationV1) int {
	n := 0
	for _, e := range es {
		if !e.Passes { n++ }
	}
	return n
}

// StreamText writes a report per result as results arrive, separated by a
// blank line.
func StreamText(w io.Writer, in <-chan api.ResultV1, diff func(original, final string) string) error {
	first := true
	for r := range in {
		if !first {
			if _, err := io.WriteString(w, "\n"); err != nil { return err }
		}
		first = false
		if _, err := io.WriteString(w, RenderText(r, diff)); err != nil { return err }
	}
	return nil
}
