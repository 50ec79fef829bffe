// internal/output/rows.go
package output

import (
	"fmt"
	"strings"

	"chisel/pkg/api"
)

// LocationsCSV renders locations as "start-end(strand)" joined by commas.
func LocationsCSV(locs []api.LocationV1) string {
	if len(locs) == 0 { return "" }
	ss := make([]string, len(locs))
	for i, l := range locs { ss[i] = fmt.Sprintf("%d-%d(%s)", l.Start, l.End, l.Strand) }
	return strings.Join(ss, ",")
}

// FormatEvaluationRowTSV returns one TSV row (no trailing newline) in
// TSVHeader column order. role is "constraint" or "objective".
func FormatEvaluationRowTSV(r api.ResultV1, role string, e api.EvaluationV1) string {
	msg := e.Message
	if e.Error != "" {
		msg = "error: " + e.Error
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%t\t%g\t%s\t%s",
		r.RunID, r.SequenceID, role, e.Specification,
		e.Passes, e.Score, LocationsCSV(e.Locations), tsvSafe(msg),
	)
}

// RowsTSV lists the rows of every evaluation of r, constraints first.
func RowsTSV(r api.ResultV1) []string {
	rows := make([]string, 0, len(r.Constraints)+len(r.Objectives))
	for _, e := range r.Constraints {
		rows = append(rows, FormatEvaluationRowTSV(r, "constraint", e))
	}
	for _, e := range r.Objectives {
		rows = append(rows, FormatEvaluationRowTSV(r, "objective", e))
	}
	return rows
}

func tsvSafe(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}
