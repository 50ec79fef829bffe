package output

import (
	"fmt"
	"io"

	"chisel/internal/fasta"
	"chisel/pkg/api"
)

// WriteFASTA writes each optimized sequence as a FASTA record whose header
// carries the run outcome.
func WriteFASTA(w io.Writer, list []api.ResultV1) error {
	recs := make([]fasta.Record, 0, len(list))
	for _, r := range list {
		recs = append(recs, fasta.Record{
			ID: r.SequenceID,
			Description: fmt.Sprintf("run_id=%s success=%t edits=%d objective=%.4g",
				r.RunID, r.Success, r.EditCount, r.ObjectiveTotal),
			Seq: []byte(r.Sequence),
		})
	}
	return fasta.Write(w, fasta.LineWidth, recs...)
}
