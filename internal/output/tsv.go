// internal/output/tsv.go
package output

import (
	"fmt"
	"io"

	"chisel/pkg/api"
)

// StreamTSV writes one row per evaluation as results arrive.
func StreamTSV(w io.Writer, in <-chan api.ResultV1, header bool) error {
	if header {
		if _, err := fmt.Fprintln(w, TSVHeader); err != nil { return err }
	}
	for r := range in {
		for _, row := range RowsTSV(r) {
			if _, err := fmt.Fprintln(w, row); err != nil { return err }
		}
	}
	return nil
}

// WriteTSV is StreamTSV over a slice.
func WriteTSV(w io.Writer, list []api.ResultV1, header bool) error {
	ch := make(chan api.ResultV1, len(list))
	for _, r := range list { ch <- r }
	close(ch)
	return StreamTSV(w, ch, header)
}
