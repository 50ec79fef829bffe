package writers

import (
	"fmt"
	"io"

	"chisel/internal/output"
	"chisel/pkg/api"
)

// StartResultWriter spins up a writer goroutine for results. text, tsv and
// jsonl stream each result as it arrives; json and fasta (and any other
// registered format) buffer until in is closed.
func StartResultWriter(out io.Writer, format string, opt Options, bufSize int) (chan<- api.ResultV1, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	if format == output.FormatJSONL {
		return StartResultJSONLWriter(out, bufSize)
	}
	in := make(chan api.ResultV1, bufSize)
	errCh := make(chan error, 1)

	go func() {
		var err error
		switch format {
		case output.FormatText:
			err = output.StreamText(out, in, opt.differ())
		case output.FormatTSV:
			err = output.StreamTSV(out, in, opt.Header)
		default:
			var buf []api.ResultV1
			for r := range in {
				buf = append(buf, r)
			}
			if _, ok := ResultWriters[format]; !ok {
				err = fmt.Errorf("unsupported output %q", format)
				break
			}
			err = WriteResults(format, out, buf, opt)
		}
		if err != nil {
			for range in { // unblock senders
			}
		}
		errCh <- err
	}()

	return in, errCh
}
