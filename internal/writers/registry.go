// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"chisel/internal/output"
	"chisel/internal/pretty"
	"chisel/pkg/api"
)

// Options carry the presentation switches shared by every format.
type Options struct {
	Header bool           // TSV header row
	Pretty bool           // text: draw the original/final comparison
	Diff   pretty.Options // text: comparison layout when Pretty is set
}

// BatchWriter renders a complete list of results.
type BatchWriter func(w io.Writer, list []api.ResultV1, opt Options) error

// Writer registry (format → handler). Register in init() blocks.
var ResultWriters = map[string]BatchWriter{}

// RegisterResult adds or replaces (last wins) the writer of format.
func RegisterResult(format string, fn BatchWriter) { ResultWriters[format] = fn }

// Formats lists the registered formats, sorted.
func Formats() []string {
	out := make([]string, 0, len(ResultWriters))
	for f := range ResultWriters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// WriteResults dispatches to the writer registered for format.
func WriteResults(format string, w io.Writer, list []api.ResultV1, opt Options) error {
	fn, ok := ResultWriters[format]
	if !ok {
		return fmt.Errorf("unknown result format %q (no writer registered)", format)
	}
	return fn(w, list, opt)
}

func (o Options) differ() func(string, string) string {
	if !o.Pretty {
		return nil
	}
	return func(a, b string) string { return pretty.RenderDiff(a, b, o.Diff) }
}

func init() {
	RegisterResult(output.FormatText, func(w io.Writer, list []api.ResultV1, opt Options) error {
		return output.StreamText(w, feed(list), opt.differ())
	})
	RegisterResult(output.FormatTSV, func(w io.Writer, list []api.ResultV1, opt Options) error {
		return output.WriteTSV(w, list, opt.Header)
	})
	RegisterResult(output.FormatJSON, func(w io.Writer, list []api.ResultV1, _ Options) error {
		return output.WriteJSON(w, list)
	})
	RegisterResult(output.FormatJSONL, func(w io.Writer, list []api.ResultV1, _ Options) error {
		in, errc := StartResultJSONLWriter(w, len(list))
		for _, r := range list {
			in <- r
		}
		close(in)
		return <-errc
	})
	RegisterResult(output.FormatFASTA, func(w io.Writer, list []api.ResultV1, _ Options) error {
		return output.WriteFASTA(w, list)
	})
}

func feed(list []api.ResultV1) <-chan api.ResultV1 {
	ch := make(chan api.ResultV1, len(list))
	for _, r := range list {
		ch <- r
	}
	close(ch)
	return ch
}
