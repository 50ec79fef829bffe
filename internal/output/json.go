// internal/output/json.go
package output

import (
	"encoding/json"
	"io"

	"chisel/pkg/api"
)

// EncodePretty writes v as indented JSON to w.
func EncodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSON writes a single JSON array of v1 results (pretty-indented).
func WriteJSON(w io.Writer, list []api.ResultV1) error {
	if list == nil {
		list = []api.ResultV1{}
	}
	return EncodePretty(w, list)
}
