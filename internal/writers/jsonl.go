// internal/writers/jsonl.go
package writers

import (
	"encoding/json"
	"io"

	"chisel/internal/jsonlutil"
	"chisel/pkg/api"
)

// StartResultJSONLWriter streams each result as one JSON line (v1), flushed
// as soon as it is written.
func StartResultJSONLWriter(out io.Writer, bufSize int) (chan<- api.ResultV1, <-chan error) {
	return jsonlutil.Start[api.ResultV1](out,
		jsonlutil.Options{BufSize: bufSize, FlushEach: true, IsBroken: IsBrokenPipe},
		func(enc *json.Encoder, r api.ResultV1) error {
			return enc.Encode(r)
		},
	)
}
