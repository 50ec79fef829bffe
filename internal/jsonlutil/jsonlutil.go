// internal/jsonlutil/jsonlutil.go
package jsonlutil

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
)

// Reuse a 64 KiB buffered writer across JSONL writers to avoid per-writer mallocs.
var bwPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, 64<<10)
	},
}

// Options tune Start.
type Options struct {
	// BufSize is the channel capacity (64 when <= 0).
	BufSize int
	// FlushEach flushes after every line so a consumer tailing the output
	// sees each value as soon as it is produced.
	FlushEach bool
	// IsBroken recognizes broken/closed pipe errors; those end the stream
	// quietly.
	IsBroken func(error) bool
}

// Start spins up a JSONL encoder goroutine for values of type T. encode
// converts one value to its wire type and writes it with enc.Encode.
//
// The returned error channel yields exactly one value once in is closed and
// drained, or as soon as writing fails. Callers must keep draining in until
// they close it, or select on ctx when sending.
func Start[T any](out io.Writer, opt Options, encode func(*json.Encoder, T) error) (chan<- T, <-chan error) {
	if opt.BufSize <= 0 {
		opt.BufSize = 64
	}
	broken := opt.IsBroken
	if broken == nil {
		broken = func(error) bool { return false }
	}
	in := make(chan T, opt.BufSize)
	done := make(chan error, 1)

	go func() {
		bw := bwPool.Get().(*bufio.Writer)
		// Rebind to the actual output while keeping the pooled buffer.
		bw.Reset(out)
		defer func() {
			bw.Reset(io.Discard)
			bwPool.Put(bw)
		}()

		enc := json.NewEncoder(bw)
		fail := func(err error) {
			if broken(err) {
				err = nil
			}
			done <- err
			for range in { // unblock senders
			}
		}

		for v := range in {
			if err := encode(enc, v); err != nil {
				fail(err)
				return
			}
			if opt.FlushEach {
				if err := bw.Flush(); err != nil {
					fail(err)
					return
				}
			}
		}
		if err := bw.Flush(); err != nil && !broken(err) {
			done <- err
			return
		}
		done <- nil
	}()

	return in, done
}
