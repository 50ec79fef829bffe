package jsonlutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	N int `json:"n"`
}

func encodeRow(enc *json.Encoder, n int) error { return enc.Encode(row{N: n}) }

func TestStartWritesOneLinePerValue(t *testing.T) {
	var buf bytes.Buffer
	in, done := Start[int](&buf, Options{}, encodeRow)
	for i := 1; i <= 3; i++ {
		in <- i
	}
	close(in)
	require.NoError(t, <-done)
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n{\"n\":3}\n", buf.String())
}

// countingWriter records how many Write calls reach it.
type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func TestFlushEach(t *testing.T) {
	w := &countingWriter{}
	in, done := Start[int](w, Options{FlushEach: true}, encodeRow)
	in <- 1
	in <- 2
	close(in)
	require.NoError(t, <-done)
	assert.Equal(t, 2, w.writes)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestBrokenPipeIsSilent(t *testing.T) {
	errPipe := errors.New("pipe gone")
	in, done := Start[int](failingWriter{errPipe}, Options{
		FlushEach: true,
		IsBroken:  func(err error) bool { return errors.Is(err, errPipe) },
	}, encodeRow)
	for i := 0; i < 200; i++ {
		in <- i
	}
	close(in)
	assert.NoError(t, <-done)
}

func TestEncodeErrorIsReported(t *testing.T) {
	boom := errors.New("boom")
	in, done := Start[int](io.Discard, Options{}, func(*json.Encoder, int) error { return boom })
	in <- 1
	close(in)
	assert.ErrorIs(t, <-done, boom)
}
