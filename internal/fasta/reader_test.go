// internal/fasta/reader_test.go
package fasta

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plain = `>seq1 first record
ACGT
acgt
>seq2
NNnn
`

func writeGz(t *testing.T, name string, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	fh, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())
	return path
}

func TestRead(t *testing.T) {
	recs, err := Read(strings.NewReader(plain))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "seq1", recs[0].ID)
	assert.Equal(t, "first record", recs[0].Description)
	assert.Equal(t, "ACGTACGT", string(recs[0].Seq))
	assert.Equal(t, "NNNN", string(recs[1].Seq))
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = Read(strings.NewReader("ACGT\n>x\nA\n"))
	assert.Error(t, err)
}

func TestReadCRLFAndNoTrailingNewline(t *testing.T) {
	recs, err := Read(strings.NewReader(">a\r\nAC\r\nGT"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ACGT", string(recs[0].Seq))
}

func TestRecordsDoNotShareBuffers(t *testing.T) {
	recs, err := Read(strings.NewReader(">a\nAAAA\n>b\nCC\n"))
	require.NoError(t, err)
	assert.Equal(t, "AAAA", string(recs[0].Seq))
	assert.Equal(t, "CC", string(recs[1].Seq))
}

func TestStreamGzip(t *testing.T) {
	gzPath := writeGz(t, "test.fa.gz", plain)

	ch, errc, err := Stream(gzPath)
	require.NoError(t, err)

	var ids []string
	for r := range ch {
		ids = append(ids, r.ID)
	}
	require.NoError(t, <-errc)
	assert.Equal(t, []string{"seq1", "seq2"}, ids)
}

func TestStreamStdin(t *testing.T) {
	// fake stdin by swapping os.Stdin
	orig := os.Stdin
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdin = r
	defer func() { os.Stdin = orig }()
	go func() { io.WriteString(w, plain); w.Close() }()

	ch, errc, err := Stream("-")
	require.NoError(t, err)
	count := 0
	for range ch { count++ }
	require.NoError(t, <-errc)
	assert.Equal(t, 2, count)
}

func TestReadOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.fa")
	require.NoError(t, os.WriteFile(path, []byte(plain), 0o644))

	rec, err := ReadOne(path, "")
	require.NoError(t, err)
	assert.Equal(t, "seq1", rec.ID)

	rec, err = ReadOne(path, "seq2")
	require.NoError(t, err)
	assert.Equal(t, "NNNN", string(rec.Seq))

	_, err = ReadOne(path, "missing")
	assert.Error(t, err)
}

func TestWriteWraps(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, 4, Record{ID: "x", Description: "opt", Seq: []byte("ACGTACGTAC")}))
	assert.Equal(t, ">x opt\nACGT\nACGT\nAC\n", buf.String())

	recs, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTAC", string(recs[0].Seq))
}
