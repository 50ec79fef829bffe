// internal/fasta/reader.go
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoRecords is returned when an input holds no FASTA header at all.
var ErrNoRecords = errors.New("fasta: no records")

// Record is one FASTA entry. Seq is upper-cased with line breaks removed.
type Record struct {
	ID          string
	Description string
	Seq         []byte
}

// Stream parses path ("-" is stdin, ".gz" is gunzipped) and sends whole
// records on the returned channel. A read error ends the stream early and is
// reported on errc after the records channel closes.
func Stream(path string) (<-chan Record, <-chan error, error) {
	rc, err := openReader(path)
	if err != nil { return nil, nil, err }

	out := make(chan Record, 4)
	errc := make(chan error, 1)

	go func() {
		defer rc.Close()
		defer close(errc)
		defer close(out)
		errc <- scan(rc, func(r Record) { out <- r })
	}()
	return out, errc, nil
}

// Read collects every record of r.
func Read(r io.Reader) ([]Record, error) {
	var recs []Record
	if err := scan(r, func(rec Record) { recs = append(recs, rec) }); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}
	return recs, nil
}

// ReadFile is Read over a path, with the same "-" and ".gz" handling as Stream.
func ReadFile(path string) ([]Record, error) {
	rc, err := openReader(path)
	if err != nil { return nil, err }
	defer rc.Close()
	recs, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// ReadOne returns the first record of path, or the record called id when id
// is not empty.
func ReadOne(path, id string) (Record, error) {
	recs, err := ReadFile(path)
	if err != nil { return Record{}, err }
	if id == "" {
		return recs[0], nil
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%s: record %q not found", path, id)
}

func scan(rc io.Reader, emit func(Record)) error {
	r := bufio.NewReader(rc)
	var (
		cur     Record
		started bool
	)
	flush := func() {
		if started {
			rec := cur
			rec.Seq = bytes.Clone(cur.Seq) // buffer is reused by the next record
			emit(rec)
		}
	}
	for {
		line, err := r.ReadBytes('\n')
		eof := err == io.EOF
		if err != nil && !eof {
			return err
		}
		line = bytes.TrimRight(line, "\r\n")
		if eof && len(line) == 0 {
			break
		}
		switch {
		case len(line) > 0 && line[0] == '>': // new header
			flush()
			id, desc, _ := strings.Cut(strings.TrimSpace(string(line[1:])), " ")
			cur = Record{ID: id, Description: strings.TrimSpace(desc), Seq: cur.Seq[:0]}
			started = true
		case len(line) == 0 || line[0] == ';':
		default:
			if !started {
				return errors.New("fasta: sequence data before first header")
			}
			cur.Seq = append(cur.Seq, bytes.ToUpper(bytes.TrimSpace(line))...)
		}
		if eof { break }
	}
	flush()
	return nil
}

/* ---------------- small helpers ---------------- */

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil { return nil, err }
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil { fh.Close(); return nil, err }
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
