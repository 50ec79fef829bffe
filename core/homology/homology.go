// Package homology describes the external similarity search used to keep a
// sequence free of long matches against a database, plus a cache and an
// in-memory searcher.
package homology

import (
	"context"
	"errors"
	"fmt"

	"chisel/core/location"
)

// ErrSearchFailed wraps any failure of the underlying search (tool missing,
// timeout, unparsable output).
var ErrSearchFailed = errors.New("homology search failed")

// Hit is one alignment between the query and a database entry. Query
// coordinates are relative to the query passed to Search; a reverse-strand
// hit has Strand Reverse on its Query location.
type Hit struct {
	Subject         string
	Query           location.Location
	Target          location.Location
	PercentIdentity float64
	AlignmentLength int
}

// Params tunes a search.
type Params struct {
	WordSize       int
	PercIdentity   float64
	MinAlignLength int
	MaxHits        int
	Threads        int
}

// DefaultParams mirrors the usual settings for screening synthetic constructs.
func DefaultParams() Params {
	return Params{WordSize: 4, PercIdentity: 100, MinAlignLength: 20, MaxHits: 1000, Threads: 3}
}

// Searcher finds alignments of query against the database db.
type Searcher interface {
	Search(ctx context.Context, query []byte, db string, p Params) ([]Hit, error)
}

// SearchFunc adapts a function to Searcher.
type SearchFunc func(ctx context.Context, query []byte, db string, p Params) ([]Hit, error)

func (f SearchFunc) Search(ctx context.Context, query []byte, db string, p Params) ([]Hit, error) {
	return f(ctx, query, db, p)
}

// Failed wraps err so that errors.Is(err, ErrSearchFailed) holds.
func Failed(err error) error {
	if err == nil || errors.Is(err, ErrSearchFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSearchFailed, err)
}

// Filter keeps hits at least minLen long with identity >= minIdent.
func Filter(hits []Hit, minLen int, minIdent float64) []Hit {
	out := hits[:0:0]
	for _, h := range hits {
		if h.AlignmentLength >= minLen && h.PercentIdentity >= minIdent {
			out = append(out, h)
		}
	}
	return out
}
