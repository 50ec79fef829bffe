// Package pattern finds motif occurrences in DNA: degenerate (IUPAC) strings,
// homopolymers and tandem repeats, position-weight matrices, restriction
// enzyme sites and repeated k-mers.
//
// Matchers are stateless after construction. FindMatches returns locations
// sorted by start, end, then strand, and is deterministic. In circular mode,
// matches that cross the origin carry End > len(seq).
package pattern

import (
	"bytes"

	"chisel/core/location"
)

// Matcher locates occurrences of a motif.
type Matcher interface {
	FindMatches(seq []byte, circular bool) []location.Location
	// Span is the longest match the matcher can report, or 0 when unbounded.
	Span() int
	Name() string
}

// upper returns seq unchanged when it holds no lower-case letters, otherwise
// an upper-cased copy.
func upper(seq []byte) []byte {
	for _, c := range seq {
		if c >= 'a' && c <= 'z' {
			return bytes.ToUpper(seq)
		}
	}
	return seq
}

// circularView appends the first span-1 bases to seq so that fixed-length
// matches across the origin can be found with a linear scan. Matches starting
// at or past len(seq) must be discarded by the caller.
func circularView(seq []byte, span int) []byte {
	n := len(seq)
	if span <= 1 || n == 0 {
		return seq
	}
	tail := span - 1
	ext := make([]byte, 0, n+tail)
	ext = append(ext, seq...)
	for len(ext) < n+tail {
		need := n + tail - len(ext)
		if need > n {
			need = n
		}
		ext = append(ext, seq[:need]...)
	}
	return ext
}

// keepStarts drops locations starting at or past n (duplicates from the
// circular tail) and sorts the rest.
func keepStarts(locs []location.Location, n int) []location.Location {
	out := locs[:0]
	for _, l := range locs {
		if l.Start < n {
			out = append(out, l)
		}
	}
	location.Sort(out)
	return dedupe(out)
}

func dedupe(sorted []location.Location) []location.Location {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, l := range sorted[1:] {
		if l != out[len(out)-1] {
			out = append(out, l)
		}
	}
	return out
}

// Count returns the number of matches of m in seq.
func Count(m Matcher, seq []byte, circular bool) int {
	return len(m.FindMatches(seq, circular))
}
