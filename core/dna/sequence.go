package dna

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrInvalidSequence reports a symbol outside the alphabet or a length mismatch.
var ErrInvalidSequence = errors.New("invalid sequence")

// Normalize upper-cases seq and checks that it only holds A, C, G and T.
// The input is not modified.
func Normalize(seq []byte) ([]byte, error) {
	out := bytes.ToUpper(seq)
	for i, c := range out {
		if !IsACGT(c) {
			return nil, fmt.Errorf("%w: symbol %q at position %d", ErrInvalidSequence, c, i)
		}
	}
	return out, nil
}

// NormalizeIUPAC upper-cases a degenerate pattern and checks every symbol is
// an IUPAC code.
func NormalizeIUPAC(p string) (string, error) {
	out := bytes.ToUpper([]byte(p))
	for i, c := range out {
		if iupacMask[c] == 0 {
			return "", fmt.Errorf("%w: non-IUPAC symbol %q at position %d", ErrInvalidSequence, c, i)
		}
	}
	return string(out), nil
}

// GCCount counts G and C bases in seq.
func GCCount(seq []byte) int {
	n := 0
	for _, c := range seq {
		if c == 'G' || c == 'C' || c == 'g' || c == 'c' {
			n++
		}
	}
	return n
}

// GCContent is the GC fraction of seq (0 for an empty sequence).
func GCContent(seq []byte) float64 {
	if len(seq) == 0 {
		return 0
	}
	return float64(GCCount(seq)) / float64(len(seq))
}

// Differences returns the positions where a and b differ over their common length.
func Differences(a, b []byte) []int {
	n := min(len(a), len(b))
	var out []int
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			out = append(out, i)
		}
	}
	return out
}
