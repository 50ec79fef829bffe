package pattern

import (
	"bytes"
	"fmt"

	"chisel/core/dna"
	"chisel/core/location"
)

// Degenerate matches an IUPAC pattern on both strands, optionally tolerating
// mismatches. Palindromic patterns are reported once with strand None.
type Degenerate struct {
	name        string
	pat         []byte
	rc          []byte
	maxMM       int
	forwardOnly bool
	palindrome  bool
	exact       bool // pattern is plain ACGT and no mismatches are allowed
}

// DegenerateOption configures a Degenerate matcher.
type DegenerateOption func(*Degenerate)

// WithMismatches allows up to n substitutions per occurrence.
func WithMismatches(n int) DegenerateOption { return func(d *Degenerate) { d.maxMM = n } }

// ForwardOnly restricts the scan to the forward strand.
func ForwardOnly() DegenerateOption { return func(d *Degenerate) { d.forwardOnly = true } }

// WithName overrides the matcher label.
func WithName(name string) DegenerateOption { return func(d *Degenerate) { d.name = name } }

// NewDegenerate compiles an IUPAC pattern.
func NewDegenerate(pattern string, opts ...DegenerateOption) (*Degenerate, error) {
	norm, err := dna.NormalizeIUPAC(pattern)
	if err != nil {
		return nil, err
	}
	pat := []byte(norm)
	if len(pat) == 0 {
		return nil, fmt.Errorf("%w: empty pattern", dna.ErrInvalidSequence)
	}
	d := &Degenerate{name: string(pat), pat: pat, rc: dna.RevComp(pat)}
	for _, o := range opts {
		o(d)
	}
	if d.maxMM < 0 {
		d.maxMM = 0
	}
	d.palindrome = bytes.Equal(d.pat, d.rc)
	d.exact = d.maxMM == 0 && dna.IsUnambiguous(d.pat)
	return d, nil
}

// MustDegenerate is NewDegenerate for constant patterns.
func MustDegenerate(pattern string, opts ...DegenerateOption) *Degenerate {
	d, err := NewDegenerate(pattern, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Degenerate) Name() string { return d.name }
func (d *Degenerate) Span() int    { return len(d.pat) }

// Pattern returns the normalized forward pattern.
func (d *Degenerate) Pattern() []byte { return d.pat }

// IsPalindrome reports whether the pattern equals its reverse complement.
func (d *Degenerate) IsPalindrome() bool { return d.palindrome }

func (d *Degenerate) FindMatches(seq []byte, circular bool) []location.Location {
	n := len(seq)
	if n == 0 {
		return nil
	}
	s := upper(seq)
	if circular {
		s = circularView(s, len(d.pat))
	}
	var out []location.Location
	fwd := location.Forward
	if d.palindrome {
		fwd = location.None
	}
	for _, p := range d.scan(s, d.pat) {
		out = append(out, location.Location{Start: p, End: p + len(d.pat), Strand: fwd})
	}
	if !d.palindrome && !d.forwardOnly {
		for _, p := range d.scan(s, d.rc) {
			out = append(out, location.Location{Start: p, End: p + len(d.rc), Strand: location.Reverse})
		}
	}
	return keepStarts(out, n)
}

// scan returns every start where pat matches within the mismatch budget.
func (d *Degenerate) scan(seq, pat []byte) []int {
	pl := len(pat)
	if len(seq) < pl {
		return nil
	}
	if d.exact {
		var out []int
		for i := 0; ; {
			j := bytes.Index(seq[i:], pat)
			if j < 0 {
				break
			}
			out = append(out, i+j)
			i += j + 1
		}
		return out
	}
	var out []int
	end := len(seq) - pl
window:
	for pos := 0; pos <= end; pos++ {
		mm := 0
		for j := 0; j < pl; j++ {
			if !dna.BaseMatch(seq[pos+j], pat[j]) {
				mm++
				if mm > d.maxMM {
					continue window
				}
			}
		}
		out = append(out, pos)
	}
	return out
}
