package pattern

import (
	"fmt"

	"chisel/core/dna"
	"chisel/core/location"
)

// Repeat matches tandem repeats: stretches where some unit of Unit bases is
// repeated at least MinCount times in a row. Unit 1 is a homopolymer; Base
// restricts a homopolymer to one nucleotide (0 means any).
//
// Each maximal periodic run is reported once, spanning the whole run.
type Repeat struct {
	Unit     int
	MinCount int
	Base     byte
}

// Homopolymer matches runs of at least n copies of base (0 for any base).
func Homopolymer(base byte, n int) (*Repeat, error) {
	if base != 0 && !dna.IsACGT(base) {
		return nil, fmt.Errorf("%w: homopolymer base %q", dna.ErrInvalidSequence, base)
	}
	if n < 1 {
		return nil, fmt.Errorf("homopolymer length must be positive, got %d", n)
	}
	return &Repeat{Unit: 1, MinCount: n, Base: base}, nil
}

// TandemRepeat matches units of unit bases repeated at least n times.
func TandemRepeat(unit, n int) (*Repeat, error) {
	if unit < 1 || n < 2 {
		return nil, fmt.Errorf("tandem repeat needs unit >= 1 and count >= 2, got %d x %d", n, unit)
	}
	return &Repeat{Unit: unit, MinCount: n}, nil
}

func (r *Repeat) Name() string {
	if r.Unit == 1 {
		if r.Base != 0 {
			return fmt.Sprintf("%dx%c", r.MinCount, r.Base)
		}
		return fmt.Sprintf("%dxN", r.MinCount)
	}
	return fmt.Sprintf("%dx%dmer", r.MinCount, r.Unit)
}

func (r *Repeat) Span() int { return 0 }

func (r *Repeat) FindMatches(seq []byte, circular bool) []location.Location {
	n := len(seq)
	u := r.Unit
	if n == 0 || u < 1 {
		return nil
	}
	s := upper(seq)
	if circular {
		ext := make([]byte, 0, 2*n)
		ext = append(ext, s...)
		s = append(ext, s...)
	}
	minLen := u * r.MinCount
	var out []location.Location
	emit := func(start, end int) {
		if start >= n {
			return
		}
		if circular && end-start > n {
			end = start + n
		}
		cnt := (end - start) / u
		if cnt < r.MinCount || end-start < minLen {
			return
		}
		if r.Base != 0 && s[start] != r.Base {
			return
		}
		out = append(out, location.Location{Start: start, End: start + cnt*u})
	}
	// run holds the start of the current stretch where s[i] == s[i+u].
	runStart := 0
	inRun := false
	for i := 0; i+u < len(s); i++ {
		same := s[i] == s[i+u] && dna.IsACGT(s[i])
		switch {
		case same && !inRun:
			runStart, inRun = i, true
		case !same && inRun:
			emit(runStart, i+u)
			inRun = false
		}
	}
	if inRun {
		emit(runStart, len(s))
	}
	if circular && len(out) > 0 && out[0].Start == 0 && out[0].Len() < n {
		// A run starting at 0 that continues from the end of the sequence is
		// already reported by the run that wraps around the origin.
		if s[n-1] == s[(n-1+u)%n] && dna.IsACGT(s[n-1]) {
			out = out[1:]
		}
	}
	location.Sort(out)
	return out
}
