package mutation

import (
	"fmt"

	"chisel/core/dna"
	"chisel/core/location"
)

// Restriction limits the contents of Loc to Allowed. Single-base restrictions
// combine by intersection; multi-base ones (codons, locked segments) become
// their own Choice.
type Restriction struct {
	Loc     location.Location
	Allowed [][]byte
}

// Lock fixes loc to its current contents in seq.
func Lock(loc location.Location, seq []byte) []Restriction {
	out := make([]Restriction, 0, loc.Len())
	for i := loc.Start; i < loc.End; i++ {
		out = append(out, Restriction{
			Loc:     location.Span(i, i+1),
			Allowed: [][]byte{{seq[i]}},
		})
	}
	return out
}

// FromIUPAC restricts each base of [start, start+len(pattern)) to the bases
// its IUPAC symbol allows.
func FromIUPAC(start int, pattern string) ([]Restriction, error) {
	norm, err := dna.NormalizeIUPAC(pattern)
	if err != nil {
		return nil, err
	}
	out := make([]Restriction, 0, len(norm))
	for i := 0; i < len(norm); i++ {
		bases := dna.MaskOf(norm[i]).Bases()
		allowed := make([][]byte, len(bases))
		for j, b := range bases {
			allowed[j] = []byte{b}
		}
		out = append(out, Restriction{Loc: location.Span(start+i, start+i+1), Allowed: allowed})
	}
	return out, nil
}

func (r Restriction) validate(n int) error {
	if r.Loc.Start < 0 || r.Loc.End > n || r.Loc.Start >= r.Loc.End {
		return fmt.Errorf("%w: restriction %s outside [0, %d)", location.ErrInvalidLocation, r.Loc, n)
	}
	return nil
}

func errEmpty(loc location.Location) error {
	return fmt.Errorf("%w: no legal contents left at %s", ErrEmptyMutationSpace, loc)
}
