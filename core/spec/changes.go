package spec

import (
	"context"
	"fmt"
	"sort"

	"chisel/core/dna"
	"chisel/core/location"
	"chisel/core/mutation"
)

// changeBin is the width of the bins AvoidChanges reports edits in.
const changeBin = 8

// AvoidChanges keeps its region identical to the original sequence. As a
// constraint it locks the region in the mutation space; as an objective it
// scores minus the number of changed bases.
type AvoidChanges struct {
	Base
}

func (s *AvoidChanges) Label() string { return "AvoidChanges" + s.suffix() }

func (s *AvoidChanges) Evaluate(_ context.Context, p Problem) Evaluation {
	seq, orig := p.Sequence(), p.Original()
	n := len(seq)
	r := s.Region(n)
	diffs := 0
	var locs []location.Location
	lastBin := -1
	for i := r.Start; i < r.End && i < len(orig); i++ {
		if seq[i] == orig[i] {
			continue
		}
		diffs++
		if bin := i / changeBin; bin != lastBin {
			lastBin = bin
			locs = append(locs, location.Span(bin*changeBin, min(bin*changeBin+changeBin, n)))
		}
	}
	ev := Evaluation{Spec: s, Score: -float64(diffs), Locations: locs}
	if diffs > 0 {
		ev.Message = fmt.Sprintf("%d base(s) changed", diffs)
	}
	return ev
}

func (s *AvoidChanges) Localized(loc location.Location, p Problem) Specification {
	b, ok := s.narrowed(loc, 0, len(p.Sequence()))
	if !ok {
		return nil
	}
	return &AvoidChanges{Base: b}
}

func (s *AvoidChanges) Restrictions(seq []byte, within location.Location) []mutation.Restriction {
	ov, ok := s.Region(len(seq)).Overlap(within)
	if !ok {
		return nil
	}
	return mutation.Lock(ov, seq)
}

func (s *AvoidChanges) BestPossibleScore() float64 { return 0 }

// sequenceGroupSpread is the largest gap between two mismatches reported in
// the same EnforceSequence location.
const sequenceGroupSpread = 6

// EnforceSequence requires its region to match an IUPAC pattern, read on the
// region's strand.
type EnforceSequence struct {
	Base
	Pattern string
}

// NewEnforceSequence validates pattern against the bound location, if any.
func NewEnforceSequence(pattern string, loc *location.Location) (*EnforceSequence, error) {
	norm, err := dna.NormalizeIUPAC(pattern)
	if err != nil {
		return nil, err
	}
	if loc != nil && loc.Len() != len(norm) {
		return nil, fmt.Errorf("%w: pattern of length %d for location %s", dna.ErrInvalidSequence, len(norm), loc)
	}
	return &EnforceSequence{Base: Base{Location: loc}, Pattern: norm}, nil
}

func (s *EnforceSequence) Label() string {
	return fmt.Sprintf("EnforceSequence(%s)%s", s.Pattern, s.suffix())
}

// symbolAt returns the pattern symbol constraining forward position i, already
// complemented on the reverse strand.
func (s *EnforceSequence) symbolAt(r location.Location, i int) byte {
	if r.Strand == location.Reverse {
		return dna.Complement(s.Pattern[r.End-1-i])
	}
	return s.Pattern[i-r.Start]
}

func (s *EnforceSequence) Evaluate(_ context.Context, p Problem) Evaluation {
	seq := p.Sequence()
	r := s.Region(len(seq))
	if r.Len() != len(s.Pattern) {
		return Evaluation{
			Spec:      s,
			Score:     -1,
			Locations: []location.Location{r},
			Err:       fmt.Errorf("%w: pattern of length %d for region %s", dna.ErrInvalidSequence, len(s.Pattern), r),
		}
	}
	var bad []int
	for i := r.Start; i < r.End; i++ {
		if !dna.BaseMatch(seq[i], s.symbolAt(r, i)) {
			bad = append(bad, i)
		}
	}
	sort.Ints(bad)
	return Evaluation{Spec: s, Score: -float64(len(bad)), Locations: groupNearby(bad, sequenceGroupSpread)}
}

// groupNearby turns sorted positions into locations, joining positions at
// most spread apart.
func groupNearby(pos []int, spread int) []location.Location {
	var out []location.Location
	for i := 0; i < len(pos); {
		j := i
		for j+1 < len(pos) && pos[j+1]-pos[j] <= spread {
			j++
		}
		out = append(out, location.Span(pos[i], pos[j]+1))
		i = j + 1
	}
	return out
}

func (s *EnforceSequence) Localized(loc location.Location, p Problem) Specification {
	n := len(p.Sequence())
	r := s.Region(n)
	if r.Len() != len(s.Pattern) {
		return s
	}
	b, ok := s.narrowed(loc, 0, n)
	if !ok {
		return nil
	}
	ov := *b.Location
	var sub string
	if r.Strand == location.Reverse {
		sub = s.Pattern[r.End-ov.End : r.End-ov.Start]
	} else {
		sub = s.Pattern[ov.Start-r.Start : ov.End-r.Start]
	}
	return &EnforceSequence{Base: b, Pattern: sub}
}

func (s *EnforceSequence) Restrictions(seq []byte, within location.Location) []mutation.Restriction {
	r := s.Region(len(seq))
	if r.Len() != len(s.Pattern) {
		return nil
	}
	ov, ok := r.Overlap(within)
	if !ok {
		return nil
	}
	out := make([]mutation.Restriction, 0, ov.Len())
	for i := ov.Start; i < ov.End; i++ {
		bases := dna.MaskOf(s.symbolAt(r, i)).Bases()
		allowed := make([][]byte, len(bases))
		for j, c := range bases {
			allowed[j] = []byte{c}
		}
		out = append(out, mutation.Restriction{Loc: location.Span(i, i+1), Allowed: allowed})
	}
	return out
}

func (s *EnforceSequence) BestPossibleScore() float64 { return 0 }
