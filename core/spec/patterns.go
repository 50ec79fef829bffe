package spec

import (
	"context"
	"fmt"

	"chisel/core/dna"
	"chisel/core/location"
	"chisel/core/mutation"
	"chisel/core/pattern"
)

// scanRegion finds the matches of m in the region of p, in sequence
// coordinates.
func scanRegion(ctx context.Context, p Problem, region location.Location, m pattern.Matcher, shard pattern.ShardOptions) ([]location.Location, error) {
	seq, circular := regionSeq(p, region)
	var (
		locs []location.Location
		err  error
	)
	if shard.Size > 0 {
		locs, err = pattern.ScanSharded(ctx, m, seq, circular, shard)
		if err != nil {
			return nil, err
		}
	} else {
		locs = m.FindMatches(seq, circular)
	}
	if region.Start == 0 {
		return locs, nil
	}
	out := make([]location.Location, len(locs))
	for i, l := range locs {
		out[i] = l.Translate(region.Start)
	}
	return out, nil
}

// AvoidPattern allows at most MaxOccurrences matches of Pattern in its region.
// The score is minus the number of excess matches; the excess matches (all of
// them when MaxOccurrences is 0) are the failing locations.
type AvoidPattern struct {
	Base
	Pattern        pattern.Matcher
	MaxOccurrences int
	// Shard scans long regions in parallel when Size > 0.
	Shard pattern.ShardOptions
}

func (s *AvoidPattern) Label() string {
	if s.MaxOccurrences > 0 {
		return fmt.Sprintf("AvoidPattern(%s, max=%d)%s", s.Pattern.Name(), s.MaxOccurrences, s.suffix())
	}
	return fmt.Sprintf("AvoidPattern(%s)%s", s.Pattern.Name(), s.suffix())
}

func (s *AvoidPattern) Evaluate(ctx context.Context, p Problem) Evaluation {
	r := s.Region(len(p.Sequence()))
	matches, err := scanRegion(ctx, p, r, s.Pattern, s.Shard)
	if err != nil {
		return Evaluation{Spec: s, Score: -1, Locations: []location.Location{r}, Err: err}
	}
	excess := len(matches) - s.MaxOccurrences
	if excess <= 0 {
		return Evaluation{Spec: s, Score: 0, Message: fmt.Sprintf("%d occurrence(s)", len(matches))}
	}
	return Evaluation{
		Spec:      s,
		Score:     -float64(excess),
		Locations: matches[s.MaxOccurrences:],
		Message:   fmt.Sprintf("%d occurrence(s), at most %d allowed", len(matches), s.MaxOccurrences),
	}
}

func (s *AvoidPattern) Localized(loc location.Location, p Problem) Specification {
	n := len(p.Sequence())
	span := s.Pattern.Span()
	if s.MaxOccurrences > 0 || span == 0 {
		// counts over the whole region, or matches of unbounded length
		if !s.intersects(loc, n) {
			return nil
		}
		return s
	}
	b, ok := s.narrowed(loc, span-1, n)
	if !ok || b.Location.Len() < span {
		return nil
	}
	return &AvoidPattern{Base: b, Pattern: s.Pattern, Shard: s.Shard}
}

func (s *AvoidPattern) BestPossibleScore() float64 { return 0 }

// EnforcePatternOccurrence requires between Min and Max matches of Pattern
// in its region. Max < 0 means no upper bound.
type EnforcePatternOccurrence struct {
	Base
	Pattern pattern.Matcher
	Min     int
	Max     int
}

func (s *EnforcePatternOccurrence) Label() string {
	return fmt.Sprintf("EnforcePatternOccurrence(%s, %d..%d)%s", s.Pattern.Name(), s.Min, s.Max, s.suffix())
}

func (s *EnforcePatternOccurrence) Evaluate(ctx context.Context, p Problem) Evaluation {
	r := s.Region(len(p.Sequence()))
	matches, err := scanRegion(ctx, p, r, s.Pattern, pattern.ShardOptions{})
	if err != nil {
		return Evaluation{Spec: s, Score: -1, Locations: []location.Location{r}, Err: err}
	}
	c := len(matches)
	switch {
	case c < s.Min:
		return Evaluation{
			Spec:      s,
			Score:     -float64(s.Min - c),
			Locations: []location.Location{r},
			Message:   fmt.Sprintf("%d occurrence(s), at least %d required", c, s.Min),
		}
	case s.Max >= 0 && c > s.Max:
		return Evaluation{
			Spec:      s,
			Score:     -float64(c - s.Max),
			Locations: matches[s.Max:],
			Message:   fmt.Sprintf("%d occurrence(s), at most %d allowed", c, s.Max),
		}
	}
	return Evaluation{Spec: s, Score: 0, Message: fmt.Sprintf("%d occurrence(s)", c)}
}

func (s *EnforcePatternOccurrence) Localized(loc location.Location, p Problem) Specification {
	if !s.intersects(loc, len(p.Sequence())) {
		return nil
	}
	return s
}

// Insertions proposes, for every start in the region, the edit writing one
// concrete instance of the pattern there (the current base wherever the
// pattern allows it). Only degenerate patterns can be inserted.
func (s *EnforcePatternOccurrence) Insertions(seq []byte) []mutation.Mutation {
	d, ok := s.Pattern.(*pattern.Degenerate)
	if !ok {
		return nil
	}
	pat := d.Pattern()
	r := s.Region(len(seq))
	var out []mutation.Mutation
	for start := r.Start; start+len(pat) <= r.End; start++ {
		site := make([]byte, len(pat))
		changed := false
		for j, sym := range pat {
			cur := seq[start+j]
			if dna.BaseMatch(cur, sym) {
				site[j] = cur
				continue
			}
			site[j] = dna.MaskOf(sym).Bases()[0]
			changed = true
		}
		if changed {
			out = append(out, mutation.Mutation{Loc: location.Span(start, start+len(pat)), Seq: site})
		}
	}
	return out
}

// UniquifyAllKmers forbids any k-mer (or its reverse complement) from
// occurring more than once. The score is minus the number of occurrences of
// repeated k-mers.
type UniquifyAllKmers struct {
	Base
	K int
	// ForwardOnly stops a k-mer and its reverse complement counting as equal.
	ForwardOnly bool

	focus *location.Location
}

func (s *UniquifyAllKmers) Label() string {
	return fmt.Sprintf("UniquifyAllKmers(%d)%s", s.K, s.suffix())
}

func (s *UniquifyAllKmers) Evaluate(_ context.Context, p Problem) Evaluation {
	r := s.Region(len(p.Sequence()))
	seq, circular := regionSeq(p, r)
	var locs []location.Location
	for _, g := range pattern.IndexKmers(seq, s.K, 2, circular, !s.ForwardOnly) {
		if s.focus != nil && !touches(g.Locations, s.focus.Translate(-r.Start)) {
			continue
		}
		for _, l := range g.Locations {
			locs = append(locs, l.Translate(r.Start))
		}
	}
	location.Sort(locs)
	return Evaluation{Spec: s, Score: -float64(len(locs)), Locations: locs}
}

func touches(locs []location.Location, focus location.Location) bool {
	for _, l := range locs {
		if l.Intersects(focus) {
			return true
		}
	}
	return false
}

// Localized keeps scanning the whole region but only counts k-mers with an
// occurrence near loc.
func (s *UniquifyAllKmers) Localized(loc location.Location, p Problem) Specification {
	n := len(p.Sequence())
	if !s.intersects(loc, n) {
		return nil
	}
	focus := loc.Extend(s.K-1, 0, n)
	cp := *s
	cp.focus = &focus
	return &cp
}

func (s *UniquifyAllKmers) BestPossibleScore() float64 { return 0 }
