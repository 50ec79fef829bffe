package spec

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chisel/core/dna"
	"chisel/core/location"
)

// CompatibilityRule compares the contents of two regions.
type CompatibilityRule interface {
	Name() string
	// Score is >= 0 when a and b are compatible.
	Score(a, b []byte) float64
}

func hamming(a, b []byte) int {
	d := max(len(a), len(b)) - min(len(a), len(b))
	for i := 0; i < min(len(a), len(b)); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// Identical requires both regions to read the same.
type Identical struct{}

func (Identical) Name() string              { return "identical" }
func (Identical) Score(a, b []byte) float64 { return -float64(hamming(a, b)) }

// ReverseComplementary requires b to read as the reverse complement of a.
type ReverseComplementary struct{}

func (ReverseComplementary) Name() string { return "reverse_complement" }
func (ReverseComplementary) Score(a, b []byte) float64 {
	return -float64(hamming(a, dna.RevComp(b)))
}

// MaxHamming allows up to K differing positions.
type MaxHamming struct{ K int }

func (r MaxHamming) Name() string { return fmt.Sprintf("max_hamming:%d", r.K) }
func (r MaxHamming) Score(a, b []byte) float64 {
	return float64(min(0, r.K-hamming(a, b)))
}

// RuleFunc adapts a function to CompatibilityRule.
type RuleFunc struct {
	Label string
	Fn    func(a, b []byte) float64
}

func (r RuleFunc) Name() string              { return r.Label }
func (r RuleFunc) Score(a, b []byte) float64 { return r.Fn(a, b) }

// ParseRule reads "identical", "reverse_complement" or "max_hamming:<k>".
func ParseRule(s string) (CompatibilityRule, error) {
	switch {
	case s == "identical":
		return Identical{}, nil
	case s == "reverse_complement":
		return ReverseComplementary{}, nil
	case strings.HasPrefix(s, "max_hamming:"):
		k, err := strconv.Atoi(strings.TrimPrefix(s, "max_hamming:"))
		if err != nil || k < 0 {
			return nil, fmt.Errorf("bad hamming bound in %q", s)
		}
		return MaxHamming{K: k}, nil
	}
	return nil, fmt.Errorf("unknown compatibility rule %q", s)
}

// EnforceRegionsCompatibility requires regions A and B (read on their
// strands) to satisfy Rule.
type EnforceRegionsCompatibility struct {
	Base
	A, B location.Location
	Rule CompatibilityRule
}

func (s *EnforceRegionsCompatibility) Label() string {
	return fmt.Sprintf("EnforceRegionsCompatibility(%s, %s, %s)", s.A, s.B, s.Rule.Name())
}

// Footprint covers both regions.
func (s *EnforceRegionsCompatibility) Footprint(n int) location.Location {
	lo := min(s.A.Start, s.B.Start)
	hi := min(max(s.A.End, s.B.End), n)
	return location.Span(lo, max(lo, hi))
}

func (s *EnforceRegionsCompatibility) Evaluate(_ context.Context, p Problem) Evaluation {
	seq := p.Sequence()
	n := len(seq)
	if s.A.End > n || s.B.End > n {
		return Evaluation{
			Spec:      s,
			Score:     -1,
			Locations: []location.Location{s.Footprint(n)},
			Err:       fmt.Errorf("%w: regions %s, %s beyond sequence end %d", location.ErrInvalidLocation, s.A, s.B, n),
		}
	}
	score := s.Rule.Score(s.A.Extract(seq), s.B.Extract(seq))
	if score >= 0 {
		return Evaluation{Spec: s, Score: score}
	}
	locs := location.MergeOverlapping([]location.Location{s.A, s.B}, false)
	return Evaluation{Spec: s, Score: score, Locations: locs}
}

func (s *EnforceRegionsCompatibility) Localized(loc location.Location, _ Problem) Specification {
	if !s.A.Intersects(loc) && !s.B.Intersects(loc) {
		return nil
	}
	return s
}

func (s *EnforceRegionsCompatibility) BestPossibleScore() float64 { return 0 }

// EnforceLength bounds the total sequence length. Max <= 0 means no upper
// bound. Substitutions never change the length, so edits never invalidate it.
type EnforceLength struct {
	Base
	Min, Max int
}

func (s *EnforceLength) Label() string { return fmt.Sprintf("EnforceLength(%d..%d)", s.Min, s.Max) }

func (s *EnforceLength) Footprint(int) location.Location { return location.Location{} }

func (s *EnforceLength) Evaluate(_ context.Context, p Problem) Evaluation {
	n := len(p.Sequence())
	var dev int
	switch {
	case n < s.Min:
		dev = s.Min - n
	case s.Max > 0 && n > s.Max:
		dev = n - s.Max
	default:
		return Evaluation{Spec: s, Message: fmt.Sprintf("length %d", n)}
	}
	return Evaluation{
		Spec:      s,
		Score:     -float64(dev),
		Locations: []location.Location{location.Span(0, n)},
		Message:   fmt.Sprintf("length %d outside %d..%d", n, s.Min, s.Max),
	}
}

func (s *EnforceLength) Localized(location.Location, Problem) Specification { return nil }
