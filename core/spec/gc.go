package spec

import (
	"context"
	"fmt"
	"math"

	"chisel/core/location"
)

// EnforceGCContent bounds the GC fraction of every Window-wide sliding window
// of its region (the whole region when Window is 0).
//
// With Target > 0 it scores minus the summed deviation of each window from
// Target and reports every deviating window as its own location, which suits
// objectives. Otherwise it scores minus the summed breach of [Min, Max] and
// reports merged offending windows.
type EnforceGCContent struct {
	Base
	Min, Max float64
	Target   float64
	Window   int
}

// NewEnforceGCContent validates the bounds.
func NewEnforceGCContent(lo, hi, target float64, window int) (*EnforceGCContent, error) {
	if hi == 0 {
		hi = 1
	}
	if lo < 0 || hi > 1 || lo > hi {
		return nil, fmt.Errorf("gc bounds [%v, %v] invalid", lo, hi)
	}
	if target < 0 || target > 1 {
		return nil, fmt.Errorf("gc target %v outside [0, 1]", target)
	}
	if window < 0 {
		return nil, fmt.Errorf("gc window must be >= 0, got %d", window)
	}
	return &EnforceGCContent{Min: lo, Max: hi, Target: target, Window: window}, nil
}

func (s *EnforceGCContent) Label() string {
	if s.Target > 0 {
		return fmt.Sprintf("EnforceGCContent(target=%.2f, window=%d)%s", s.Target, s.Window, s.suffix())
	}
	return fmt.Sprintf("EnforceGCContent(%.2f-%.2f, window=%d)%s", s.Min, s.Max, s.Window, s.suffix())
}

const gcEpsilon = 1e-9

func (s *EnforceGCContent) Evaluate(_ context.Context, p Problem) Evaluation {
	seq := p.Sequence()
	r := s.Region(len(seq))
	w := s.Window
	if w <= 0 || w > r.Len() {
		w = r.Len()
	}
	if w == 0 {
		return Evaluation{Spec: s}
	}
	// prefix[i] = GC bases in [r.Start, r.Start+i)
	prefix := make([]int, r.Len()+1)
	for i := 0; i < r.Len(); i++ {
		prefix[i+1] = prefix[i]
		if c := seq[r.Start+i]; c == 'G' || c == 'C' || c == 'g' || c == 'c' {
			prefix[i+1]++
		}
	}
	maxi := s.Max
	if maxi == 0 {
		maxi = 1
	}
	score := 0.0
	var locs []location.Location
	for i := 0; i+w <= r.Len(); i++ {
		gc := float64(prefix[i+w]-prefix[i]) / float64(w)
		var dev float64
		if s.Target > 0 {
			dev = math.Abs(gc - s.Target)
		} else {
			dev = math.Max(0, s.Min-gc) + math.Max(0, gc-maxi)
		}
		if dev <= gcEpsilon {
			continue
		}
		score -= dev
		locs = append(locs, location.Span(r.Start+i, r.Start+i+w))
	}
	if s.Target <= 0 {
		locs = location.MergeOverlapping(locs, false)
	}
	return Evaluation{Spec: s, Score: score, Locations: locs}
}

func (s *EnforceGCContent) Localized(loc location.Location, p Problem) Specification {
	n := len(p.Sequence())
	r := s.Region(n)
	if s.Window <= 0 || s.Window >= r.Len() {
		if !r.Intersects(loc) {
			return nil
		}
		return s
	}
	b, ok := s.narrowed(loc, s.Window-1, n)
	if !ok || b.Location.Len() < s.Window {
		return nil
	}
	cp := *s
	cp.Base = b
	return &cp
}

func (s *EnforceGCContent) BestPossibleScore() float64 { return 0 }
