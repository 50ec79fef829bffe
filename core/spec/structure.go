package spec

import (
	"bytes"
	"context"
	"fmt"

	"chisel/core/dna"
	"chisel/core/location"
	"chisel/core/thermo"
)

// AvoidHairpins forbids any StemSize-long segment whose reverse complement
// appears downstream within Window bases. The score is minus the number of
// such stem pairs.
type AvoidHairpins struct {
	Base
	StemSize int
	Window   int
}

func (s *AvoidHairpins) params() (stem, window int) {
	stem, window = s.StemSize, s.Window
	if stem <= 0 {
		stem = 20
	}
	if window <= 0 {
		window = 200
	}
	return stem, window
}

func (s *AvoidHairpins) Label() string {
	stem, window := s.params()
	return fmt.Sprintf("AvoidHairpins(stem=%d, window=%d)%s", stem, window, s.suffix())
}

func (s *AvoidHairpins) Evaluate(_ context.Context, p Problem) Evaluation {
	stem, window := s.params()
	r := s.Region(len(p.Sequence()))
	seq := bytes.ToUpper(p.Sequence()[r.Start:r.End])
	words := make(map[string][]int)
	for i := 0; i+stem <= len(seq); i++ {
		words[string(seq[i:i+stem])] = append(words[string(seq[i:i+stem])], i)
	}
	pairs := 0
	var locs []location.Location
	for i := 0; i+stem <= len(seq); i++ {
		rc := dna.RevComp(seq[i : i+stem])
		for _, j := range words[string(rc)] {
			if j < i+stem || j+stem > i+window {
				continue
			}
			pairs++
			locs = append(locs, location.Span(r.Start+i, r.Start+j+stem))
		}
	}
	if pairs == 0 {
		return Evaluation{Spec: s}
	}
	return Evaluation{
		Spec:      s,
		Score:     -float64(pairs),
		Locations: location.MergeOverlapping(locs, false),
		Message:   fmt.Sprintf("%d stem pair(s)", pairs),
	}
}

func (s *AvoidHairpins) Localized(loc location.Location, p Problem) Specification {
	_, window := s.params()
	b, ok := s.narrowed(loc, window, len(p.Sequence()))
	if !ok {
		return nil
	}
	cp := *s
	cp.Base = b
	return &cp
}

func (s *AvoidHairpins) BestPossibleScore() float64 { return 0 }

// MinimizeHairpins sums the hairpin penalty of Window-wide windows placed
// every Window/2 bases (at absolute positions, so narrowed copies score the
// same windows).
type MinimizeHairpins struct {
	Base
	Window int
}

func (s *MinimizeHairpins) window() int {
	if s.Window <= 1 {
		return 40
	}
	return s.Window
}

func (s *MinimizeHairpins) Label() string {
	return fmt.Sprintf("MinimizeHairpins(window=%d)%s", s.window(), s.suffix())
}

func (s *MinimizeHairpins) Evaluate(_ context.Context, p Problem) Evaluation {
	seq := p.Sequence()
	r := s.Region(len(seq))
	w := s.window()
	step := w / 2
	var wins []location.Location
	if r.Len() <= w {
		wins = append(wins, r)
	} else {
		first := (r.Start + step - 1) / step * step
		for st := first; st+w <= r.End; st += step {
			wins = append(wins, location.Span(st, st+w))
		}
	}
	score := 0.0
	var locs []location.Location
	for _, win := range wins {
		pen := thermo.HairpinPenalty(seq[win.Start:win.End])
		if pen > 0 {
			score -= pen
			locs = append(locs, win)
		}
	}
	return Evaluation{Spec: s, Score: score, Locations: locs}
}

func (s *MinimizeHairpins) Localized(loc location.Location, p Problem) Specification {
	b, ok := s.narrowed(loc, s.window(), len(p.Sequence()))
	if !ok {
		return nil
	}
	cp := *s
	cp.Base = b
	return &cp
}

func (s *MinimizeHairpins) BestPossibleScore() float64 { return 0 }

// EnforceMeltingTemperature bounds the nearest-neighbour Tm (°C) of its
// region. The score is minus the distance to [Min, Max].
type EnforceMeltingTemperature struct {
	Base
	Min, Max   float64
	Conditions thermo.Conditions
}

func (s *EnforceMeltingTemperature) Label() string {
	return fmt.Sprintf("EnforceMeltingTemperature(%.1f-%.1f)%s", s.Min, s.Max, s.suffix())
}

func (s *EnforceMeltingTemperature) Evaluate(_ context.Context, p Problem) Evaluation {
	r := s.Region(len(p.Sequence()))
	cond := s.Conditions
	if cond == (thermo.Conditions{}) {
		cond = thermo.DefaultConditions
	}
	d, err := thermo.MeltingTemp(r.Extract(p.Sequence()), cond)
	if err != nil {
		return Evaluation{Spec: s, Score: -1, Locations: []location.Location{r}, Err: err}
	}
	var dev float64
	switch {
	case d.TmC < s.Min:
		dev = s.Min - d.TmC
	case s.Max > 0 && d.TmC > s.Max:
		dev = d.TmC - s.Max
	}
	msg := fmt.Sprintf("Tm %.1f°C", d.TmC)
	if dev == 0 {
		return Evaluation{Spec: s, Message: msg}
	}
	return Evaluation{Spec: s, Score: -dev, Locations: []location.Location{r}, Message: msg}
}

func (s *EnforceMeltingTemperature) Localized(loc location.Location, p Problem) Specification {
	if !s.intersects(loc, len(p.Sequence())) {
		return nil
	}
	return s
}

func (s *EnforceMeltingTemperature) BestPossibleScore() float64 { return 0 }
