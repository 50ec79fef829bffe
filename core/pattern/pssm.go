package pattern

import (
	"fmt"
	"math"

	"chisel/core/location"
)

// minLogOdds replaces -Inf cells of a matrix built without pseudocounts.
const minLogOdds = -20.0

// PSSM is a log-odds position-specific scoring matrix. A window matches when
// its score reaches the threshold, on either strand.
type PSSM struct {
	name      string
	fwd       [][4]float64 // [position][A,C,G,T]
	rev       [][4]float64
	min, max  float64
	threshold float64
}

// PSSMOptions tunes matrix construction.
type PSSMOptions struct {
	Pseudocount float64
	// RelThreshold in [0,1] places the threshold at min + r*(max-min) of the
	// achievable score range.
	RelThreshold float64
	// Background base frequencies (A, C, G, T). Zero means uniform.
	Background [4]float64
}

// NewPSSM builds a matrix from per-position base counts (A, C, G, T).
func NewPSSM(name string, counts [][4]float64, opt PSSMOptions) (*PSSM, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("pssm %q: empty matrix", name)
	}
	if opt.RelThreshold < 0 || opt.RelThreshold > 1 {
		return nil, fmt.Errorf("pssm %q: relative threshold %v outside [0,1]", name, opt.RelThreshold)
	}
	bg := opt.Background
	if bg == [4]float64{} {
		bg = [4]float64{0.25, 0.25, 0.25, 0.25}
	}
	for _, f := range bg {
		if f <= 0 {
			return nil, fmt.Errorf("pssm %q: background frequencies must be positive", name)
		}
	}
	pseudocount := opt.Pseudocount
	p := &PSSM{name: name, fwd: make([][4]float64, len(counts))}
	for i, col := range counts {
		total := 0.0
		for _, c := range col {
			if c < 0 {
				return nil, fmt.Errorf("pssm %q: negative count at position %d", name, i)
			}
			total += c
		}
		total += 4 * pseudocount
		if total == 0 {
			return nil, fmt.Errorf("pssm %q: position %d has no counts", name, i)
		}
		for b, c := range col {
			lo := math.Log2((c + pseudocount) / total / bg[b])
			if math.IsInf(lo, -1) || lo < minLogOdds {
				lo = minLogOdds
			}
			p.fwd[i][b] = lo
		}
	}
	n := len(p.fwd)
	p.rev = make([][4]float64, n)
	for i := range p.fwd {
		for b := 0; b < 4; b++ {
			p.rev[n-1-i][3-b] = p.fwd[i][b]
		}
	}
	for _, col := range p.fwd {
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		p.min += lo
		p.max += hi
	}
	p.threshold = p.min + opt.RelThreshold*(p.max-p.min)
	return p, nil
}

// PSSMFromSites counts aligned example sites and builds the matrix.
func PSSMFromSites(name string, sites []string, opt PSSMOptions) (*PSSM, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("pssm %q: no sites", name)
	}
	w := len(sites[0])
	counts := make([][4]float64, w)
	for _, s := range sites {
		if len(s) != w {
			return nil, fmt.Errorf("pssm %q: sites differ in length (%d vs %d)", name, len(s), w)
		}
		for i := 0; i < w; i++ {
			b := baseIndex(s[i])
			if b < 0 {
				return nil, fmt.Errorf("pssm %q: site %q has non-ACGT symbol", name, s)
			}
			counts[i][b]++
		}
	}
	return NewPSSM(name, counts, opt)
}

func (p *PSSM) Name() string { return p.name }
func (p *PSSM) Span() int    { return len(p.fwd) }

// Threshold is the absolute score a window must reach.
func (p *PSSM) Threshold() float64 { return p.threshold }

// Score returns the forward-strand score of window (len == Span).
// ok is false if the window holds a non-ACGT symbol.
func (p *PSSM) Score(window []byte) (float64, bool) { return score(p.fwd, window) }

func score(m [][4]float64, w []byte) (float64, bool) {
	s := 0.0
	for i, col := range m {
		b := baseIndex(w[i])
		if b < 0 {
			return 0, false
		}
		s += col[b]
	}
	return s, true
}

func (p *PSSM) FindMatches(seq []byte, circular bool) []location.Location {
	n := len(seq)
	w := len(p.fwd)
	s := seq
	if circular {
		s = circularView(seq, w)
	}
	var out []location.Location
	for i := 0; i+w <= len(s) && i < n; i++ {
		win := s[i : i+w]
		if v, ok := score(p.fwd, win); ok && v >= p.threshold {
			out = append(out, location.Location{Start: i, End: i + w, Strand: location.Forward})
		}
		if v, ok := score(p.rev, win); ok && v >= p.threshold {
			out = append(out, location.Location{Start: i, End: i + w, Strand: location.Reverse})
		}
	}
	location.Sort(out)
	return out
}

// baseIndex maps A,C,G,T (either case) to 0..3, anything else to -1.
func baseIndex(c byte) int {
	switch c {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}
