package spec

import (
	"context"
	"fmt"
	"math"

	"chisel/core/dna"
	"chisel/core/location"
	"chisel/core/mutation"
)

// frame indexes the codons of a coding region, 5' to 3' on its strand.
type frame struct{ r location.Location }

func (f frame) valid() bool { return f.r.Len()%3 == 0 }
func (f frame) count() int  { return f.r.Len() / 3 }

func (f frame) loc(i int) location.Location {
	if f.r.Strand == location.Reverse {
		return location.Location{Start: f.r.End - 3*(i+1), End: f.r.End - 3*i, Strand: location.Reverse}
	}
	return location.Location{Start: f.r.Start + 3*i, End: f.r.Start + 3*i + 3, Strand: f.r.Strand}
}

func (f frame) codon(seq []byte, i int) []byte {
	l := f.loc(i)
	if l.Strand == location.Reverse {
		return dna.RevComp(seq[l.Start:l.End])
	}
	return seq[l.Start:l.End]
}

// span returns the codon indexes [i0, i1) overlapping loc.
func (f frame) span(loc location.Location) (int, int, bool) {
	ov, ok := f.r.Overlap(loc)
	if !ok {
		return 0, 0, false
	}
	if f.r.Strand == location.Reverse {
		return (f.r.End - ov.End) / 3, (f.r.End - ov.Start + 2) / 3, true
	}
	return (ov.Start - f.r.Start) / 3, (ov.End - f.r.Start + 2) / 3, true
}

// sub is the location covering codons [i0, i1).
func (f frame) sub(i0, i1 int) location.Location {
	if f.r.Strand == location.Reverse {
		return location.Location{Start: f.r.End - 3*i1, End: f.r.End - 3*i0, Strand: location.Reverse}
	}
	return location.Location{Start: f.r.Start + 3*i0, End: f.r.Start + 3*i1, Strand: f.r.Strand}
}

func frameError(s Specification, r location.Location) Evaluation {
	return Evaluation{
		Spec:      s,
		Score:     -1,
		Locations: []location.Location{r},
		Err:       fmt.Errorf("%w: coding region %s is not a whole number of codons", dna.ErrInvalidSequence, r),
	}
}

// EnforceTranslation keeps the protein encoded by its region. Protein defaults
// to the translation of the original sequence. As a constraint it restricts
// each codon to its synonyms.
type EnforceTranslation struct {
	Base
	Code    *dna.GeneticCode
	Protein string
}

func (s *EnforceTranslation) code() *dna.GeneticCode {
	if s.Code == nil {
		return dna.Standard
	}
	return s.Code
}

func (s *EnforceTranslation) Label() string { return "EnforceTranslation" + s.suffix() }

func (s *EnforceTranslation) protein(ref []byte) string {
	if s.Protein != "" {
		return s.Protein
	}
	f := frame{s.Region(len(ref))}
	out := make([]byte, f.count())
	for i := range out {
		out[i] = s.code().Translate(f.codon(ref, i))
	}
	return string(out)
}

func (s *EnforceTranslation) Evaluate(_ context.Context, p Problem) Evaluation {
	seq := p.Sequence()
	f := frame{s.Region(len(seq))}
	if !f.valid() {
		return frameError(s, f.r)
	}
	prot := s.protein(p.Original())
	if len(prot) != f.count() {
		return Evaluation{
			Spec:      s,
			Score:     -1,
			Locations: []location.Location{f.r},
			Err:       fmt.Errorf("%w: %d codons for a protein of %d residues", dna.ErrInvalidSequence, f.count(), len(prot)),
		}
	}
	var bad []location.Location
	for i := 0; i < f.count(); i++ {
		if s.code().Translate(f.codon(seq, i)) != prot[i] {
			bad = append(bad, f.loc(i))
		}
	}
	location.Sort(bad)
	return Evaluation{Spec: s, Score: -float64(len(bad)), Locations: bad}
}

func (s *EnforceTranslation) Localized(loc location.Location, p Problem) Specification {
	f := frame{s.Region(len(p.Sequence()))}
	if !f.valid() {
		return s
	}
	i0, i1, ok := f.span(loc)
	if !ok {
		return nil
	}
	prot := s.protein(p.Original())
	if len(prot) != f.count() {
		return s
	}
	sub := f.sub(i0, i1)
	return &EnforceTranslation{Base: Base{Location: &sub, Weight: s.Weight}, Code: s.Code, Protein: prot[i0:i1]}
}

func (s *EnforceTranslation) Restrictions(seq []byte, within location.Location) []mutation.Restriction {
	f := frame{s.Region(len(seq))}
	if !f.valid() {
		return nil
	}
	prot := s.protein(seq)
	if len(prot) != f.count() {
		return nil
	}
	var out []mutation.Restriction
	for i := 0; i < f.count(); i++ {
		l := f.loc(i)
		if l.Start < within.Start || l.End > within.End {
			continue
		}
		syn := s.code().Synonyms(prot[i])
		if len(syn) == 0 {
			continue
		}
		allowed := make([][]byte, len(syn))
		for j, c := range syn {
			if l.Strand == location.Reverse {
				allowed[j] = dna.RevComp([]byte(c))
			} else {
				allowed[j] = []byte(c)
			}
		}
		out = append(out, mutation.Restriction{Loc: location.Span(l.Start, l.End), Allowed: allowed})
	}
	return out
}

func (s *EnforceTranslation) BestPossibleScore() float64 { return 0 }

// Codon optimization methods.
const (
	UseBestCodon    = "use_best_codon"
	MaximizeCAI     = "cai"
	MatchCodonUsage = "match_codon_usage"
	HarmonizeRCA    = "harmonize_rca"
)

// minAdaptiveness floors codon weights so that log scores stay finite.
const minAdaptiveness = 1e-3

// CodonOptimize scores the codons of its region against a host codon-usage
// table:
//
//	use_best_codon     minus the summed 1-w over codons (w: relative adaptiveness)
//	cai                the summed log w, i.e. n·log(CAI)
//	match_codon_usage  minus the distance between the codon counts of each
//	                   amino acid and the counts the host frequencies predict
//	harmonize_rca      minus the summed |w_host(codon) - w_origin(original codon)|
//
// The region must be a whole number of codons.
type CodonOptimize struct {
	Base
	Usage  *dna.CodonUsage
	Method string
	// Origin is the native host table, required by harmonize_rca.
	Origin *dna.CodonUsage
}

// NewCodonOptimize checks the method and its tables.
func NewCodonOptimize(usage *dna.CodonUsage, method string, origin *dna.CodonUsage) (*CodonOptimize, error) {
	if usage == nil {
		return nil, fmt.Errorf("codon optimization needs a codon usage table")
	}
	switch method {
	case "":
		method = UseBestCodon
	case UseBestCodon, MaximizeCAI, MatchCodonUsage:
	case HarmonizeRCA:
		if origin == nil {
			return nil, fmt.Errorf("%s needs the original host's codon usage table", HarmonizeRCA)
		}
	default:
		return nil, fmt.Errorf("unknown codon optimization method %q", method)
	}
	return &CodonOptimize{Usage: usage, Method: method, Origin: origin}, nil
}

func (s *CodonOptimize) Label() string {
	return fmt.Sprintf("CodonOptimize(%s, %s)%s", s.Method, s.Usage.Name, s.suffix())
}

func (s *CodonOptimize) Evaluate(_ context.Context, p Problem) Evaluation {
	seq := p.Sequence()
	f := frame{s.Region(len(seq))}
	if !f.valid() {
		return frameError(s, f.r)
	}
	if s.Method == MatchCodonUsage {
		return s.matchUsage(seq, f)
	}
	score := 0.0
	var locs []location.Location
	for i := 0; i < f.count(); i++ {
		c := f.codon(seq, i)
		w := s.Usage.Adaptiveness(c)
		var contrib float64
		switch s.Method {
		case MaximizeCAI:
			contrib = math.Log(math.Max(w, minAdaptiveness))
		case HarmonizeRCA:
			want := s.Origin.Adaptiveness(f.codon(p.Original(), i))
			contrib = -math.Abs(w - want)
		default:
			contrib = w - 1
		}
		score += contrib
		if contrib < -gcEpsilon {
			locs = append(locs, f.loc(i))
		}
	}
	location.Sort(locs)
	return Evaluation{Spec: s, Score: score, Locations: locs}
}

func (s *CodonOptimize) matchUsage(seq []byte, f frame) Evaluation {
	type tally struct {
		total  int
		counts map[string]int
		locs   map[string][]location.Location
	}
	byAA := make(map[byte]*tally)
	var order []byte
	for i := 0; i < f.count(); i++ {
		c := string(f.codon(seq, i))
		aa := s.Usage.AminoAcid([]byte(c))
		t, ok := byAA[aa]
		if !ok {
			t = &tally{counts: make(map[string]int), locs: make(map[string][]location.Location)}
			byAA[aa] = t
			order = append(order, aa)
		}
		t.total++
		t.counts[c]++
		t.locs[c] = append(t.locs[c], f.loc(i))
	}
	score := 0.0
	var locs []location.Location
	for _, aa := range order {
		t := byAA[aa]
		for _, c := range s.Usage.Codons(aa) {
			expected := s.Usage.Frequency([]byte(c)) * float64(t.total)
			observed := float64(t.counts[c])
			score -= math.Abs(observed - expected)
			if observed-expected >= 1 {
				locs = append(locs, t.locs[c]...)
			}
		}
	}
	location.Sort(locs)
	return Evaluation{Spec: s, Score: score, Locations: locs}
}

func (s *CodonOptimize) Localized(loc location.Location, p Problem) Specification {
	f := frame{s.Region(len(p.Sequence()))}
	if !f.valid() || s.Method == MatchCodonUsage {
		if !f.r.Intersects(loc) {
			return nil
		}
		return s
	}
	i0, i1, ok := f.span(loc)
	if !ok {
		return nil
	}
	sub := f.sub(i0, i1)
	cp := *s
	cp.Base = Base{Location: &sub, Weight: s.Weight}
	return &cp
}

func (s *CodonOptimize) BestPossibleScore() float64 { return 0 }
