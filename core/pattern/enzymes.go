package pattern

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"chisel/core/dna"
	"chisel/core/location"
)

// Enzyme is a restriction enzyme and its recognition site (IUPAC).
type Enzyme struct {
	Name string
	Site string
}

var enzymeTable = []Enzyme{
	{"AarI", "CACCTGC"},
	{"AccI", "GTMKAC"},
	{"AscI", "GGCGCGCC"},
	{"AvaI", "CYCGRG"},
	{"BamHI", "GGATCC"},
	{"BbsI", "GAAGAC"},
	{"BglI", "GCCNNNNNGGC"},
	{"BglII", "AGATCT"},
	{"BsaI", "GGTCTC"},
	{"BsmBI", "CGTCTC"},
	{"BtgZI", "GCGATG"},
	{"ClaI", "ATCGAT"},
	{"DpnI", "GATC"},
	{"EcoO109I", "RGGNCCY"},
	{"EcoRI", "GAATTC"},
	{"EcoRV", "GATATC"},
	{"Esp3I", "CGTCTC"},
	{"HaeIII", "GGCC"},
	{"HincII", "GTYRAC"},
	{"HindIII", "AAGCTT"},
	{"KpnI", "GGTACC"},
	{"MluI", "ACGCGT"},
	{"MspI", "CCGG"},
	{"NcoI", "CCATGG"},
	{"NdeI", "CATATG"},
	{"NheI", "GCTAGC"},
	{"NotI", "GCGGCCGC"},
	{"PacI", "TTAATTAA"},
	{"PstI", "CTGCAG"},
	{"SacI", "GAGCTC"},
	{"SalI", "GTCGAC"},
	{"SapI", "GCTCTTC"},
	{"SfiI", "GGCCNNNNNGGCC"},
	{"SmaI", "CCCGGG"},
	{"SpeI", "ACTAGT"},
	{"StyI", "CCWWGG"},
	{"XbaI", "TCTAGA"},
	{"XhoI", "CTCGAG"},
	{"XmnI", "GAANNNNTTC"},
}

var enzymeIndex = func() map[string]Enzyme {
	m := make(map[string]Enzyme, len(enzymeTable))
	for _, e := range enzymeTable {
		m[strings.ToLower(e.Name)] = e
	}
	return m
}()

// Enzymes lists the known enzymes sorted by name.
func Enzymes() []Enzyme {
	out := append([]Enzyme(nil), enzymeTable...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupEnzyme finds an enzyme by name, ignoring case.
func LookupEnzyme(name string) (Enzyme, error) {
	e, ok := enzymeIndex[strings.ToLower(name)]
	if !ok {
		return Enzyme{}, fmt.Errorf("unknown enzyme %q", name)
	}
	return e, nil
}

// EnzymeSite returns a matcher for the recognition site of the named enzyme.
func EnzymeSite(name string) (*Degenerate, error) {
	e, err := LookupEnzyme(name)
	if err != nil {
		return nil, err
	}
	return NewDegenerate(e.Site, WithName(e.Name+"_site"))
}

// EnzymeSet finds the sites of several enzymes in a single pass. Exact sites
// go through one Aho–Corasick automaton; degenerate sites are scanned one by one.
type EnzymeSet struct {
	name    string
	enzymes []Enzyme
	pats    [][]byte
	strands []location.Strand
	nodes   []acNode
	degen   []*Degenerate
	span    int
}

// NewEnzymeSet builds a matcher for the given enzyme names.
func NewEnzymeSet(names ...string) (*EnzymeSet, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("enzyme set: no enzymes")
	}
	es := &EnzymeSet{}
	seen := make(map[string]bool)
	for _, name := range names {
		e, err := LookupEnzyme(name)
		if err != nil {
			return nil, err
		}
		es.enzymes = append(es.enzymes, e)
		es.span = max(es.span, len(e.Site))
		site := []byte(e.Site)
		if !dna.IsUnambiguous(site) {
			d, err := NewDegenerate(e.Site, WithName(e.Name+"_site"))
			if err != nil {
				return nil, err
			}
			es.degen = append(es.degen, d)
			continue
		}
		rc := dna.RevComp(site)
		if bytes.Equal(site, rc) {
			es.addPattern(seen, site, location.None)
			continue
		}
		es.addPattern(seen, site, location.Forward)
		es.addPattern(seen, rc, location.Reverse)
	}
	if len(es.pats) > 0 {
		es.nodes = buildAC(es.pats)
	}
	labels := make([]string, len(es.enzymes))
	for i, e := range es.enzymes {
		labels[i] = e.Name
	}
	es.name = strings.Join(labels, "+") + "_sites"
	return es, nil
}

func (es *EnzymeSet) addPattern(seen map[string]bool, p []byte, s location.Strand) {
	key := string(p) + s.String()
	if seen[key] {
		return
	}
	seen[key] = true
	es.pats = append(es.pats, p)
	es.strands = append(es.strands, s)
}

func (es *EnzymeSet) Name() string { return es.name }
func (es *EnzymeSet) Span() int    { return es.span }

// Enzymes returns the members of the set in the order given.
func (es *EnzymeSet) Enzymes() []Enzyme { return es.enzymes }

func (es *EnzymeSet) FindMatches(seq []byte, circular bool) []location.Location {
	n := len(seq)
	if n == 0 {
		return nil
	}
	s := upper(seq)
	if circular {
		s = circularView(s, es.span)
	}
	var out []location.Location
	if len(es.nodes) > 0 {
		for _, h := range scanAC(s, es.nodes) {
			l := len(es.pats[h.PatIdx])
			start := h.End - l + 1
			out = append(out, location.Location{Start: start, End: start + l, Strand: es.strands[h.PatIdx]})
		}
	}
	for _, d := range es.degen {
		out = append(out, d.FindMatches(seq, circular)...)
	}
	return keepStarts(out, n)
}
