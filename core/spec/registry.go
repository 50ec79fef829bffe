package spec

import (
	"fmt"
	"sort"
	"strings"

	"chisel/core/dna"
	"chisel/core/homology"
	"chisel/core/location"
	"chisel/core/pattern"
	"chisel/core/thermo"
)

// Params are the loosely typed arguments of a specification, as decoded from
// YAML or JSON.
type Params map[string]any

// Env carries collaborators factories may need.
type Env struct {
	Searcher homology.Searcher
	Code     *dna.GeneticCode
	Shard    pattern.ShardOptions
}

// Factory builds a specification from params.
type Factory func(p Params, env Env) (Specification, error)

// Registry maps kind names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding every built-in kind.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("avoid_changes", buildAvoidChanges)
	r.Register("enforce_sequence", buildEnforceSequence)
	r.Register("avoid_pattern", buildAvoidPattern)
	r.Register("enforce_pattern_occurrence", buildEnforcePatternOccurrence)
	r.Register("enforce_gc_content", buildEnforceGCContent)
	r.Register("enforce_translation", buildEnforceTranslation)
	r.Register("enforce_regions_compatibility", buildRegionsCompatibility)
	r.Register("enforce_length", buildEnforceLength)
	r.Register("uniquify_all_kmers", buildUniquifyAllKmers)
	r.Register("avoid_hairpins", buildAvoidHairpins)
	r.Register("minimize_hairpins", buildMinimizeHairpins)
	r.Register("enforce_melting_temperature", buildMeltingTemperature)
	r.Register("codon_optimize", buildCodonOptimize)
	r.Register("avoid_homology", buildAvoidHomology)
	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(kind string, f Factory) { r.factories[kind] = f }

// Kinds lists the registered kinds in order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build creates a specification of the given kind.
func (r *Registry) Build(kind string, p Params, env Env) (Specification, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown specification kind %q", kind)
	}
	s, err := f(p, env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return s, nil
}

/* ---------------------------- param accessors ---------------------------- */

func (p Params) has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns p[key] as a string, or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q: want string, got %T", key, v)
	}
	return s, nil
}

// Int returns p[key] as an int, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("param %q: %v is not an integer", key, x)
		}
		return int(x), nil
	}
	return 0, fmt.Errorf("param %q: want integer, got %T", key, v)
}

// Float returns p[key] as a float64, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("param %q: want number, got %T", key, v)
}

// Bool returns p[key] as a bool, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %q: want bool, got %T", key, v)
	}
	return b, nil
}

// Location reads "start-end(strand)", [start, end] or {start, end, strand}.
// It returns nil when the key is absent.
func (p Params) Location(key string) (*location.Location, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, nil
	}
	var (
		l   location.Location
		err error
	)
	switch x := v.(type) {
	case string:
		l, err = location.Parse(x)
	case []any:
		if len(x) < 2 || len(x) > 3 {
			return nil, fmt.Errorf("param %q: want [start, end] or [start, end, strand]", key)
		}
		sub := Params{"start": x[0], "end": x[1]}
		if len(x) == 3 {
			sub["strand"] = x[2]
		}
		return sub.locationFields(key)
	case map[string]any:
		return Params(x).locationFields(key)
	default:
		return nil, fmt.Errorf("param %q: cannot read a location from %T", key, v)
	}
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", key, err)
	}
	return &l, nil
}

func (p Params) locationFields(key string) (*location.Location, error) {
	start, err := p.Int("start", 0)
	if err != nil {
		return nil, err
	}
	end, err := p.Int("end", 0)
	if err != nil {
		return nil, err
	}
	strand := location.None
	switch s := p["strand"].(type) {
	case nil:
	case int:
		strand = location.Strand(max(-1, min(1, s)))
	case string:
		if strand, err = location.ParseStrand(s); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("param %q: bad strand %v", key, s)
	}
	l, err := location.New(start, end, strand)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", key, err)
	}
	return &l, nil
}

// base reads the common "location" and "boost" params.
func (p Params) base() (Base, error) {
	loc, err := p.Location("location")
	if err != nil {
		return Base{}, err
	}
	boost, err := p.Float("boost", 1)
	if err != nil {
		return Base{}, err
	}
	return Base{Location: loc, Weight: boost}, nil
}

// matcher reads "pattern" (shorthand) or "pssm" ({sites, pseudocount, threshold}).
func (p Params) matcher() (pattern.Matcher, error) {
	if raw, ok := p["pssm"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("param \"pssm\": want a mapping")
		}
		pp := Params(m)
		rawSites, _ := pp["sites"].([]any)
		sites := make([]string, 0, len(rawSites))
		for _, s := range rawSites {
			str, ok := s.(string)
			if !ok {
				return nil, fmt.Errorf("pssm sites must be strings")
			}
			sites = append(sites, strings.ToUpper(str))
		}
		name, err := pp.String("name", "pssm")
		if err != nil {
			return nil, err
		}
		pc, err := pp.Float("pseudocount", 0.5)
		if err != nil {
			return nil, err
		}
		th, err := pp.Float("threshold", 0.8)
		if err != nil {
			return nil, err
		}
		return pattern.PSSMFromSites(name, sites, pattern.PSSMOptions{Pseudocount: pc, RelThreshold: th})
	}
	s, err := p.String("pattern", "")
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, fmt.Errorf("missing param \"pattern\"")
	}
	return pattern.Parse(s)
}

/* -------------------------------- factories ------------------------------ */

func buildAvoidChanges(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	return &AvoidChanges{Base: b}, nil
}

func buildEnforceSequence(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	seq, err := p.String("sequence", "")
	if err != nil {
		return nil, err
	}
	if seq == "" {
		return nil, fmt.Errorf("missing param \"sequence\"")
	}
	s, err := NewEnforceSequence(seq, b.Location)
	if err != nil {
		return nil, err
	}
	s.Weight = b.Weight
	return s, nil
}

func buildAvoidPattern(p Params, env Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	m, err := p.matcher()
	if err != nil {
		return nil, err
	}
	maxOcc, err := p.Int("max_occurrences", 0)
	if err != nil {
		return nil, err
	}
	return &AvoidPattern{Base: b, Pattern: m, MaxOccurrences: maxOcc, Shard: env.Shard}, nil
}

func buildEnforcePatternOccurrence(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	m, err := p.matcher()
	if err != nil {
		return nil, err
	}
	lo, err := p.Int("min", 1)
	if err != nil {
		return nil, err
	}
	hi, err := p.Int("max", lo)
	if err != nil {
		return nil, err
	}
	if hi >= 0 && hi < lo {
		return nil, fmt.Errorf("max %d below min %d", hi, lo)
	}
	return &EnforcePatternOccurrence{Base: b, Pattern: m, Min: lo, Max: hi}, nil
}

func buildEnforceGCContent(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	lo, err := p.Float("mini", 0)
	if err != nil {
		return nil, err
	}
	hi, err := p.Float("maxi", 1)
	if err != nil {
		return nil, err
	}
	target, err := p.Float("target", 0)
	if err != nil {
		return nil, err
	}
	w, err := p.Int("window", 0)
	if err != nil {
		return nil, err
	}
	s, err := NewEnforceGCContent(lo, hi, target, w)
	if err != nil {
		return nil, err
	}
	s.Base = b
	return s, nil
}

func buildEnforceTranslation(p Params, env Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	prot, err := p.String("protein", "")
	if err != nil {
		return nil, err
	}
	return &EnforceTranslation{Base: b, Code: env.Code, Protein: strings.ToUpper(prot)}, nil
}

func buildRegionsCompatibility(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	a, err := p.Location("region_a")
	if err != nil {
		return nil, err
	}
	bb, err := p.Location("region_b")
	if err != nil {
		return nil, err
	}
	if a == nil || bb == nil {
		return nil, fmt.Errorf("region_a and region_b are required")
	}
	ruleName, err := p.String("rule", "identical")
	if err != nil {
		return nil, err
	}
	rule, err := ParseRule(ruleName)
	if err != nil {
		return nil, err
	}
	return &EnforceRegionsCompatibility{Base: Base{Weight: b.Weight}, A: *a, B: *bb, Rule: rule}, nil
}

func buildEnforceLength(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	lo, err := p.Int("min", 0)
	if err != nil {
		return nil, err
	}
	hi, err := p.Int("max", 0)
	if err != nil {
		return nil, err
	}
	return &EnforceLength{Base: b, Min: lo, Max: hi}, nil
}

func buildUniquifyAllKmers(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	k, err := p.Int("k", 8)
	if err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	fwd, err := p.Bool("forward_only", false)
	if err != nil {
		return nil, err
	}
	return &UniquifyAllKmers{Base: b, K: k, ForwardOnly: fwd}, nil
}

func buildAvoidHairpins(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	stem, err := p.Int("stem_size", 20)
	if err != nil {
		return nil, err
	}
	w, err := p.Int("window", 200)
	if err != nil {
		return nil, err
	}
	return &AvoidHairpins{Base: b, StemSize: stem, Window: w}, nil
}

func buildMinimizeHairpins(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	w, err := p.Int("window", 40)
	if err != nil {
		return nil, err
	}
	return &MinimizeHairpins{Base: b, Window: w}, nil
}

func buildMeltingTemperature(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	lo, err := p.Float("min", 0)
	if err != nil {
		return nil, err
	}
	hi, err := p.Float("max", 0)
	if err != nil {
		return nil, err
	}
	ct, err := p.Float("ct", thermo.DefaultConditions.CT)
	if err != nil {
		return nil, err
	}
	na, err := p.Float("na", thermo.DefaultConditions.Na)
	if err != nil {
		return nil, err
	}
	return &EnforceMeltingTemperature{Base: b, Min: lo, Max: hi, Conditions: thermo.Conditions{CT: ct, Na: na}}, nil
}

func buildCodonOptimize(p Params, _ Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	species, err := p.String("species", "e_coli")
	if err != nil {
		return nil, err
	}
	usage, err := dna.LookupCodonUsage(species)
	if err != nil {
		return nil, err
	}
	method, err := p.String("method", UseBestCodon)
	if err != nil {
		return nil, err
	}
	var origin *dna.CodonUsage
	if p.has("original_species") {
		name, err := p.String("original_species", "")
		if err != nil {
			return nil, err
		}
		if origin, err = dna.LookupCodonUsage(name); err != nil {
			return nil, err
		}
	}
	s, err := NewCodonOptimize(usage, method, origin)
	if err != nil {
		return nil, err
	}
	s.Base = b
	return s, nil
}

func buildAvoidHomology(p Params, env Env) (Specification, error) {
	b, err := p.base()
	if err != nil {
		return nil, err
	}
	db, err := p.String("db", "")
	if err != nil {
		return nil, err
	}
	if db == "" {
		return nil, fmt.Errorf("missing param \"db\"")
	}
	hp := homology.DefaultParams()
	if hp.MinAlignLength, err = p.Int("min_align_length", hp.MinAlignLength); err != nil {
		return nil, err
	}
	if hp.PercIdentity, err = p.Float("perc_identity", hp.PercIdentity); err != nil {
		return nil, err
	}
	if hp.WordSize, err = p.Int("word_size", hp.WordSize); err != nil {
		return nil, err
	}
	if hp.MaxHits, err = p.Int("max_hits", hp.MaxHits); err != nil {
		return nil, err
	}
	if hp.Threads, err = p.Int("threads", hp.Threads); err != nil {
		return nil, err
	}
	return &AvoidHomology{Base: b, Searcher: env.Searcher, DB: db, Params: hp}, nil
}
