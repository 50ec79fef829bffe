package dna

import (
	"embed"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var builtinTables embed.FS

// CodonUsage holds per-amino-acid relative codon frequencies of an organism.
// Frequencies of the codons of one amino acid sum to 1.
type CodonUsage struct {
	Name    string                        `yaml:"name"`
	Aliases []string                      `yaml:"aliases"`
	TaxID   int                           `yaml:"taxid"`
	Usage   map[string]map[string]float64 `yaml:"usage"`

	// codon → (amino acid, frequency, relative adaptiveness w = f/fmax)
	index map[string]codonStat
}

type codonStat struct {
	aa   byte
	freq float64
	w    float64
}

// ReadCodonUsage decodes a YAML codon-usage table and normalizes it.
func ReadCodonUsage(r io.Reader) (*CodonUsage, error) {
	var cu CodonUsage
	if err := yaml.NewDecoder(r).Decode(&cu); err != nil {
		return nil, fmt.Errorf("decode codon usage: %w", err)
	}
	if err := cu.build(); err != nil {
		return nil, err
	}
	return &cu, nil
}

func (cu *CodonUsage) build() error {
	if len(cu.Usage) == 0 {
		return fmt.Errorf("codon usage %q: empty table", cu.Name)
	}
	cu.index = make(map[string]codonStat, 64)
	for aaKey, codons := range cu.Usage {
		if len(aaKey) != 1 {
			return fmt.Errorf("codon usage %q: bad amino acid key %q", cu.Name, aaKey)
		}
		total, best := 0.0, 0.0
		for _, f := range codons {
			total += f
			best = math.Max(best, f)
		}
		if total <= 0 {
			return fmt.Errorf("codon usage %q: amino acid %s has no usage", cu.Name, aaKey)
		}
		for codon, f := range codons {
			c := strings.ToUpper(codon)
			if len(c) != 3 {
				return fmt.Errorf("codon usage %q: bad codon %q", cu.Name, codon)
			}
			cu.index[c] = codonStat{aa: aaKey[0], freq: f / total, w: f / best}
		}
	}
	return nil
}

// Frequency returns the relative usage of codon among its synonyms (0 if unknown).
func (cu *CodonUsage) Frequency(codon []byte) float64 { return cu.index[string(codon)].freq }

// Adaptiveness returns w = f(codon) / f(best synonymous codon), the CAI weight.
func (cu *CodonUsage) Adaptiveness(codon []byte) float64 { return cu.index[string(codon)].w }

// AminoAcid returns the amino acid a codon is listed under ('X' if unknown).
func (cu *CodonUsage) AminoAcid(codon []byte) byte {
	if st, ok := cu.index[string(codon)]; ok {
		return st.aa
	}
	return 'X'
}

// Codons lists the codons recorded for aa, most used first.
func (cu *CodonUsage) Codons(aa byte) []string {
	m := cu.Usage[string(aa)]
	out := make([]string, 0, len(m))
	for c := range m {
		out = append(out, strings.ToUpper(c))
	}
	sort.Slice(out, func(i, j int) bool {
		fi, fj := cu.index[out[i]].freq, cu.index[out[j]].freq
		if fi != fj {
			return fi > fj
		}
		return out[i] < out[j]
	})
	return out
}

var (
	builtinOnce sync.Once
	builtin     map[string]*CodonUsage
	builtinErr  error
)

func loadBuiltin() {
	builtin = make(map[string]*CodonUsage)
	entries, err := builtinTables.ReadDir("tables")
	if err != nil {
		builtinErr = err
		return
	}
	for _, e := range entries {
		f, err := builtinTables.Open("tables/" + e.Name())
		if err != nil {
			builtinErr = err
			return
		}
		cu, err := ReadCodonUsage(f)
		_ = f.Close()
		if err != nil {
			builtinErr = fmt.Errorf("%s: %w", e.Name(), err)
			return
		}
		builtin[cu.Name] = cu
		for _, a := range cu.Aliases {
			builtin[a] = cu
		}
	}
}

// LookupCodonUsage returns a built-in table by organism name or alias
// (e.g. "e_coli", "s_cerevisiae").
func LookupCodonUsage(name string) (*CodonUsage, error) {
	builtinOnce.Do(loadBuiltin)
	if builtinErr != nil {
		return nil, builtinErr
	}
	cu, ok := builtin[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown codon usage table %q", name)
	}
	return cu, nil
}
