// Package problemfile reads optimization problems described in YAML:
//
//	name: promoter-cds
//	fasta: construct.fa      # or sequence: ATG..., relative to this file
//	record: pUC19            # optional, first record otherwise; "*" for all
//	circular: true
//	constraints:
//	  - kind: avoid_pattern
//	    pattern: BsaI_site
//	  - kind: enforce_gc_content
//	    mini: 0.3
//	    maxi: 0.7
//	    window: 50
//	  - avoid_changes        # a bare kind takes no parameters
//	objectives:
//	  - kind: codon_optimize
//	    species: e_coli
//	    location: 10-310(+)
//
// Every key of an entry other than kind is handed to the spec registry.
package problemfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"chisel/core/spec"
	"chisel/internal/fasta"
)

// AllRecords as File.Record solves every record of the FASTA input.
const AllRecords = "*"

// Entry is one specification: its registry kind and parameters.
type Entry struct {
	Kind   string
	Params spec.Params
}

// UnmarshalYAML accepts a mapping with a kind key, or a bare kind string.
func (e *Entry) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		e.Kind, e.Params = n.Value, spec.Params{}
		return nil
	case yaml.MappingNode:
		var m map[string]any
		if err := n.Decode(&m); err != nil {
			return err
		}
		kind, ok := m["kind"].(string)
		if !ok || kind == "" {
			return fmt.Errorf("line %d: specification without a kind", n.Line)
		}
		delete(m, "kind")
		e.Kind, e.Params = kind, spec.Params(m)
		return nil
	}
	return fmt.Errorf("line %d: specification must be a mapping or a kind name", n.Line)
}

// File is a decoded problem description.
type File struct {
	Name        string  `yaml:"name"`
	Sequence    string  `yaml:"sequence"`
	FASTA       string  `yaml:"fasta"`
	Record      string  `yaml:"record"`
	Circular    bool    `yaml:"circular"`
	Constraints []Entry `yaml:"constraints"`
	Objectives  []Entry `yaml:"objectives"`

	// directory relative paths are resolved against
	dir string
}

// Target is one sequence to optimize.
type Target struct {
	ID     string
	Seq    []byte
	Source string
}

// Decode reads a problem from r. Unknown top-level keys are errors.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty problem file")
		}
		return nil, fmt.Errorf("decode problem: %w", err)
	}
	return &f, nil
}

// Load reads and validates the problem file at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = filepath.Dir(path)
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks the input selection. Specification parameters are checked
// by Build.
func (f *File) Validate() error {
	if f.Sequence != "" && f.FASTA != "" {
		return errors.New("set only one of sequence and fasta")
	}
	if f.Record != "" && f.FASTA == "" {
		return errors.New("record needs a fasta input")
	}
	return nil
}

// HasInput reports whether the file names its own sequence.
func (f *File) HasInput() bool { return f.Sequence != "" || f.FASTA != "" }

// Targets resolves the sequences to optimize.
func (f *File) Targets() ([]Target, error) {
	if f.Sequence != "" {
		id := f.Name
		if id == "" {
			id = "sequence"
		}
		return []Target{{ID: id, Seq: []byte(strings.Join(strings.Fields(f.Sequence), ""))}}, nil
	}
	if f.FASTA == "" {
		return nil, errors.New("no sequence: set sequence or fasta")
	}
	return FromFASTA(f.resolve(f.FASTA), f.Record)
}

// FromFASTA reads path and selects record: the first when empty, all with
// AllRecords.
func FromFASTA(path, record string) ([]Target, error) {
	if record != AllRecords {
		r, err := fasta.ReadOne(path, record)
		if err != nil {
			return nil, err
		}
		return []Target{{ID: r.ID, Seq: r.Seq, Source: path}}, nil
	}
	recs, err := fasta.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]Target, len(recs))
	for i, r := range recs {
		out[i] = Target{ID: r.ID, Seq: r.Seq, Source: path}
	}
	return out, nil
}

func (f *File) resolve(p string) string {
	if p == "-" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// Build creates fresh specifications for one run.
func (f *File) Build(reg *spec.Registry, env spec.Env) (cons, objs []spec.Specification, err error) {
	if cons, err = buildAll(reg, env, "constraints", f.Constraints); err != nil {
		return nil, nil, err
	}
	if objs, err = buildAll(reg, env, "objectives", f.Objectives); err != nil {
		return nil, nil, err
	}
	return cons, objs, nil
}

func buildAll(reg *spec.Registry, env spec.Env, section string, entries []Entry) ([]spec.Specification, error) {
	out := make([]spec.Specification, 0, len(entries))
	for i, e := range entries {
		s, err := reg.Build(e.Kind, e.Params, env)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", section, i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
