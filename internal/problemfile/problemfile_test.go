package problemfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chisel/core/location"
	"chisel/core/spec"
)

const full = `
name: demo
sequence: |
  ATGGAATTCAAA
  GGGCCCTTTTAA
circular: true
constraints:
  - kind: avoid_pattern
    pattern: EcoRI_site
  - kind: enforce_gc_content
    mini: 0.2
    maxi: 0.8
    window: 12
  - avoid_changes
objectives:
  - kind: codon_optimize
    species: e_coli
    location: 0-24(+)
    boost: 2
`

func TestDecodeAndBuild(t *testing.T) {
	f, err := Decode(strings.NewReader(full))
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.True(t, f.Circular)
	require.Len(t, f.Constraints, 3)
	assert.Equal(t, "avoid_pattern", f.Constraints[0].Kind)
	assert.Equal(t, "EcoRI_site", f.Constraints[0].Params["pattern"])
	assert.Equal(t, 12, f.Constraints[1].Params["window"])
	assert.Equal(t, Entry{Kind: "avoid_changes", Params: spec.Params{}}, f.Constraints[2])

	targets, err := f.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "demo", targets[0].ID)
	assert.Equal(t, "ATGGAATTCAAAGGGCCCTTTTAA", string(targets[0].Seq))

	cons, objs, err := f.Build(spec.NewRegistry(), spec.Env{})
	require.NoError(t, err)
	require.Len(t, cons, 3)
	require.Len(t, objs, 1)
	assert.Equal(t, 2.0, objs[0].Boost())
	assert.Equal(t, location.MustNew(0, 24, location.Forward), objs[0].Footprint(24))
}

func TestBuildReportsEntry(t *testing.T) {
	f, err := Decode(strings.NewReader(`
sequence: ACGT
objectives:
  - kind: enforce_gc_content
  - kind: no_such_kind
`))
	require.NoError(t, err)
	_, _, err = f.Build(spec.NewRegistry(), spec.Env{})
	assert.ErrorContains(t, err, "objectives[1]")
	assert.ErrorContains(t, err, `unknown specification kind "no_such_kind"`)
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"unknown key":  "sequence: ACGT\nsequnce: A\n",
		"no kind":      "constraints:\n  - pattern: GAATTC\n",
		"list as spec": "constraints:\n  - [1, 2]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&File{Sequence: "A", FASTA: "x.fa"}).Validate())
	assert.Error(t, (&File{Sequence: "A", Record: "r"}).Validate())
	assert.NoError(t, (&File{}).Validate())
	assert.False(t, (&File{}).HasInput())
	_, err := (&File{}).Targets()
	assert.Error(t, err)
}

func TestLoadResolvesFASTARelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.fa"), []byte(">a\nACGT\n>b\nTTTT\n"), 0o644))
	path := filepath.Join(dir, "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fasta: in.fa\nrecord: b\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "problem", f.Name)
	targets, err := f.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "b", targets[0].ID)
	assert.Equal(t, "TTTT", string(targets[0].Seq))
	assert.Equal(t, filepath.Join(dir, "in.fa"), targets[0].Source)

	f.Record = AllRecords
	targets, err = f.Targets()
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}
