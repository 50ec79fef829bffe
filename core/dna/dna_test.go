package dna

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseMatch(t *testing.T) {
	tests := []struct {
		g, p byte
		want bool
	}{
		{'A', 'A', true},
		{'A', 'R', true},
		{'G', 'R', true},
		{'C', 'R', false},
		{'t', 'Y', true},
		{'N', 'N', false}, // sequence N never matches
		{'A', 'N', true},
		{'X', 'A', false},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, BaseMatch(tc.g, tc.p), "BaseMatch(%c, %c)", tc.g, tc.p)
	}
}

func TestMaskBases(t *testing.T) {
	assert.Equal(t, []byte("AG"), MaskOf('R').Bases())
	assert.Equal(t, 4, MaskOf('N').Count())
	assert.Equal(t, 0, MaskOf('Z').Count())
}

func TestNormalize(t *testing.T) {
	got, err := Normalize([]byte("acgt"))
	require.NoError(t, err)
	assert.Equal(t, "ACGT", string(got))

	_, err = Normalize([]byte("ACNT"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSequence))
}

func TestGCContent(t *testing.T) {
	assert.InDelta(t, 1.0, GCContent([]byte("GCGC")), 1e-9)
	assert.InDelta(t, 0.5, GCContent([]byte("GCAT")), 1e-9)
	assert.Zero(t, GCContent(nil))
}

func TestTranslate(t *testing.T) {
	prot, err := Standard.TranslateSeq([]byte("ATGAAATAA"))
	require.NoError(t, err)
	assert.Equal(t, "MK*", string(prot))

	_, err = Standard.TranslateSeq([]byte("ATGA"))
	assert.ErrorIs(t, err, ErrInvalidSequence)

	assert.Equal(t, []string{"AAA", "AAG"}, Standard.Synonyms('K'))
	assert.Len(t, Standard.Synonyms('L'), 6)
}

func TestBuiltinCodonUsage(t *testing.T) {
	cu, err := LookupCodonUsage("E_COLI")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cu.Adaptiveness([]byte("CTG")), 1e-9)
	assert.InDelta(t, 0.04/0.50, cu.Adaptiveness([]byte("CTA")), 1e-9)
	assert.Equal(t, byte('L'), cu.AminoAcid([]byte("CTG")))
	assert.Equal(t, "CTG", cu.Codons('L')[0])

	yeast, err := LookupCodonUsage("yeast")
	require.NoError(t, err)
	assert.Equal(t, "s_cerevisiae", yeast.Name)

	_, err = LookupCodonUsage("martian")
	assert.Error(t, err)
}

func TestReadCodonUsageNormalizes(t *testing.T) {
	cu, err := ReadCodonUsage(strings.NewReader(`
name: toy
usage:
  K: {AAA: 3, AAG: 1}
`))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, cu.Frequency([]byte("AAA")), 1e-9)
	assert.InDelta(t, 1.0/3.0, cu.Adaptiveness([]byte("AAG")), 1e-9)
}
