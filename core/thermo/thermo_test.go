package thermo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chisel/core/dna"
)

func TestMeltingTempRange(t *testing.T) {
	d, err := MeltingTemp([]byte("AGCGGATAACAATTTCACACAGGA"), DefaultConditions)
	require.NoError(t, err)
	assert.Greater(t, d.TmC, 45.0)
	assert.Less(t, d.TmC, 75.0)
	assert.Less(t, d.DH, 0.0)
}

func TestMeltingTempGCRaisesTm(t *testing.T) {
	at, err := MeltingTemp([]byte("ATATTAATATTAATAT"), DefaultConditions)
	require.NoError(t, err)
	gc, err := MeltingTemp([]byte("GCGCCGGCGCCGGCGC"), DefaultConditions)
	require.NoError(t, err)
	assert.Greater(t, gc.TmC, at.TmC)
}

func TestMeltingTempErrors(t *testing.T) {
	_, err := MeltingTemp([]byte("A"), DefaultConditions)
	assert.ErrorIs(t, err, dna.ErrInvalidSequence)
	_, err = MeltingTemp([]byte("ACGN"), DefaultConditions)
	assert.ErrorIs(t, err, dna.ErrInvalidSequence)
	_, err = MeltingTemp([]byte("ACGT"), Conditions{})
	assert.Error(t, err)
}

func TestHairpinPenalty(t *testing.T) {
	tests := []struct {
		name    string
		seq     string
		wantPos bool
	}{
		{"no stem", "AAAAAAAAAAAA", false},
		{"perfect stem", "GGGGCAAAAGCCCC", true},
		{"too short", "GCA", false},
		{"loop of two", "GGGAACCC", false},
		{"loop of three", "GGGAAACCC", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := HairpinPenalty([]byte(tc.seq))
			if tc.wantPos {
				assert.Greater(t, got, 0.0)
			} else {
				assert.Zero(t, got)
			}
		})
	}
}

func TestHairpinPenaltyGrowsWithStem(t *testing.T) {
	short := HairpinPenalty([]byte("TTTGCATTTTTTGCAAAA"))
	long := HairpinPenalty([]byte("GCGCGCATTTTTTGCGCGC"))
	assert.Greater(t, long, short)
}
