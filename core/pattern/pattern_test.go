package pattern

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chisel/core/location"
)

func loc(s, e int, st location.Strand) location.Location {
	return location.Location{Start: s, End: e, Strand: st}
}

func TestDegenerateBothStrands(t *testing.T) {
	d := MustDegenerate("GGTCTC")
	got := d.FindMatches([]byte("AAGGTCTCAAGAGACCAA"), false)
	assert.Equal(t, []location.Location{
		loc(2, 8, location.Forward),
		loc(10, 16, location.Reverse),
	}, got)
}

func TestDegeneratePalindromeReportedOnce(t *testing.T) {
	d := MustDegenerate("GAATTC")
	require.True(t, d.IsPalindrome())
	got := d.FindMatches([]byte("TTGAATTCTT"), false)
	assert.Equal(t, []location.Location{loc(2, 8, location.None)}, got)
}

func TestDegenerateCircularWrap(t *testing.T) {
	d := MustDegenerate("GGTC")
	seq := []byte("TCAAAAAAGG")
	assert.Empty(t, d.FindMatches(seq, false))
	assert.Equal(t, []location.Location{loc(8, 12, location.Forward)}, d.FindMatches(seq, true))
}

func TestDegenerateMismatchesAndCase(t *testing.T) {
	d := MustDegenerate("GAATTC", WithMismatches(1), ForwardOnly())
	assert.Equal(t, []location.Location{loc(0, 6, location.None)}, d.FindMatches([]byte("GAATTG"), false))

	lower := MustDegenerate("GGTCTC")
	assert.Equal(t, []location.Location{loc(2, 8, location.Forward)}, lower.FindMatches([]byte("aaggtctcaa"), false))

	iupac := MustDegenerate("GGNCC")
	assert.Len(t, iupac.FindMatches([]byte("GGACCTTGGTCC"), false), 2)

	_, err := NewDegenerate("GGXCC")
	assert.Error(t, err)
}

func TestHomopolymer(t *testing.T) {
	h, err := Homopolymer('A', 5)
	require.NoError(t, err)
	assert.Equal(t, []location.Location{loc(2, 8, location.None)}, h.FindMatches([]byte("CCAAAAAAGG"), false))
	assert.Empty(t, h.FindMatches([]byte("CCAAAAGGGGGGG"), false))

	wrap := []byte("AAATTTTTAA")
	assert.Empty(t, h.FindMatches(wrap, false))
	assert.Equal(t, []location.Location{loc(8, 13, location.None)}, h.FindMatches(wrap, true))
}

func TestTandemRepeat(t *testing.T) {
	r, err := TandemRepeat(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []location.Location{loc(2, 8, location.None)}, r.FindMatches([]byte("GGCACACATT"), false))
	assert.Equal(t, "3x2mer", r.Name())
}

func TestPSSM(t *testing.T) {
	p, err := PSSMFromSites("aacc", []string{"AACC", "AACC", "AACC"}, PSSMOptions{Pseudocount: 0.5, RelThreshold: 0.9})
	require.NoError(t, err)
	got := p.FindMatches([]byte("TTAACCTTGGTTTT"), false)
	assert.Equal(t, []location.Location{
		loc(2, 6, location.Forward),
		loc(8, 12, location.Reverse),
	}, got)

	best, ok := p.Score([]byte("AACC"))
	require.True(t, ok)
	worse, _ := p.Score([]byte("AACT"))
	assert.Greater(t, best, worse)
	assert.GreaterOrEqual(t, best, p.Threshold())

	_, err = PSSMFromSites("bad", []string{"AAC", "AACC"}, PSSMOptions{})
	assert.Error(t, err)
}

func TestEnzymeSetMatchesIndividualSites(t *testing.T) {
	seq := []byte("GGTCTCAAGAATTCAAGAGACCGCCATTAAGGCAA")
	es, err := NewEnzymeSet("BsaI", "EcoRI", "BglI")
	require.NoError(t, err)

	var want []location.Location
	for _, name := range []string{"BsaI", "EcoRI", "BglI"} {
		d, err := EnzymeSite(name)
		require.NoError(t, err)
		want = append(want, d.FindMatches(seq, false)...)
	}
	location.Sort(want)
	got := es.FindMatches(seq, false)
	assert.Equal(t, want, got)
	assert.Contains(t, got, loc(0, 6, location.Forward))
	assert.Contains(t, got, loc(8, 14, location.None))
	assert.Contains(t, got, loc(16, 22, location.Reverse))
	assert.Contains(t, got, loc(22, 33, location.None))
}

func TestEnzymeSetNestedSites(t *testing.T) {
	es, err := NewEnzymeSet("DpnI", "BamHI")
	require.NoError(t, err)
	got := es.FindMatches([]byte("GGATCCGATC"), false)
	assert.Equal(t, []location.Location{
		loc(0, 6, location.None),
		loc(1, 5, location.None),
		loc(6, 10, location.None),
	}, got)
}

func TestLookupEnzyme(t *testing.T) {
	e, err := LookupEnzyme("bsai")
	require.NoError(t, err)
	assert.Equal(t, "GGTCTC", e.Site)
	_, err = LookupEnzyme("NoSuchI")
	assert.Error(t, err)
	assert.NotEmpty(t, Enzymes())
}

func TestIndexKmers(t *testing.T) {
	groups := IndexKmers([]byte("AAACCCAAA"), 3, 2, false, true)
	require.Len(t, groups, 1)
	assert.Equal(t, "AAA", groups[0].Kmer)
	assert.Equal(t, []location.Location{loc(0, 3, location.Forward), loc(6, 9, location.Forward)}, groups[0].Locations)

	groups = IndexKmers([]byte("AACGTT"), 3, 2, false, true)
	require.Len(t, groups, 2)
	assert.Equal(t, "AAC", groups[0].Kmer)
	assert.Equal(t, []location.Location{loc(0, 3, location.Forward), loc(3, 6, location.Reverse)}, groups[0].Locations)
	assert.Equal(t, "ACG", groups[1].Kmer)

	assert.Empty(t, IndexKmers([]byte("AACGTT"), 3, 2, false, false))
}

func TestIndexKmersLongKeysAgree(t *testing.T) {
	seq := randomSeq(rand.New(rand.NewSource(7)), 400)
	seq = append(seq, seq[:120]...)
	packed := IndexKmers(seq, 32, 2, false, true)
	long := IndexKmers(seq, 33, 2, false, true)
	assert.NotEmpty(t, packed)
	assert.NotEmpty(t, long)
	for _, g := range long {
		assert.Len(t, g.Kmer, 33)
		assert.GreaterOrEqual(t, len(g.Locations), 2)
	}
}

func TestRepeatedKmersMatcher(t *testing.T) {
	m, err := NewRepeatedKmers(3, true)
	require.NoError(t, err)
	assert.Equal(t, []location.Location{
		loc(0, 3, location.Forward),
		loc(1, 4, location.Forward),
		loc(2, 5, location.Reverse),
		loc(3, 6, location.Reverse),
	}, m.FindMatches([]byte("AACGTT"), false))
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		name string
	}{
		{"GAATTC", "GAATTC"},
		{"BsaI_site", "BsaI_site"},
		{"BsaI+BsmBI_sites", "BsaI+BsmBI_sites"},
		{"9xA", "9xA"},
		{"6xN", "6xN"},
		{"5x2mer", "5x2mer"},
		{"all_unique_12mers", "repeated_12mers"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			m, err := Parse(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.name, m.Name())
		})
	}
	for _, bad := range []string{"", "Nope_site", "GGZZ"} {
		m, err := Parse(bad)
		assert.Error(t, err, bad)
		assert.Nil(t, m)
	}
}

func TestScanShardedMatchesFullScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	seq := randomSeq(rng, 5000)
	es, err := NewEnzymeSet("DpnI", "BsaI", "BglI")
	require.NoError(t, err)
	pssm, err := PSSMFromSites("m", []string{"ACGTA", "ACGTT", "ACCTA"}, PSSMOptions{Pseudocount: 0.1, RelThreshold: 0.8})
	require.NoError(t, err)
	matchers := []Matcher{
		MustDegenerate("GGTC", WithMismatches(1)),
		es,
		pssm,
	}
	for _, m := range matchers {
		for _, circular := range []bool{false, true} {
			want := m.FindMatches(seq, circular)
			got, err := ScanSharded(context.Background(), m, seq, circular, ShardOptions{Size: 97, Workers: 4})
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s circular=%v", m.Name(), circular)
		}
	}
}

func TestScanShardedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ScanSharded(ctx, MustDegenerate("GATC"), randomSeq(rand.New(rand.NewSource(1)), 1000), false, ShardOptions{Size: 100})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindMatchesDeterministic(t *testing.T) {
	seq := randomSeq(rand.New(rand.NewSource(3)), 2000)
	m := MustDegenerate("GGNCC")
	assert.Equal(t, m.FindMatches(seq, true), m.FindMatches(seq, true))
}

func randomSeq(rng *rand.Rand, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = "ACGT"[rng.Intn(4)]
	}
	return out
}
