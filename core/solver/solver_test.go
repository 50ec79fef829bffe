package solver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chisel/core/dna"
	"chisel/core/homology"
	"chisel/core/location"
	"chisel/core/mutation"
	"chisel/core/pattern"
	"chisel/core/spec"
)

func forbid(p string) spec.Specification {
	return &spec.AvoidPattern{Pattern: pattern.MustDegenerate(p, pattern.ForwardOnly())}
}

func keep(start, end int) spec.Specification {
	return &spec.AvoidChanges{Base: spec.At(location.Span(start, end))}
}

func iupacAt(t *testing.T, start int, pat string) spec.Specification {
	t.Helper()
	loc := location.Span(start, start+len(pat))
	s, err := spec.NewEnforceSequence(pat, &loc)
	require.NoError(t, err)
	return s
}

// sixFreeBases locks everything but [4, 10), where each base is A, C or G.
func sixFreeBases(t *testing.T, middle string) ([]byte, []spec.Specification) {
	seq := []byte("CCCC" + middle + "CCCC")
	return seq, []spec.Specification{keep(0, 4), keep(10, 14), iupacAt(t, 4, "VVVVVV"), forbid("AAAA")}
}

func TestExhaustiveResolvesSmallSpace(t *testing.T) {
	for _, middle := range []string{"AAAAAA", "AAAAAC", "GAAAAG", "CAAAAA"} {
		t.Run(middle, func(t *testing.T) {
			seq, cons := sixFreeBases(t, middle)
			p, err := New(seq, cons, nil, Options{})
			require.NoError(t, err)
			assert.Equal(t, uint64(729), p.Space().Size())

			res, err := p.Solve(context.Background())
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, 1, res.Rounds)
			assert.NotContains(t, res.Sequence, "AAAA")
			assert.Equal(t, "CCCC", res.Sequence[:4])
			assert.Equal(t, "CCCC", res.Sequence[10:])
			assert.NotContains(t, res.Sequence[4:10], "T")
			assert.True(t, res.Constraints.AllPass())
		})
	}
}

func TestRandomSearchResolvesLargeSpace(t *testing.T) {
	seq, cons := sixFreeBases(t, "AAAAAA")
	cfg := DefaultConfig()
	cfg.ExhaustiveThreshold = 2
	p, err := New(seq, cons, nil, Options{Config: cfg})
	require.NoError(t, err)

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotContains(t, res.Sequence, "AAAA")
	assert.NotEmpty(t, res.Steps)
	for _, st := range res.Steps {
		assert.Equal(t, 1, st.Phase)
	}
}

func TestParallelClustersMatchSequential(t *testing.T) {
	seq := []byte("CCCC" + "AAAAAA" + strings.Repeat("C", 14) + "AAAAAA" + "CCCC")
	cons := []spec.Specification{
		keep(0, 4), keep(10, 24), keep(30, 34),
		iupacAt(t, 4, "VVVVVV"), iupacAt(t, 24, "VVVVVV"),
		forbid("AAAA"),
	}
	var seqs []string
	for _, workers := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		p, err := New(seq, cons, nil, Options{Config: cfg})
		require.NoError(t, err)
		res, err := p.Solve(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.Rounds)
		seqs = append(seqs, res.Sequence)
	}
	assert.Equal(t, seqs[0], seqs[1])
}

func TestNoSolution(t *testing.T) {
	seq := []byte("AAAAAAAA")
	cons := []spec.Specification{keep(0, 2), keep(6, 8), iupacAt(t, 2, "AAAA"), forbid("AAAA")}
	p, err := New(seq, cons, nil, Options{})
	require.NoError(t, err)

	res, err := p.Solve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSolutionFound)
	var nse *NoSolutionError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, "stagnation", nse.Reason)
	assert.Equal(t, DefaultConfig().StagnationLimit, nse.Rounds)
	assert.Contains(t, nse.Locations, location.MustNew(2, 6, location.Forward))
	assert.Len(t, nse.Failing, 1)

	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, "AAAAAAAA", res.Sequence)
	assert.Equal(t, 0, res.EditCount)
	assert.NotEmpty(t, res.Message)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New([]byte("ACGN"), nil, nil, Options{})
	assert.ErrorIs(t, err, dna.ErrInvalidSequence)

	_, err = New([]byte("ACGT"), []spec.Specification{iupacAt(t, 0, "A"), iupacAt(t, 0, "C")}, nil, Options{})
	assert.ErrorIs(t, err, mutation.ErrEmptyMutationSpace)
}

func TestForcedChoicesAreApplied(t *testing.T) {
	p, err := New([]byte("aaaa"), []spec.Specification{iupacAt(t, 0, "ACGT")}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "AAAA", string(p.Original()))
	assert.Equal(t, "ACGT", string(p.Sequence()))

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.EditCount)
	assert.Equal(t, []Edit{{Start: 1, Original: "AAA", Final: "CGT"}}, res.Edits)
}

func TestObjectiveClimbsToTarget(t *testing.T) {
	gc, err := spec.NewEnforceGCContent(0, 1, 0.5, 0)
	require.NoError(t, err)
	p, err := New([]byte(strings.Repeat("A", 12)), nil, []spec.Specification{gc}, Options{})
	require.NoError(t, err)

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.InDelta(t, 0.5, dna.GCContent([]byte(res.Sequence)), 1e-9)
	assert.InDelta(t, 0, res.ObjectiveTotal(), 1e-9)
	assert.Positive(t, res.Iterations)
	for _, st := range res.Steps {
		assert.Equal(t, 2, st.Phase)
	}
}

func TestObjectiveNeverBreaksConstraints(t *testing.T) {
	gc, err := spec.NewEnforceGCContent(0, 1, 1.0, 0)
	require.NoError(t, err)
	cons := []spec.Specification{&spec.AvoidPattern{Pattern: pattern.MustDegenerate("GGG")}}
	p, err := New([]byte("ATATATATATAT"), cons, []spec.Specification{gc}, Options{})
	require.NoError(t, err)

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Constraints.AllPass())
	assert.NotContains(t, res.Sequence, "GGG")
	assert.NotContains(t, res.Sequence, "CCC")
	assert.Greater(t, dna.GCContent([]byte(res.Sequence)), 0.6)
}

func TestCodonOptimizationKeepsProtein(t *testing.T) {
	usage, err := dna.LookupCodonUsage("e_coli")
	require.NoError(t, err)
	opt, err := spec.NewCodonOptimize(usage, spec.UseBestCodon, nil)
	require.NoError(t, err)
	seq := []byte("ATGCTACTAAAGTGA")

	p, err := New(seq, []spec.Specification{&spec.EnforceTranslation{}}, []spec.Specification{opt}, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(6*6*2*3), p.Space().Size())
	_, before := p.Evaluate(context.Background())

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ATGCTGCTGAAATAA", res.Sequence)
	prot, err := dna.Standard.TranslateSeq([]byte(res.Sequence))
	require.NoError(t, err)
	assert.Equal(t, "MLLK*", string(prot))
	assert.Greater(t, res.ObjectiveTotal(), before.Total())
}

func TestCircularWrapIsResolved(t *testing.T) {
	seq := []byte("TCAAAAAAGG")
	cons := []spec.Specification{forbid("GGTC")}

	lin, err := New(seq, cons, nil, Options{})
	require.NoError(t, err)
	res, err := lin.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.EditCount)

	circ, err := New(seq, cons, nil, Options{Circular: true})
	require.NoError(t, err)
	c0, _ := circ.Evaluate(context.Background())
	assert.False(t, c0.AllPass())
	res, err = circ.Solve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Positive(t, res.EditCount)
	final := spec.Static{Seq: []byte(res.Sequence), IsCircle: true}
	assert.True(t, spec.EvaluateAll(context.Background(), final, cons).AllPass())
}

func TestCancelledContextKeepsSequence(t *testing.T) {
	seq, cons := sixFreeBases(t, "AAAAAA")
	p, err := New(seq, cons, nil, Options{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Solve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, "CCCCAAAAAACCCC", res.Sequence)
	assert.False(t, res.Success)
}

type countingSpec struct {
	spec.Specification
	calls *int
}

func (c countingSpec) Evaluate(ctx context.Context, p spec.Problem) spec.Evaluation {
	*c.calls++
	return c.Specification.Evaluate(ctx, p)
}

func TestCacheInvalidatesOnlyOverlapping(t *testing.T) {
	var left, right, length int
	cons := []spec.Specification{
		countingSpec{&spec.AvoidPattern{Base: spec.At(location.Span(0, 10)), Pattern: pattern.MustDegenerate("GGG")}, &left},
		countingSpec{&spec.AvoidPattern{Base: spec.At(location.Span(20, 30)), Pattern: pattern.MustDegenerate("GGG")}, &right},
		countingSpec{&spec.EnforceLength{Min: 1}, &length},
	}
	p, err := New([]byte(strings.Repeat("AT", 15)), cons, nil, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	p.constraintEvals(ctx)
	assert.Equal(t, []int{1, 1, 1}, []int{left, right, length})

	e := p.apply([]mutation.Mutation{{Loc: location.Span(5, 6), Seq: []byte("G")}})
	p.constraintEvals(ctx)
	assert.Equal(t, []int{2, 1, 1}, []int{left, right, length})

	p.revert(e)
	p.constraintEvals(ctx)
	assert.Equal(t, []int{2, 1, 1}, []int{left, right, length})
	assert.Equal(t, byte('T'), p.Sequence()[5])

	// a no-op mutation invalidates nothing
	e = p.apply([]mutation.Mutation{{Loc: location.Span(25, 26), Seq: []byte{p.Sequence()[25]}}})
	p.constraintEvals(ctx)
	assert.Equal(t, []int{2, 1, 1}, []int{left, right, length})
	p.revert(e)

	// reverting restores every invalidated entry
	e = p.apply([]mutation.Mutation{{Loc: location.Span(8, 9), Seq: []byte("G")}, {Loc: location.Span(21, 22), Seq: []byte("G")}})
	p.revert(e)
	p.constraintEvals(ctx)
	assert.Equal(t, []int{2, 1, 1}, []int{left, right, length})
}

type recordingObserver struct {
	rounds, proposals, accepted, evals int
}

func (o *recordingObserver) OnRound(int, int, float64) { o.rounds++ }
func (o *recordingObserver) OnProposal(_ int, ok bool) {
	o.proposals++
	if ok {
		o.accepted++
	}
}
func (o *recordingObserver) OnEvaluation(string, spec.Evaluation, time.Duration) { o.evals++ }

func TestObserverSeesTheSearch(t *testing.T) {
	seq, cons := sixFreeBases(t, "AAAAAA")
	obs := &recordingObserver{}
	p, err := New(seq, cons, nil, Options{Observer: obs})
	require.NoError(t, err)
	_, err = p.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, obs.rounds)
	assert.Equal(t, 1, obs.accepted)
	assert.Positive(t, obs.evals)
}

func TestDiffEdits(t *testing.T) {
	edits, n := diffEdits([]byte("ACGTACGT"), []byte("ACCTACGA"))
	assert.Equal(t, 2, n)
	assert.Equal(t, []Edit{{Start: 2, Original: "G", Final: "C"}, {Start: 7, Original: "T", Final: "A"}}, edits)

	edits, n = diffEdits([]byte("ACGT"), []byte("ACGT"))
	assert.Zero(t, n)
	assert.Empty(t, edits)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), Config{}.withDefaults())
	c := Config{ExhaustiveThreshold: 7, Workers: -1}.withDefaults()
	assert.Equal(t, uint64(7), c.ExhaustiveThreshold)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, 1000, c.MaxRandomIters)
	assert.False(t, c.TargetFailing)
	assert.Zero(t, c.ObjectiveIters)
	assert.Zero(t, c.LocalMargin)
	assert.Zero(t, c.RandomWalkProb)
	assert.Equal(t, DefaultConfig().PlateauIters, c.PlateauIters)
}

func TestSolveIsDeterministic(t *testing.T) {
	gc, err := spec.NewEnforceGCContent(0, 1, 0.5, 0)
	require.NoError(t, err)
	run := func() string {
		p, err := New([]byte(strings.Repeat("AT", 10)), []spec.Specification{forbid("GGG")}, []spec.Specification{gc}, Options{})
		require.NoError(t, err)
		res, err := p.Solve(context.Background())
		require.NoError(t, err)
		return res.Sequence
	}
	a, b := run(), run()
	assert.Equal(t, a, b)
	assert.NotEqual(t, strings.Repeat("AT", 10), a)
}

func TestObjectivesStopAtBestPossibleScore(t *testing.T) {
	t.Run("random", func(t *testing.T) {
		seq := []byte("ACGTCAGTCCAGTGAATTCAGCTTCAGACTGCATCAGTC")
		cfg := DefaultConfig()
		cfg.ObjectiveIters = 500
		cfg.PlateauIters = 500
		p, err := New(seq, nil, []spec.Specification{forbid("GAATTC")}, Options{Config: cfg})
		require.NoError(t, err)

		res, err := p.Solve(context.Background())
		require.NoError(t, err)
		assert.NotContains(t, res.Sequence, "GAATTC")
		assert.InDelta(t, 0, res.ObjectiveTotal(), 1e-9)
		assert.Positive(t, res.Iterations)
		assert.Less(t, res.Iterations, cfg.ObjectiveIters)
	})

	t.Run("exhaustive", func(t *testing.T) {
		cons := []spec.Specification{keep(0, 4), keep(10, 14), iupacAt(t, 4, "VVVVVV")}
		p, err := New([]byte("CCCCAAAAAACCCC"), cons, []spec.Specification{forbid("AAAA")}, Options{})
		require.NoError(t, err)
		require.Equal(t, uint64(729), p.Space().Size())

		res, err := p.Solve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "CCCCAAACAACCCC", res.Sequence)
		assert.Less(t, res.Iterations, 729)
	})

	t.Run("already optimal", func(t *testing.T) {
		p, err := New([]byte("ACGTACGT"), nil, []spec.Specification{forbid("GAATTC")}, Options{})
		require.NoError(t, err)
		res, err := p.Solve(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.Iterations)
		assert.Zero(t, res.EditCount)
	})
}

func TestObjectiveIterationsZeroSkipsPhaseTwo(t *testing.T) {
	cons := []spec.Specification{keep(0, 4), keep(10, 14), iupacAt(t, 4, "VVVVVV")}
	cfg := DefaultConfig()
	cfg.ObjectiveIters = 0
	p, err := New([]byte("CCCCAAAAAACCCC"), cons, []spec.Specification{forbid("AAAA")}, Options{Config: cfg})
	require.NoError(t, err)

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Iterations)
	assert.Equal(t, "CCCCAAAAAACCCC", res.Sequence)
}

func TestObjectivesEnumeratedPerLocation(t *testing.T) {
	usage, err := dna.LookupCodonUsage("e_coli")
	require.NoError(t, err)
	opt, err := spec.NewCodonOptimize(usage, spec.UseBestCodon, nil)
	require.NoError(t, err)
	seq := []byte("ATG" + strings.Repeat("CTA", 20) + "TAA")

	// one random proposal at most: only the per-location enumeration can
	// reach every codon
	cfg := DefaultConfig()
	cfg.ObjectiveIters = 1
	p, err := New(seq, []spec.Specification{&spec.EnforceTranslation{}}, []spec.Specification{opt}, Options{Config: cfg})
	require.NoError(t, err)
	require.GreaterOrEqual(t, p.Space().Size(), cfg.ExhaustiveThreshold)

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ATG"+strings.Repeat("CTG", 20)+"TAA", res.Sequence)
	assert.True(t, res.Constraints.AllPass())
	for _, st := range res.Steps {
		assert.Equal(t, 2, st.Phase)
	}
}

func failingSearcher() homology.Searcher {
	return homology.SearchFunc(func(context.Context, []byte, string, homology.Params) ([]homology.Hit, error) {
		return nil, errors.New("blastn: database vectors not found")
	})
}

func TestFailingHomologyConstraintIsContained(t *testing.T) {
	hom := &spec.AvoidHomology{
		Base:     spec.At(location.Span(14, 24)),
		Searcher: failingSearcher(),
		DB:       "vectors",
		Params:   homology.DefaultParams(),
	}
	cons := []spec.Specification{keep(0, 4), iupacAt(t, 4, "VVVVVV"), keep(10, 14), forbid("AAAA"), hom}
	cfg := DefaultConfig()
	cfg.MaxRandomIters = 200
	p, err := New([]byte("CCCCAAAAAACCCC"+"ACGTACGTAC"), cons, nil, Options{Config: cfg})
	require.NoError(t, err)

	res, err := p.Solve(context.Background())
	var nse *NoSolutionError
	require.ErrorAs(t, err, &nse)
	require.Len(t, nse.Failing, 1)
	assert.Contains(t, nse.Failing[0], "AvoidHomology")
	assert.Contains(t, nse.Locations, location.Span(14, 24))

	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.NotContains(t, res.Sequence, "AAAA")
	assert.True(t, res.Constraints[3].Passes())
	assert.ErrorIs(t, res.Constraints[4].Err, homology.ErrSearchFailed)
}

func TestFailingHomologyObjectiveIsContained(t *testing.T) {
	gc, err := spec.NewEnforceGCContent(0, 1, 0.5, 0)
	require.NoError(t, err)
	hom := &spec.AvoidHomology{Searcher: failingSearcher(), DB: "vectors", Params: homology.DefaultParams()}
	p, err := New([]byte(strings.Repeat("A", 12)), nil, []spec.Specification{gc, hom}, Options{})
	require.NoError(t, err)

	res, err := p.Solve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Positive(t, res.Iterations)
	assert.InDelta(t, 0.5, dna.GCContent([]byte(res.Sequence)), 1e-9)
	require.Len(t, res.Objectives, 2)
	assert.ErrorIs(t, res.Objectives[1].Err, homology.ErrSearchFailed)
}
