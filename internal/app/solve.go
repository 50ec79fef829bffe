package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chisel/core/solver"
	"chisel/core/spec"
	"chisel/internal/output"
	"chisel/internal/pretty"
	"chisel/internal/problemfile"
	"chisel/internal/writers"
	"chisel/pkg/api"
)

// outputFlags are shared by solve and evaluate.
type outputFlags struct {
	path string
}

func registerOutputFlags(cmd *cobra.Command, o *outputFlags) {
	f := cmd.Flags()
	f.StringVarP(&o.path, "output", "o", "", "write results to this file instead of stdout")
	f.StringP("format", "f", output.FormatText, "output format: text, tsv, json, jsonl, fasta")
	f.Bool("header", true, "print the TSV header row")
	f.Bool("pretty", false, "text: draw original and final sequences with changed bases marked")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file at exit")
	f.Int("shard-size", 0, "scan long sequences in shards of this many bases (0: off)")
}

var outputBindings = map[string]string{
	"output.format":    "format",
	"output.header":    "header",
	"output.pretty":    "pretty",
	"metrics.textfile": "metrics-textfile",
	"scan.shard-size":  "shard-size",
}

func newSolveCmd(g *globalFlags) *cobra.Command {
	var (
		in  inputFlags
		out outputFlags
	)
	cmd := &cobra.Command{
		Use:   "solve PROBLEM.yaml",
		Short: "Resolve constraints, then optimize objectives",
		Long: `Resolve every constraint of the problem by local search, then improve the
weighted objective total while keeping all constraints satisfied.

Exit status is 0 when every sequence satisfies its constraints, 1 when some
sequence could not be fixed (results are still written), 2 on bad input and
3 on runtime errors.`,
		Example: `  chisel solve problem.yaml
  chisel solve problem.yaml --fasta constructs.fa --record '*' -f jsonl
  chisel solve problem.yaml --seed 7 --workers 4 --pretty
  CHISEL_SOLVER_MAX_ROUNDS=100 chisel solve problem.yaml --config settings.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, g, mergeBindings(outputBindings, solverBindings))
			if err != nil {
				return err
			}
			defer s.flushMetrics()
			return s.solve(cmd.Context(), cmd.OutOrStdout(), args[0], &in, &out)
		},
	}
	in.register(cmd)
	registerOutputFlags(cmd, &out)
	registerSolverFlags(cmd)
	return cmd
}

var solverBindings = map[string]string{
	"solver.seed":                 "seed",
	"solver.workers":              "workers",
	"solver.max-rounds":           "max-rounds",
	"solver.exhaustive-threshold": "exhaustive-threshold",
	"solver.max-random-iters":     "max-random-iters",
	"solver.objective-iters":      "objective-iters",
	"solver.timeout":              "timeout",
	"blast.binary":                "blast-binary",
	"blast.timeout":               "blast-timeout",
}

func registerSolverFlags(cmd *cobra.Command) {
	d := solver.DefaultConfig()
	f := cmd.Flags()
	f.Int64("seed", d.Seed, "random seed")
	f.Int("workers", d.Workers, "parallel exhaustive searches over disjoint regions")
	f.Int("max-rounds", d.MaxRounds, "constraint resolution rounds")
	f.Uint64("exhaustive-threshold", d.ExhaustiveThreshold, "enumerate local spaces smaller than this")
	f.Int("max-random-iters", d.MaxRandomIters, "random proposals per local search")
	f.Int("objective-iters", d.ObjectiveIters, "objective optimization proposals (0 skips the phase)")
	f.Duration("timeout", 0, "give up on a sequence after this long (0: never)")
	f.String("blast-binary", "blastn", "blastn executable for avoid_homology")
	f.Duration("blast-timeout", 2*time.Minute, "deadline of one blastn search")
}

func mergeBindings(ms ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range ms {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func (s *session) writerOptions() writers.Options {
	return writers.Options{Header: s.cfg.Output.Header, Pretty: s.cfg.Output.Pretty, Diff: pretty.DefaultOptions}
}

// run holds one target's problem for either command.
type run struct {
	target problemfile.Target
	cons   []spec.Specification
	objs   []spec.Specification
}

// prepare loads the problem and builds fresh specifications per target.
func (s *session) prepare(path string, in *inputFlags) (*problemfile.File, []run, error) {
	pf, targets, err := in.load(path)
	if err != nil {
		return nil, nil, err
	}
	env, err := s.env(in)
	if err != nil {
		return nil, nil, err
	}
	runs := make([]run, 0, len(targets))
	for _, t := range targets {
		cons, objs, err := pf.Build(spec.NewRegistry(), env)
		if err != nil {
			return nil, nil, usageErr(err)
		}
		runs = append(runs, run{target: t, cons: cons, objs: objs})
	}
	return pf, runs, nil
}

// emit starts the result writer on the configured output and returns a send
// function and a finish function reporting the first write error.
func (s *session) emit(ctx context.Context, stdout io.Writer, out *outputFlags) (func(api.ResultV1) error, func() error, error) {
	w, closeOut, err := openOutput(stdout, out.path)
	if err != nil {
		return nil, nil, err
	}
	ch, errc := writers.StartResultWriter(w, s.cfg.Output.Format, s.writerOptions(), 4)
	send := func(r api.ResultV1) error {
		select {
		case ch <- r:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	finish := func() error {
		close(ch)
		werr := <-errc
		if cerr := closeOut(); werr == nil {
			werr = cerr
		}
		if werr != nil && !writers.IsBrokenPipe(werr) {
			return runtimeErr(werr)
		}
		return nil
	}
	return send, finish, nil
}

func (s *session) solve(ctx context.Context, stdout io.Writer, path string, in *inputFlags, out *outputFlags) error {
	pf, runs, err := s.prepare(path, in)
	if err != nil {
		return err
	}
	send, finish, err := s.emit(ctx, stdout, out)
	if err != nil {
		return err
	}

	failed := 0
	var runErr error
	for _, r := range runs {
		res, err := s.solveOne(ctx, pf, r)
		if err != nil {
			runErr = err
			break
		}
		if !res.Success {
			failed++
		}
		if err := send(res); err != nil {
			runErr = err
			break
		}
	}
	if err := finish(); err != nil && runErr == nil {
		runErr = err
	}
	switch {
	case runErr != nil:
		return runErr
	case failed > 0:
		s.warnf("%d of %d sequence(s) still fail their constraints", failed, len(runs))
		return errFailed
	}
	return nil
}

func (s *session) solveOne(ctx context.Context, pf *problemfile.File, r run) (api.ResultV1, error) {
	log := s.log.With("sequence_id", r.target.ID)
	p, err := solver.New(r.target.Seq, r.cons, r.objs, solver.Options{
		Circular: pf.Circular,
		Config:   s.cfg.SolverConfig(),
		Logger:   log,
		Observer: s.metrics,
	})
	if err != nil {
		return api.ResultV1{}, usageErr(fmt.Errorf("%s: %w", r.target.ID, err))
	}

	runCtx := ctx
	if d := s.cfg.Solver.Timeout; d > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	t0 := time.Now()
	res, err := p.Solve(runCtx)
	s.metrics.ObserveRun(res, time.Since(t0))
	switch {
	case err == nil, errors.Is(err, solver.ErrNoSolutionFound):
	case ctx.Err() != nil:
		return api.ResultV1{}, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		s.warnf("%s: stopped after %s, reporting the best sequence found", r.target.ID, s.cfg.Solver.Timeout)
	default:
		return api.ResultV1{}, runtimeErr(fmt.Errorf("%s: %w", r.target.ID, err))
	}
	return output.ToAPIResult(output.Meta{
		RunID:      uuid.NewString(),
		SequenceID: r.target.ID,
		SourceFile: r.target.Source,
		Circular:   pf.Circular,
	}, res), nil
}
