package app

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chisel/core/dna"
	"chisel/core/solver"
	"chisel/core/spec"
	"chisel/internal/output"
	"chisel/internal/problemfile"
	"chisel/pkg/api"
)

func newEvaluateCmd(g *globalFlags) *cobra.Command {
	var (
		in  inputFlags
		out outputFlags
	)
	cmd := &cobra.Command{
		Use:   "evaluate PROBLEM.yaml",
		Short: "Score sequences against a problem without changing them",
		Long: `Evaluate every constraint and objective of the problem on the input
sequences as they are. Exit status is 1 when a constraint fails.`,
		Example: `  chisel evaluate problem.yaml
  chisel evaluate problem.yaml --fasta optimized.fa -f tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, g, outputBindings)
			if err != nil {
				return err
			}
			defer s.flushMetrics()
			return s.evaluate(cmd.Context(), cmd.OutOrStdout(), args[0], &in, &out)
		},
	}
	in.register(cmd)
	registerOutputFlags(cmd, &out)
	return cmd
}

func (s *session) evaluate(ctx context.Context, stdout io.Writer, path string, in *inputFlags, out *outputFlags) error {
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
		res, err := s.evaluateOne(ctx, pf, r)
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
		return errFailed
	}
	return nil
}

func (s *session) evaluateOne(ctx context.Context, pf *problemfile.File, r run) (api.ResultV1, error) {
	seq, err := dna.Normalize(r.target.Seq)
	if err != nil {
		return api.ResultV1{}, usageErr(fmt.Errorf("%s: %w", r.target.ID, err))
	}
	p := spec.Static{Seq: seq, IsCircle: pf.Circular}
	cons := spec.EvaluateAll(ctx, p, r.cons)
	objs := spec.EvaluateAll(ctx, p, r.objs)
	if err := ctx.Err(); err != nil {
		return api.ResultV1{}, err
	}
	res := &solver.Result{
		Sequence:    string(seq),
		Original:    string(seq),
		Constraints: cons,
		Objectives:  objs,
		Success:     cons.AllPass(),
	}
	if res.Success {
		res.Message = fmt.Sprintf("all %d constraint(s) pass", len(cons))
	} else {
		res.Message = fmt.Sprintf("%d of %d constraint(s) fail", len(cons.Failing()), len(cons))
	}
	s.log.Info("evaluated", "sequence_id", r.target.ID, "pass", res.Success, "objective", objs.Total())
	return output.ToAPIResult(output.Meta{
		RunID:      uuid.NewString(),
		SequenceID: r.target.ID,
		SourceFile: r.target.Source,
		Circular:   pf.Circular,
	}, res), nil
}
