// Package app is the chisel command line: a cobra command tree over the
// solver, with settings from internal/config.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chisel/internal/writers"
)

// Version is stamped at build time with -ldflags "-X chisel/internal/app.Version=...".
var Version = "dev"

// Exit codes.
const (
	ExitOK          = 0
	ExitNoSolution  = 1 // some sequence still fails a constraint
	ExitUsage       = 2
	ExitRuntime     = 3
	ExitInterrupted = 130
)

// exitError carries the exit code a command wants.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error   { return &exitError{code: ExitUsage, err: err} }
func runtimeErr(err error) error { return &exitError{code: ExitRuntime, err: err} }

// errFailed reports that the output was written but some run failed.
var errFailed = &exitError{code: ExitNoSolution}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// RunContext executes argv and returns the process exit code.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)

	root := newRootCmd(outw, stderr)
	root.SetArgs(argv)
	err := root.ExecuteContext(parent)

	if e := outw.Flush(); e != nil && !writers.IsBrokenPipe(e) {
		_, _ = fmt.Fprintln(stderr, e)
		return ExitRuntime
	}
	return exitCode(parent, err, stderr)
}

func exitCode(ctx context.Context, err error, stderr io.Writer) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return ExitInterrupted
	}
	if writers.IsBrokenPipe(err) {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			_, _ = fmt.Fprintln(stderr, "error:", ee.err)
		}
		return ee.code
	}
	// flag and argument errors from cobra itself
	_, _ = fmt.Fprintln(stderr, "error:", err)
	return ExitUsage
}

// globalFlags are the persistent root flags.
type globalFlags struct {
	configFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "chisel",
		Short: "Optimize DNA sequences under constraints and objectives",
		Long: `chisel edits a DNA sequence until it satisfies every constraint of a problem
(forbidden sites, GC windows, protein translation, homology...) and then
improves its objectives (codon usage, GC target, hairpins...) without breaking
any constraint.

Problems are YAML files listing constraints and objectives; settings come from
an optional --config file, CHISEL_* environment variables and flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "settings file (YAML)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.BoolP("quiet", "q", false, "only log errors and suppress warnings")

	root.AddCommand(
		newSolveCmd(g),
		newEvaluateCmd(g),
		newEnzymesCmd(),
		newKindsCmd(),
	)
	return root
}
