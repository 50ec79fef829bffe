// Package appshell is the process wrapper around a command runner: signal
// handling and exit status.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Runner executes argv and returns the exit code.
type Runner func(ctx context.Context, argv []string, stdout, stderr io.Writer) int

// Main runs run with os.Args, cancelling its context on SIGINT or SIGTERM,
// and exits with its code.
func Main(run Runner) {
	os.Exit(Exec(run, os.Args[1:], os.Stdout, os.Stderr))
}

// Exec is Main without os.Exit.
func Exec(run Runner, argv []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, argv, stdout, stderr)
	// Normalize cancellation exit code.
	if ctx.Err() != nil && code == 0 {
		code = 130
	}
	return code
}
