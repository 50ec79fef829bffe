// Package logging builds the slog.Logger shared by the CLI and the solver.
//
// Text output is the default since the logger writes to stderr next to the
// human-readable report; JSON is there for piping runs into log collectors.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config configures New. The zero value logs Info and above as text to
// stderr.
type Config struct {
	Level  string
	Format Format
	Output io.Writer
	// Quiet drops everything below Error.
	Quiet bool
}

// ParseLevel accepts debug, info, warn (or warning) and error, in any case.
// The empty string is Info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New returns a logger for cfg.
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Quiet {
		lvl = slog.LevelError
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch cfg.Format {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", cfg.Format)
}

// Discard is a logger that drops every record.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// Warnf prints a one-line "WARN:" notice for the user unless quiet is set.
// It is for CLI-facing warnings that should read the same whatever the log
// format is.
func Warnf(dst io.Writer, quiet bool, format string, a ...any) {
	if quiet {
		return
	}
	_, _ = fmt.Fprintf(dst, "WARN: "+format+"\n", a...)
}
