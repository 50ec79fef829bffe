package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"chisel/core/dna"
	"chisel/core/homology"
	"chisel/core/pattern"
	"chisel/core/spec"
	"chisel/internal/blast"
	"chisel/internal/config"
	"chisel/internal/fasta"
	"chisel/internal/logging"
	"chisel/internal/metrics"
	"chisel/internal/problemfile"
)

// rootBindings maps settings keys to the persistent root flags.
var rootBindings = map[string]string{
	"log.level":  "log-level",
	"log.format": "log-format",
	"log.quiet":  "quiet",
}

// session is what a command needs once settings are resolved.
type session struct {
	cfg     config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	stderr  io.Writer
}

// newSession loads settings (file, env, then the flags named in bindings)
// and builds the logger and metrics.
func newSession(cmd *cobra.Command, g *globalFlags, bindings map[string]string) (*session, error) {
	v, err := config.New(g.configFile)
	if err != nil {
		return nil, usageErr(err)
	}
	for _, b := range []map[string]string{rootBindings, bindings} {
		for key, name := range b {
			f := cmd.Flags().Lookup(name)
			if f == nil {
				return nil, fmt.Errorf("no flag --%s for %s", name, key)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, usageErr(err)
	}
	log, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
		Output: cmd.ErrOrStderr(),
		Quiet:  cfg.Log.Quiet,
	})
	if err != nil {
		return nil, usageErr(err)
	}
	reg := prometheus.NewRegistry()
	return &session{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		metrics: metrics.New(reg),
		stderr:  cmd.ErrOrStderr(),
	}, nil
}

func (s *session) warnf(format string, a ...any) {
	logging.Warnf(s.stderr, s.cfg.Log.Quiet, format, a...)
}

// flushMetrics writes the textfile export when one is configured.
func (s *session) flushMetrics() {
	if path := s.cfg.Metrics.TextFile; path != "" {
		if err := metrics.WriteTextFile(path, s.reg); err != nil {
			s.warnf("%v", err)
		}
	}
}

// inputFlags select the sequences, overriding the problem file.
type inputFlags struct {
	sequence  string
	fastaPath string
	record    string
	circular  bool
	memoryDBs []string
}

func (in *inputFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&in.sequence, "sequence", "", "sequence to optimize (overrides the problem file)")
	f.StringVar(&in.fastaPath, "fasta", "", "FASTA input, '-' for stdin, .gz accepted (overrides the problem file)")
	f.StringVar(&in.record, "record", "", "FASTA record id; '*' for every record (default: the first)")
	f.BoolVar(&in.circular, "circular", false, "treat sequences as circular")
	f.StringArrayVar(&in.memoryDBs, "memory-db", nil, "name=path.fa: serve homology database name from FASTA in memory instead of blastn (repeatable)")
}

// load reads the problem and resolves the targets.
func (in *inputFlags) load(path string) (*problemfile.File, []problemfile.Target, error) {
	pf, err := problemfile.Load(path)
	if err != nil {
		return nil, nil, usageErr(err)
	}
	if in.circular {
		pf.Circular = true
	}
	var targets []problemfile.Target
	switch {
	case in.sequence != "" && in.fastaPath != "":
		return nil, nil, usageErr(fmt.Errorf("--sequence and --fasta are mutually exclusive"))
	case in.sequence != "":
		targets = []problemfile.Target{{ID: pf.Name, Seq: []byte(in.sequence)}}
	case in.fastaPath != "":
		targets, err = problemfile.FromFASTA(in.fastaPath, in.record)
	default:
		if in.record != "" {
			pf.Record = in.record
		}
		targets, err = pf.Targets()
	}
	if err != nil {
		return nil, nil, usageErr(err)
	}
	return pf, targets, nil
}

// env builds the collaborators specifications need: the homology searcher
// (blastn, cached, with in-memory databases taking precedence) and scan
// sharding.
func (s *session) env(in *inputFlags) (spec.Env, error) {
	mem := homology.NewMemoryDB()
	local := map[string]bool{}
	for _, kv := range in.memoryDBs {
		name, path, ok := strings.Cut(kv, "=")
		if !ok || name == "" || path == "" {
			return spec.Env{}, usageErr(fmt.Errorf("--memory-db %q: want name=path", kv))
		}
		recs, err := fasta.ReadFile(path)
		if err != nil {
			return spec.Env{}, usageErr(err)
		}
		for _, r := range recs {
			mem.Add(name, homology.Record{ID: r.ID, Seq: r.Seq})
		}
		local[name] = true
	}
	bl := blast.New(blast.Options{
		Binary:  s.cfg.Blast.Binary,
		Timeout: s.cfg.Blast.Timeout,
		TmpDir:  s.cfg.Blast.TmpDir,
		Logger:  s.log,
	})
	route := homology.SearchFunc(func(ctx context.Context, q []byte, db string, p homology.Params) ([]homology.Hit, error) {
		if local[db] {
			return mem.Search(ctx, q, db, p)
		}
		if p.Threads <= 0 {
			p.Threads = s.cfg.Blast.Threads
		}
		return bl.Search(ctx, q, db, p)
	})
	return spec.Env{
		Searcher: homology.NewCached(route, s.cfg.Blast.CacheSize),
		Code:     dna.Standard,
		Shard:    pattern.ShardOptions{Size: s.cfg.Scan.ShardSize, Workers: s.cfg.Scan.Workers},
	}, nil
}

// openOutput returns stdout, or the file at path.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, runtimeErr(err)
	}
	return f, f.Close, nil
}
