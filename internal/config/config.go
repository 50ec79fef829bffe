// Package config is for app wide settings that are unmarshalled from Viper.
// Values come, in increasing priority, from built-in defaults, an optional
// YAML settings file, CHISEL_* environment variables and command line flags
// (see internal/app).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"chisel/core/solver"
	"chisel/internal/output"
)

// EnvPrefix prefixes every environment override, e.g. CHISEL_SOLVER_SEED.
const EnvPrefix = "CHISEL"

// LogConfig is settings for the structured logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Quiet  bool   `mapstructure:"quiet"`
}

// SolverConfig mirrors solver.Config with file/env friendly names
type SolverConfig struct {
	ExhaustiveThreshold uint64  `mapstructure:"exhaustive-threshold"`
	MaxRandomIters      int     `mapstructure:"max-random-iters"`
	MaxRounds           int     `mapstructure:"max-rounds"`
	StagnationLimit     int     `mapstructure:"stagnation-limit"`
	MutationsPerIter    int     `mapstructure:"mutations-per-iter"`
	RandomWalkProb      float64 `mapstructure:"random-walk-prob"`
	LocalMargin         int     `mapstructure:"local-margin"`
	ObjectiveIters      int     `mapstructure:"objective-iters"`
	PlateauIters        int     `mapstructure:"plateau-iters"`
	TargetFailing       bool    `mapstructure:"target-failing"`
	Workers             int     `mapstructure:"workers"`
	Seed                int64   `mapstructure:"seed"`
	// Timeout bounds a whole run; 0 means none.
	Timeout time.Duration `mapstructure:"timeout"`
}

// OutputConfig is settings about how results are written
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Header bool   `mapstructure:"header"`
	Pretty bool   `mapstructure:"pretty"`
}

// BlastConfig is settings for the blastn homology searcher
type BlastConfig struct {
	// path or name of the blastn executable
	Binary string `mapstructure:"binary"`
	// per-search deadline
	Timeout time.Duration `mapstructure:"timeout"`
	Threads int           `mapstructure:"threads"`
	// directory for query files; the system temp dir when empty
	TmpDir string `mapstructure:"tmp-dir"`
	// number of distinct queries remembered
	CacheSize int `mapstructure:"cache-size"`
}

// ScanConfig is settings for pattern scans over long sequences
type ScanConfig struct {
	// bases per shard; 0 scans in one piece
	ShardSize int `mapstructure:"shard-size"`
	Workers   int `mapstructure:"workers"`
}

// MetricsConfig is settings for the Prometheus textfile export
type MetricsConfig struct {
	// TextFile, when set, receives the run metrics in the Prometheus text
	// format at exit (node_exporter textfile collector).
	TextFile string `mapstructure:"textfile"`
}

// Config is the root-level settings struct
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Solver  SolverConfig  `mapstructure:"solver"`
	Output  OutputConfig  `mapstructure:"output"`
	Blast   BlastConfig   `mapstructure:"blast"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SetDefaults registers every default on v so that environment variables
// can override keys that appear in no file.
func SetDefaults(v *viper.Viper) {
	d := solver.DefaultConfig()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.quiet", false)

	v.SetDefault("solver.exhaustive-threshold", d.ExhaustiveThreshold)
	v.SetDefault("solver.max-random-iters", d.MaxRandomIters)
	v.SetDefault("solver.max-rounds", d.MaxRounds)
	v.SetDefault("solver.stagnation-limit", d.StagnationLimit)
	v.SetDefault("solver.mutations-per-iter", d.MutationsPerIter)
	v.SetDefault("solver.random-walk-prob", d.RandomWalkProb)
	v.SetDefault("solver.local-margin", d.LocalMargin)
	v.SetDefault("solver.objective-iters", d.ObjectiveIters)
	v.SetDefault("solver.plateau-iters", d.PlateauIters)
	v.SetDefault("solver.target-failing", d.TargetFailing)
	v.SetDefault("solver.workers", d.Workers)
	v.SetDefault("solver.seed", d.Seed)
	v.SetDefault("solver.timeout", time.Duration(0))

	v.SetDefault("output.format", output.FormatText)
	v.SetDefault("output.header", true)
	v.SetDefault("output.pretty", false)

	v.SetDefault("blast.binary", "blastn")
	v.SetDefault("blast.timeout", 2*time.Minute)
	v.SetDefault("blast.threads", 1)
	v.SetDefault("blast.tmp-dir", "")
	v.SetDefault("blast.cache-size", 256)

	v.SetDefault("scan.shard-size", 0)
	v.SetDefault("scan.workers", 0)

	v.SetDefault("metrics.textfile", "")
}

// New prepares a Viper instance with defaults and environment binding. file,
// when not empty, is read as the settings file.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", file, err)
		}
	}
	return v, nil
}

// Load unmarshals v into a validated Config.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode settings: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the solver or writers cannot honour.
func (c Config) Validate() error {
	switch c.Output.Format {
	case output.FormatText, output.FormatTSV, output.FormatJSON, output.FormatJSONL, output.FormatFASTA:
	default:
		return fmt.Errorf("output.format %q: want text, tsv, json, jsonl or fasta", c.Output.Format)
	}
	if p := c.Solver.RandomWalkProb; p < 0 || p > 1 {
		return fmt.Errorf("solver.random-walk-prob %v outside [0, 1]", p)
	}
	if c.Solver.Workers < 0 {
		return fmt.Errorf("solver.workers must be >= 0, got %d", c.Solver.Workers)
	}
	if c.Scan.ShardSize < 0 {
		return fmt.Errorf("scan.shard-size must be >= 0, got %d", c.Scan.ShardSize)
	}
	if c.Solver.Timeout < 0 || c.Blast.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// SolverConfig maps the settings onto solver.Config.
func (c Config) SolverConfig() solver.Config {
	s := c.Solver
	return solver.Config{
		ExhaustiveThreshold: s.ExhaustiveThreshold,
		MaxRandomIters:      s.MaxRandomIters,
		MaxRounds:           s.MaxRounds,
		StagnationLimit:     s.StagnationLimit,
		MutationsPerIter:    s.MutationsPerIter,
		RandomWalkProb:      s.RandomWalkProb,
		LocalMargin:         s.LocalMargin,
		ObjectiveIters:      s.ObjectiveIters,
		PlateauIters:        s.PlateauIters,
		TargetFailing:       s.TargetFailing,
		Workers:             s.Workers,
		Seed:                s.Seed,
	}
}
