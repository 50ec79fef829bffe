// Package blast implements homology.Searcher by shelling out to NCBI blastn.
package blast

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chisel/core/homology"
	"chisel/core/location"
)

// outfmt is the tabular layout parse expects, one HSP per line.
// https://www.ncbi.nlm.nih.gov/books/NBK279682/
const outfmt = "6 sseqid qstart qend sstart send pident length"

// Options configure the blastn invocation.
type Options struct {
	// Binary is the blastn executable, looked up on PATH when not absolute.
	Binary string
	// Timeout bounds one search; 0 means only the caller's context applies.
	Timeout time.Duration
	// TmpDir holds the query files (os.TempDir() when empty).
	TmpDir string
	Logger *slog.Logger
}

// Searcher runs blastn against a BLAST database, or against a FASTA file used
// as subject when db ends in .fa, .fasta or .fna.
type Searcher struct {
	opt Options
}

// New returns a Searcher. The binary is resolved lazily, on first Search.
func New(opt Options) *Searcher {
	if opt.Binary == "" {
		opt.Binary = "blastn"
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}
	return &Searcher{opt: opt}
}

var _ homology.Searcher = (*Searcher)(nil)

// blastExec is one search: the query file we wrote and what to run it against.
type blastExec struct {
	// the path to the database we're BLASTing against
	db string
	// the path to the input FASTA query
	in string
	// true when db is a FASTA file rather than a formatted database
	subject bool
}

// Search implements homology.Searcher. Every failure wraps homology.ErrSearchFailed.
func (s *Searcher) Search(ctx context.Context, query []byte, db string, p homology.Params) ([]homology.Hit, error) {
	if len(query) == 0 {
		return nil, nil
	}
	bin, err := exec.LookPath(s.opt.Binary)
	if err != nil {
		return nil, homology.Failed(fmt.Errorf("failed to find a BLAST executable %q: %w", s.opt.Binary, err))
	}
	b, err := s.prepare(query, db)
	if err != nil {
		return nil, homology.Failed(err)
	}
	defer os.Remove(b.in)

	if s.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opt.Timeout)
		defer cancel()
	}
	t0 := time.Now()
	out, err := b.run(ctx, bin, p)
	if err != nil {
		return nil, homology.Failed(err)
	}
	hits, err := parse(out)
	if err != nil {
		return nil, homology.Failed(fmt.Errorf("failed to parse BLAST output: %w", err))
	}
	s.opt.Logger.Debug("blastn finished", "db", db, "query_len", len(query), "hits", len(hits), "elapsed", time.Since(t0))
	return homology.Filter(hits, p.MinAlignLength, p.PercIdentity), nil
}

// prepare writes the query FASTA and checks that db exists when it is a file.
func (s *Searcher) prepare(query []byte, db string) (*blastExec, error) {
	b := &blastExec{db: db}
	switch strings.ToLower(filepath.Ext(db)) {
	case ".fa", ".fasta", ".fna":
		if _, err := os.Stat(db); err != nil {
			return nil, fmt.Errorf("failed to find a subject FASTA at %s: %w", db, err)
		}
		b.subject = true
	}
	f, err := os.CreateTemp(s.opt.TmpDir, "chisel-query-*.fa")
	if err != nil {
		return nil, fmt.Errorf("failed at creating BLAST input file: %w", err)
	}
	b.in = f.Name()
	_, werr := fmt.Fprintf(f, ">query\n%s\n", query)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(b.in)
		return nil, fmt.Errorf("failed at writing BLAST input file %s: %w", b.in, werr)
	}
	return b, nil
}

func (b *blastExec) args(p homology.Params) []string {
	args := []string{
		"-task", "blastn",
		"-query", b.in,
		"-outfmt", outfmt,
	}
	if b.subject {
		args = append(args, "-subject", b.db)
	} else {
		args = append(args, "-db", b.db)
		if p.Threads > 0 {
			// -num_threads is rejected together with -subject
			args = append(args, "-num_threads", strconv.Itoa(p.Threads))
		}
	}
	if p.WordSize > 0 {
		args = append(args, "-word_size", strconv.Itoa(p.WordSize))
	}
	if p.PercIdentity > 0 {
		args = append(args, "-perc_identity", strconv.FormatFloat(p.PercIdentity, 'f', -1, 64))
	}
	if p.MaxHits > 0 {
		args = append(args, "-max_target_seqs", strconv.Itoa(p.MaxHits))
	}
	return args
}

// run calls the external blastn binary and returns its stdout
func (b *blastExec) run(ctx context.Context, bin string, p homology.Params) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, b.args(p)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("blastn: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to execute BLAST: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// parse reads tabular output into hits. Coordinates go from 1-based
// inclusive to half-open; a hit on the minus strand of the subject is a
// reverse-strand query location.
func parse(out []byte) ([]homology.Hit, error) {
	var hits []homology.Hit
	sc := bufio.NewScanner(bytes.NewReader(out))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		// comment lines start with a #
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) < 7 {
			return nil, fmt.Errorf("line %d: want 7 columns, got %d", line, len(cols))
		}
		var nums [4]int
		for i := range nums {
			n, err := strconv.Atoi(cols[1+i])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			nums[i] = n
		}
		ident, err := strconv.ParseFloat(cols[5], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		length, err := strconv.Atoi(cols[6])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		qs, qe, ss, se := nums[0], nums[1], nums[2], nums[3]
		if qs > qe {
			qs, qe = qe, qs
		}
		strand := location.Forward
		// direction not guaranteed
		if ss > se {
			ss, se = se, ss
			strand = location.Reverse
		}
		hits = append(hits, homology.Hit{
			Subject:         cols[0],
			Query:           location.Location{Start: qs - 1, End: qe, Strand: strand},
			Target:          location.Location{Start: ss - 1, End: se, Strand: location.Forward},
			PercentIdentity: ident,
			AlignmentLength: length,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// ErrNotInstalled is reported by Available when blastn cannot be found.
var ErrNotInstalled = errors.New("blastn not installed")

// Available checks that the configured binary can be found.
func (s *Searcher) Available() error {
	if _, err := exec.LookPath(s.opt.Binary); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	return nil
}
