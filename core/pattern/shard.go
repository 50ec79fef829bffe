package pattern

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"chisel/core/location"
)

// ShardOptions controls ScanSharded.
type ShardOptions struct {
	Size    int // bases per shard, excluding overlap; <= 0 disables sharding
	Workers int // concurrent shards; <= 0 uses GOMAXPROCS
}

// Overlap is how far a shard must read past its end so that no occurrence of
// a matcher with the given span is split at a boundary.
func Overlap(span int) int {
	if span <= 1 {
		return 0
	}
	return span - 1
}

// ScanSharded returns the same locations as m.FindMatches(seq, circular) but
// scans long sequences as overlapping shards in parallel. Matchers with an
// unbounded Span are scanned in one piece.
func ScanSharded(ctx context.Context, m Matcher, seq []byte, circular bool, opt ShardOptions) ([]location.Location, error) {
	n := len(seq)
	span := m.Span()
	if opt.Size <= 0 || span <= 0 || n <= opt.Size || span > opt.Size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return m.FindMatches(seq, circular), nil
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ov := Overlap(span)
	nShards := (n + opt.Size - 1) / opt.Size
	parts := make([][]location.Location, nShards+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < nShards; i++ {
		lo := i * opt.Size
		hi := min(lo+opt.Size, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			end := min(hi+ov, n)
			var keep []location.Location
			for _, l := range m.FindMatches(seq[lo:end], false) {
				if l.Start < hi-lo {
					keep = append(keep, l.Translate(lo))
				}
			}
			parts[i] = keep
			return nil
		})
	}
	if circular && ov > 0 && ov <= n {
		// junction: the last ov bases followed by the first ov bases
		g.Go(func() error {
			j := make([]byte, 0, 2*ov)
			j = append(j, seq[n-ov:]...)
			j = append(j, seq[:ov]...)
			var keep []location.Location
			for _, l := range m.FindMatches(j, false) {
				abs := l.Translate(n - ov)
				if abs.End > n && abs.Start < n {
					keep = append(keep, abs)
				}
			}
			parts[nShards] = keep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []location.Location
	for _, p := range parts {
		out = append(out, p...)
	}
	location.Sort(out)
	return dedupe(out), nil
}
