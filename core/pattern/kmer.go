package pattern

import (
	"fmt"
	"sort"

	"chisel/core/dna"
	"chisel/core/location"
)

// maxPackedK is the largest k whose 2-bit encoding fits a uint64.
const maxPackedK = 32

// KmerGroup lists every occurrence of one k-mer. With reverse complements
// included, Kmer is the canonical form (the smaller of the k-mer and its
// reverse complement) and occurrences of the other form carry Strand Reverse.
type KmerGroup struct {
	Kmer      string
	Locations []location.Location
}

// IndexKmers groups all k-mers of seq that occur at least minCount times.
// Windows holding non-ACGT symbols are skipped. Groups are ordered by their
// first occurrence.
func IndexKmers(seq []byte, k, minCount int, circular, withRC bool) []KmerGroup {
	n := len(seq)
	if k < 1 || n < k && !circular || n == 0 {
		return nil
	}
	s := upper(seq)
	if circular {
		s = circularView(s, k)
	}
	var groups []KmerGroup
	if k <= maxPackedK {
		groups = indexPacked(s, n, k, withRC)
	} else {
		groups = indexStrings(s, n, k, withRC)
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g.Locations) >= minCount {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return location.Less(out[i].Locations[0], out[j].Locations[0])
	})
	return out
}

// indexPacked is a single rolling pass keeping forward and reverse-complement
// 2-bit codes of the current window.
func indexPacked(s []byte, n, k int, withRC bool) []KmerGroup {
	var mask uint64 = 1<<(2*uint(k)) - 1
	if k == maxPackedK {
		mask = ^uint64(0)
	}
	shift := 2 * uint(k-1)
	type entry struct {
		code uint64
		locs []location.Location
	}
	idx := make(map[uint64]int)
	var entries []entry
	var fwd, rev uint64
	valid := 0
	for i := 0; i < len(s); i++ {
		b := baseIndex(s[i])
		if b < 0 {
			valid, fwd, rev = 0, 0, 0
			continue
		}
		fwd = (fwd<<2 | uint64(b)) & mask
		rev = rev>>2 | uint64(3-b)<<shift
		valid++
		if valid < k {
			continue
		}
		start := i - k + 1
		if start >= n {
			break
		}
		code, strand := fwd, location.Forward
		if withRC && rev < fwd {
			code, strand = rev, location.Reverse
		}
		if withRC && rev == fwd {
			strand = location.None
		}
		j, ok := idx[code]
		if !ok {
			j = len(entries)
			idx[code] = j
			entries = append(entries, entry{code: code})
		}
		entries[j].locs = append(entries[j].locs, location.Location{Start: start, End: start + k, Strand: strand})
	}
	out := make([]KmerGroup, len(entries))
	for i, e := range entries {
		out[i] = KmerGroup{Kmer: decodeKmer(e.code, k), Locations: e.locs}
	}
	return out
}

func decodeKmer(code uint64, k int) string {
	buf := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		buf[i] = "ACGT"[code&3]
		code >>= 2
	}
	return string(buf)
}

func indexStrings(s []byte, n, k int, withRC bool) []KmerGroup {
	idx := make(map[string]int)
	var out []KmerGroup
	for start := 0; start < n && start+k <= len(s); start++ {
		w := s[start : start+k]
		if !dna.IsUnambiguous(w) {
			continue
		}
		key, strand := string(w), location.Forward
		if withRC {
			rc := string(dna.RevComp(w))
			switch {
			case rc < key:
				key, strand = rc, location.Reverse
			case rc == key:
				strand = location.None
			}
		}
		j, ok := idx[key]
		if !ok {
			j = len(out)
			idx[key] = j
			out = append(out, KmerGroup{Kmer: key})
		}
		out[j].Locations = append(out[j].Locations, location.Location{Start: start, End: start + k, Strand: strand})
	}
	return out
}

// RepeatedKmers matches every occurrence of any k-mer present at least
// MinCount times (default 2) in the scanned sequence.
type RepeatedKmers struct {
	K        int
	MinCount int
	// IncludeRC counts a k-mer and its reverse complement as the same k-mer.
	IncludeRC bool
}

// NewRepeatedKmers validates k and builds the matcher.
func NewRepeatedKmers(k int, includeRC bool) (*RepeatedKmers, error) {
	if k < 1 {
		return nil, fmt.Errorf("k-mer length must be positive, got %d", k)
	}
	return &RepeatedKmers{K: k, MinCount: 2, IncludeRC: includeRC}, nil
}

func (r *RepeatedKmers) Name() string { return fmt.Sprintf("repeated_%dmers", r.K) }

// Span is 0: whether a window matches depends on the whole sequence, so the
// matcher cannot be sharded.
func (r *RepeatedKmers) Span() int { return 0 }

func (r *RepeatedKmers) FindMatches(seq []byte, circular bool) []location.Location {
	minCount := r.MinCount
	if minCount < 2 {
		minCount = 2
	}
	var out []location.Location
	for _, g := range IndexKmers(seq, r.K, minCount, circular, r.IncludeRC) {
		out = append(out, g.Locations...)
	}
	location.Sort(out)
	return out
}
