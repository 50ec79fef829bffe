package homology

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"chisel/core/dna"
	"chisel/core/location"
)

// Record is one database sequence.
type Record struct {
	ID  string
	Seq []byte
}

// MemoryDB is an in-process Searcher reporting maximal exact matches (100%
// identity) on both strands. It needs no external tools.
type MemoryDB struct {
	mu  sync.RWMutex
	dbs map[string][]Record
}

func NewMemoryDB() *MemoryDB { return &MemoryDB{dbs: make(map[string][]Record)} }

// Add appends records to the named database. Sequences are upper-cased.
func (m *MemoryDB) Add(db string, recs ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.dbs[db] = append(m.dbs[db], Record{ID: r.ID, Seq: bytes.ToUpper(r.Seq)})
	}
}

const maxSeed = 16

func seedLen(p Params) int {
	switch {
	case p.MinAlignLength > 0 && p.MinAlignLength <= maxSeed:
		return p.MinAlignLength
	case p.MinAlignLength > maxSeed:
		return maxSeed
	case p.WordSize > 0:
		return p.WordSize
	}
	return 11
}

func (m *MemoryDB) Search(ctx context.Context, query []byte, db string, p Params) ([]Hit, error) {
	m.mu.RLock()
	recs, ok := m.dbs[db]
	m.mu.RUnlock()
	if !ok {
		return nil, Failed(fmt.Errorf("unknown database %q", db))
	}
	q := bytes.ToUpper(query)
	k := seedLen(p)
	if len(q) < k {
		return nil, nil
	}
	fwdSeeds := seedIndex(q, k)
	rc := dna.RevComp(q)
	rcSeeds := seedIndex(rc, k)

	var hits []Hit
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return nil, Failed(err)
		}
		hits = append(hits, exactMatches(q, r, fwdSeeds, k, p.MinAlignLength, location.Forward)...)
		for _, h := range exactMatches(rc, r, rcSeeds, k, p.MinAlignLength, location.Reverse) {
			n := len(q)
			h.Query = location.Location{Start: n - h.Query.End, End: n - h.Query.Start, Strand: location.Reverse}
			hits = append(hits, h)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return location.Less(hits[i].Query, hits[j].Query) })
	if p.MaxHits > 0 && len(hits) > p.MaxHits {
		hits = hits[:p.MaxHits]
	}
	return hits, nil
}

func seedIndex(q []byte, k int) map[string][]int {
	idx := make(map[string][]int)
	for i := 0; i+k <= len(q); i++ {
		w := q[i : i+k]
		if !dna.IsUnambiguous(w) {
			continue
		}
		idx[string(w)] = append(idx[string(w)], i)
	}
	return idx
}

// exactMatches reports left- and right-maximal exact matches between q and
// rec that are at least minLen long.
func exactMatches(q []byte, rec Record, seeds map[string][]int, k, minLen int, strand location.Strand) []Hit {
	var out []Hit
	s := rec.Seq
	for j := 0; j+k <= len(s); j++ {
		for _, i := range seeds[string(s[j:j+k])] {
			if i > 0 && j > 0 && q[i-1] == s[j-1] {
				continue // not left-maximal, found from an earlier seed
			}
			l := k
			for i+l < len(q) && j+l < len(s) && q[i+l] == s[j+l] {
				l++
			}
			if l < minLen {
				continue
			}
			out = append(out, Hit{
				Subject:         rec.ID,
				Query:           location.Location{Start: i, End: i + l, Strand: strand},
				Target:          location.Location{Start: j, End: j + l, Strand: location.Forward},
				PercentIdentity: 100,
				AlignmentLength: l,
			})
		}
	}
	return out
}
