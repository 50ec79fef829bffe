// Package mutation models which edits the solver may make: a Space tiles a
// sequence with Choices, each a region and the contents it may take.
package mutation

import (
	"bytes"
	"errors"
	"sort"

	"chisel/core/location"
)

// ErrEmptyMutationSpace is returned when restrictions leave a region with no
// legal contents.
var ErrEmptyMutationSpace = errors.New("empty mutation space")

// Choice is a region of the sequence and its legal contents. Variants are
// sorted, unique and as long as the region.
type Choice struct {
	Loc      location.Location
	Variants [][]byte
}

// NewChoice sorts and deduplicates variants. Variants of the wrong length are
// dropped; an empty result yields ErrEmptyMutationSpace.
func NewChoice(loc location.Location, variants [][]byte) (Choice, error) {
	vs := normalizeVariants(loc.Len(), variants)
	if len(vs) == 0 {
		return Choice{}, errEmpty(loc)
	}
	return Choice{Loc: loc, Variants: vs}, nil
}

func normalizeVariants(n int, variants [][]byte) [][]byte {
	out := make([][]byte, 0, len(variants))
	for _, v := range variants {
		if len(v) == n {
			out = append(out, bytes.ToUpper(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	uniq := out[:0]
	for i, v := range out {
		if i == 0 || !bytes.Equal(v, out[i-1]) {
			uniq = append(uniq, v)
		}
	}
	return uniq
}

// Fixed reports whether the choice allows a single content.
func (c Choice) Fixed() bool { return len(c.Variants) <= 1 }

// Allows reports whether v is one of the variants.
func (c Choice) Allows(v []byte) bool {
	i := sort.Search(len(c.Variants), func(i int) bool { return bytes.Compare(c.Variants[i], v) >= 0 })
	return i < len(c.Variants) && bytes.Equal(c.Variants[i], v)
}

// Current returns the slice of seq the choice covers.
func (c Choice) Current(seq []byte) []byte { return seq[c.Loc.Start:c.Loc.End] }

// Alternatives returns the variants that differ from the current contents.
func (c Choice) Alternatives(seq []byte) [][]byte {
	cur := c.Current(seq)
	out := make([][]byte, 0, len(c.Variants))
	for _, v := range c.Variants {
		if !bytes.Equal(v, cur) {
			out = append(out, v)
		}
	}
	return out
}

// Mutation replaces the contents of Loc with Seq.
type Mutation struct {
	Loc location.Location
	Seq []byte
}

// Apply writes the mutations into seq in place and returns the mutations
// that undo them, in reverse order.
func Apply(seq []byte, muts []Mutation) []Mutation {
	undo := make([]Mutation, len(muts))
	for i, m := range muts {
		prev := append([]byte(nil), seq[m.Loc.Start:m.Loc.End]...)
		copy(seq[m.Loc.Start:m.Loc.End], m.Seq)
		undo[len(muts)-1-i] = Mutation{Loc: m.Loc, Seq: prev}
	}
	return undo
}

// Span returns the smallest location covering all mutations.
func Span(muts []Mutation) (location.Location, bool) {
	if len(muts) == 0 {
		return location.Location{}, false
	}
	out := muts[0].Loc
	for _, m := range muts[1:] {
		out.Start = min(out.Start, m.Loc.Start)
		out.End = max(out.End, m.Loc.End)
	}
	out.Strand = location.None
	return out, true
}
