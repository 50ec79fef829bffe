package mutation

import (
	"bytes"
	"fmt"
	"math"
	"math/bits"
	"math/rand"
	"sort"

	"chisel/core/dna"
	"chisel/core/location"
)

// MaxSize is the saturated value of Space.Size.
const MaxSize = math.MaxUint64

// Space is an ordered set of non-overlapping Choices. A space built by
// FromSequence tiles [0, len(seq)) exactly; localized and merged spaces cover
// only their choices.
type Space struct {
	choices []Choice
}

// New validates that choices are sorted, non-empty and non-overlapping.
func New(choices []Choice) (*Space, error) {
	for i, c := range choices {
		if len(c.Variants) == 0 {
			return nil, errEmpty(c.Loc)
		}
		if i > 0 && c.Loc.Start < choices[i-1].Loc.End {
			return nil, fmt.Errorf("%w: choices %s and %s overlap or are unsorted",
				location.ErrInvalidLocation, choices[i-1].Loc, c.Loc)
		}
	}
	return &Space{choices: choices}, nil
}

// FromSequence builds the space of seq under the given restrictions.
//
// Every base starts free (A, C, G or T). Single-base restrictions intersect
// the allowed bases of their position. Multi-base restrictions are then
// applied tightest first (fewest allowed contents relative to 4^len, then
// leftmost): each claims its region as one Choice whose variants are the
// allowed contents compatible with the single-base sets. A multi-base
// restriction overlapping a region already claimed is skipped.
func FromSequence(seq []byte, restrictions []Restriction) (*Space, error) {
	n := len(seq)
	masks := make([]dna.Mask, n)
	for i := range masks {
		masks[i] = dna.MaskN
	}
	var multi []Restriction
	for _, r := range restrictions {
		if err := r.validate(n); err != nil {
			return nil, err
		}
		if r.Loc.Len() > 1 {
			multi = append(multi, r)
			continue
		}
		var m dna.Mask
		for _, a := range r.Allowed {
			if len(a) == 1 {
				m |= dna.MaskOf(a[0])
			}
		}
		masks[r.Loc.Start] &= m
		if masks[r.Loc.Start] == 0 {
			return nil, errEmpty(r.Loc)
		}
	}
	sort.SliceStable(multi, func(i, j int) bool {
		si, sj := tightness(multi[i]), tightness(multi[j])
		if si != sj {
			return si < sj
		}
		return multi[i].Loc.Start < multi[j].Loc.Start
	})

	claimed := make([]bool, n)
	var blocks []Choice
next:
	for _, r := range multi {
		for i := r.Loc.Start; i < r.Loc.End; i++ {
			if claimed[i] {
				continue next
			}
		}
		var vs [][]byte
		for _, a := range r.Allowed {
			if len(a) == r.Loc.Len() && compatible(a, masks[r.Loc.Start:r.Loc.End]) {
				vs = append(vs, a)
			}
		}
		c, err := NewChoice(location.Span(r.Loc.Start, r.Loc.End), vs)
		if err != nil {
			return nil, err
		}
		for i := r.Loc.Start; i < r.Loc.End; i++ {
			claimed[i] = true
		}
		blocks = append(blocks, c)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Loc.Start < blocks[j].Loc.Start })

	choices := make([]Choice, 0, n)
	bi := 0
	for i := 0; i < n; {
		if bi < len(blocks) && blocks[bi].Loc.Start == i {
			choices = append(choices, blocks[bi])
			i = blocks[bi].Loc.End
			bi++
			continue
		}
		bases := masks[i].Bases()
		vs := make([][]byte, len(bases))
		for j, b := range bases {
			vs[j] = []byte{b}
		}
		choices = append(choices, Choice{Loc: location.Span(i, i+1), Variants: vs})
		i++
	}
	return &Space{choices: choices}, nil
}

func tightness(r Restriction) float64 {
	return float64(len(r.Allowed)) / math.Pow(4, float64(r.Loc.Len()))
}

func compatible(v []byte, masks []dna.Mask) bool {
	for i, c := range v {
		if !dna.IsACGT(c) || dna.MaskOf(c)&masks[i] == 0 {
			return false
		}
	}
	return true
}

// Choices returns the choices in order. The slice must not be modified.
func (s *Space) Choices() []Choice { return s.choices }

// Len is the number of choices.
func (s *Space) Len() int { return len(s.choices) }

// Span covers the first to the last choice.
func (s *Space) Span() location.Location {
	if len(s.choices) == 0 {
		return location.Location{}
	}
	return location.Span(s.choices[0].Loc.Start, s.choices[len(s.choices)-1].Loc.End)
}

// Size is the number of distinct sequences the space can produce, saturating
// at MaxSize.
func (s *Space) Size() uint64 {
	size := uint64(1)
	for _, c := range s.choices {
		hi, lo := bits.Mul64(size, uint64(len(c.Variants)))
		if hi != 0 {
			return MaxSize
		}
		size = lo
	}
	return size
}

// Index returns the index of the choice containing pos.
func (s *Space) Index(pos int) (int, bool) {
	i := sort.Search(len(s.choices), func(i int) bool { return s.choices[i].Loc.End > pos })
	if i < len(s.choices) && s.choices[i].Loc.Contains(pos) {
		return i, true
	}
	return 0, false
}

// Intersecting returns the indexes of the choices overlapping loc.
func (s *Space) Intersecting(loc location.Location) []int {
	i := sort.Search(len(s.choices), func(i int) bool { return s.choices[i].Loc.End > loc.Start })
	var out []int
	for ; i < len(s.choices) && s.choices[i].Loc.Start < loc.End; i++ {
		out = append(out, i)
	}
	return out
}

// Free returns the indexes of choices offering more than one variant,
// restricted to those overlapping one of locs when locs is non-empty.
func (s *Space) Free(locs []location.Location) []int {
	var out []int
	if len(locs) == 0 {
		for i, c := range s.choices {
			if !c.Fixed() {
				out = append(out, i)
			}
		}
		return out
	}
	seen := make(map[int]bool)
	for _, l := range locs {
		for _, i := range s.Intersecting(l) {
			if !seen[i] && !s.choices[i].Fixed() {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	sort.Ints(out)
	return out
}

// Restrict intersects the space with r. A choice partly covered by r keeps
// the variants that agree with at least one allowed content on the shared
// positions.
func (s *Space) Restrict(r Restriction) (*Space, error) {
	out := make([]Choice, len(s.choices))
	copy(out, s.choices)
	for _, i := range s.Intersecting(r.Loc) {
		c := out[i]
		ov, _ := c.Loc.Overlap(r.Loc)
		var keep [][]byte
		for _, v := range c.Variants {
			part := v[ov.Start-c.Loc.Start : ov.End-c.Loc.Start]
			for _, a := range r.Allowed {
				if len(a) != r.Loc.Len() {
					continue
				}
				if bytes.Equal(part, a[ov.Start-r.Loc.Start:ov.End-r.Loc.Start]) {
					keep = append(keep, v)
					break
				}
			}
		}
		if len(keep) == 0 {
			return nil, errEmpty(c.Loc)
		}
		out[i] = Choice{Loc: c.Loc, Variants: keep}
	}
	return &Space{choices: out}, nil
}

// Localized returns the sub-space of choices overlapping loc. A choice that
// reaches outside loc keeps only variants matching seq outside loc; if none
// do, it is kept unchanged.
func (s *Space) Localized(loc location.Location, seq []byte) *Space {
	idx := s.Intersecting(loc)
	out := make([]Choice, 0, len(idx))
	for _, i := range idx {
		c := s.choices[i]
		if c.Loc.Start >= loc.Start && c.Loc.End <= loc.End {
			out = append(out, c)
			continue
		}
		var keep [][]byte
		for _, v := range c.Variants {
			if agreesOutside(v, c.Loc, loc, seq) {
				keep = append(keep, v)
			}
		}
		if len(keep) == 0 {
			keep = c.Variants
		}
		out = append(out, Choice{Loc: c.Loc, Variants: keep})
	}
	return &Space{choices: out}
}

func agreesOutside(v []byte, cl, loc location.Location, seq []byte) bool {
	for i := cl.Start; i < cl.End; i++ {
		if loc.Contains(i) {
			continue
		}
		if v[i-cl.Start] != seq[i] {
			return false
		}
	}
	return true
}

// Merge combines two spaces whose choices do not overlap.
func (s *Space) Merge(o *Space) (*Space, error) {
	all := make([]Choice, 0, len(s.choices)+len(o.choices))
	all = append(all, s.choices...)
	all = append(all, o.choices...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Loc.Start < all[j].Loc.Start })
	return New(all)
}

// Covers reports whether the current contents of every choice are legal.
func (s *Space) Covers(seq []byte) bool {
	for _, c := range s.choices {
		if c.Loc.End > len(seq) || !c.Allows(c.Current(seq)) {
			return false
		}
	}
	return true
}

// Enumerate calls visit with every combination of variants, as mutations for
// the non-fixed choices, in lexicographic order of choice then variant. It
// stops when visit returns false. The slice passed to visit is reused.
func (s *Space) Enumerate(visit func([]Mutation) bool) {
	var free []int
	for i, c := range s.choices {
		if !c.Fixed() {
			free = append(free, i)
		}
	}
	muts := make([]Mutation, len(free))
	odo := make([]int, len(free))
	for {
		for k, i := range free {
			c := s.choices[i]
			muts[k] = Mutation{Loc: c.Loc, Seq: c.Variants[odo[k]]}
		}
		if !visit(muts) {
			return
		}
		k := len(free) - 1
		for ; k >= 0; k-- {
			odo[k]++
			if odo[k] < len(s.choices[free[k]].Variants) {
				break
			}
			odo[k] = 0
		}
		if k < 0 {
			return
		}
	}
}

// PickRandom proposes up to n mutations on distinct choices drawn from among
// (all choices when among is nil), each to a variant different from the
// current contents. Choices without an alternative are skipped, so the result
// may be shorter than n or empty.
func (s *Space) PickRandom(rng *rand.Rand, seq []byte, n int, among []int) []Mutation {
	if among == nil {
		among = make([]int, len(s.choices))
		for i := range among {
			among[i] = i
		}
	}
	if len(among) == 0 || n <= 0 {
		return nil
	}
	var picked []int
	if n >= len(among) {
		picked = append(picked, among...)
	} else if n == 1 {
		picked = []int{among[rng.Intn(len(among))]}
	} else {
		for _, j := range rng.Perm(len(among))[:n] {
			picked = append(picked, among[j])
		}
	}
	var out []Mutation
	for _, i := range picked {
		c := s.choices[i]
		alts := c.Alternatives(seq)
		if len(alts) == 0 {
			continue
		}
		out = append(out, Mutation{Loc: c.Loc, Seq: alts[rng.Intn(len(alts))]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Loc.Start < out[j].Loc.Start })
	return out
}
