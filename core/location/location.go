// Package location defines the half-open, stranded interval used to address
// regions of a sequence.
package location

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"chisel/core/dna"
)

// ErrInvalidLocation is returned when an interval is malformed (start > end or start < 0).
var ErrInvalidLocation = errors.New("invalid location")

// Strand of a Location. Reverse-strand locations extract the reverse complement.
type Strand int8

const (
	None    Strand = 0
	Forward Strand = 1
	Reverse Strand = -1
)

func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	default:
		return "."
	}
}

// ParseStrand accepts "+", "-", ".", "1", "-1", "0" and the empty string.
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+", "1", "+1", "forward":
		return Forward, nil
	case "-", "-1", "reverse":
		return Reverse, nil
	case "", ".", "0", "none":
		return None, nil
	}
	return None, fmt.Errorf("%w: unknown strand %q", ErrInvalidLocation, s)
}

// Location is the interval [Start, End) on a strand.
//
// In circular topology a location may extend past the origin, in which case
// End is greater than the sequence length (virtual coordinates). Use
// SplitCircular to obtain the linear pieces.
type Location struct {
	Start  int
	End    int
	Strand Strand
}

// New validates and builds a Location.
func New(start, end int, strand Strand) (Location, error) {
	if start < 0 || start > end {
		return Location{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidLocation, start, end)
	}
	return Location{Start: start, End: end, Strand: strand}, nil
}

// MustNew is New for literals known to be valid. It panics otherwise.
func MustNew(start, end int, strand Strand) Location {
	l, err := New(start, end, strand)
	if err != nil {
		panic(err)
	}
	return l
}

// Span returns the forward-or-unstranded location [start, end).
func Span(start, end int) Location { return Location{Start: start, End: end} }

func (l Location) Len() int { return l.End - l.Start }

// Contains reports whether pos lies inside the interval.
func (l Location) Contains(pos int) bool { return pos >= l.Start && pos < l.End }

func (l Location) String() string {
	return fmt.Sprintf("%d-%d(%s)", l.Start, l.End, l.Strand)
}

// Parse reads the String form "start-end(strand)"; the strand suffix is
// optional.
func Parse(s string) (Location, error) {
	s = strings.TrimSpace(s)
	strand := None
	if i := strings.IndexByte(s, '('); i >= 0 && strings.HasSuffix(s, ")") {
		st, err := ParseStrand(s[i+1 : len(s)-1])
		if err != nil {
			return Location{}, err
		}
		strand, s = st, s[:i]
	}
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return Location{}, fmt.Errorf("%w: %q is not start-end", ErrInvalidLocation, s)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(a))
	end, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return Location{}, fmt.Errorf("%w: %q is not start-end", ErrInvalidLocation, s)
	}
	return New(start, end, strand)
}

// Extend grows the location by margin on both sides, clipped to [lo, hi).
func (l Location) Extend(margin, lo, hi int) Location {
	s, e := l.Start-margin, l.End+margin
	if s < lo {
		s = lo
	}
	if e > hi {
		e = hi
	}
	if e < s {
		e = s
	}
	return Location{Start: s, End: e, Strand: l.Strand}
}

// Translate shifts the location by offset.
func (l Location) Translate(offset int) Location {
	return Location{Start: l.Start + offset, End: l.End + offset, Strand: l.Strand}
}

// Overlap returns the intersection of l and o. ok is false when they share no
// position. The strand of l is kept.
func (l Location) Overlap(o Location) (Location, bool) {
	s := max(l.Start, o.Start)
	e := min(l.End, o.End)
	if s >= e {
		return Location{}, false
	}
	return Location{Start: s, End: e, Strand: l.Strand}, true
}

// Intersects reports whether l and o share at least one position.
func (l Location) Intersects(o Location) bool {
	_, ok := l.Overlap(o)
	return ok
}

// Extract returns the slice of seq covered by l, reverse-complemented on the
// reverse strand. Coordinates past len(seq) wrap around the origin.
func (l Location) Extract(seq []byte) []byte {
	n := len(seq)
	var out []byte
	switch {
	case l.End <= n:
		out = append([]byte(nil), seq[l.Start:l.End]...)
	default:
		out = make([]byte, 0, l.Len())
		for i := l.Start; i < l.End; i++ {
			out = append(out, seq[i%n])
		}
	}
	if l.Strand == Reverse {
		return dna.RevComp(out)
	}
	return out
}

// SplitCircular maps a location with virtual coordinates onto a sequence of
// length n, returning one piece, or two when the location crosses the origin.
func (l Location) SplitCircular(n int) []Location {
	if n <= 0 || l.End <= n {
		return []Location{l}
	}
	if l.Start >= n {
		return []Location{{Start: l.Start - n, End: l.End - n, Strand: l.Strand}}
	}
	end := l.End - n
	if end > l.Start {
		// longer than the whole sequence
		return []Location{{Start: 0, End: n, Strand: l.Strand}}
	}
	return []Location{
		{Start: l.Start, End: n, Strand: l.Strand},
		{Start: 0, End: end, Strand: l.Strand},
	}
}

// Less orders locations by start, end, then strand.
func Less(a, b Location) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	return a.Strand < b.Strand
}

// Sort orders locs in place with Less.
func Sort(locs []Location) {
	sort.Slice(locs, func(i, j int) bool { return Less(locs[i], locs[j]) })
}

// MergeOverlapping returns the minimal covering set of locs: any two locations
// that touch or overlap are merged. Strands are ignored unless respectStrand
// is set, in which case only same-strand locations merge. Merged locations of
// mixed strands carry strand None.
func MergeOverlapping(locs []Location, respectStrand bool) []Location {
	if len(locs) == 0 {
		return nil
	}
	in := append([]Location(nil), locs...)
	sort.Slice(in, func(i, j int) bool {
		if respectStrand && in[i].Strand != in[j].Strand {
			return in[i].Strand < in[j].Strand
		}
		return Less(in[i], in[j])
	})
	out := make([]Location, 0, len(in))
	cur := in[0]
	for _, l := range in[1:] {
		sameGroup := !respectStrand || l.Strand == cur.Strand
		if sameGroup && l.Start <= cur.End {
			if l.End > cur.End {
				cur.End = l.End
			}
			if l.Strand != cur.Strand {
				cur.Strand = None
			}
			continue
		}
		out = append(out, cur)
		cur = l
	}
	out = append(out, cur)
	if respectStrand {
		Sort(out)
	}
	return out
}
