package pretty

import (
	"fmt"
	"strings"
)

// Options control the ASCII rendering of an original/final comparison.
type Options struct {
	// Bases per block. If <=0, use default (60).
	Width int

	// Only print blocks that contain at least one change.
	ChangedOnly bool

	// Glyphs
	ChangeGlyph string // default "|"
	SameGlyph   string // default " "
}

// DefaultOptions is what the text report uses.
var DefaultOptions = Options{
	Width:       60,
	ChangedOnly: true,
	ChangeGlyph: "|",
	SameGlyph:   " ",
}

const linePrefix = "# "

func (o Options) normalized() Options {
	if o.Width <= 0 {
		o.Width = 60
	}
	if o.ChangeGlyph == "" {
		o.ChangeGlyph = "|"
	}
	if o.SameGlyph == "" {
		o.SameGlyph = " "
	}
	return o
}

// RenderDiff draws original over final in fixed-width blocks with a marker
// row between them flagging changed positions. Positions in the left margin
// are 1-based. Sequences of different length are compared over the shorter.
func RenderDiff(original, final string, opt Options) string {
	opt = opt.normalized()
	n := min(len(original), len(final))
	pad := len(fmt.Sprint(n))

	var b strings.Builder
	for start := 0; start < n; start += opt.Width {
		end := min(start+opt.Width, n)
		var marks strings.Builder
		changed := false
		for i := start; i < end; i++ {
			if original[i] != final[i] {
				marks.WriteString(opt.ChangeGlyph)
				changed = true
			} else {
				marks.WriteString(opt.SameGlyph)
			}
		}
		if opt.ChangedOnly && !changed {
			continue
		}
		fmt.Fprintf(&b, "%s%*d %s\n", linePrefix, pad, start+1, original[start:end])
		fmt.Fprintf(&b, "%s%*s %s\n", linePrefix, pad, "", strings.TrimRight(marks.String(), " "))
		fmt.Fprintf(&b, "%s%*d %s\n", linePrefix, pad, start+1, final[start:end])
		b.WriteString(linePrefix + "\n")
	}
	return b.String()
}
