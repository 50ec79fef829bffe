package fasta

import (
	"bufio"
	"io"
)

// LineWidth is the wrap width used by Write.
const LineWidth = 60

// Write emits records in FASTA format, wrapping sequence lines at width
// (LineWidth when width <= 0).
func Write(w io.Writer, width int, recs ...Record) error {
	if width <= 0 {
		width = LineWidth
	}
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		bw.WriteByte('>')
		bw.WriteString(r.ID)
		if r.Description != "" {
			bw.WriteByte(' ')
			bw.WriteString(r.Description)
		}
		bw.WriteByte('\n')
		for i := 0; i < len(r.Seq); i += width {
			bw.Write(r.Seq[i:min(i+width, len(r.Seq))])
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}
