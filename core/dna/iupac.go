// Package dna holds alphabet-level helpers: IUPAC ambiguity masks, complements,
// validation, GC content and the genetic code.
package dna

/* -------------------------- IUPAC lookup table -------------------------- */

// Mask is a 4-bit set of canonical bases: bit0=A bit1=C bit2=G bit3=T.
type Mask uint8

const (
	MaskA Mask = 1
	MaskC Mask = 2
	MaskG Mask = 4
	MaskT Mask = 8
	MaskN Mask = MaskA | MaskC | MaskG | MaskT
)

var iupacMask [256]Mask

func init() {
	set := func(c byte, bits Mask) {
		iupacMask[c] = bits
		iupacMask[c|0x20] = bits // lower case
	}
	set('A', MaskA)
	set('C', MaskC)
	set('G', MaskG)
	set('T', MaskT)
	set('R', MaskA|MaskG) // purine
	set('Y', MaskC|MaskT) // pyrimidine
	set('S', MaskC|MaskG)
	set('W', MaskA|MaskT)
	set('K', MaskG|MaskT)
	set('M', MaskA|MaskC)
	set('B', MaskC|MaskG|MaskT)
	set('D', MaskA|MaskG|MaskT)
	set('H', MaskA|MaskC|MaskT)
	set('V', MaskA|MaskC|MaskG)
	set('N', MaskN)
}

// MaskOf returns the IUPAC mask of c (0 for unknown symbols).
func MaskOf(c byte) Mask { return iupacMask[c] }

// Bases lists the canonical bases allowed by m, in ACGT order.
func (m Mask) Bases() []byte {
	out := make([]byte, 0, 4)
	for i, b := range canonical {
		if m&(1<<i) != 0 {
			out = append(out, b)
		}
	}
	return out
}

// Count is the number of canonical bases in m.
func (m Mask) Count() int {
	n := 0
	for v := m; v != 0; v &= v - 1 {
		n++
	}
	return n
}

var canonical = [4]byte{'A', 'C', 'G', 'T'}

// BaseMatch returns true if pattern symbol p accepts sequence base g according
// to IUPAC ambiguity codes *and* g ∈ {A,C,G,T} (either case).
//
// A sequence 'N' (or any non-ACGT byte) is a hard mismatch so that N-blocks
// never produce spurious hits.
func BaseMatch(g, p byte) bool {
	m := iupacMask[g]
	if m == 0 || m.Count() != 1 {
		return false
	}
	return iupacMask[p]&m != 0
}

// IsACGT reports whether b is an upper-case canonical base.
func IsACGT(b byte) bool { return b == 'A' || b == 'C' || b == 'G' || b == 'T' }

// IsUnambiguous reports whether p only holds canonical upper-case bases.
func IsUnambiguous(p []byte) bool {
	for _, c := range p {
		if !IsACGT(c) {
			return false
		}
	}
	return true
}
