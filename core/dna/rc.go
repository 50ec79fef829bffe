package dna

var complement [256]byte

func init() {
	pairs := []struct{ a, b byte }{
		{'A', 'T'}, {'C', 'G'}, {'R', 'Y'}, {'S', 'S'}, {'W', 'W'},
		{'K', 'M'}, {'B', 'V'}, {'D', 'H'}, {'N', 'N'},
	}
	for _, p := range pairs {
		complement[p.a], complement[p.b] = p.b, p.a
		complement[p.a|0x20], complement[p.b|0x20] = p.b|0x20, p.a|0x20
	}
}

// Complement returns the IUPAC complement of b ('N' for unknown symbols).
func Complement(b byte) byte {
	if c := complement[b]; c != 0 {
		return c
	}
	return 'N'
}

// RevComp returns the reverse complement of seq in a new slice.
func RevComp(seq []byte) []byte {
	n := len(seq)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = Complement(seq[n-1-i])
	}
	return out
}

// RevCompString is RevComp over strings.
func RevCompString(s string) string { return string(RevComp([]byte(s))) }
