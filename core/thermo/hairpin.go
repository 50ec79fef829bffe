package thermo

import "math"

const (
	// MinStem is the shortest stem counted as a hairpin.
	MinStem = 3
	// MinLoop is the fewest unpaired bases closing a hairpin.
	MinLoop = 3
)

// HairpinPenalty scores the strongest self-complementary stem of seq (5'→3').
// Stems of at least MinStem paired bases separated by a loop of MinLoop or more
// count; the score is the stem length scaled up to ×2 when the stem sits
// near the 3' end. Zero means no hairpin.
func HairpinPenalty(seq []byte) float64 {
	stem, prox := longestStem(seq)
	if stem == 0 {
		return 0
	}
	return float64(stem) * (1.0 + math.Min(float64(prox)/8.0, 1.0))
}

// longestStem returns the longest stem and how close to the 3' end its inner
// arm closes (larger is closer).
func longestStem(b []byte) (maxStem, max3Prox int) {
	n := len(b)
	for i := 0; i < n; i++ {
		for j := i + 2*MinStem + MinLoop - 1; j < n; j++ {
			k := 0
			for i+k+MinLoop < j-k && isWC(b[i+k], b[j-k]) {
				k++
			}
			if k < MinStem {
				continue
			}
			p := (n - 1) - (j - k)
			if k > maxStem || (k == maxStem && p > max3Prox) {
				maxStem, max3Prox = k, p
			}
		}
	}
	return maxStem, max3Prox
}

func isWC(p, t byte) bool {
	switch p | 0x20 {
	case 'a':
		return t|0x20 == 't'
	case 't':
		return t|0x20 == 'a'
	case 'c':
		return t|0x20 == 'g'
	case 'g':
		return t|0x20 == 'c'
	default:
		return false
	}
}
