// Package thermo estimates duplex stability with the SantaLucia nearest-neighbour
// model and scores intra-strand hairpin potential.
//
// Units: ΔH in kcal/mol, ΔS in cal/(K·mol), Tm in °C.
package thermo

import (
	"fmt"
	"math"

	"chisel/core/dna"
)

// Rcal is the gas constant in cal/(K·mol).
const Rcal = 1.9872

type nnParams struct {
	dh float64
	ds float64
}

// Watson–Crick stacks (1 M Na+), keyed by the top-strand dinucleotide 5'→3'.
// SantaLucia & Hicks (2004), Table 1. A stack and its reverse complement share values.
var stacks = map[string]nnParams{
	"AA": {-7.6, -21.3}, "TT": {-7.6, -21.3},
	"AT": {-7.2, -20.4},
	"TA": {-7.2, -21.3},
	"CA": {-8.5, -22.7}, "TG": {-8.5, -22.7},
	"GT": {-8.4, -22.4}, "AC": {-8.4, -22.4},
	"CT": {-7.8, -21.0}, "AG": {-7.8, -21.0},
	"GA": {-8.2, -22.2}, "TC": {-8.2, -22.2},
	"CG": {-10.6, -27.2},
	"GC": {-9.8, -24.4},
	"GG": {-8.0, -19.9}, "CC": {-8.0, -19.9},
}

var (
	initDH, initDS       = +0.2, -5.7
	termATDH, termATDS   = +2.2, +6.9
	symmetryDH, symmetry = 0.0, -1.4
)

// Conditions describe the solution a duplex melts in.
type Conditions struct {
	CT float64 // total strand concentration (mol/L)
	Na float64 // monovalent cations (mol/L)
}

// DefaultConditions are 250 nM strands in 50 mM Na+.
var DefaultConditions = Conditions{CT: 250e-9, Na: 0.05}

// Duplex reports the summed thermodynamics of a perfect duplex.
type Duplex struct {
	DH   float64 // kcal/mol
	DS   float64 // cal/(K·mol) at 1 M Na+
	DSNa float64 // salt-corrected ΔS
	TmC  float64
}

// MeltingTemp computes the Tm of seq (5'→3') annealed to its perfect complement.
func MeltingTemp(seq []byte, c Conditions) (Duplex, error) {
	var out Duplex
	n := len(seq)
	if n < 2 {
		return out, fmt.Errorf("%w: melting temperature needs at least 2 bases", dna.ErrInvalidSequence)
	}
	if c.CT <= 0 || c.Na <= 0 {
		return out, fmt.Errorf("thermo: concentrations must be > 0 (CT=%g, Na=%g)", c.CT, c.Na)
	}
	s, err := dna.Normalize(seq)
	if err != nil {
		return out, err
	}

	dh, ds := initDH, initDS
	for i := 0; i < n-1; i++ {
		p := stacks[string(s[i:i+2])]
		dh += p.dh
		ds += p.ds
	}
	for _, end := range []byte{s[0], s[n-1]} {
		if end == 'A' || end == 'T' {
			dh += termATDH
			ds += termATDS
		}
	}
	x := 4.0
	if string(dna.RevComp(s)) == string(s) {
		dh += symmetryDH
		ds += symmetry
		x = 1
	}

	// ΔS([Na+]) = ΔS(1M) + 0.368·(N/2)·ln[Na+], N = 2n−2 phosphates.
	phosphates := float64(2*n - 2)
	dsNa := ds + 0.368*(phosphates/2)*math.Log(c.Na)
	tmK := (dh * 1000) / (dsNa + Rcal*math.Log(c.CT/x))

	out.DH, out.DS, out.DSNa = dh, ds, dsNa
	out.TmC = tmK - 273.15
	return out, nil
}
