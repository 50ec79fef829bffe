package dna

import (
	"fmt"
	"sort"
)

// Stop is the amino-acid symbol used for stop codons.
const Stop = '*'

// standardCode maps codons to one-letter amino acids (NCBI table 1).
var standardCode = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"TAT": 'Y', "TAC": 'Y', "TAA": Stop, "TAG": Stop,
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"TGT": 'C', "TGC": 'C', "TGA": Stop, "TGG": 'W',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// GeneticCode translates codons and lists synonymous codons.
type GeneticCode struct {
	Name     string
	forward  map[string]byte
	backward map[byte][]string
}

// NewGeneticCode builds a code from a codon → amino-acid map.
func NewGeneticCode(name string, table map[string]byte) *GeneticCode {
	gc := &GeneticCode{Name: name, forward: table, backward: make(map[byte][]string)}
	for codon, aa := range table {
		gc.backward[aa] = append(gc.backward[aa], codon)
	}
	for aa := range gc.backward {
		sort.Strings(gc.backward[aa])
	}
	return gc
}

// Standard is the standard genetic code (NCBI table 1).
var Standard = NewGeneticCode("Standard", standardCode)

// Translate returns the amino acid for codon, or 'X' when unknown.
func (gc *GeneticCode) Translate(codon []byte) byte {
	if aa, ok := gc.forward[string(codon)]; ok {
		return aa
	}
	return 'X'
}

// TranslateSeq translates seq codon by codon; trailing bases are an error.
func (gc *GeneticCode) TranslateSeq(seq []byte) ([]byte, error) {
	if len(seq)%3 != 0 {
		return nil, fmt.Errorf("%w: coding length %d is not a multiple of 3", ErrInvalidSequence, len(seq))
	}
	out := make([]byte, 0, len(seq)/3)
	for i := 0; i+3 <= len(seq); i += 3 {
		out = append(out, gc.Translate(seq[i:i+3]))
	}
	return out, nil
}

// Synonyms lists the codons encoding aa, sorted.
func (gc *GeneticCode) Synonyms(aa byte) []string { return gc.backward[aa] }

// AminoAcids lists the amino acids of the code, sorted.
func (gc *GeneticCode) AminoAcids() []byte {
	out := make([]byte, 0, len(gc.backward))
	for aa := range gc.backward {
		out = append(out, aa)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
