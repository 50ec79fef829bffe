package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	homopolymerRe = regexp.MustCompile(`^(\d+)x([ACGTNacgtn])$`)
	tandemRe      = regexp.MustCompile(`^(\d+)x(\d+)mer$`)
	kmerRe        = regexp.MustCompile(`^all_unique_(\d+)mers$`)
)

// Parse turns a pattern shorthand into a matcher:
//
//	"GAATTC", "GGTCTCN"   degenerate sequence (both strands)
//	"BsaI_site"           recognition site of a known enzyme
//	"BsaI+BsmBI_sites"    several enzymes in one pass
//	"9xA", "6xN"          homopolymer of at least 9 A (any base for N)
//	"5x2mer"              any dinucleotide repeated at least 5 times
//	"all_unique_12mers"   every 12-mer present more than once
func Parse(s string) (Matcher, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if name, ok := strings.CutSuffix(s, "_sites"); ok {
		return matcherOrErr(NewEnzymeSet(strings.Split(name, "+")...))
	}
	if name, ok := strings.CutSuffix(s, "_site"); ok {
		return matcherOrErr(EnzymeSite(name))
	}
	if m := homopolymerRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		base := strings.ToUpper(m[2])[0]
		if base == 'N' {
			base = 0
		}
		return matcherOrErr(Homopolymer(base, n))
	}
	if m := tandemRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit, _ := strconv.Atoi(m[2])
		return matcherOrErr(TandemRepeat(unit, n))
	}
	if m := kmerRe.FindStringSubmatch(s); m != nil {
		k, _ := strconv.Atoi(m[1])
		return matcherOrErr(NewRepeatedKmers(k, true))
	}
	d, err := NewDegenerate(s)
	if err != nil {
		return nil, fmt.Errorf("parse pattern %q: %w", s, err)
	}
	return d, nil
}

// matcherOrErr avoids wrapping a nil pointer in a non-nil Matcher.
func matcherOrErr[M Matcher](m M, err error) (Matcher, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}
