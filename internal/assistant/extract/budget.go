// internal/assistant/extract/budget.go

package extract

import (
	"regexp"
	"strings"
)

// Budget is a price range mentioned in text. A nil bound was not mentioned.
type Budget struct {
	Min *float64
	Max *float64
}

func (b Budget) Empty() bool {
	return b.Min == nil && b.Max == nil
}

const (
	// "1,500" and "1 500" group thousands; ",50" is a decimal only when no
	// digit follows it
	numPat      = `(?:\$|€)?\s*(\d{1,3}(?:[ .,]\d{3})+|\d+)(?:,(\d{1,2})\b)?(?:\s*(k|tis|tisic|tisice|thousand)\b)?`
	currencyPat = `(?:\s*(?:kc|czk|eur|€|usd|\$|,-))?`
)

var (
	budgetRangeRe = regexp.MustCompile(`\b(?:mezi|between|od|from)\s+` + numPat + currencyPat +
		`\s*(?:a|and|do|to|-|–)\s*` + numPat)
	budgetBareRangeRe = regexp.MustCompile(numPat + `\s*(?:-|–)\s*` + numPat + `\s*(?:kc|czk|eur|€|usd|\$)`)
	budgetMaxRe       = regexp.MustCompile(`(?:\bdo|\bpod|maximalne|max\.?|nejvyse|under|below|up to|less than|at most|budget(?: of| is)?|rozpocet(?: je| mam)?)\s*` + numPat)
	budgetMinRe       = regexp.MustCompile(`(?:\bod|\bnad|minimalne|alespon|aspon|over|above|\bfrom|at least|more than)\s*` + numPat)

	// a number followed by one of these is a measurement, not a price
	unitSuffixRe = regexp.MustCompile(`^\s*(?:kg|g\b|cm|mm|m\b|palc|"|''|inch|in\b|gb|tb|mb|l\b|litr|hz|w\b|kw|mah|mpx|mp\b|ot|rpm|km|h\b|hod|let|rok|dn|den|min|x\b|%)`)
)

// ParseBudget finds a price range in text. It recognises Czech and English
// phrasing such as "do 20 000 Kč", "od 5000", "mezi 10 a 15 tisíc",
// "under $500" and "20k". ok is false when nothing was found.
func ParseBudget(text string) (Budget, bool) {
	s := normalize(text)
	var b Budget

	if m := matchOutsideUnits(budgetRangeRe, s); m != nil {
		lo, loMul := numberFromGroups(m[1], m[2], m[3])
		hi, hiMul := numberFromGroups(m[4], m[5], m[6])
		if hiMul > 1 && loMul == 1 && lo*hiMul <= hi {
			lo *= hiMul
		}
		b.Min, b.Max = &lo, &hi
		return b, true
	}
	if m := matchOutsideUnits(budgetBareRangeRe, s); m != nil {
		lo, loMul := numberFromGroups(m[1], m[2], m[3])
		hi, hiMul := numberFromGroups(m[4], m[5], m[6])
		if hiMul > 1 && loMul == 1 && lo*hiMul <= hi {
			lo *= hiMul
		}
		b.Min, b.Max = &lo, &hi
		return b, true
	}
	if m := matchOutsideUnits(budgetMaxRe, s); m != nil {
		v, _ := numberFromGroups(m[1], m[2], m[3])
		b.Max = &v
	}
	if m := matchOutsideUnits(budgetMinRe, s); m != nil {
		v, _ := numberFromGroups(m[1], m[2], m[3])
		b.Min = &v
	}
	return b, !b.Empty()
}

// matchOutsideUnits returns the submatches of the first match of re that is
// not directly followed by a measurement unit.
func matchOutsideUnits(re *regexp.Regexp, s string) []string {
	for _, idx := range re.FindAllStringSubmatchIndex(s, -1) {
		if unitSuffixRe.MatchString(s[idx[1]:]) {
			continue
		}
		groups := make([]string, len(idx)/2)
		for g := 0; g < len(groups); g++ {
			if idx[2*g] >= 0 {
				groups[g] = s[idx[2*g]:idx[2*g+1]]
			}
		}
		return groups
	}
	return nil
}

// numberFromGroups joins integer, decimal and multiplier captures.
func numberFromGroups(intPart, decPart, mult string) (float64, float64) {
	digits := strings.NewReplacer(" ", "", ".", "", ",", "").Replace(intPart)
	if decPart != "" {
		digits += "." + decPart
	}
	v, ok := parseNumber(digits)
	if !ok {
		return 0, 1
	}
	multiplier := 1.0
	if mult != "" {
		multiplier = 1000
	}
	return v * multiplier, multiplier
}
