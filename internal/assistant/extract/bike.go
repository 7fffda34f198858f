// internal/assistant/extract/bike.go

package extract

import (
	"regexp"

	"widget-assistant/internal/assistant/lexicon"
)

var bikeTypes = keywordMap{
	{"celoodpruzen", "mountain"},
	{"horsk", "mountain"},
	{"mtb", "mountain"},
	{"mountain", "mountain"},
	{"silnic", "road"},
	{"road", "road"},
	{"gravel", "gravel"},
	{"trek", "trekking"},
	{"crossov", "trekking"},
	{"mestsk", "city"},
	{"city", "city"},
	{"elektro", "electric"},
	{"e-bike", "electric"},
	{"ebike", "electric"},
	{"electric", "electric"},
	{"detsk", "kids"},
	{"kids", "kids"},
}

var frameMaterials = keywordMap{
	{"karbon", "carbon"},
	{"carbon", "carbon"},
	{"hlinik", "aluminium"},
	{"alu ", "aluminium"},
	{"aluminium", "aluminium"},
	{"ocel", "steel"},
	{"steel", "steel"},
	{"titan", "titanium"},
}

var (
	frameSizeRe   = regexp.MustCompile(`\b(?:ram\w*|frame)\s+(?:velikost\w*\s+|size\s+)?(xxl|xl|xs|\d{2}(?:[.,]\d)?)\b`)
	frameLetterRe = regexp.MustCompile(`\b(?:velikost\w*|size)\s+(xxl|xl|xs|s|m|l)\b`)
	wheelInchRe   = regexp.MustCompile(`(?:kol\w*|wheel\w*|pl[aá]st\w*)\s*(\d{2}(?:[.,]\d)?)\b`)
	wheelFormatRe = regexp.MustCompile(`\b(27[.,]5|29|26|28|24|20|16|12)\s*(?:"|''|palc\w*|inch\w*|er\b)`)
)

type bikeExtractor struct{}

func (bikeExtractor) Domain() lexicon.Domain { return lexicon.DomainBike }

func (bikeExtractor) Extract(s string) map[string]interface{} {
	out := make(map[string]interface{})
	if t, ok := bikeTypes.first(s); ok {
		out["bike_type"] = t
	}
	if v, ok := firstNumber(wheelFormatRe, s); ok {
		out["wheel_size"] = v
	} else if v, ok := firstNumber(wheelInchRe, s); ok && v >= 12 && v <= 29 {
		out["wheel_size"] = v
	}
	if m := frameSizeRe.FindStringSubmatch(s); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			out["frame_size"] = v
		} else {
			out["frame_size"] = upper(m[1])
		}
	} else if m := frameLetterRe.FindStringSubmatch(s); m != nil {
		out["frame_size"] = upper(m[1])
	}
	if mat, ok := frameMaterials.first(wordPadded(s)); ok {
		out["frame_material"] = mat
	}

	var features []string
	switch {
	case containsAny(s, "celoodpruzen", "full suspension", "full-suspension"):
		features = append(features, "celoodpružení")
	case containsAny(s, "odpruzen", "suspension", "vidlic"):
		features = append(features, "odpružení")
	}
	if containsAny(s, "kotoucov", "disc brake", "hydraulick") {
		features = append(features, "kotoučové brzdy")
	}
	if containsAny(s, "blatnik", "fender") {
		features = append(features, "blatníky")
	}
	if containsAny(s, "nosic", "rack") {
		features = append(features, "nosič")
	}
	if containsAny(s, "svetl", "light") {
		features = append(features, "světla")
	}
	if len(features) > 0 {
		out["bike_features"] = features
	}
	return out
}
