// internal/assistant/extract/appliances.go

package extract

import (
	"regexp"

	"widget-assistant/internal/assistant/lexicon"
)

var (
	capacityKgRe = regexp.MustCompile(`(\d{1,2}(?:[.,]\d)?)\s*kg`)
	spinRe       = regexp.MustCompile(`(\d{3,4})\s*(?:ot\w*|rpm)`)
	volumeRe     = regexp.MustCompile(`(\d{2,3})\s*(?:l\b|litr\w*|liter\w*)`)
)

var washerLoading = keywordMap{
	{"predni", "front"},
	{"predem", "front"},
	{"front", "front"},
	{"horni", "top"},
	{"vrchem", "top"},
	{"shora", "top"},
	{"top", "top"},
}

var fridgeTypes = keywordMap{
	{"americk", "side-by-side"},
	{"side by side", "side-by-side"},
	{"side-by-side", "side-by-side"},
	{"kombinovan", "combi"},
	{"combi", "combi"},
	{"vestav", "built-in"},
	{"built-in", "built-in"},
	{"monoklimat", "single-door"},
}

type washerExtractor struct{}

func (washerExtractor) Domain() lexicon.Domain { return lexicon.DomainWasher }

func (washerExtractor) Extract(s string) map[string]interface{} {
	out := make(map[string]interface{})
	if v, ok := firstNumber(capacityKgRe, s); ok && v >= 3 && v <= 15 {
		out["capacity_kg"] = v
	}
	if v, ok := firstNumber(spinRe, s); ok && v >= 400 && v <= 2000 {
		out["spin_rpm"] = v
	}
	if l, ok := washerLoading.first(s); ok {
		out["loading"] = l
	}
	if containsAny(s, "susick", "dryer", "se susen", "washer dryer") {
		out["dryer"] = true
	}
	return out
}

type fridgeExtractor struct{}

func (fridgeExtractor) Domain() lexicon.Domain { return lexicon.DomainFridge }

func (fridgeExtractor) Extract(s string) map[string]interface{} {
	out := make(map[string]interface{})
	if v, ok := firstNumber(volumeRe, s); ok && v >= 40 && v <= 900 {
		out["volume_l"] = v
	}
	if containsAny(s, "mrazak", "mraznick", "freezer") {
		out["freezer"] = true
	}
	if containsAny(s, "no frost", "nofrost", "no-frost", "beznamraz") {
		out["no_frost"] = true
	}
	if t, ok := fridgeTypes.first(s); ok {
		out["type"] = t
	}
	return out
}
