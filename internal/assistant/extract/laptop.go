// internal/assistant/extract/laptop.go

package extract

import (
	"regexp"

	"widget-assistant/internal/assistant/lexicon"
)

var (
	ramRe     = regexp.MustCompile(`(\d{1,3})\s*gb\s*(?:ram|pamet\w*|memory|operacni)|(?:ram|pamet\w*|memory)\D{0,8}?(\d{1,3})\s*gb`)
	storageRe = regexp.MustCompile(`(\d{1,4})\s*(gb|tb)\s*(?:ssd|nvme|hdd|uloziste|disk|storage)|(?:ssd|nvme|disk|uloziste|storage)\D{0,8}?(\d{1,4})\s*(gb|tb)`)
)

var cpuFamilies = keywordMap{
	{"ryzen", "AMD Ryzen"},
	{"i9", "Intel Core i9"},
	{"i7", "Intel Core i7"},
	{"i5", "Intel Core i5"},
	{"i3", "Intel Core i3"},
	{"core ultra", "Intel Core Ultra"},
	{"m4", "Apple M4"},
	{"m3", "Apple M3"},
	{"m2", "Apple M2"},
	{"m1", "Apple M1"},
	{"snapdragon", "Snapdragon"},
}

var laptopUseCases = keywordMap{
	{"hran", "gaming"},
	{"gaming", "gaming"},
	{"herni", "gaming"},
	{"program", "development"},
	{"vyvoj", "development"},
	{"coding", "development"},
	{"development", "development"},
	{"kancelar", "office"},
	{"office", "office"},
	{"prace", "office"},
	{"skol", "study"},
	{"studi", "study"},
	{"student", "study"},
	{"grafik", "creative"},
	{"strih", "creative"},
	{"video", "creative"},
	{"design", "creative"},
}

type laptopExtractor struct{}

func (laptopExtractor) Domain() lexicon.Domain { return lexicon.DomainLaptop }

func (laptopExtractor) Extract(s string) map[string]interface{} {
	out := make(map[string]interface{})
	if v, ok := ramGB(s); ok {
		out["ram_gb"] = v
	}
	if v, ok := storageGB(s); ok {
		out["storage_gb"] = v
	}
	if v, ok := screenSize(s, 10, 18); ok {
		out["screen_size_inch"] = v
	}
	if cpu, ok := cpuFamilies.first(wordPadded(s)); ok {
		out["cpu_family"] = cpu
	}
	if u, ok := laptopUseCases.first(s); ok {
		out["use_case"] = u
	}
	return out
}

func ramGB(s string) (float64, bool) {
	m := ramRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	if m[1] != "" {
		return parseNumber(m[1])
	}
	return parseNumber(m[2])
}

// storageGB normalises terabytes to gigabytes.
func storageGB(s string) (float64, bool) {
	m := storageRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num, unit := m[1], m[2]
	if num == "" {
		num, unit = m[3], m[4]
	}
	v, ok := parseNumber(num)
	if !ok {
		return 0, false
	}
	if unit == "tb" {
		v *= 1024
	}
	return v, true
}
