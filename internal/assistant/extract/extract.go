// internal/assistant/extract/extract.go

// Package extract pulls structured product attributes out of free-text
// queries. Each product domain has its own extractor; the generic extractor
// runs for every query.
//
// Extracted values are always one of string, float64, bool or []string.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"widget-assistant/internal/assistant/lexicon"
)

// DomainExtractor extracts attributes specific to one product domain.
type DomainExtractor interface {
	Domain() lexicon.Domain
	Extract(folded string) map[string]interface{}
}

// Registry maps domains to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[lexicon.Domain]DomainExtractor
	generic    DomainExtractor
}

// NewRegistry returns a registry with every built-in extractor.
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make(map[lexicon.Domain]DomainExtractor),
		generic:    genericExtractor{},
	}
	r.Register(bikeExtractor{})
	r.Register(tvExtractor{})
	r.Register(laptopExtractor{})
	r.Register(phoneExtractor{})
	r.Register(washerExtractor{})
	r.Register(fridgeExtractor{})
	return r
}

// Register adds or replaces the extractor for its domain.
func (r *Registry) Register(e DomainExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Domain()] = e
}

func (r *Registry) For(d lexicon.Domain) (DomainExtractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[d]
	return e, ok
}

// Domains lists registered domains in sorted order.
func (r *Registry) Domains() []lexicon.Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]lexicon.Domain, 0, len(r.extractors))
	for d := range r.extractors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Extract runs the generic extractor and, when domain is registered, the
// domain extractor. Domain values win on key collisions.
func (r *Registry) Extract(text string, domain lexicon.Domain) map[string]interface{} {
	folded := normalize(text)
	out := r.generic.Extract(folded)
	if e, ok := r.For(domain); ok {
		for k, v := range e.Extract(folded) {
			out[k] = v
		}
	}
	return out
}

func normalize(text string) string {
	s := lexicon.Fold(text)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\u201d", "\"")
	s = strings.ReplaceAll(s, "\u2033", "\"")
	return s
}

// keywordMap maps folded stems to canonical values.
type keywordMap []struct {
	stem  string
	value string
}

// first returns the value of the first stem contained in text.
func (m keywordMap) first(text string) (string, bool) {
	for _, kv := range m {
		if strings.Contains(text, kv.stem) {
			return kv.value, true
		}
	}
	return "", false
}

// all returns the values of every contained stem, deduplicated, in table order.
func (m keywordMap) all(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, kv := range m {
		if strings.Contains(text, kv.stem) && !seen[kv.value] {
			seen[kv.value] = true
			out = append(out, kv.value)
		}
	}
	return out
}

// firstNumber returns the first capture group of re parsed as a float.
func firstNumber(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	return parseNumber(m[1])
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var screenSizeRe = regexp.MustCompile(`(\d{1,3}(?:[.,]\d)?)\s*(?:"|''|palc\w*|inch\w*|in\b)`)

// screenSize accepts values in [min,max] only, which keeps wheel sizes
// out of TV sizes and vice versa.
func screenSize(text string, min, max float64) (float64, bool) {
	for _, m := range screenSizeRe.FindAllStringSubmatch(text, -1) {
		if v, ok := parseNumber(m[1]); ok && v >= min && v <= max {
			return v, true
		}
	}
	return 0, false
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func upper(s string) string {
	return strings.ToUpper(s)
}
