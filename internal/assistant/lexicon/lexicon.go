// internal/assistant/lexicon/lexicon.go

// Package lexicon holds the static vocabulary shared by the extractor,
// the knowledge base and the intent rules.
package lexicon

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Domain identifies a product family with its own attribute extractor.
type Domain string

const (
	DomainBike    Domain = "bike"
	DomainTV      Domain = "tv"
	DomainLaptop  Domain = "laptop"
	DomainPhone   Domain = "phone"
	DomainWasher  Domain = "washer"
	DomainFridge  Domain = "fridge"
	DomainGeneric Domain = "generic"
)

type domainStems struct {
	domain Domain
	stems  []string
}

// domainKeywords are device nouns matched against a folded query.
var domainKeywords = []domainStems{
	{DomainBike, []string{"kolo", "kola", "bike", "bicycle", "ebike", "e-bike", "cyklo"}},
	{DomainTV, []string{"televiz", "televize", "tv", "television"}},
	{DomainLaptop, []string{"notebook", "laptop", "ultrabook", "macbook"}},
	{DomainPhone, []string{"telefon", "mobil", "smartphone", "phone", "iphone"}},
	{DomainWasher, []string{"pracka", "washer", "washing machine"}},
	{DomainFridge, []string{"lednic", "chladnick", "fridge", "refrigerator", "mraznick"}},
}

// domainHints are display and feature terms shared by several product
// families. They decide only when no device noun is present.
var domainHints = []domainStems{
	{DomainTV, []string{"oled", "qled"}},
}

// DetectDomain returns the first domain whose device noun occurs in text,
// falling back to feature hints.
func DetectDomain(text string) (Domain, bool) {
	folded := Fold(text)
	tokens := Tokens(folded)
	if d, ok := matchDomain(domainKeywords, folded, tokens); ok {
		return d, true
	}
	return matchDomain(domainHints, folded, tokens)
}

func matchDomain(table []domainStems, folded string, tokens []string) (Domain, bool) {
	for _, dk := range table {
		for _, stem := range dk.stems {
			if strings.Contains(stem, " ") {
				if strings.Contains(folded, stem) {
					return dk.domain, true
				}
				continue
			}
			// stems match token prefixes; short ones such as "tv" whole tokens only
			for _, tok := range tokens {
				if tok == stem || (len(stem) > 3 && strings.HasPrefix(tok, stem)) {
					return dk.domain, true
				}
			}
		}
	}
	return "", false
}

// DomainCategory is the catalog category implied by a domain.
func DomainCategory(d Domain) string {
	switch d {
	case DomainBike:
		return "kolo"
	case DomainTV:
		return "televize"
	case DomainLaptop:
		return "notebook"
	case DomainPhone:
		return "telefon"
	case DomainWasher:
		return "pračka"
	case DomainFridge:
		return "lednice"
	default:
		return ""
	}
}

// synonymGroups are equivalence classes of category and feature terms.
// A term may appear in several groups.
var synonymGroups = [][]string{
	{"kola", "kolo", "jízdní kola", "bike", "bikes", "bicycle"},
	{"horská kola", "horské kolo", "mtb", "mountain bike"},
	{"elektrokola", "elektrokolo", "e-bike", "ebike"},
	{"televize", "televizory", "tv", "televizor", "television"},
	{"notebooky", "notebook", "laptop", "laptopy", "počítač"},
	{"telefony", "telefon", "mobily", "mobil", "smartphone", "phone"},
	{"pračky", "pračka", "washer", "washing machine"},
	{"lednice", "lednička", "chladnička", "fridge", "refrigerator"},
	{"příslušenství", "doplňky", "accessories", "accessory"},
	{"helmy", "helma", "přilba", "helmet"},
	{"odpružení", "suspension", "odpružená vidlice"},
	{"wifi", "wi-fi", "wireless"},
	{"bluetooth", "bt"},
	{"sluchátka", "headphones", "earphones"},
	{"nabíječka", "charger", "adaptér", "adapter"},
	{"obal", "pouzdro", "case", "kryt", "cover"},
}

var (
	synonymOnce  sync.Once
	synonymIndex map[string][]string
)

func buildSynonymIndex() {
	synonymIndex = make(map[string][]string)
	for _, group := range synonymGroups {
		for _, term := range group {
			key := Fold(term)
			for _, other := range group {
				if Fold(other) != key {
					synonymIndex[key] = appendUnique(synonymIndex[key], strings.ToLower(other))
				}
			}
		}
	}
	for k := range synonymIndex {
		sort.Strings(synonymIndex[k])
	}
}

// Synonyms returns every term sharing a group with term, excluding term.
// The relation is symmetric.
func Synonyms(term string) []string {
	synonymOnce.Do(buildSynonymIndex)
	out := synonymIndex[Fold(term)]
	cp := make([]string, len(out))
	copy(cp, out)
	return cp
}

// AreSynonyms reports whether a and b are equal after folding or share a group.
func AreSynonyms(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	if fa == fb {
		return true
	}
	for _, s := range Synonyms(a) {
		if Fold(s) == fb {
			return true
		}
	}
	return false
}

// Expand returns term followed by its synonyms.
func Expand(term string) []string {
	return append([]string{strings.ToLower(term)}, Synonyms(term)...)
}

// Fold lowercases and strips diacritics so "Pračka" matches "pracka".
func Fold(s string) string {
	// chained transformers are stateful, so each call builds its own
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// Tokens splits on anything that is not a letter or digit.
func Tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// ContainsAny reports whether the folded text contains any folded needle.
func ContainsAny(text string, needles ...string) bool {
	folded := Fold(text)
	for _, n := range needles {
		if n != "" && strings.Contains(folded, Fold(n)) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
