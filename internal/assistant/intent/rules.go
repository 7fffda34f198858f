// internal/assistant/intent/rules.go

package intent

import (
	"regexp"
	"strings"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/extract"
	"widget-assistant/internal/assistant/lexicon"
)

// Folded stems per intent. Multi-word stems match as substrings, the rest
// as token prefixes.
var (
	orderStems  = []string{"objednavk", "objednal", "order", "zasilk", "tracking", "sledovani"}
	statusStems = []string{"stav", "kde je", "status", "where is", "kdy prijde", "dorazi", "track"}

	serviceStems = []string{
		"reklamac", "vraceni", "vratit", "servis", "zaruk", "stiznost", "porouch", "nefunguj",
		"refund", "return", "warranty", "complaint", "broken", "repair",
		"operator", "clovek", "cloveka", "human", "agent", "zakaznick", "customer service",
	}
	handoffStems = []string{"operator", "clovek", "cloveka", "human", "agent", "zivou osobu", "real person"}

	shippingStems = []string{
		"doprav", "doruc", "postovn", "platb", "zaplat", "dobirk", "splatk", "kartou",
		"ship", "delivery", "deliver", "payment", "pay ", "installment",
	}
	comparisonStems = []string{"porovn", "srovn", "rozdil", "versus", " vs ", "vs.", "compare", "comparison", "difference", "better than", "lepsi nez"}
	technicalStems  = []string{"jak funguje", "co je", "co znamena", "vysvetl", "technick", "specifikac", "how does", "what is", "what does", "explain", "specification"}
	navigationStems = []string{"kde najdu", "kde je sekce", "kategori", "sekce", "otevir", "pobock", "prodejn", "where can i find", "where do i find", "category", "opening hours", "store location", "navigat"}
	recommendStems  = []string{"doporuc", "hledam", "potrebuj", "chci", "chtel", "vyber", "poradit", "poradte", "recommend", "looking for", "need", "want", "suggest", "best"}

	// Czech accessory stems match as token prefixes, English nouns only as
	// whole tokens.
	accessoryStems = []string{
		"prislusenstvi", "helm", "obal", "pouzdr", "kryt", "nabijeck", "sluchatk", "drzak", "brasn", "tasku", "taska", "zamek", "blatnik", "pumpick", "kabel",
		"accessor",
	}
	accessoryWords = map[string]bool{
		"helmet": true, "helmets": true, "case": true, "cases": true, "cover": true, "covers": true,
		"charger": true, "chargers": true, "headphone": true, "headphones": true, "holder": true, "holders": true,
		"bag": true, "bags": true, "lock": true, "locks": true, "cable": true, "cables": true,
	}
	// phrases whose nouns are not accessories
	accessoryIdioms = [][]string{
		{"just", "in", "case"}, {"in", "any", "case"}, {"in", "that", "case"}, {"in", "this", "case"}, {"in", "case"},
	}

	deicticTokens = map[string]bool{
		"this": true, "that": true, "these": true, "those": true,
		"tento": true, "tenhle": true, "tato": true, "tahle": true, "tuto": true, "tohle": true,
		"ten": true, "to": true, "tomu": true, "nemu": true, "nej": true, "jeho": true, "nim": true,
	}
	// "it" and "them" point at a product only as the object of these words
	weakDeicticTokens = map[string]bool{"it": true, "them": true}
	deicticAnchors    = map[string]bool{"for": true, "with": true, "fit": true, "fits": true, "match": true, "matches": true}
)

var (
	orderNumberRe = regexp.MustCompile(`(?i)(?:#|č\.?\s*|no\.?\s*|number\s*|objednávk[ay]\s*|order\s*)(\d{5,12})\b|\b(\d{8,12})\b`)
	emailRe       = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// matchStems reports whether any stem occurs in the folded query.
func matchStems(folded string, tokens []string, stems []string) bool {
	padded := " " + folded + " "
	for _, stem := range stems {
		if strings.Contains(stem, " ") || strings.Contains(stem, ".") {
			if strings.Contains(padded, stem) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}

// accessoryTerms returns the tokens naming accessories, skipping idioms
// such as "in that case".
func accessoryTerms(tokens []string) []string {
	var terms []string
	for i := 0; i < len(tokens); i++ {
		if n := idiomAt(tokens, i); n > 0 {
			i += n - 1
			continue
		}
		if isAccessoryToken(tokens[i]) {
			terms = append(terms, tokens[i])
		}
	}
	return terms
}

func isAccessoryToken(tok string) bool {
	if accessoryWords[tok] {
		return true
	}
	for _, stem := range accessoryStems {
		if strings.HasPrefix(tok, stem) {
			return true
		}
	}
	return false
}

func idiomAt(tokens []string, i int) int {
	for _, idiom := range accessoryIdioms {
		if i+len(idiom) > len(tokens) {
			continue
		}
		matched := true
		for j, w := range idiom {
			if tokens[i+j] != w {
				matched = false
				break
			}
		}
		if matched {
			return len(idiom)
		}
	}
	return 0
}

func hasAccessoryVocabulary(tokens []string) bool {
	return len(accessoryTerms(tokens)) > 0
}

func hasDeictic(tokens []string) bool {
	for i, tok := range tokens {
		if deicticTokens[tok] {
			return true
		}
		if weakDeicticTokens[tok] && i > 0 && deicticAnchors[tokens[i-1]] {
			return true
		}
	}
	return false
}

// Rules classifies a query with keyword tables only. It never fails and
// tags its result with ConfidenceRules.
func Rules(query string, conv *conversation.Context) Analysis {
	folded := lexicon.Fold(query)
	tokens := lexicon.Tokens(folded)
	e := ruleEntities(query, folded, tokens)

	var it Intent
	switch {
	case e.OrderNumber != "" || (matchStems(folded, tokens, orderStems) && matchStems(folded, tokens, statusStems)):
		it = OrderStatus
	case matchStems(folded, tokens, serviceStems):
		it = CustomerService
	case matchStems(folded, tokens, shippingStems):
		it = ShippingPayment
	case e.Comparison:
		it = ProductComparison
	case hasAccessoryVocabulary(tokens) && (hasDeictic(tokens) || hasProducts(conv) || len(e.Categories) > 0):
		it = AccessoryRecommendation
	case matchStems(folded, tokens, technicalStems):
		it = TechnicalExplanation
	case matchStems(folded, tokens, navigationStems):
		it = StoreNavigation
	case matchStems(folded, tokens, recommendStems) || len(e.Categories) > 0 || e.PriceRange.IsSet():
		it = ProductRecommendation
	default:
		it = GeneralQuestion
	}

	if it == AccessoryRecommendation && len(e.Products) == 0 && conv != nil {
		e.Products = conv.ProductReferences()
	}
	return Analysis{Intent: it, Entities: e.normalized(), Confidence: ConfidenceRules, Source: SourceRules}
}

func ruleEntities(query, folded string, tokens []string) Entities {
	e := EmptyEntities()
	if d, ok := lexicon.DetectDomain(query); ok {
		e.Categories = append(e.Categories, lexicon.DomainCategory(d))
	}
	if b, ok := extract.ParseBudget(query); ok {
		e.PriceRange = PriceRange{Min: b.Min, Max: b.Max}
	}
	e.Comparison = matchStems(folded, tokens, comparisonStems)
	if m := orderNumberRe.FindStringSubmatch(query); m != nil {
		if m[1] != "" {
			e.OrderNumber = m[1]
		} else {
			e.OrderNumber = m[2]
		}
	}
	if m := emailRe.FindString(query); m != "" {
		e.Email = m
	}
	if matchStems(folded, tokens, handoffStems) {
		e.ServiceRequests = append(e.ServiceRequests, "human_agent")
	}
	for _, kind := range []struct {
		name  string
		stems []string
	}{
		{"return", []string{"vraceni", "vratit", "return", "refund"}},
		{"complaint", []string{"reklamac", "stiznost", "complaint"}},
		{"warranty", []string{"zaruk", "warranty"}},
		{"repair", []string{"servis", "oprav", "repair", "porouch", "broken"}},
	} {
		if matchStems(folded, tokens, kind.stems) {
			e.ServiceRequests = append(e.ServiceRequests, kind.name)
		}
	}
	e.Accessories = append(e.Accessories, accessoryTerms(tokens)...)
	return e
}

func hasProducts(conv *conversation.Context) bool {
	return conv != nil && len(conv.ProductReferences()) > 0
}
