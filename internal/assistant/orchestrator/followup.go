// internal/assistant/orchestrator/followup.go

package orchestrator

import (
	"sort"
	"strings"

	"golang.org/x/text/language"

	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/assistant/lexicon"
)

const maxFollowups = 3

// Follow-up generator sources and their weights.
const (
	sourceIntentTemplate = "intent_template"
	sourceContextGap     = "context_gap"
	sourceProduct        = "product_specific"
	sourceKnowledge      = "knowledge_base"
	sourceComparison     = "recommendation_comparison"
	sourceUseCase        = "use_case"
)

var followupWeights = map[string]float64{
	sourceIntentTemplate: 0.6,
	sourceContextGap:     0.9,
	sourceProduct:        0.8,
	sourceKnowledge:      0.7,
	sourceComparison:     0.75,
	sourceUseCase:        0.65,
}

// localized names of inferred use cases
var useCaseNames = map[string][2]string{
	"offroad":       {"jízdu v terénu", "off-road riding"},
	"road":          {"silnici", "road riding"},
	"mixed terrain": {"smíšený terén", "mixed terrain"},
	"touring":       {"turistiku", "touring"},
	"commuting":     {"dojíždění", "commuting"},
	"kids":          {"děti", "kids"},
	"gaming":        {"hraní her", "gaming"},
	"development":   {"programování", "software development"},
	"office":        {"kancelářskou práci", "office work"},
	"study":         {"studium", "studying"},
	"creative":      {"grafiku a střih videa", "creative work"},
}

type followup struct {
	text   string
	source string
	score  float64
}

type followupGenerator func(o *Orchestrator, t *turn) []followup

var followupGenerators = []followupGenerator{
	intentTemplateFollowups,
	contextGapFollowups,
	productFollowups,
	knowledgeFollowups,
	comparisonFollowups,
	useCaseFollowups,
}

// followups collects candidates from every generator, ranks them by source
// weight and picks up to three, preferring a source not yet used.
func (o *Orchestrator) followups(t *turn) []string {
	var all []followup
	for _, gen := range followupGenerators {
		all = append(all, gen(o, t)...)
	}
	picked := selectFollowups(all, maxFollowups, t.req.Query)
	if len(picked) == 0 {
		return fallbackFollowups(t.lang)
	}
	return picked
}

func selectFollowups(cands []followup, n int, query string) []string {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	q := lexicon.Fold(query)
	seenText := map[string]bool{}
	var usable []followup
	for _, c := range cands {
		key := lexicon.Fold(c.text)
		if key == "" || seenText[key] || key == q {
			continue
		}
		seenText[key] = true
		usable = append(usable, c)
	}

	var out []string
	usedSource := map[string]bool{}
	taken := make([]bool, len(usable))
	for len(out) < n {
		idx := -1
		for i, c := range usable {
			if !taken[i] && !usedSource[c.source] {
				idx = i
				break
			}
		}
		if idx < 0 {
			for i := range usable {
				if !taken[i] {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			break
		}
		taken[idx] = true
		usedSource[usable[idx].source] = true
		out = append(out, usable[idx].text)
	}
	return out
}

func fallbackFollowups(lang language.Tag) []string {
	return []string{
		text(lang, msgFollowupDefault1),
		text(lang, msgFollowupDefault2),
		text(lang, msgFollowupDefault3),
	}
}

func weighted(source string, texts ...string) []followup {
	out := make([]followup, 0, len(texts))
	for _, s := range texts {
		if s != "" {
			out = append(out, followup{text: s, source: source, score: followupWeights[source]})
		}
	}
	return out
}

func intentTemplateFollowups(o *Orchestrator, t *turn) []followup {
	var texts []string
	for _, pair := range intentFollowups[string(t.analysis.Intent)] {
		texts = append(texts, pick(t.lang, pair))
	}
	return weighted(sourceIntentTemplate, texts...)
}

func isProductIntent(i intent.Intent) bool {
	switch i {
	case intent.ProductRecommendation, intent.ProductComparison, intent.AccessoryRecommendation:
		return true
	}
	return false
}

// contextGapFollowups ask for the slots a recommendation still misses.
func contextGapFollowups(o *Orchestrator, t *turn) []followup {
	if !isProductIntent(t.analysis.Intent) || t.resp.Metadata.NeedsClarification {
		return nil
	}
	c := t.conv
	var texts []string
	if c.Category == "" {
		texts = append(texts, text(t.lang, msgFollowupCategory))
	}
	if !c.BudgetRange.IsSet() {
		texts = append(texts, text(t.lang, msgFollowupBudget))
	}
	if !knowsFeatures(c) {
		texts = append(texts, text(t.lang, msgFollowupFeatures))
	}
	if d, ok := lexicon.DetectDomain(c.Category); ok {
		missing := func(key string) bool {
			_, has := c.Attributes[key]
			return !has
		}
		switch {
		case d == lexicon.DomainBike && missing("frame_size"):
			texts = append(texts, text(t.lang, msgFollowupFrameSize))
		case (d == lexicon.DomainTV || d == lexicon.DomainPhone) && missing("screen_size_inch"):
			texts = append(texts, text(t.lang, msgFollowupScreenSize))
		case d == lexicon.DomainLaptop && missing("ram_gb"):
			texts = append(texts, text(t.lang, msgFollowupRAM))
		case d == lexicon.DomainWasher && missing("capacity_kg"):
			texts = append(texts, text(t.lang, msgFollowupCapacity))
		}
	}
	return weighted(sourceContextGap, texts...)
}

func productFollowups(o *Orchestrator, t *turn) []followup {
	md := t.resp.Metadata
	if len(md.RecommendedProducts) == 0 {
		return nil
	}
	name := md.RecommendedProducts[0].Name
	texts := []string{text(t.lang, msgFollowupMore, name)}
	if t.analysis.Intent != intent.AccessoryRecommendation {
		texts = append(texts, text(t.lang, msgFollowupAccessory, name))
	}
	return weighted(sourceProduct, texts...)
}

// knowledgeFollowups offer related questions the shop has answers for.
func knowledgeFollowups(o *Orchestrator, t *turn) []followup {
	var texts []string
	for _, f := range t.know.faqs {
		texts = append(texts, strings.TrimSpace(f.Question))
	}
	for _, qa := range t.know.qa {
		texts = append(texts, strings.TrimSpace(qa.Question))
	}
	// the first hit usually answered this turn already
	if len(texts) > 0 && t.resp.Source != SourceAI {
		texts = texts[1:]
	}
	return weighted(sourceKnowledge, texts...)
}

func comparisonFollowups(o *Orchestrator, t *turn) []followup {
	recs := t.resp.Metadata.RecommendedProducts
	if len(recs) < 2 || t.analysis.Intent == intent.ProductComparison {
		return nil
	}
	return weighted(sourceComparison, text(t.lang, msgFollowupCompare, recs[0].Name, recs[1].Name))
}

func useCaseFollowups(o *Orchestrator, t *turn) []followup {
	if t.analysis.Intent != intent.ProductRecommendation {
		return nil
	}
	if use, ok := t.conv.Attributes["use_case"].AsString(); ok {
		if names, known := useCaseNames[use]; known {
			return weighted(sourceUseCase, text(t.lang, msgFollowupUseCase, pick(t.lang, names)))
		}
		return nil
	}
	if t.conv.Category != "" {
		return weighted(sourceUseCase, text(t.lang, msgFollowupUseCaseAsk))
	}
	return nil
}
