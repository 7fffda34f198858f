// internal/assistant/orchestrator/retrieve.go

package orchestrator

import (
	"context"
	"sort"
	"strings"

	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/assistant/lexicon"
	"widget-assistant/internal/models"
)

const maxKeywords = 3

// words too common to be worth a Q&A lookup
var stopwords = map[string]bool{
	"jake": true, "jaky": true, "jaka": true, "jsou": true, "muze": true, "mate": true,
	"prosim": true, "dobry": true, "chci": true, "chtel": true, "chtela": true, "potrebuji": true,
	"what": true, "which": true, "with": true, "have": true, "does": true, "your": true,
	"about": true, "there": true, "would": true, "like": true, "need": true, "please": true,
}

type retrieved struct {
	products []models.Product
	qa       []models.QAItem
	faqs     []models.WidgetFAQ
	sources  []string
}

func (r retrieved) summary() KnowledgeSummary {
	src := r.sources
	if src == nil {
		src = []string{}
	}
	return KnowledgeSummary{
		Products: len(r.products),
		QAItems:  len(r.qa),
		FAQs:     len(r.faqs),
		Sources:  src,
	}
}

func (r *retrieved) addSource(s string) {
	for _, have := range r.sources {
		if have == s {
			return
		}
	}
	r.sources = append(r.sources, s)
}

func (r *retrieved) addProducts(ps []models.Product, source string) {
	if len(ps) == 0 {
		return
	}
	seen := make(map[string]bool, len(r.products))
	for _, p := range r.products {
		seen[p.ID] = true
	}
	for _, p := range ps {
		if !seen[p.ID] {
			seen[p.ID] = true
			r.products = append(r.products, p)
		}
	}
	r.addSource(source)
}

// retrieve gathers the knowledge the handlers work from. Lookup errors are
// logged and skipped.
func (o *Orchestrator) retrieve(ctx context.Context, t *turn) retrieved {
	var r retrieved
	e := t.analysis.Entities
	query := t.req.Query

	switch t.analysis.Intent {
	case intent.ProductRecommendation, intent.ProductComparison, intent.AccessoryRecommendation,
		intent.TechnicalExplanation, intent.GeneralQuestion:
		for _, ref := range e.Products {
			if p := o.resolveProduct(ctx, t, ref); p != nil {
				r.addProducts([]models.Product{*p}, "products")
			}
		}
		category := t.conv.Category
		if len(e.Categories) > 0 {
			category = e.Categories[0]
		}
		if category != "" && t.analysis.Intent == intent.ProductRecommendation {
			ps, err := o.kb.FindProductsByCategory(ctx, t.userID, category, candidateLimit)
			o.lookupFailed("products_by_category", err)
			r.addProducts(ps, "categories")
		}
		if len(r.products) == 0 && t.analysis.Intent != intent.AccessoryRecommendation {
			ps, err := o.kb.FindProductsByQuery(ctx, t.userID, query, candidateLimit)
			o.lookupFailed("products_by_query", err)
			r.addProducts(ps, "products")
		}
	}

	switch t.analysis.Intent {
	case intent.TechnicalExplanation, intent.CustomerService, intent.OrderStatus,
		intent.ShippingPayment, intent.GeneralQuestion:
		o.retrieveQA(ctx, t, &r, keywords(query, e.Features))
	}
	return r
}

func (o *Orchestrator) retrieveQA(ctx context.Context, t *turn, r *retrieved, kws []string) {
	seenQ := map[string]bool{}
	seenF := map[string]bool{}
	for _, kw := range kws {
		if len(r.qa) < knowledgeItemLimit {
			items, err := o.kb.FindQAItemsByKeyword(ctx, t.userID, kw, knowledgeItemLimit)
			o.lookupFailed("qa_items", err)
			for _, it := range items {
				if !seenQ[it.Question] && len(r.qa) < knowledgeItemLimit {
					seenQ[it.Question] = true
					r.qa = append(r.qa, it)
					r.addSource("qa_items")
				}
			}
		}
		if len(r.faqs) < knowledgeItemLimit {
			faqs, err := o.kb.FindWidgetFAQsByKeyword(ctx, t.userID, kw, knowledgeItemLimit)
			o.lookupFailed("widget_faqs", err)
			for _, f := range faqs {
				if !seenF[f.Question] && len(r.faqs) < knowledgeItemLimit {
					seenF[f.Question] = true
					r.faqs = append(r.faqs, f)
					r.addSource("widget_faqs")
				}
			}
		}
	}
}

func (o *Orchestrator) lookupFailed(source string, err error) {
	if err == nil {
		return
	}
	o.logger.Warn("knowledge lookup failed", map[string]interface{}{
		"source": source,
		"error":  err.Error(),
	})
}

// keywords picks lookup terms: features first, then the longest query words.
func keywords(query string, features []string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[lexicon.Fold(w)] || len(out) >= maxKeywords {
			return
		}
		seen[lexicon.Fold(w)] = true
		out = append(out, w)
	}
	for _, f := range features {
		add(f)
	}
	var words []string
	for _, tok := range lexicon.Tokens(strings.ToLower(query)) {
		if len([]rune(tok)) >= 4 && !stopwords[lexicon.Fold(tok)] {
			words = append(words, tok)
		}
	}
	sort.SliceStable(words, func(i, j int) bool {
		return len([]rune(words[i])) > len([]rune(words[j]))
	})
	for _, w := range words {
		add(w)
	}
	return out
}
