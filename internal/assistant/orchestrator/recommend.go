// internal/assistant/orchestrator/recommend.go

package orchestrator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"widget-assistant/internal/assistant/knowledge"
	"widget-assistant/internal/assistant/scoring"
)

const featuredPriority = 0.7

// Recommendation is a product record rendered by the widget.
type Recommendation struct {
	ProductID      string             `json:"product_id"`
	Name           string             `json:"name"`
	Brand          string             `json:"brand,omitempty"`
	Category       string             `json:"category,omitempty"`
	Price          *float64           `json:"price,omitempty"`
	Currency       string             `json:"currency"`
	FormattedPrice string             `json:"formatted_price"`
	Score          float64            `json:"score"`
	Components     scoring.Components `json:"score_components"`
	Explanation    string             `json:"explanation"`
	Features       []string           `json:"features,omitempty"`
	ImageURL       string             `json:"image_url,omitempty"`
	ProductURL     string             `json:"product_url,omitempty"`
}

func newRecommendation(sp scoring.ScoredProduct, req scoring.Requirements, lang language.Tag) Recommendation {
	p := sp.Product
	r := Recommendation{
		ProductID:   p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Currency:    p.Currency(),
		Score:       sp.Score,
		Components:  sp.Components,
		Explanation: explain(sp, req, lang),
		Features:    p.Features,
		ImageURL:    p.ImageURL,
		ProductURL:  p.ProductURL,
	}
	if price, ok := p.Price(); ok {
		r.Price = &price
		r.FormattedPrice = knowledge.FormatPrice(price, r.Currency, lang)
	} else {
		r.FormattedPrice = text(lang, msgPriceOnRequest)
	}
	return r
}

func recommendations(ranked []scoring.ScoredProduct, req scoring.Requirements, lang language.Tag) []Recommendation {
	out := make([]Recommendation, 0, len(ranked))
	for _, sp := range ranked {
		out = append(out, newRecommendation(sp, req, lang))
	}
	return out
}

// explain turns the strongest score components into a sentence.
func explain(sp scoring.ScoredProduct, req scoring.Requirements, lang language.Tag) string {
	c := sp.Components
	var parts []string
	switch {
	case c.PriceScore >= 1:
		parts = append(parts, text(lang, msgExplainBudget))
	case c.PriceScore > 0:
		parts = append(parts, text(lang, msgExplainNearBudget))
	}
	if total := countNonEmpty(req.Features); total > 0 && c.FeatureScore > 0 {
		matched := int(c.FeatureScore*float64(total) + 0.5)
		parts = append(parts, text(lang, msgExplainFeatures, matched, total))
	}
	if c.CategoryScore >= 1 {
		parts = append(parts, text(lang, msgExplainCategory))
	}
	if c.BrandScore > 0 && sp.Product.Brand != "" {
		parts = append(parts, text(lang, msgExplainBrand, sp.Product.Brand))
	}
	if c.AdminPriorityScore >= featuredPriority {
		parts = append(parts, text(lang, msgExplainPriority))
	}
	if len(parts) == 0 {
		parts = append(parts, text(lang, msgExplainDefault))
	}
	return fmt.Sprintf("%s %s.", sp.Product.Name, strings.Join(parts, ", "))
}

func countNonEmpty(list []string) int {
	n := 0
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// productLines renders records as "- name (price)" lines.
func productLines(recs []Recommendation) string {
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, fmt.Sprintf("- %s (%s)", r.Name, r.FormattedPrice))
	}
	return strings.Join(lines, "\n")
}

func productNames(recs []Recommendation) string {
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
