// internal/assistant/scoring/scoring.go

// Package scoring ranks candidate products against what the shopper asked
// for. Everything here is pure.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/assistant/lexicon"
	"widget-assistant/internal/models"
)

// Component scores for a partial category or brand hit.
const (
	categoryPartialScore = 0.7
	brandPartialScore    = 0.8
)

// Weights of the convex combination. They must sum to 1.
type Weights struct {
	Feature       float64 `json:"feature"`
	Price         float64 `json:"price"`
	Category      float64 `json:"category"`
	Brand         float64 `json:"brand"`
	AdminPriority float64 `json:"admin_priority"`
}

var DefaultWeights = Weights{
	Feature:       0.30,
	Price:         0.25,
	Category:      0.20,
	Brand:         0.10,
	AdminPriority: 0.15,
}

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"feature": w.Feature, "price": w.Price, "category": w.Category,
		"brand": w.Brand, "admin_priority": w.AdminPriority,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	sum := w.Feature + w.Price + w.Category + w.Brand + w.AdminPriority
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %.4f", sum)
	}
	return nil
}

// WeightsFromMap overrides DefaultWeights with the keys present in m.
func WeightsFromMap(m map[string]float64) (Weights, error) {
	w := DefaultWeights
	for k, v := range m {
		switch strings.ToLower(k) {
		case "feature", "features":
			w.Feature = v
		case "price":
			w.Price = v
		case "category":
			w.Category = v
		case "brand":
			w.Brand = v
		case "admin_priority", "priority":
			w.AdminPriority = v
		default:
			return Weights{}, fmt.Errorf("unknown score weight %q", k)
		}
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Decay is the score lost per unit of relative distance outside the
// budget. Above is steeper: a cheaper product is usually still fine.
type Decay struct {
	Below float64
	Above float64
}

var DefaultDecay = Decay{Below: 0.5, Above: 2.0}

// Requirements is what a product is scored against. Empty fields do not
// contribute.
type Requirements struct {
	Features []string
	Min      *float64
	Max      *float64
	Category string
	Brand    string
	// Brands holds further acceptable brands; the best match counts.
	Brands []string
}

// RequirementsFrom merges the current turn's entities over the
// accumulated conversation state.
func RequirementsFrom(conv *conversation.Context, e intent.Entities) Requirements {
	var r Requirements
	seen := map[string]bool{}
	addFeature := func(f string) {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		r.Features = append(r.Features, f)
	}
	if conv != nil {
		for _, f := range conv.RequiredFeatures {
			addFeature(f)
		}
		r.Min, r.Max = conv.BudgetRange.Min, conv.BudgetRange.Max
		r.Category = conv.Category
		if s, ok := conv.Attributes["brand"].AsString(); ok {
			r.Brand = s
		}
		if l, ok := conv.Attributes["brands"].AsList(); ok {
			r.Brands = append(r.Brands, l...)
		}
	}
	for _, f := range e.Features {
		addFeature(f)
	}
	if e.PriceRange.Min != nil {
		r.Min = e.PriceRange.Min
	}
	if e.PriceRange.Max != nil {
		r.Max = e.PriceRange.Max
	}
	if len(e.Categories) > 0 {
		r.Category = e.Categories[0]
	}
	if len(e.Brands) > 0 {
		if r.Brand != "" {
			r.Brands = append(r.Brands, r.Brand)
		}
		r.Brand = e.Brands[0]
		r.Brands = append(r.Brands, e.Brands[1:]...)
	}
	if r.Brand == "" && len(r.Brands) > 0 {
		r.Brand, r.Brands = r.Brands[0], r.Brands[1:]
	}
	r.Brands = dedupeBrands(r.Brand, r.Brands)
	return r
}

// dedupeBrands drops empty entries and those equal to primary after folding.
func dedupeBrands(primary string, brands []string) []string {
	seen := map[string]bool{lexicon.Fold(primary): true}
	var out []string
	for _, b := range brands {
		key := lexicon.Fold(strings.TrimSpace(b))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

// Components are each in [0,1].
type Components struct {
	FeatureScore       float64 `json:"feature_score"`
	PriceScore         float64 `json:"price_score"`
	CategoryScore      float64 `json:"category_score"`
	BrandScore         float64 `json:"brand_score"`
	AdminPriorityScore float64 `json:"admin_priority_score"`
}

type ScoredProduct struct {
	Product    models.Product `json:"product"`
	Score      float64        `json:"score"`
	Components Components     `json:"score_components"`
}

// Scorer holds validated weights.
type Scorer struct {
	weights Weights
	decay   Decay
}

func NewScorer(w Weights, d Decay) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if d.Below < 0 || d.Above < 0 {
		return nil, fmt.Errorf("decay rates must be non-negative")
	}
	return &Scorer{weights: w, decay: d}, nil
}

// Default uses DefaultWeights and DefaultDecay.
func Default() *Scorer {
	return &Scorer{weights: DefaultWeights, decay: DefaultDecay}
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score rates one product.
func (s *Scorer) Score(p models.Product, req Requirements) ScoredProduct {
	c := Components{
		FeatureScore:       featureScore(&p, req.Features),
		PriceScore:         s.priceScore(&p, req.Min, req.Max),
		CategoryScore:      categoryScore(&p, req.Category),
		BrandScore:         bestBrandScore(&p, req.Brand, req.Brands),
		AdminPriorityScore: clamp01(float64(p.AdminPriority) / 10),
	}
	total := s.weights.Feature*c.FeatureScore +
		s.weights.Price*c.PriceScore +
		s.weights.Category*c.CategoryScore +
		s.weights.Brand*c.BrandScore +
		s.weights.AdminPriority*c.AdminPriorityScore
	return ScoredProduct{Product: p, Score: clamp01(total), Components: c}
}

// Rank scores every product and sorts descending. Ties keep input order.
func (s *Scorer) Rank(products []models.Product, req Requirements) []ScoredProduct {
	out := make([]ScoredProduct, 0, len(products))
	for _, p := range products {
		out = append(out, s.Score(p, req))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func featureScore(p *models.Product, required []string) float64 {
	total, matched := 0, 0
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			continue
		}
		total++
		if p.HasFeature(f) {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

func (s *Scorer) priceScore(p *models.Product, min, max *float64) float64 {
	hasMin := min != nil && *min > 0
	hasMax := max != nil && *max < conversation.UnboundedBudget
	if !hasMin && !hasMax {
		return 0
	}
	price, ok := p.Price()
	if !ok {
		return 0
	}
	switch {
	case hasMin && price < *min:
		return clamp01(1 - s.decay.Below*(*min-price)/(*min))
	case hasMax && price > *max:
		if *max <= 0 {
			return 0
		}
		return clamp01(1 - s.decay.Above*(price-*max)/(*max))
	default:
		return 1
	}
}

func categoryScore(p *models.Product, want string) float64 {
	w := lexicon.Fold(want)
	if w == "" {
		return 0
	}
	best := 0.0
	for _, have := range []string{p.Category, p.Subcategory} {
		h := lexicon.Fold(have)
		if h == "" {
			continue
		}
		switch {
		case h == w:
			return 1
		case lexicon.AreSynonyms(h, w), strings.Contains(h, w), strings.Contains(w, h):
			best = categoryPartialScore
		}
	}
	return best
}

func bestBrandScore(p *models.Product, primary string, others []string) float64 {
	best := brandScore(p, primary)
	for _, b := range others {
		if sc := brandScore(p, b); sc > best {
			best = sc
		}
	}
	return best
}

func brandScore(p *models.Product, want string) float64 {
	w := lexicon.Fold(want)
	h := lexicon.Fold(p.Brand)
	switch {
	case w == "" || h == "":
		return 0
	case h == w:
		return 1
	case strings.Contains(h, w), strings.Contains(w, h):
		return brandPartialScore
	default:
		return 0
	}
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
