// internal/assistant/intent/intent.go

// Package intent maps a user utterance plus conversation state to a
// structured (intent, entities, confidence) analysis.
package intent

import (
	"strconv"
	"strings"

	"widget-assistant/internal/models"
)

// Intent is one of a closed vocabulary.
type Intent string

const (
	ProductRecommendation   Intent = "product_recommendation"
	ProductComparison       Intent = "product_comparison"
	TechnicalExplanation    Intent = "technical_explanation"
	AccessoryRecommendation Intent = "accessory_recommendation"
	StoreNavigation         Intent = "store_navigation"
	ShippingPayment         Intent = "shipping_payment"
	CustomerService         Intent = "customer_service"
	OrderStatus             Intent = "order_status"
	GeneralQuestion         Intent = "general_question"
)

// All lists the vocabulary in prompt order.
var All = []Intent{
	ProductRecommendation,
	ProductComparison,
	TechnicalExplanation,
	AccessoryRecommendation,
	StoreNavigation,
	ShippingPayment,
	CustomerService,
	OrderStatus,
	GeneralQuestion,
}

// Valid reports whether s names an intent of the vocabulary.
func Valid(s string) bool {
	for _, i := range All {
		if string(i) == s {
			return true
		}
	}
	return false
}

// Parse maps unknown names to GeneralQuestion.
func Parse(s string) Intent {
	s = strings.ToLower(strings.TrimSpace(s))
	if Valid(s) {
		return Intent(s)
	}
	return GeneralQuestion
}

// Source tells where an analysis came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceRules    Source = "rules"
	SourceContext  Source = "context"
	SourceFallback Source = "fallback"
)

// Fixed confidences per source.
const (
	ConfidenceAI      = 0.85
	ConfidenceContext = 0.8
	ConfidenceRules   = 0.5
)

type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (p PriceRange) IsSet() bool {
	return p.Min != nil || p.Max != nil
}

// Entities are the structured values of one utterance. List fields are
// never nil so they serialize as [].
type Entities struct {
	Products        []string   `json:"products"`
	Categories      []string   `json:"categories"`
	Features        []string   `json:"features"`
	Brands          []string   `json:"brands"`
	PriceRange      PriceRange `json:"price_range"`
	Comparison      bool       `json:"comparison"`
	Accessories     []string   `json:"accessories"`
	ServiceRequests []string   `json:"service_requests"`
	OrderNumber     string     `json:"order_number,omitempty"`
	Email           string     `json:"email,omitempty"`
}

// EmptyEntities has every list present and empty.
func EmptyEntities() Entities {
	return Entities{}.normalized()
}

func (e Entities) normalized() Entities {
	fix := func(l []string) []string {
		out := make([]string, 0, len(l))
		seen := make(map[string]bool, len(l))
		for _, s := range l {
			s = strings.TrimSpace(s)
			if s == "" || seen[strings.ToLower(s)] {
				continue
			}
			seen[strings.ToLower(s)] = true
			out = append(out, s)
		}
		return out
	}
	e.Products = fix(e.Products)
	e.Categories = fix(e.Categories)
	e.Features = fix(e.Features)
	e.Brands = fix(e.Brands)
	e.Accessories = fix(e.Accessories)
	e.ServiceRequests = fix(e.ServiceRequests)
	e.OrderNumber = strings.TrimSpace(e.OrderNumber)
	e.Email = strings.TrimSpace(e.Email)
	return e
}

// IsEmpty is true when nothing was extracted.
func (e Entities) IsEmpty() bool {
	return len(e.Products) == 0 && len(e.Categories) == 0 && len(e.Features) == 0 &&
		len(e.Brands) == 0 && !e.PriceRange.IsSet() && !e.Comparison &&
		len(e.Accessories) == 0 && len(e.ServiceRequests) == 0 &&
		e.OrderNumber == "" && e.Email == ""
}

// ContextEntities is the entity map folded into a conversation context.
// Keys with nothing extracted are left out so they never clear state.
func (e Entities) ContextEntities(confidence float64) map[string]interface{} {
	out := map[string]interface{}{"confidence": confidence}
	if len(e.Categories) > 0 {
		out["category"] = e.Categories[0]
		if len(e.Categories) > 1 {
			out["categories"] = e.Categories
		}
	}
	if len(e.Features) > 0 {
		out["features"] = e.Features
	}
	if e.PriceRange.IsSet() {
		pr := map[string]interface{}{}
		if e.PriceRange.Min != nil {
			pr["min"] = *e.PriceRange.Min
		}
		if e.PriceRange.Max != nil {
			pr["max"] = *e.PriceRange.Max
		}
		out["price_range"] = pr
	}
	if len(e.Brands) == 1 {
		out["brand"] = e.Brands[0]
	} else if len(e.Brands) > 1 {
		out["brands"] = e.Brands
	}
	if len(e.Products) > 0 {
		out["products"] = e.Products
	}
	if len(e.Accessories) > 0 {
		out["accessories"] = e.Accessories
	}
	if len(e.ServiceRequests) > 0 {
		out["service_requests"] = e.ServiceRequests
	}
	if e.Comparison {
		out["comparison"] = true
	}
	if e.OrderNumber != "" {
		out["order_number"] = e.OrderNumber
	}
	if e.Email != "" {
		out["email"] = e.Email
	}
	return out
}

// Analysis is the result of one classification.
type Analysis struct {
	Intent     Intent   `json:"intent"`
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
}

// Fallback is returned when nothing better is available.
func Fallback() Analysis {
	return Analysis{
		Intent:     GeneralQuestion,
		Entities:   EmptyEntities(),
		Confidence: 0,
		Source:     SourceFallback,
	}
}

// entitiesFromMap converts loosely typed model output. Values of the
// wrong shape are dropped.
func entitiesFromMap(m map[string]interface{}) Entities {
	e := Entities{
		Products:        stringList(m["products"]),
		Categories:      stringList(m["categories"]),
		Features:        stringList(m["features"]),
		Brands:          stringList(m["brands"]),
		Accessories:     stringList(m["accessories"]),
		ServiceRequests: stringList(m["service_requests"]),
		OrderNumber:     scalarString(m["order_number"]),
		Email:           scalarString(m["email"]),
	}
	switch c := m["comparison"].(type) {
	case bool:
		e.Comparison = c
	case string:
		e.Comparison = strings.EqualFold(c, "true")
	}
	if pr, ok := m["price_range"].(map[string]interface{}); ok {
		if v, ok := models.ParsePrice(pr["min"]); ok {
			e.PriceRange.Min = &v
		}
		if v, ok := models.ParsePrice(pr["max"]); ok {
			e.PriceRange.Max = &v
		}
		if e.PriceRange.Min != nil && e.PriceRange.Max != nil && *e.PriceRange.Min > *e.PriceRange.Max {
			e.PriceRange.Min, e.PriceRange.Max = e.PriceRange.Max, e.PriceRange.Min
		}
	}
	return e.normalized()
}

func stringList(raw interface{}) []string {
	switch x := raw.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		return []string{x}
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func scalarString(raw interface{}) string {
	switch x := raw.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}
