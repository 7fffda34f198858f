// internal/assistant/knowledge/compare.go

package knowledge

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"

	"widget-assistant/internal/models"
)

// ProductSummary is the compact form of a compared product.
type ProductSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        *float64 `json:"price,omitempty"`
	Currency     string   `json:"currency"`
	FeatureCount int      `json:"feature_count"`
}

// Comparison is the result of comparing two products.
type Comparison struct {
	First                 ProductSummary `json:"product1"`
	Second                ProductSummary `json:"product2"`
	CommonFeatures        []string       `json:"common_features"`
	UniqueToFirst         []string       `json:"unique_to_product1"`
	UniqueToSecond        []string       `json:"unique_to_product2"`
	PriceDifference       float64        `json:"price_difference"`
	PricePercentage       float64        `json:"price_percentage"`
	CheaperProductID      string         `json:"cheaper_product_id,omitempty"`
	PriceComparison       string         `json:"price_comparison"`
	ValueWinnerID         string         `json:"value_winner_id,omitempty"`
	OverallRecommendation string         `json:"overall_recommendation"`
}

// CompareProducts contrasts the feature sets and prices of two products.
// The price percentage is relative to the more expensive product. It has no
// side effects.
func CompareProducts(p1, p2 *models.Product, lang language.Tag) *Comparison {
	en := lang == English
	c := &Comparison{
		First:  summarize(p1),
		Second: summarize(p2),
	}
	c.CommonFeatures, c.UniqueToFirst, c.UniqueToSecond = splitFeatures(p1.Features, p2.Features)

	price1, ok1 := p1.Price()
	price2, ok2 := p2.Price()
	if !ok1 || !ok2 {
		if en {
			c.PriceComparison = "Price information is not available for both products."
		} else {
			c.PriceComparison = "Cenu nelze porovnat, u jednoho z produktů chybí."
		}
		c.OverallRecommendation = tradeoff(p1, p2, c, en)
		return c
	}

	c.PriceDifference = math.Abs(price1 - price2)
	expensive := math.Max(price1, price2)
	if expensive > 0 {
		c.PricePercentage = math.Round(c.PriceDifference/expensive*1000) / 10
	}

	cheap, dear := p1, p2
	cheapFeatures, dearFeatures := len(c.UniqueToFirst), len(c.UniqueToSecond)
	switch {
	case price1 < price2:
	case price2 < price1:
		cheap, dear = p2, p1
		cheapFeatures, dearFeatures = dearFeatures, cheapFeatures
	default:
		if en {
			c.PriceComparison = fmt.Sprintf("Both products cost the same (%s).", FormatPrice(price1, p1.Currency(), lang))
		} else {
			c.PriceComparison = fmt.Sprintf("Oba produkty stojí stejně (%s).", FormatPrice(price1, p1.Currency(), lang))
		}
		c.OverallRecommendation = tradeoff(p1, p2, c, en)
		return c
	}
	c.CheaperProductID = cheap.ID

	pct := fmt.Sprintf("%.0f", c.PricePercentage)
	diff := FormatPrice(c.PriceDifference, cheap.Currency(), lang)
	if en {
		c.PriceComparison = fmt.Sprintf("%s is about %s%% cheaper than %s (a difference of %s).", cheap.Name, pct, dear.Name, diff)
	} else {
		c.PriceComparison = fmt.Sprintf("%s je přibližně o %s %% levnější než %s (rozdíl %s).", cheap.Name, pct, dear.Name, diff)
	}

	if cheapFeatures >= dearFeatures {
		c.ValueWinnerID = cheap.ID
		if en {
			c.OverallRecommendation = fmt.Sprintf("%s is the better value: it costs less and offers at least as many features.", cheap.Name)
		} else {
			c.OverallRecommendation = fmt.Sprintf("%s je výhodnější volba: stojí méně a nabízí minimálně stejné vybavení.", cheap.Name)
		}
		return c
	}
	c.OverallRecommendation = tradeoff(cheap, dear, c, en)
	return c
}

// tradeoff describes what the pricier product adds over the cheaper one.
func tradeoff(cheap, dear *models.Product, c *Comparison, en bool) string {
	extra := c.UniqueToSecond
	if dear.ID == c.First.ID {
		extra = c.UniqueToFirst
	}
	if len(extra) == 0 {
		if en {
			return fmt.Sprintf("%s and %s are comparable; choose by brand or design preference.", c.First.Name, c.Second.Name)
		}
		return fmt.Sprintf("%s a %s jsou srovnatelné; rozhodněte podle značky nebo designu.", c.First.Name, c.Second.Name)
	}
	list := strings.Join(limitStrings(extra, 3), ", ")
	if en {
		return fmt.Sprintf("%s costs more but adds %s; %s is the budget-friendly choice.", dear.Name, list, cheap.Name)
	}
	return fmt.Sprintf("%s je dražší, ale nabízí navíc %s; %s je úspornější volba.", dear.Name, list, cheap.Name)
}

func summarize(p *models.Product) ProductSummary {
	s := ProductSummary{ID: p.ID, Name: p.Name, Currency: p.Currency(), FeatureCount: len(p.Features)}
	if price, ok := p.Price(); ok {
		s.Price = &price
	}
	return s
}

// splitFeatures compares feature lists case-insensitively, keeping the
// spelling and order of their first occurrence.
func splitFeatures(a, b []string) (common, onlyA, onlyB []string) {
	inB := make(map[string]bool, len(b))
	for _, f := range b {
		inB[strings.ToLower(strings.TrimSpace(f))] = true
	}
	inA := make(map[string]bool, len(a))
	for _, f := range a {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || inA[key] {
			continue
		}
		inA[key] = true
		if inB[key] {
			common = append(common, f)
		} else {
			onlyA = append(onlyA, f)
		}
	}
	seen := make(map[string]bool)
	for _, f := range b {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || inA[key] || seen[key] {
			continue
		}
		seen[key] = true
		onlyB = append(onlyB, f)
	}
	return common, onlyA, onlyB
}

func limitStrings(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
