package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"widget-assistant/internal/assistant/conversation"
	"widget-assistant/internal/assistant/intent"
	"widget-assistant/internal/models"
)

func ptr(f float64) *float64 { return &f }

func bike(id, brand string, price interface{}, priority int, features ...string) models.Product {
	return models.Product{
		ID:            id,
		UserID:        "shop-1",
		Name:          brand + " " + id,
		Category:      "kola",
		Subcategory:   "horská kola",
		Brand:         brand,
		Features:      features,
		Pricing:       models.Pricing{OneTime: price, Currency: "CZK"},
		AdminPriority: priority,
	}
}

// ==========================
// Weights
// ==========================

func TestWeights(t *testing.T) {
	require.NoError(t, DefaultWeights.Validate())

	w, err := WeightsFromMap(map[string]float64{"feature": 0.4, "admin_priority": 0.05})
	require.NoError(t, err)
	assert.Equal(t, 0.4, w.Feature)
	assert.Equal(t, 0.25, w.Price)

	_, err = WeightsFromMap(map[string]float64{"feature": 0.5})
	assert.Error(t, err, "sum 1.2")

	_, err = WeightsFromMap(map[string]float64{"colour": 0})
	assert.Error(t, err)

	_, err = NewScorer(Weights{Feature: 1.5, Price: -0.5}, DefaultDecay)
	assert.Error(t, err)
}

// ==========================
// Components
// ==========================

func TestScore_Components(t *testing.T) {
	s := Default()
	req := Requirements{
		Features: []string{"odpružení", "hydraulické brzdy"},
		Min:      ptr(10000),
		Max:      ptr(20000),
		Category: "horská kola",
		Brand:    "Trek",
	}

	tests := []struct {
		name string
		p    models.Product
		want Components
	}{
		{
			name: "perfect",
			p:    bike("b1", "Trek", 15990, 10, "Odpružení", "Hydraulické brzdy"),
			want: Components{FeatureScore: 1, PriceScore: 1, CategoryScore: 1, BrandScore: 1, AdminPriorityScore: 1},
		},
		{
			name: "half features, brand substring",
			p:    bike("b2", "Trek Bikes", "18 990 Kč", 5, "odpružení"),
			want: Components{FeatureScore: 0.5, PriceScore: 1, CategoryScore: 1, BrandScore: 0.8, AdminPriorityScore: 0.5},
		},
		{
			name: "unparseable price",
			p:    bike("b3", "Author", "na dotaz", 0),
			want: Components{CategoryScore: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.p, req)
			assert.InDelta(t, tt.want.FeatureScore, got.Components.FeatureScore, 1e-9)
			assert.InDelta(t, tt.want.PriceScore, got.Components.PriceScore, 1e-9)
			assert.InDelta(t, tt.want.CategoryScore, got.Components.CategoryScore, 1e-9)
			assert.InDelta(t, tt.want.BrandScore, got.Components.BrandScore, 1e-9)
			assert.InDelta(t, tt.want.AdminPriorityScore, got.Components.AdminPriorityScore, 1e-9)
		})
	}
}

func TestScore_CategorySynonym(t *testing.T) {
	p := bike("b1", "Trek", 15990, 0)
	p.Subcategory = ""
	got := Default().Score(p, Requirements{Category: "bike"})
	assert.Equal(t, 0.7, got.Components.CategoryScore)

	got = Default().Score(p, Requirements{Category: "televize"})
	assert.Equal(t, 0.0, got.Components.CategoryScore)
}

func TestScore_PriceDecayIsAsymmetric(t *testing.T) {
	s := Default()
	req := Requirements{Min: ptr(10000), Max: ptr(20000)}

	below := s.Score(bike("cheap", "X", 8000, 0), req).Components.PriceScore
	above := s.Score(bike("dear", "X", 24000, 0), req).Components.PriceScore

	assert.InDelta(t, 0.9, below, 1e-9, "20% under the minimum")
	assert.InDelta(t, 0.6, above, 1e-9, "20% over the maximum")
	assert.Less(t, above, below)

	far := s.Score(bike("far", "X", 60000, 0), req).Components.PriceScore
	assert.Equal(t, 0.0, far)
}

func TestScore_EmptyRequirementsContributeNothing(t *testing.T) {
	got := Default().Score(bike("b1", "Trek", 15990, 4, "odpružení"), Requirements{
		Min: ptr(0),
		Max: ptr(conversation.UnboundedBudget),
	})
	assert.Equal(t, Components{AdminPriorityScore: 0.4}, got.Components)
	assert.InDelta(t, 0.06, got.Score, 1e-9)
}

func TestScore_Bounds(t *testing.T) {
	s := Default()
	prices := []interface{}{nil, -5, 0, 1, 999.5, "12 990 Kč", 1e12, "abc"}
	priorities := []int{-3, 0, 7, 10, 42}
	reqs := []Requirements{
		{},
		{Features: []string{"", "x"}, Min: ptr(100), Max: ptr(50)},
		{Min: ptr(0), Max: ptr(0)},
		{Category: "kolo", Brand: "t", Features: []string{"wifi"}, Max: ptr(1000)},
	}
	for _, price := range prices {
		for _, prio := range priorities {
			for i, req := range reqs {
				got := s.Score(bike("p", "Trek", price, prio, "WiFi"), req)
				name := fmt.Sprintf("price=%v prio=%d req=%d", price, prio, i)
				for _, v := range []float64{
					got.Score, got.Components.FeatureScore, got.Components.PriceScore,
					got.Components.CategoryScore, got.Components.BrandScore, got.Components.AdminPriorityScore,
				} {
					assert.GreaterOrEqual(t, v, 0.0, name)
					assert.LessOrEqual(t, v, 1.0, name)
				}
			}
		}
	}
}

// ==========================
// Ranking
// ==========================

func TestRank_StableDescending(t *testing.T) {
	products := []models.Product{
		bike("a", "Author", 15000, 2),
		bike("b", "Trek", 15000, 8),
		bike("c", "Author", 15000, 2),
		bike("d", "Author", 15000, 2),
	}
	ranked := Default().Rank(products, Requirements{Max: ptr(20000)})

	require.Len(t, ranked, 4)
	ids := []string{ranked[0].Product.ID, ranked[1].Product.ID, ranked[2].Product.ID, ranked[3].Product.ID}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRequirementsFrom(t *testing.T) {
	conv := conversation.New("c1", "shop-1")
	conv.Update("Potřebuji horské kolo do 20000 Kč", "product_recommendation", map[string]interface{}{
		"features": []string{"odpružení"},
		"brand":    "Author",
	})

	e := intent.EmptyEntities()
	e.Features = []string{"Odpružení", "kotoučové brzdy"}
	e.Brands = []string{"Trek"}

	r := RequirementsFrom(conv, e)
	assert.Equal(t, []string{"odpružení", "kotoučové brzdy"}, r.Features)
	assert.Equal(t, "kolo", r.Category)
	assert.Equal(t, "Trek", r.Brand)
	assert.Equal(t, []string{"Author"}, r.Brands)
	require.NotNil(t, r.Max)
	assert.Equal(t, 20000.0, *r.Max)

	r = RequirementsFrom(nil, intent.EmptyEntities())
	assert.Equal(t, Requirements{}, r)
}

func TestRequirementsFrom_MergesBrandLists(t *testing.T) {
	conv := conversation.New("c1", "shop-1")
	conv.Update("kolo", "product_recommendation", map[string]interface{}{
		"brands": []interface{}{"Author", "Specialized", "trek"},
	})

	r := RequirementsFrom(conv, intent.EmptyEntities())
	assert.Equal(t, "Author", r.Brand)
	assert.Equal(t, []string{"Specialized", "trek"}, r.Brands)

	e := intent.EmptyEntities()
	e.Brands = []string{"Trek", "Canyon"}
	r = RequirementsFrom(conv, e)
	assert.Equal(t, "Trek", r.Brand)
	assert.Equal(t, []string{"Author", "Specialized", "Canyon"}, r.Brands)
}

func TestScore_AnyPreferredBrandCounts(t *testing.T) {
	s := Default()
	req := Requirements{Brand: "Author", Brands: []string{"Specialized"}}

	assert.Equal(t, 1.0, s.Score(bike("b1", "Specialized", 15990, 0), req).Components.BrandScore)
	assert.Equal(t, 1.0, s.Score(bike("b2", "Author", 15990, 0), req).Components.BrandScore)
	assert.Equal(t, 0.0, s.Score(bike("b3", "Canyon", 15990, 0), req).Components.BrandScore)
}
