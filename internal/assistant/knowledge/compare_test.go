package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"widget-assistant/internal/models"
)

func product(id string, price interface{}, features ...string) *models.Product {
	return &models.Product{ID: id, Name: "Produkt " + id, Features: features, Pricing: models.Pricing{OneTime: price}}
}

func TestCompareProducts_CheaperWithMoreFeaturesWins(t *testing.T) {
	p1 := product("p1", 1000.0, "A", "B", "C")
	p2 := product("p2", 1500.0, "A", "B")

	c := CompareProducts(p1, p2, Czech)

	assert.Equal(t, []string{"A", "B"}, c.CommonFeatures)
	assert.Equal(t, []string{"C"}, c.UniqueToFirst)
	assert.Empty(t, c.UniqueToSecond)
	assert.Equal(t, 500.0, c.PriceDifference)
	assert.InDelta(t, 33.3, c.PricePercentage, 0.05)
	assert.Equal(t, "p1", c.CheaperProductID)
	assert.Equal(t, "p1", c.ValueWinnerID)
	assert.Contains(t, c.PriceComparison, "33 %")
	assert.Contains(t, c.OverallRecommendation, "Produkt p1")
}

func TestCompareProducts_TradeOff(t *testing.T) {
	cheap := product("c", 8000.0, "4K")
	dear := product("d", 10000.0, "4K", "HDR10+", "120 Hz")

	c := CompareProducts(dear, cheap, English)

	assert.Equal(t, "c", c.CheaperProductID)
	assert.Empty(t, c.ValueWinnerID)
	assert.InDelta(t, 20.0, c.PricePercentage, 0.001)
	assert.Contains(t, c.PriceComparison, "20% cheaper")
	assert.Contains(t, c.OverallRecommendation, "HDR10+, 120 Hz")
	assert.Contains(t, c.OverallRecommendation, "budget-friendly")
}

func TestCompareProducts_EdgeCases(t *testing.T) {
	t.Run("equal prices", func(t *testing.T) {
		c := CompareProducts(product("a", 500.0, "x"), product("b", "500 Kč", "x"), Czech)
		assert.Empty(t, c.CheaperProductID)
		assert.Zero(t, c.PriceDifference)
		assert.Contains(t, c.PriceComparison, "stejně")
		assert.Contains(t, c.OverallRecommendation, "srovnatelné")
	})

	t.Run("missing price", func(t *testing.T) {
		c := CompareProducts(product("a", nil), product("b", 100.0), English)
		assert.Empty(t, c.CheaperProductID)
		assert.Nil(t, c.First.Price)
		require.NotNil(t, c.Second.Price)
		assert.Equal(t, 100.0, *c.Second.Price)
		assert.Contains(t, c.PriceComparison, "not available")
	})

	t.Run("features compared case-insensitively", func(t *testing.T) {
		c := CompareProducts(product("a", 1.0, "WiFi", "wifi", "NFC"), product("b", 2.0, "wifi "), English)
		assert.Equal(t, []string{"WiFi"}, c.CommonFeatures)
		assert.Equal(t, []string{"NFC"}, c.UniqueToFirst)
		assert.Empty(t, c.UniqueToSecond)
	})

	t.Run("inputs untouched", func(t *testing.T) {
		p1 := product("a", 1.0, "x", "y")
		_ = CompareProducts(p1, product("b", 2.0, "y"), Czech)
		assert.Equal(t, []string{"x", "y"}, p1.Features)
	})
}
