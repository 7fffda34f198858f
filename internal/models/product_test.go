package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected float64
		ok       bool
	}{
		{"float", 12990.0, 12990, true},
		{"int", 1500, 1500, true},
		{"int32 from bson", int32(799), 799, true},
		{"int64 from bson", int64(25000), 25000, true},
		{"plain string", "15000", 15000, true},
		{"czech grouping with currency", "12 990 Kč", 12990, true},
		{"non-breaking space", "12 990 Kč", 12990, true},
		{"comma decimal", "499,90", 499.90, true},
		{"dot thousands comma decimal", "1.299,90", 1299.90, true},
		{"comma thousands dot decimal", "1,299.90", 1299.90, true},
		{"dot thousands only", "1.299", 1299, true},
		{"dash suffix", "1299,-", 1299, true},
		{"dollar prefix", "$499.99", 499.99, true},
		{"euro suffix", "89 EUR", 89, true},
		{"multiple dot groups", "1.000.000", 1000000, true},
		{"empty string", "", 0, false},
		{"text", "na dotaz", 0, false},
		{"negative", "-5", 0, false},
		{"negative float", -1.0, 0, false},
		{"nan", math.NaN(), 0, false},
		{"nil", nil, 0, false},
		{"unsupported type", []int{1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, got, 0.001)
			}
		})
	}
}

func TestProduct_HasFeature(t *testing.T) {
	p := &Product{Features: []string{"Odpružení", "Hydraulické brzdy", "WiFi"}}

	assert.True(t, p.HasFeature("odpružení"))
	assert.True(t, p.HasFeature("brzdy"))
	assert.True(t, p.HasFeature("wifi"))
	assert.False(t, p.HasFeature("bluetooth"))
	assert.False(t, p.HasFeature("  "))
}

func TestProduct_CurrencyDefault(t *testing.T) {
	assert.Equal(t, "CZK", (&Product{}).Currency())
	assert.Equal(t, "EUR", (&Product{Pricing: Pricing{Currency: "eur"}}).Currency())
}
