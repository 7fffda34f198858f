package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestParseBudget(t *testing.T) {
	tests := []struct {
		name  string
		query string
		min   *float64
		max   *float64
		found bool
	}{
		{name: "czech max", query: "horské kolo do 20000 Kč", max: ptr(20000), found: true},
		{name: "grouped thousands", query: "televize do 20 000 Kč", max: ptr(20000), found: true},
		{name: "dot grouping", query: "notebook pod 25.000 kc", max: ptr(25000), found: true},
		{name: "k suffix", query: "mobil do 15k", max: ptr(15000), found: true},
		{name: "czech min", query: "něco od 5000", min: ptr(5000), found: true},
		{name: "range with thousands word", query: "mezi 10 a 15 tisíc", min: ptr(10000), max: ptr(15000), found: true},
		{name: "range keeps small lower bound", query: "od 500 do 15 tisíc", min: ptr(500), max: ptr(15000), found: true},
		{name: "explicit range", query: "od 8000 do 12000 Kč", min: ptr(8000), max: ptr(12000), found: true},
		{name: "bare range with currency", query: "pračka 9000-12000 Kč", min: ptr(9000), max: ptr(12000), found: true},
		{name: "english under", query: "a laptop under $500", max: ptr(500), found: true},
		{name: "comma thousands with dollar", query: "laptop under $1,500", max: ptr(1500), found: true},
		{name: "comma thousands with code", query: "a phone up to 1,200 USD", max: ptr(1200), found: true},
		{name: "space thousands", query: "kolo do 1 500 Kč", max: ptr(1500), found: true},
		{name: "comma decimal", query: "pouzdro do 12,50 €", max: ptr(12.5), found: true},
		{name: "comma thousands range", query: "between $1,000 and $1,500", min: ptr(1000), max: ptr(1500), found: true},
		{name: "english at least", query: "phones at least 300 EUR", min: ptr(300), found: true},
		{name: "measurement is not a price", query: "televize do 55 palců", found: false},
		{name: "weight is not a price", query: "kolo do 12 kg", found: false},
		{name: "no numbers", query: "dobrý den", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := ParseBudget(tt.query)
			assert.Equal(t, tt.found, ok)
			if tt.min == nil {
				assert.Nil(t, b.Min)
			} else {
				require.NotNil(t, b.Min)
				assert.InDelta(t, *tt.min, *b.Min, 0.001)
			}
			if tt.max == nil {
				assert.Nil(t, b.Max)
			} else {
				require.NotNil(t, b.Max)
				assert.InDelta(t, *tt.max, *b.Max, 0.001)
			}
		})
	}
}

func TestParseBudget_UnitBeforePrice(t *testing.T) {
	b, ok := ParseBudget("pračka 8 kg do 15000 Kč")
	require.True(t, ok)
	require.NotNil(t, b.Max)
	assert.Equal(t, 15000.0, *b.Max)
	assert.Nil(t, b.Min)
}
