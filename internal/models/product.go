// internal/models/product.go
package models

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Pricing amounts come from tenant imports and may be numbers or localized
// strings such as "12 990 Kč" or "1.299,90".
type Pricing struct {
	OneTime  interface{} `bson:"one_time,omitempty" json:"one_time,omitempty"`
	Monthly  interface{} `bson:"monthly,omitempty" json:"monthly,omitempty"`
	Annual   interface{} `bson:"annual,omitempty" json:"annual,omitempty"`
	Currency string      `bson:"currency,omitempty" json:"currency,omitempty"`
}

// Product is a read-only catalog entry owned by a single tenant.
type Product struct {
	ID             string                 `bson:"_id" json:"id"`
	UserID         string                 `bson:"user_id" json:"user_id"`
	Name           string                 `bson:"name" json:"name"`
	Description    string                 `bson:"description,omitempty" json:"description,omitempty"`
	Category       string                 `bson:"category,omitempty" json:"category,omitempty"`
	Subcategory    string                 `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	Brand          string                 `bson:"brand,omitempty" json:"brand,omitempty"`
	Features       []string               `bson:"features,omitempty" json:"features,omitempty"`
	Pricing        Pricing                `bson:"pricing" json:"pricing"`
	AdminPriority  int                    `bson:"admin_priority" json:"admin_priority"`
	TechnicalSpecs map[string]interface{} `bson:"technical_specs,omitempty" json:"technical_specs,omitempty"`
	Pros           []string               `bson:"pros,omitempty" json:"pros,omitempty"`
	Cons           []string               `bson:"cons,omitempty" json:"cons,omitempty"`
	ImageURL       string                 `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ProductURL     string                 `bson:"product_url,omitempty" json:"product_url,omitempty"`
	CompatibleWith []string               `bson:"compatible_with,omitempty" json:"compatible_with,omitempty"`
	UpdatedAt      time.Time              `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Price returns the one-time price when it parses.
func (p *Product) Price() (float64, bool) {
	return ParsePrice(p.Pricing.OneTime)
}

// Currency defaults to CZK.
func (p *Product) Currency() string {
	if p.Pricing.Currency == "" {
		return "CZK"
	}
	return strings.ToUpper(p.Pricing.Currency)
}

// HasFeature matches case-insensitively, either way round as a substring.
func (p *Product) HasFeature(feature string) bool {
	f := strings.ToLower(strings.TrimSpace(feature))
	if f == "" {
		return false
	}
	for _, pf := range p.Features {
		lpf := strings.ToLower(pf)
		if lpf == f || strings.Contains(lpf, f) || strings.Contains(f, lpf) {
			return true
		}
	}
	return false
}

var currencyTokens = []string{"czk", "kč", "kc", "eur", "€", "usd", "$", ",-", ".-"}

// ParsePrice converts a catalog amount to a float. It accepts numeric types
// and strings with currency markers, thousands separators and a comma or dot
// decimal separator. Unparseable or negative values return false.
func ParsePrice(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return finite(float64(n))
	case int32:
		return finite(float64(n))
	case int64:
		return finite(float64(n))
	case string:
		return parsePriceString(n)
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

func parsePriceString(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == ',', r == '.':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == ' ', r == '\'':
			// thousands grouping
		default:
			return 0, false
		}
	}
	s = strings.Trim(b.String(), ".,")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

// normalizeSingleSeparator treats sep as a thousands separator when it
// repeats or is followed by exactly three digits, otherwise as the decimal point.
func normalizeSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	if len(s)-idx-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}
