// internal/assistant/knowledge/format.go

package knowledge

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Supported reply languages. Czech is the default.
var (
	Czech   = language.Czech
	English = language.English

	languageMatcher = language.NewMatcher([]language.Tag{Czech, English})
)

// ParseLanguage maps a language code such as "en-GB" or "cs" to a
// supported reply language; anything unknown is Czech.
func ParseLanguage(code string) language.Tag {
	code = strings.TrimSpace(code)
	if code == "" {
		return Czech
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Czech
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return Czech
	}
	if idx == 1 {
		return English
	}
	return Czech
}

// LanguageCode returns "cs" or "en".
func LanguageCode(tag language.Tag) string {
	if tag == English {
		return "en"
	}
	return "cs"
}

// FormatPrice renders an amount with locale grouping: "12 990 Kč" in Czech,
// "CZK 12,990" in English.
func FormatPrice(amount float64, currency string, lang language.Tag) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "CZK"
	}
	p := message.NewPrinter(lang)
	value := p.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
	if lang == English {
		return currency + " " + value
	}
	if currency == "CZK" {
		return value + " Kč"
	}
	return value + " " + currency
}
