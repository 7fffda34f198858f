// internal/assistant/extract/generic.go

package extract

import (
	"regexp"
	"strings"

	"widget-assistant/internal/assistant/lexicon"
)

var (
	dimensionsRe  = regexp.MustCompile(`(\d{1,4}(?:[.,]\d)?)\s*x\s*(\d{1,4}(?:[.,]\d)?)(?:\s*x\s*(\d{1,4}(?:[.,]\d)?))?\s*(cm|mm)`)
	weightRe      = regexp.MustCompile(`(?:vaha|vazici|vazi|hmotnost\w*|weight|weighing|weighs|lehci nez|lighter than)\D{0,12}?(\d{1,3}(?:[.,]\d{1,2})?)\s*kg`)
	energyKWhRe   = regexp.MustCompile(`(\d{1,4}(?:[.,]\d{1,2})?)\s*kwh`)
	energyClassRe = regexp.MustCompile(`(?:energetick\w*\s+trid\w*|energy\s+class|trid[ay]|class)\s*([a-g]\+{0,3})(?:[^a-z0-9]|$)|\b(a\+{1,3})`)
)

var materialWords = keywordMap{
	{"hlinik", "aluminium"},
	{"alu ", "aluminium"},
	{"aluminium", "aluminium"},
	{"aluminum", "aluminium"},
	{"karbon", "carbon"},
	{"carbon", "carbon"},
	{"ocel", "steel"},
	{"steel", "steel"},
	{"nerez", "stainless steel"},
	{"stainless", "stainless steel"},
	{"titan", "titanium"},
	{"drev", "wood"},
	{"wood", "wood"},
	{"plast", "plastic"},
	{"plastic", "plastic"},
	{"sklo", "glass"},
	{"glass", "glass"},
}

var connectivityWords = keywordMap{
	{"wifi", "wifi"},
	{"wi-fi", "wifi"},
	{"bluetooth", "bluetooth"},
	{"nfc", "nfc"},
	{"5g", "5g"},
	{"usb-c", "usb-c"},
	{"usb c", "usb-c"},
	{"hdmi", "hdmi"},
	{"ethernet", "ethernet"},
}

var colorWords = keywordMap{
	{" cern", "black"},
	{" black", "black"},
	{" bila", "white"},
	{" bile", "white"},
	{" bily", "white"},
	{" bilou", "white"},
	{" white", "white"},
	{" stribr", "silver"},
	{" silver", "silver"},
	{" seda", "grey"},
	{" sede", "grey"},
	{" sedy", "grey"},
	{" grey", "grey"},
	{" gray", "grey"},
	{" cerven", "red"},
	{" red ", "red"},
	{" modr", "blue"},
	{" blue", "blue"},
	{" zelen", "green"},
	{" green", "green"},
}

type genericExtractor struct{}

func (genericExtractor) Domain() lexicon.Domain { return lexicon.DomainGeneric }

func (genericExtractor) Extract(s string) map[string]interface{} {
	out := make(map[string]interface{})

	if m := dimensionsRe.FindStringSubmatch(s); m != nil {
		parts := []string{m[1], m[2]}
		if m[3] != "" {
			parts = append(parts, m[3])
		}
		out["dimensions"] = strings.ReplaceAll(strings.Join(parts, "x"), ",", ".") + " " + m[4]
	}
	if v, ok := firstNumber(weightRe, s); ok {
		out["weight_kg"] = v
	}
	if v, ok := firstNumber(energyKWhRe, s); ok {
		out["energy_kwh"] = v
	}
	if m := energyClassRe.FindStringSubmatch(s); m != nil {
		class := m[1]
		if class == "" {
			class = m[2]
		}
		out["energy_class"] = strings.ToUpper(class)
	}
	if materials := materialWords.all(wordPadded(s)); len(materials) > 0 {
		out["materials"] = materials
	}
	if conn := connectivityWords.all(s); len(conn) > 0 {
		out["connectivity"] = conn
	}
	if color, ok := colorWords.first(wordStarts(s)); ok {
		out["color"] = color
	}
	return out
}

// wordPadded pads text with spaces so stems like "alu " match at the end.
func wordPadded(s string) string {
	return " " + s + " "
}

// wordStarts rebuilds text from tokens with single spaces so stems with a
// leading space match word starts only.
func wordStarts(s string) string {
	tokens := lexicon.Tokens(s)
	return " " + strings.Join(tokens, " ") + " "
}
