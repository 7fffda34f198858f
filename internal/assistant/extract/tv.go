// internal/assistant/extract/tv.go

package extract

import (
	"regexp"

	"widget-assistant/internal/assistant/lexicon"
)

var tvResolutions = keywordMap{
	{"8k", "8K"},
	{"4k", "4K"},
	{"uhd", "4K"},
	{"2160p", "4K"},
	{"full hd", "Full HD"},
	{"fullhd", "Full HD"},
	{"fhd", "Full HD"},
	{"1080p", "Full HD"},
	{"hd ready", "HD"},
	{"720p", "HD"},
}

// qled must be checked before oled, mini led before led
var tvPanels = keywordMap{
	{"qled", "QLED"},
	{"oled", "OLED"},
	{"mini led", "Mini LED"},
	{"mini-led", "Mini LED"},
	{"miniled", "Mini LED"},
	{"nanocell", "NanoCell"},
	{"led", "LED"},
}

var tvPlatforms = keywordMap{
	{"android", "Android TV"},
	{"google tv", "Google TV"},
	{"webos", "webOS"},
	{"tizen", "Tizen"},
	{"roku", "Roku"},
}

var (
	refreshRateRe = regexp.MustCompile(`(\d{2,3})\s*hz`)
	tvSizeCmRe    = regexp.MustCompile(`(\d{2,3})\s*cm`)
)

type tvExtractor struct{}

func (tvExtractor) Domain() lexicon.Domain { return lexicon.DomainTV }

func (tvExtractor) Extract(s string) map[string]interface{} {
	out := make(map[string]interface{})
	if v, ok := screenSize(s, 32, 100); ok {
		out["screen_size_inch"] = v
	} else if cm, ok := firstNumber(tvSizeCmRe, s); ok && cm >= 80 && cm <= 255 {
		out["screen_size_inch"] = float64(int(cm/2.54 + 0.5))
	}
	if r, ok := tvResolutions.first(s); ok {
		out["resolution"] = r
	}
	if p, ok := tvPanels.first(s); ok {
		out["panel"] = p
	}
	if v, ok := firstNumber(refreshRateRe, s); ok && v >= 50 && v <= 240 {
		out["refresh_rate_hz"] = v
	}
	if p, ok := tvPlatforms.first(s); ok {
		out["smart"] = true
		out["smart_platform"] = p
	} else if containsAny(s, "smart") {
		out["smart"] = true
	}
	return out
}
