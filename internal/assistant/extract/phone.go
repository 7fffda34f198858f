// internal/assistant/extract/phone.go

package extract

import (
	"regexp"

	"widget-assistant/internal/assistant/lexicon"
)

var (
	plainStorageRe = regexp.MustCompile(`(64|128|256|512|1024)\s*gb`)
	cameraRe       = regexp.MustCompile(`(\d{1,3})\s*(?:mpx|mp\b|megapix\w*)`)
	batteryRe      = regexp.MustCompile(`(\d{4,5})\s*mah`)
)

var phoneOS = keywordMap{
	{"iphone", "iOS"},
	{"ios", "iOS"},
	{"android", "Android"},
}

type phoneExtractor struct{}

func (phoneExtractor) Domain() lexicon.Domain { return lexicon.DomainPhone }

func (phoneExtractor) Extract(s string) map[string]interface{} {
	out := make(map[string]interface{})
	if v, ok := storageGB(s); ok {
		out["storage_gb"] = v
	} else if v, ok := firstNumber(plainStorageRe, s); ok {
		out["storage_gb"] = v
	}
	if v, ok := ramGB(s); ok {
		out["ram_gb"] = v
	}
	if v, ok := screenSize(s, 4, 8); ok {
		out["screen_size_inch"] = v
	}
	if os, ok := phoneOS.first(wordPadded(s)); ok {
		out["os"] = os
	}
	if v, ok := firstNumber(cameraRe, s); ok {
		out["camera_mpx"] = v
	}
	if v, ok := firstNumber(batteryRe, s); ok {
		out["battery_mah"] = v
	}
	return out
}
