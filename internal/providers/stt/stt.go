package stt

import "strings"

const (
	DefaultLanguage     = "en-US"
	DefaultSampleRateHz = 16000
)

// NormalizeLanguage maps short codes to BCP-47 tags.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "id", "id-ID":
		return "id-ID"
	case "en", "en-US":
		return "en-US"
	case "en-GB", "gb", "uk":
		return "en-GB"
	default:
		if v == "" {
			return DefaultLanguage
		}
		return v
	}
}
