package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// SanitizeDeviceText cleans free text reported by field controllers before it is
// stored or pushed to dashboards. Output is at most maxLen bytes of valid UTF-8.
func SanitizeDeviceText(input string, maxLen int) string {
	text := strings.TrimSpace(input)
	text = stripHTML(text)
	text = removeControlChars(text)
	text = strings.TrimSpace(text)

	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	return text
}

// SanitizeIdentifier keeps letters, digits, dash and underscore.
func SanitizeIdentifier(input string) string {
	var result strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// stripHTML removes HTML tags from string
func stripHTML(input string) string {
	return htmlTag.ReplaceAllString(input, "")
}

// removeControlChars removes control characters from string
func removeControlChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
