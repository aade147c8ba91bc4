package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dobPattern   = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
)

// NormalizePAN trims and upper-cases a PAN and reports whether it has
// exactly ten characters.
func NormalizePAN(raw string) (string, bool) {
	pan := strings.ToUpper(strings.TrimSpace(raw))
	return pan, utf8.RuneCountInString(pan) == 10
}

// NormalizeMobile strips every non-digit character and reports whether
// exactly ten digits remain.
func NormalizeMobile(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	mobile := b.String()
	return mobile, len(mobile) == 10
}

// ValidEmail reports whether the input looks like an email address.
func ValidEmail(raw string) bool {
	return emailPattern.MatchString(strings.TrimSpace(raw))
}

// ValidDOB reports whether the input matches the DD/MM/YYYY pattern.
func ValidDOB(raw string) bool {
	return dobPattern.MatchString(strings.TrimSpace(raw))
}
