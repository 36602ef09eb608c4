package session

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var phonePattern = regexp.MustCompile(`^\+?\d{8,15}$`)

// SanitizePhone strips everything except digits and '+' from raw and checks
// the result is an optional '+' followed by 8 to 15 digits.
//
// Returns:
//   - string: The sanitised number, or "" when invalid
//   - bool: Whether the number is valid
func SanitizePhone(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if !phonePattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// truncateRunes cuts s to at most limit characters without splitting a rune.
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// IsCancel reports whether text is a cancellation request.
func IsCancel(text string) bool {
	t := strings.TrimSpace(text)
	return strings.EqualFold(t, "cancel") || strings.EqualFold(t, "/cancel")
}
