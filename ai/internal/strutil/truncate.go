// Package strutil provides string utility functions for the ai packages.
package strutil

// Truncate cuts s to at most maxLen runes. Returns empty string if maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// Excerpt truncates s to maxLen runes and marks the cut with "...".
func Excerpt(s string, maxLen int) string {
	cut := Truncate(s, maxLen)
	if cut != s && cut != "" {
		return cut + "..."
	}
	return cut
}
