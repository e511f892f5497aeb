package strutil

import "strings"

// IsEmpty reports whether s has no characters at all.
func IsEmpty(s string) bool {
	return len(s) == 0
}

// IsBlank reports whether s is empty or contains only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Trim removes leading and trailing whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Empty returns the empty string. Used as the default subject and body.
func Empty() string {
	return ""
}
