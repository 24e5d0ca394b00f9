// Package normalize trims and case-folds user-supplied identifiers before
// they are stored or compared.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username trims surrounding whitespace; case is preserved for display.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lowercases a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status trims and lowercases a presence status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Title trims a note or group title.
func Title(s string) string {
	return strings.TrimSpace(s)
}
