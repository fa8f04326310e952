// Package normalize provides canonical forms for user-supplied strings.
// Handlers and services call these before validation so that stored values
// and lookups agree on whitespace and case.
package normalize

import (
	"strings"
	"unicode"
)

// Name trims surrounding whitespace and collapses interior runs of
// whitespace to a single space. Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// InviteCode trims and uppercases an invite code. Codes are matched exactly
// after this step.
func InviteCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Platform trims and lowercases a platform identifier.
func Platform(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status trims and lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Body trims a chat message body and drops control characters other than
// newline and tab. Interior whitespace is kept as written.
func Body(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
