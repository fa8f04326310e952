// internal/domain/models/platform.go
package models

import "strings"

// Platform is a subscription service a group can share.
type Platform struct {
	Value string // The value stored in the database
	Label string // The display label in the UI
}

// Platforms is the single source of truth for valid platform values.
// "other" covers anything not listed.
var Platforms = []Platform{
	{Value: "netflix", Label: "Netflix"},
	{Value: "spotify", Label: "Spotify"},
	{Value: "disney", Label: "Disney+"},
	{Value: "amazon", Label: "Amazon Prime"},
	{Value: "hulu", Label: "Hulu"},
	{Value: "youtube", Label: "YouTube Premium"},
	{Value: "apple", Label: "Apple TV+"},
	{Value: "hbo", Label: "HBO Max"},
	{Value: "other", Label: "Other"},
}

// IsValidPlatform reports whether value names a known platform (case-insensitive).
func IsValidPlatform(value string) bool {
	_, ok := PlatformLabel(value)
	return ok
}

// PlatformLabel returns the display label for a platform value.
func PlatformLabel(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, p := range Platforms {
		if p.Value == v {
			return p.Label, true
		}
	}
	return "", false
}
