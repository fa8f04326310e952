// internal/domain/models/profile.go
package models

import "time"

// FallbackDisplayName is shown for authors without a profile or name.
const FallbackDisplayName = "User"

// Profile maps an external user id to a display name.
// Profiles are owned by the identity provider; this service only reads them.
type Profile struct {
	ID        string    `bson:"_id" json:"id"`
	FullName  string    `bson:"full_name" json:"full_name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DisplayName returns the profile's name or the fallback label.
func (p Profile) DisplayName() string {
	if p.FullName == "" {
		return FallbackDisplayName
	}
	return p.FullName
}
