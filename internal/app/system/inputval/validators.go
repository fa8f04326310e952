package inputval

import (
	"strings"

	"github.com/dalemusser/playform/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteCodeLength is the fixed length of a group invite code.
const InviteCodeLength = 6

// InviteCodeAlphabet is the set of characters an invite code is drawn from.
const InviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IsValidPlatform reports whether p names a platform in the catalog.
func IsValidPlatform(p string) bool {
	return models.IsValidPlatform(p)
}

// IsValidInviteCode reports whether code has the invite code shape.
// The check is case-sensitive; normalize first.
func IsValidInviteCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(InviteCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return IsValidPlatform(fl.Field().String())
	})
	_ = v.RegisterValidation("invitecode", func(fl validator.FieldLevel) bool {
		return IsValidInviteCode(fl.Field().String())
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
}
