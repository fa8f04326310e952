// internal/app/policy/grouppolicy/grouppolicy.go
package grouppolicy

import (
	"context"

	"github.com/dalemusser/playform/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipChecker answers whether a user is an active member of a group.
// The membership store satisfies it.
type MembershipChecker interface {
	IsActive(ctx context.Context, groupID primitive.ObjectID, userID string) (bool, error)
}

// RequireActiveMember gates chat reads, sends and event streams. It returns
// nil for active members, a forbidden error for everyone else, and a
// persistence error when the check itself fails, so callers can distinguish
// "not authorized" from "database error".
func RequireActiveMember(ctx context.Context, m MembershipChecker, groupID primitive.ObjectID, userID string) error {
	if userID == "" {
		return apperr.Forbidden("Sign in to view this group.")
	}
	ok, err := m.IsActive(ctx, groupID, userID)
	if err != nil {
		return apperr.Persistence("membership check failed", err)
	}
	if !ok {
		return apperr.Forbidden("You are not a member of this group.")
	}
	return nil
}
