// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership statuses. Only MembershipActive grants chat access and
// counts toward a group's capacity.
const (
	MembershipActive = "active"
)

// GroupMembership is the authoritative join between users and groups.
// At most one active document exists per (group_id, user_id).
type GroupMembership struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   string             `bson:"user_id" json:"user_id"`
	Status   string             `bson:"status" json:"status"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}
