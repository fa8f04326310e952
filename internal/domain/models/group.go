// internal/domain/models/group.go
package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a cost-sharing group for one subscription.
//
// NOTE:
//   - Membership rows live in the group_memberships collection; MemberCount
//     is only the seat counter used to enforce MaxMembers under concurrency.
//   - InviteCode is unique across all groups and never changes.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Platform    string             `bson:"platform" json:"platform"`
	MonthlyCost float64            `bson:"monthly_cost" json:"monthly_cost"`
	MaxMembers  int                `bson:"max_members" json:"max_members"`
	MemberCount int                `bson:"member_count" json:"member_count"`
	CreatorID   string             `bson:"creator_id" json:"creator_id"`
	InviteCode  string             `bson:"invite_code" json:"invite_code"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// OpenSeats returns how many more members the group can take.
func (g Group) OpenSeats() int {
	n := g.MaxMembers - g.MemberCount
	if n < 0 {
		return 0
	}
	return n
}

// CostPerMember splits the monthly cost evenly across members,
// rounded to cents. A group with no members reports the full cost.
func CostPerMember(monthlyCost float64, members int) float64 {
	if members < 1 {
		members = 1
	}
	return math.Round(monthlyCost/float64(members)*100) / 100
}
