// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/playform/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

// ErrDuplicateMembership is returned by Add when the user already holds an
// active membership in the group. The partial unique index raises it, so
// it holds under concurrent joins.
var ErrDuplicateMembership = errors.New("user is already a member of this group")

// Add inserts an active membership for (groupID, userID).
func (s *Store) Add(ctx context.Context, groupID primitive.ObjectID, userID string) (models.GroupMembership, error) {
	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Status:   models.MembershipActive,
		JoinedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMembership{}, ErrDuplicateMembership
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// IsActive reports whether userID holds an active membership in groupID.
func (s *Store) IsActive(ctx context.Context, groupID primitive.ObjectID, userID string) (bool, error) {
	err := s.c.FindOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "status": models.MembershipActive},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountActive returns the number of active memberships in a group.
func (s *Store) CountActive(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "status": models.MembershipActive})
}

// ListActiveByUser returns the user's active memberships, most recent first.
func (s *Store) ListActiveByUser(ctx context.Context, userID string) ([]models.GroupMembership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID, "status": models.MembershipActive}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
