// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"

	"github.com/dalemusser/playform/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads display names. Profiles are written by the identity provider.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// DisplayName returns the user's full name, or models.FallbackDisplayName
// when the profile is missing or has no name.
func (s *Store) DisplayName(ctx context.Context, userID string) (string, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"full_name": 1})).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.FallbackDisplayName, nil
	}
	if err != nil {
		return "", err
	}
	return p.DisplayName(), nil
}

// DisplayNames resolves many users in one query. Every requested id is
// present in the result; unknown users map to the fallback name.
func (s *Store) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	for _, id := range userIDs {
		out[id] = models.FallbackDisplayName
	}

	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}},
		options.Find().SetProjection(bson.M{"full_name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out[p.ID] = p.DisplayName()
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
