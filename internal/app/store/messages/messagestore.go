// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"time"

	"github.com/dalemusser/playform/internal/app/system/paging"
	"github.com/dalemusser/playform/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chat_messages")}
}

// Insert stores a message, assigning its ID and created_at.
func (s *Store) Insert(ctx context.Context, groupID primitive.ObjectID, authorID, body string) (models.ChatMessage, error) {
	m := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.ChatMessage{}, err
	}
	return m, nil
}

// ListBefore returns up to limit messages in groupID, newest first. When
// before is non-nil only messages strictly older than it are returned.
func (s *Store) ListBefore(ctx context.Context, groupID primitive.ObjectID, before *paging.Cursor, limit int64) ([]models.ChatMessage, error) {
	filter := bson.M{"group_id": groupID}
	if before != nil {
		for k, v := range before.OlderThan() {
			filter[k] = v
		}
	}

	opts := options.Find().SetSort(paging.NewestFirst()).SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.ChatMessage, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
