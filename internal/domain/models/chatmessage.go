// internal/domain/models/chatmessage.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is one immutable message in a group's chat feed.
// Messages are ordered by (CreatedAt, ID) ascending.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	AuthorID  string             `bson:"author_id" json:"author_id"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// MessageView is a chat message as shown to clients, with the author's
// display name resolved.
type MessageView struct {
	ID         primitive.ObjectID `json:"id"`
	GroupID    primitive.ObjectID `json:"group_id"`
	AuthorID   string             `json:"author_id"`
	AuthorName string             `json:"author_name"`
	Body       string             `json:"body"`
	CreatedAt  time.Time          `json:"created_at"`
}

// View pairs m with a resolved author name.
func (m ChatMessage) View(authorName string) MessageView {
	if authorName == "" {
		authorName = FallbackDisplayName
	}
	return MessageView{
		ID:         m.ID,
		GroupID:    m.GroupID,
		AuthorID:   m.AuthorID,
		AuthorName: authorName,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
	}
}
