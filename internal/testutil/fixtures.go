package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/playform/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
	n  int
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// nextCode returns a distinct 6-character invite code per call.
func (f *Fixtures) nextCode() string {
	f.n++
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := []byte("TST000")
	n := f.n
	for i := len(b) - 1; i >= 3 && n > 0; i-- {
		b[i] = alphabet[n%len(alphabet)]
		n /= len(alphabet)
	}
	return string(b)
}

// CreateGroup inserts a group with the given capacity and no members.
// Use AddMember to enroll users; it keeps member_count in step.
func (f *Fixtures) CreateGroup(ctx context.Context, name, creatorID string, maxMembers int) models.Group {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	g := models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Platform:    "netflix",
		MonthlyCost: 15.99,
		MaxMembers:  maxMembers,
		CreatorID:   creatorID,
		InviteCode:  f.nextCode(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// AddMember inserts an active membership and bumps the group's seat counter.
func (f *Fixtures) AddMember(ctx context.Context, groupID primitive.ObjectID, userID string) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Status:   models.MembershipActive,
		JoinedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to add test member: %v", err)
	}
	if _, err := f.db.Collection("groups").UpdateByID(ctx, groupID,
		bson.M{"$inc": bson.M{"member_count": 1}}); err != nil {
		f.t.Fatalf("failed to bump member_count: %v", err)
	}
	return m
}

// CreateMessage inserts a chat message with an explicit timestamp.
func (f *Fixtures) CreateMessage(ctx context.Context, groupID primitive.ObjectID, authorID, body string, at time.Time) models.ChatMessage {
	f.t.Helper()

	m := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: at.UTC().Truncate(time.Millisecond),
	}
	if _, err := f.db.Collection("chat_messages").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return m
}

// CreateProfile inserts a profile row.
func (f *Fixtures) CreateProfile(ctx context.Context, userID, fullName string) models.Profile {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := models.Profile{ID: userID, FullName: fullName, CreatedAt: now, UpdatedAt: now}
	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}
