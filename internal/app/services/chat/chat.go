// Package chat serves a group's message history and accepts new messages,
// publishing each one to the fan-out broker after it is stored.
package chat

import (
	"context"
	"unicode/utf8"

	"github.com/dalemusser/playform/internal/app/policy/grouppolicy"
	"github.com/dalemusser/playform/internal/app/realtime/fanout"
	membershipstore "github.com/dalemusser/playform/internal/app/store/memberships"
	messagestore "github.com/dalemusser/playform/internal/app/store/messages"
	profilestore "github.com/dalemusser/playform/internal/app/store/profiles"
	"github.com/dalemusser/playform/internal/app/system/apperr"
	"github.com/dalemusser/playform/internal/app/system/normalize"
	"github.com/dalemusser/playform/internal/app/system/paging"
	"github.com/dalemusser/playform/internal/app/system/ratelimit"
	"github.com/dalemusser/playform/internal/app/system/timeouts"
	"github.com/dalemusser/playform/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxBodyRunes is the longest message body accepted.
const MaxBodyRunes = 2000

// Default send limits per user.
const (
	DefaultSendRate  = 5.0
	DefaultSendBurst = 10
)

// Page is one page of history, oldest message first.
type Page struct {
	Messages   []models.MessageView `json:"messages"`
	NextCursor string               `json:"next_cursor"`
}

// Service is safe for concurrent use.
type Service struct {
	Memberships *membershipstore.Store
	Messages    *messagestore.Store
	Profiles    *profilestore.Store
	Broker      fanout.Broker
	Limiter     *ratelimit.Limiter
	PageSize    int
	Log         *zap.Logger
}

func New(db *mongo.Database, broker fanout.Broker, limiter *ratelimit.Limiter, logger *zap.Logger) *Service {
	if limiter == nil {
		limiter = ratelimit.New(DefaultSendRate, DefaultSendBurst)
	}
	return &Service{
		Memberships: membershipstore.New(db),
		Messages:    messagestore.New(db),
		Profiles:    profilestore.New(db),
		Broker:      broker,
		Limiter:     limiter,
		PageSize:    paging.DefaultPageSize,
		Log:         logger,
	}
}

// GetHistory returns the page of messages strictly older than cursor, or
// the newest page when cursor is empty.
func (s *Service) GetHistory(ctx context.Context, groupID primitive.ObjectID, requesterID, cursor string, pageSize int) (Page, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.Log, "chat history")
	defer cancel()

	if err := grouppolicy.RequireActiveMember(ctx, s.Memberships, groupID, requesterID); err != nil {
		return Page{}, err
	}

	var before *paging.Cursor
	if cursor != "" {
		c, ok := paging.DecodeCursor(cursor)
		if !ok {
			return Page{}, apperr.Validation("The history cursor is not valid.")
		}
		before = &c
	}

	pageSize = paging.ClampPageSize(pageSize, s.PageSize)
	rows, err := s.Messages.ListBefore(ctx, groupID, before, paging.LimitPlusOne(pageSize))
	if err != nil {
		s.Log.Error("load chat history failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
		return Page{}, apperr.Persistence("could not load messages", err)
	}
	hasMore := paging.TrimPage(&rows, pageSize)
	paging.Reverse(rows)

	page := Page{Messages: s.views(ctx, rows)}
	if hasMore && len(rows) > 0 {
		oldest := rows[0]
		page.NextCursor = paging.Cursor{CreatedAt: oldest.CreatedAt, ID: oldest.ID}.Encode()
	}
	return page, nil
}

// views resolves author names in one batch. A failed lookup degrades to
// the fallback name rather than failing the read.
func (s *Service) views(ctx context.Context, rows []models.ChatMessage) []models.MessageView {
	ids := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, m := range rows {
		if _, ok := seen[m.AuthorID]; !ok {
			seen[m.AuthorID] = struct{}{}
			ids = append(ids, m.AuthorID)
		}
	}

	names, err := s.Profiles.DisplayNames(ctx, ids)
	if err != nil {
		s.Log.Warn("author name lookup failed", zap.Error(err))
		names = nil
	}

	out := make([]models.MessageView, len(rows))
	for i, m := range rows {
		out[i] = m.View(names[m.AuthorID])
	}
	return out
}

// SendMessage stores body as a new message from authorID and publishes it
// to the group's subscribers. The message is durable once this returns nil;
// fan-out failures are logged and not reported.
func (s *Service) SendMessage(ctx context.Context, groupID primitive.ObjectID, authorID, body string) (models.MessageView, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.Log, "send message")
	defer cancel()

	if err := grouppolicy.RequireActiveMember(ctx, s.Memberships, groupID, authorID); err != nil {
		return models.MessageView{}, err
	}

	body = normalize.Body(body)
	if body == "" {
		return models.MessageView{}, apperr.Validation("Message cannot be empty.")
	}
	if utf8.RuneCountInString(body) > MaxBodyRunes {
		return models.MessageView{}, apperr.Validation("Message must be at most 2000 characters.")
	}

	if !s.Limiter.Allow(authorID) {
		return models.MessageView{}, apperr.Validation("You are sending too fast. Wait a moment and try again.")
	}

	msg, err := s.Messages.Insert(ctx, groupID, authorID, body)
	if err != nil {
		s.Log.Error("insert message failed",
			zap.String("group_id", groupID.Hex()),
			zap.String("author_id", authorID),
			zap.Error(err))
		return models.MessageView{}, apperr.Persistence("could not send message", err)
	}

	name, err := s.Profiles.DisplayName(ctx, authorID)
	if err != nil {
		s.Log.Warn("author name lookup failed", zap.String("author_id", authorID), zap.Error(err))
	}
	view := msg.View(name)

	s.publish(ctx, view)
	return view, nil
}

func (s *Service) publish(ctx context.Context, view models.MessageView) {
	if s.Broker == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()

	ev := fanout.MessageCreated{GroupID: view.GroupID.Hex(), Message: view}
	if err := s.Broker.Publish(pctx, ev); err != nil {
		err = apperr.FanoutDelivery("publish message", err)
		s.Log.Warn("fan-out failed; message is stored",
			zap.String("group_id", ev.GroupID),
			zap.String("message_id", view.ID.Hex()),
			zap.Error(err))
	}
}
