// Package session holds the per-connection view of one group's chat: the
// loaded history, the paging cursor, and the live subscription.
//
// A Session moves between Closed, Loading, Ready, LoadingMore and Sending.
// Only one request runs at a time; a request made in the wrong state fails
// with ErrBusy or ErrClosed. Each request records the generation it started
// in, and a result that arrives after Close or a reopen is discarded with
// ErrStale.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/playform/internal/app/realtime/fanout"
	"github.com/dalemusser/playform/internal/app/services/chat"
	"github.com/dalemusser/playform/internal/app/system/apperr"
	"github.com/dalemusser/playform/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxAttempts bounds how often a retryable failure is tried.
const MaxAttempts = 3

// DefaultBackoff is the delay before the first retry; it doubles each time.
const DefaultBackoff = 100 * time.Millisecond

var (
	ErrClosed = errors.New("session: not open")
	ErrBusy   = errors.New("session: another request is in progress")
	ErrStale  = errors.New("session: result discarded")
)

type State int

const (
	Closed State = iota
	Loading
	Ready
	LoadingMore
	Sending
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case LoadingMore:
		return "loading_more"
	case Sending:
		return "sending"
	default:
		return "unknown"
	}
}

// Chat is the part of the chat service a session drives.
type Chat interface {
	GetHistory(ctx context.Context, groupID primitive.ObjectID, requesterID, cursor string, pageSize int) (chat.Page, error)
	SendMessage(ctx context.Context, groupID primitive.ObjectID, authorID, body string) (models.MessageView, error)
}

// Update is a message that became visible after the initial history.
type Update struct {
	Message models.MessageView
}

type Options struct {
	PageSize     int
	UpdateBuffer int
	Backoff      time.Duration
}

type Session struct {
	UserID string

	chat     Chat
	broker   fanout.Broker
	log      *zap.Logger
	pageSize int
	backoff  time.Duration
	updates  chan Update

	mu       sync.Mutex
	state    State
	gen      uint64
	groupID  primitive.ObjectID
	sub      *fanout.Subscription
	done     chan struct{}
	cursor   string
	messages []models.MessageView
	seen     map[primitive.ObjectID]struct{}
	pending  []models.MessageView
}

func New(userID string, c Chat, broker fanout.Broker, opts Options, logger *zap.Logger) *Session {
	if opts.UpdateBuffer <= 0 {
		opts.UpdateBuffer = fanout.DefaultBuffer
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	return &Session{
		UserID:   userID,
		chat:     c,
		broker:   broker,
		log:      logger,
		pageSize: opts.PageSize,
		backoff:  opts.Backoff,
		updates:  make(chan Update, opts.UpdateBuffer),
	}
}

// Updates delivers live messages in arrival order. It is never closed; a
// consumer stops reading when it stops using the session.
func (s *Session) Updates() <-chan Update { return s.updates }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of everything loaded so far, oldest first.
func (s *Session) Messages() []models.MessageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MessageView, len(s.messages))
	copy(out, s.messages)
	return out
}

// HasMore reports whether older history remains to be loaded.
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor != ""
}

// Open loads the newest page of groupID and subscribes to its live feed.
// Both run concurrently; live messages that arrive before the page are held
// and merged into the returned list without duplicates.
//
// The subscription stays open until Close or until ctx ends, so ctx should
// live as long as the connection.
func (s *Session) Open(ctx context.Context, groupID primitive.ObjectID) ([]models.MessageView, error) {
	s.mu.Lock()
	if s.state != Closed {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.gen++
	gen := s.gen
	done := make(chan struct{})
	s.state = Loading
	s.groupID = groupID
	s.done = done
	s.cursor = ""
	s.messages = nil
	s.seen = make(map[primitive.ObjectID]struct{})
	s.pending = nil
	s.mu.Unlock()

	var (
		page chat.Page
		sub  *fanout.Subscription
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.retry(gctx, "history", apperr.Retryable, func(ctx context.Context) error {
			p, err := s.chat.GetHistory(ctx, groupID, s.UserID, "", s.pageSize)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
	})
	g.Go(func() error {
		sb, err := s.broker.Subscribe(ctx, groupID.Hex())
		if err != nil {
			return apperr.FanoutDelivery("subscribe to group", err)
		}
		sub = sb
		go s.pump(gen, sb, done)
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		return nil, ErrStale
	}
	if err != nil {
		s.gen++
		s.state = Closed
		close(done)
		s.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		s.log.Warn("open chat session failed",
			zap.String("group_id", groupID.Hex()),
			zap.String("user_id", s.UserID),
			zap.Error(err))
		return nil, err
	}

	s.sub = sub
	s.cursor = page.NextCursor
	for _, m := range page.Messages {
		s.add(m)
	}
	for _, m := range s.pending {
		s.add(m)
	}
	s.pending = nil
	s.state = Ready
	out := make([]models.MessageView, len(s.messages))
	copy(out, s.messages)
	s.mu.Unlock()

	return out, nil
}

// add appends m unless it is already loaded. Caller holds s.mu.
func (s *Session) add(m models.MessageView) bool {
	if _, ok := s.seen[m.ID]; ok {
		return false
	}
	s.seen[m.ID] = struct{}{}
	s.messages = append(s.messages, m)
	return true
}

func (s *Session) pump(gen uint64, sub *fanout.Subscription, done chan struct{}) {
	for ev := range sub.Events() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		if s.state == Loading {
			s.pending = append(s.pending, ev.Message)
			s.mu.Unlock()
			continue
		}
		added := s.add(ev.Message)
		s.mu.Unlock()

		if added && !s.emit(context.Background(), ev.Message, done) {
			return
		}
	}
}

// emit delivers m on Updates. It returns false once the session closes or
// ctx ends.
func (s *Session) emit(ctx context.Context, m models.MessageView, done chan struct{}) bool {
	select {
	case s.updates <- Update{Message: m}:
		return true
	case <-done:
		return false
	case <-ctx.Done():
		return false
	}
}

// begin moves a Ready session into next and returns the request's
// generation.
func (s *Session) begin(next State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Ready:
		s.state = next
		return s.gen, nil
	case Closed:
		return 0, ErrClosed
	default:
		return 0, ErrBusy
	}
}

// LoadMore fetches the page before the oldest loaded message and prepends
// it. It returns the newly loaded messages, or nothing when history is
// exhausted.
func (s *Session) LoadMore(ctx context.Context) ([]models.MessageView, error) {
	s.mu.Lock()
	if s.state == Ready && s.cursor == "" {
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()

	gen, err := s.begin(LoadingMore)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	groupID, cursor := s.groupID, s.cursor
	s.mu.Unlock()

	var page chat.Page
	err = s.retry(ctx, "load more", apperr.Retryable, func(ctx context.Context) error {
		p, err := s.chat.GetHistory(ctx, groupID, s.UserID, cursor, s.pageSize)
		if err != nil {
			return err
		}
		page = p
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, ErrStale
	}
	s.state = Ready
	if err != nil {
		return nil, err
	}

	older := make([]models.MessageView, 0, len(page.Messages))
	for _, m := range page.Messages {
		if _, ok := s.seen[m.ID]; ok {
			continue
		}
		s.seen[m.ID] = struct{}{}
		older = append(older, m)
	}
	s.messages = append(append(make([]models.MessageView, 0, len(older)+len(s.messages)), older...), s.messages...)
	s.cursor = page.NextCursor
	return older, nil
}

// Send posts body to the open group. The confirmed message is appended and
// emitted on Updates unless the live feed delivered it first.
func (s *Session) Send(ctx context.Context, body string) (models.MessageView, error) {
	gen, err := s.begin(Sending)
	if err != nil {
		return models.MessageView{}, err
	}
	s.mu.Lock()
	groupID, done := s.groupID, s.done
	s.mu.Unlock()

	var view models.MessageView
	err = s.retry(ctx, "send", sendRetryable, func(ctx context.Context) error {
		v, err := s.chat.SendMessage(ctx, groupID, s.UserID, body)
		if err != nil {
			return err
		}
		view = v
		return nil
	})

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return models.MessageView{}, ErrStale
	}
	s.state = Ready
	if err != nil {
		s.mu.Unlock()
		return models.MessageView{}, err
	}
	added := s.add(view)
	s.mu.Unlock()

	if added {
		s.emit(ctx, view, done)
	}
	return view, nil
}

// sendRetryable excludes timeouts: the insert may have committed before the
// deadline hit, and a retry would store the message twice.
func sendRetryable(err error) bool {
	return apperr.Retryable(err) && !mongo.IsTimeout(err)
}

// Close releases the subscription and discards any request in flight.
// It is safe to call in any state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.state = Closed
	close(s.done)
	sub := s.sub
	s.sub = nil
	s.pending = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// retry runs fn until it succeeds, fails with an error retryable rejects, or
// has been tried MaxAttempts times.
func (s *Session) retry(ctx context.Context, op string, retryable func(error) bool, fn func(context.Context) error) error {
	delay := s.backoff
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !retryable(err) || attempt >= MaxAttempts {
			return err
		}
		s.log.Debug("retrying chat request",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
		delay *= 2
	}
}
