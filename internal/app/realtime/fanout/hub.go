package fanout

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type topic struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

// Hub is the in-process broker. Publish holds the topic lock while it
// enqueues, so every subscriber of a group sees events in the same order.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
	buffer int
	log    *zap.Logger
	closed bool

	delivered atomic.Int64
	dropped   atomic.Int64
}

// Stats is a snapshot of hub counters.
type Stats struct {
	Topics      int
	Subscribers int
	Delivered   int64
	Dropped     int64
}

// NewHub returns a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		topics: make(map[string]*topic),
		buffer: buffer,
		log:    logger,
	}
}

// Publish enqueues ev for every current subscriber of ev.GroupID. A full
// subscriber buffer drops the event for that subscriber only.
func (h *Hub) Publish(_ context.Context, ev MessageCreated) error {
	h.mu.Lock()
	t := h.topics[ev.GroupID]
	h.mu.Unlock()
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subs {
		select {
		case sub.events <- ev:
			h.delivered.Add(1)
		default:
			h.dropped.Add(1)
			h.log.Debug("subscriber buffer full; event dropped",
				zap.String("group_id", ev.GroupID),
				zap.String("subscription_id", sub.ID))
		}
	}
	return nil
}

// Subscribe registers a subscription for groupID. It is released by
// Subscription.Close or when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, groupID string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := newSubscription(uuid.NewString(), groupID, h.buffer)
	sub.stop = func() { h.remove(groupID, sub) }

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	t := h.topics[groupID]
	if t == nil {
		t = &topic{subs: make(map[string]*Subscription)}
		h.topics[groupID] = t
	}
	t.mu.Lock()
	t.subs[sub.ID] = sub
	t.mu.Unlock()
	h.mu.Unlock()

	sub.closeWith(ctx)
	return sub, nil
}

func (h *Hub) remove(groupID string, sub *Subscription) {
	h.mu.Lock()
	t := h.topics[groupID]
	if t != nil {
		t.mu.Lock()
		delete(t.subs, sub.ID)
		if len(t.subs) == 0 {
			delete(h.topics, groupID)
		}
		t.mu.Unlock()
	}
	h.mu.Unlock()
	// Removed under the topic lock, so no publisher can still be sending.
	close(sub.events)
}

// Stats returns current counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Stats{
		Topics:    len(h.topics),
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
	}
	for _, t := range h.topics {
		t.mu.Lock()
		s.Subscribers += len(t.subs)
		t.mu.Unlock()
	}
	return s
}

// Close releases every subscription and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	var subs []*Subscription
	for _, t := range h.topics {
		t.mu.Lock()
		for _, s := range t.subs {
			subs = append(subs, s)
		}
		t.mu.Unlock()
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}
