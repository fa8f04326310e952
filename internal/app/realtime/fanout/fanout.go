// Package fanout delivers newly created chat messages to every open chat
// session subscribed to the message's group.
//
// Delivery is best effort: there is no replay, a subscriber whose buffer is
// full misses the event, and events published before Subscribe returns are
// not seen. Clients recover by reading history.
package fanout

import (
	"context"
	"sync"

	"github.com/dalemusser/playform/internal/domain/models"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 64

// MessageCreated is published once per persisted chat message.
type MessageCreated struct {
	GroupID string             `json:"group_id"`
	Message models.MessageView `json:"message"`
}

// Broker is the fan-out channel. Hub serves a single process; RedisBroker
// spans processes.
type Broker interface {
	Publish(ctx context.Context, ev MessageCreated) error
	Subscribe(ctx context.Context, groupID string) (*Subscription, error)
	Close() error
}

// Subscription receives events for one group until Close is called or the
// context passed to Subscribe ends. Events is closed after delivery stops.
type Subscription struct {
	ID      string
	GroupID string

	events chan MessageCreated
	done   chan struct{}
	once   sync.Once
	stop   func()
}

func newSubscription(id, groupID string, buffer int) *Subscription {
	return &Subscription{
		ID:      id,
		GroupID: groupID,
		events:  make(chan MessageCreated, buffer),
		done:    make(chan struct{}),
	}
}

// Events returns the delivery channel.
func (s *Subscription) Events() <-chan MessageCreated { return s.events }

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.stop()
	})
}

// closeWith arranges for s to close when ctx ends.
func (s *Subscription) closeWith(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}
