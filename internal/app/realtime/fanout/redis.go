package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelPrefix namespaces chat channels on a shared Redis.
const ChannelPrefix = "playform:chat:"

// RedisBroker fans out through Redis pub/sub so sessions on every process
// receive messages sent through any process. Each Subscription owns one
// Redis subscription and one pump goroutine, which keeps per-channel order.
type RedisBroker struct {
	rdb    *redis.Client
	buffer int
	log    *zap.Logger
	closed atomic.Bool

	dropped atomic.Int64
}

// NewRedisBroker wraps an already connected client. Close does not close
// the client; the owner of the client does.
func NewRedisBroker(rdb *redis.Client, buffer int, logger *zap.Logger) *RedisBroker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &RedisBroker{rdb: rdb, buffer: buffer, log: logger}
}

func channel(groupID string) string { return ChannelPrefix + groupID }

// Publish sends ev as JSON on the group's channel.
func (b *RedisBroker) Publish(ctx context.Context, ev MessageCreated) error {
	if b.closed.Load() {
		return ErrClosed
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("fanout: encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channel(ev.GroupID), payload).Err(); err != nil {
		return fmt.Errorf("fanout: redis publish: %w", err)
	}
	return nil
}

// Subscribe opens a Redis subscription for groupID and waits for Redis to
// confirm it, so events published after Subscribe returns are delivered.
func (b *RedisBroker) Subscribe(ctx context.Context, groupID string) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	ps := b.rdb.Subscribe(ctx, channel(groupID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("fanout: redis subscribe: %w", err)
	}

	sub := newSubscription(uuid.NewString(), groupID, b.buffer)
	sub.stop = func() { _ = ps.Close() }

	go b.pump(sub, ps.Channel())
	sub.closeWith(ctx)
	return sub, nil
}

func (b *RedisBroker) pump(sub *Subscription, in <-chan *redis.Message) {
	defer close(sub.events)
	for {
		select {
		case <-sub.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ev MessageCreated
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropping undecodable chat event",
					zap.String("channel", msg.Channel),
					zap.Error(err))
				continue
			}
			select {
			case sub.events <- ev:
			case <-sub.done:
				return
			default:
				b.dropped.Add(1)
				b.log.Debug("subscriber buffer full; event dropped",
					zap.String("group_id", sub.GroupID),
					zap.String("subscription_id", sub.ID))
			}
		}
	}
}

// Ping checks the Redis connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Dropped returns how many events were dropped on full buffers.
func (b *RedisBroker) Dropped() int64 { return b.dropped.Load() }

// Close rejects new publishes and subscriptions. Open subscriptions end
// when their owners close them.
func (b *RedisBroker) Close() error {
	b.closed.Store(true)
	return nil
}
