package fanout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/playform/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func event(groupID, body string) MessageCreated {
	return MessageCreated{
		GroupID: groupID,
		Message: models.MessageView{ID: primitive.NewObjectID(), Body: body},
	}
}

func recv(t *testing.T, sub *Subscription) MessageCreated {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return MessageCreated{}
}

func TestHub_SubscribeAndPublish(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, "g1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	if err := hub.Publish(ctx, event("g1", "hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	ev := recv(t, sub)
	if ev.Message.Body != "hello" {
		t.Errorf("Body = %q, want %q", ev.Message.Body, "hello")
	}
}

func TestHub_MultipleSubscribers(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	ctx := context.Background()

	subs := make([]*Subscription, 3)
	for i := range subs {
		s, err := hub.Subscribe(ctx, "g1")
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer s.Close()
		subs[i] = s
	}

	hub.Publish(ctx, event("g1", "broadcast"))

	for i, s := range subs {
		if ev := recv(t, s); ev.Message.Body != "broadcast" {
			t.Errorf("subscriber %d got %q", i, ev.Message.Body)
		}
	}
}

func TestHub_TopicIsolation(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	ctx := context.Background()

	other, _ := hub.Subscribe(ctx, "g2")
	defer other.Close()

	hub.Publish(ctx, event("g1", "for g1"))

	select {
	case ev := <-other.Events():
		t.Errorf("g2 subscriber received %q", ev.Message.Body)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	if err := hub.Publish(context.Background(), event("nobody", "x")); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
}

func TestHub_Close_StopsDelivery(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	ctx := context.Background()

	sub, _ := hub.Subscribe(ctx, "g1")
	sub.Close()
	sub.Close() // second close is a no-op

	hub.Publish(ctx, event("g1", "late"))

	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed channel after Close")
	}
	if st := hub.Stats(); st.Topics != 0 || st.Subscribers != 0 {
		t.Errorf("Stats = %+v, want empty", st)
	}
}

func TestHub_ContextCancelReleases(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	sub, _ := hub.Subscribe(ctx, "g1")
	cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("unexpected event")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not released after context cancel")
	}
}

func TestHub_FullBufferDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(2, zap.NewNop())
	ctx := context.Background()

	slow, _ := hub.Subscribe(ctx, "g1") // never drained
	defer slow.Close()
	fast, _ := hub.Subscribe(ctx, "g1")
	defer fast.Close()

	var got []string
	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		go func(i int) {
			hub.Publish(ctx, event("g1", fmt.Sprintf("m%d", i)))
			close(done)
		}(i)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a slow subscriber")
		}
		got = append(got, recv(t, fast).Message.Body)
	}

	if len(got) != 5 {
		t.Errorf("fast subscriber got %d events, want 5", len(got))
	}
	if len(slow.Events()) != 2 {
		t.Errorf("slow subscriber buffered %d, want 2", len(slow.Events()))
	}
	if st := hub.Stats(); st.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", st.Dropped)
	}
}

func TestHub_OrderPerTopic(t *testing.T) {
	hub := NewHub(256, zap.NewNop())
	ctx := context.Background()

	a, _ := hub.Subscribe(ctx, "g1")
	defer a.Close()
	b, _ := hub.Subscribe(ctx, "g1")
	defer b.Close()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				hub.Publish(ctx, event("g1", fmt.Sprintf("p%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		ea, eb := recv(t, a), recv(t, b)
		if ea.Message.ID != eb.Message.ID {
			t.Fatalf("subscribers disagree on order at %d: %s vs %s", i, ea.Message.Body, eb.Message.Body)
		}
	}
}

func TestHub_ClosedRejectsSubscribe(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	sub, _ := hub.Subscribe(context.Background(), "g1")
	hub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("expected existing subscription to be closed")
	}
	if _, err := hub.Subscribe(context.Background(), "g1"); err != ErrClosed {
		t.Errorf("Subscribe after Close = %v, want ErrClosed", err)
	}
}
