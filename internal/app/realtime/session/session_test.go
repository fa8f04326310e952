package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/playform/internal/app/realtime/fanout"
	"github.com/dalemusser/playform/internal/app/services/chat"
	"github.com/dalemusser/playform/internal/app/system/apperr"
	"github.com/dalemusser/playform/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeChat struct {
	mu           sync.Mutex
	historyCalls int
	sendCalls    int
	history      func(cursor string) (chat.Page, error)
	send         func(body string) (models.MessageView, error)
}

func (f *fakeChat) GetHistory(_ context.Context, _ primitive.ObjectID, _, cursor string, _ int) (chat.Page, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	return f.history(cursor)
}

func (f *fakeChat) SendMessage(_ context.Context, _ primitive.ObjectID, _, body string) (models.MessageView, error) {
	f.mu.Lock()
	f.sendCalls++
	f.mu.Unlock()
	return f.send(body)
}

func (f *fakeChat) calls() (history, send int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls, f.sendCalls
}

func msg(groupID primitive.ObjectID, body string) models.MessageView {
	return models.MessageView{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		AuthorID:   "alice",
		AuthorName: "Alice",
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
}

func newTestSession(fc *fakeChat, hub *fanout.Hub) *Session {
	return New("alice", fc, hub, Options{PageSize: 20, Backoff: time.Millisecond}, zap.NewNop())
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func bodiesOf(ms []models.MessageView) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Body
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOpen_LoadsHistoryAndStreamsLive(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()
	first := msg(gid, "first")

	fc := &fakeChat{history: func(string) (chat.Page, error) {
		return chat.Page{Messages: []models.MessageView{first}}, nil
	}}
	s := newTestSession(fc, hub)
	defer s.Close()

	got, err := s.Open(context.Background(), gid)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !equal(bodiesOf(got), []string{"first"}) {
		t.Errorf("history = %v", bodiesOf(got))
	}
	if s.State() != Ready {
		t.Errorf("state = %s, want ready", s.State())
	}

	live := msg(gid, "live")
	if err := hub.Publish(context.Background(), fanout.MessageCreated{GroupID: gid.Hex(), Message: live}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	select {
	case u := <-s.Updates():
		if u.Message.ID != live.ID {
			t.Errorf("update %s, want %s", u.Message.Body, live.Body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no live update")
	}
}

func TestOpen_MergesEarlyEventsWithoutDuplicates(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()
	inHistory := msg(gid, "in-history")
	early := msg(gid, "early")

	release := make(chan struct{})
	fc := &fakeChat{history: func(string) (chat.Page, error) {
		<-release
		return chat.Page{Messages: []models.MessageView{inHistory}}, nil
	}}
	s := newTestSession(fc, hub)
	defer s.Close()

	type result struct {
		msgs []models.MessageView
		err  error
	}
	out := make(chan result, 1)
	go func() {
		m, err := s.Open(context.Background(), gid)
		out <- result{m, err}
	}()

	waitFor(t, "subscription", func() bool { return hub.Stats().Subscribers == 1 })
	for _, m := range []models.MessageView{inHistory, early} {
		if err := hub.Publish(context.Background(), fanout.MessageCreated{GroupID: gid.Hex(), Message: m}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	waitFor(t, "buffered events", func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.pending) == 2
	})
	close(release)

	res := <-out
	if res.err != nil {
		t.Fatalf("Open failed: %v", res.err)
	}
	if got := bodiesOf(res.msgs); !equal(got, []string{"in-history", "early"}) {
		t.Errorf("messages = %v, want [in-history early]", got)
	}
	select {
	case u := <-s.Updates():
		t.Errorf("unexpected update %s", u.Message.Body)
	default:
	}
}

func TestOpen_FailureReleasesSubscription(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()

	fc := &fakeChat{history: func(string) (chat.Page, error) {
		return chat.Page{}, apperr.Forbidden("not a member")
	}}
	s := newTestSession(fc, hub)

	_, err := s.Open(context.Background(), primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
	if h, _ := fc.calls(); h != 1 {
		t.Errorf("history called %d times, want 1 (not retryable)", h)
	}
	waitFor(t, "subscription release", func() bool { return hub.Stats().Subscribers == 0 })
}

func TestOpen_RetriesPersistenceErrors(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fails := 2
	fc := &fakeChat{}
	fc.history = func(string) (chat.Page, error) {
		if fails > 0 {
			fails--
			return chat.Page{}, apperr.Persistence("db down", errors.New("timeout"))
		}
		return chat.Page{Messages: []models.MessageView{msg(gid, "ok")}}, nil
	}
	s := newTestSession(fc, hub)
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if h, _ := fc.calls(); h != 3 {
		t.Errorf("history called %d times, want 3", h)
	}
}

func TestOpen_GivesUpAfterMaxAttempts(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()

	fc := &fakeChat{history: func(string) (chat.Page, error) {
		return chat.Page{}, apperr.Persistence("db down", errors.New("timeout"))
	}}
	s := newTestSession(fc, hub)

	_, err := s.Open(context.Background(), primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if h, _ := fc.calls(); h != MaxAttempts {
		t.Errorf("history called %d times, want %d", h, MaxAttempts)
	}
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
}

func TestOpen_CloseDiscardsInFlightResult(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()

	release := make(chan struct{})
	fc := &fakeChat{history: func(string) (chat.Page, error) {
		<-release
		return chat.Page{}, nil
	}}
	s := newTestSession(fc, hub)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Open(context.Background(), primitive.NewObjectID())
		errc <- err
	}()

	waitFor(t, "loading", func() bool { return s.State() == Loading })
	s.Close()
	close(release)

	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Errorf("expected ErrStale, got %v", err)
	}
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
	waitFor(t, "subscription release", func() bool { return hub.Stats().Subscribers == 0 })
}

func TestLoadMore(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()
	m1, m2, m3, m4 := msg(gid, "m1"), msg(gid, "m2"), msg(gid, "m3"), msg(gid, "m4")

	fc := &fakeChat{history: func(cursor string) (chat.Page, error) {
		switch cursor {
		case "":
			return chat.Page{Messages: []models.MessageView{m3, m4}, NextCursor: "c1"}, nil
		case "c1":
			return chat.Page{Messages: []models.MessageView{m1, m2}}, nil
		}
		return chat.Page{}, apperr.Validation("bad cursor")
	}}
	s := newTestSession(fc, hub)
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !s.HasMore() {
		t.Fatal("expected more history")
	}

	older, err := s.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	if got := bodiesOf(older); !equal(got, []string{"m1", "m2"}) {
		t.Errorf("older = %v", got)
	}
	if got := bodiesOf(s.Messages()); !equal(got, []string{"m1", "m2", "m3", "m4"}) {
		t.Errorf("messages = %v", got)
	}
	if s.HasMore() {
		t.Error("expected history to be exhausted")
	}

	older, err = s.LoadMore(context.Background())
	if err != nil || older != nil {
		t.Errorf("LoadMore at end = %v, %v; want nil, nil", older, err)
	}
	if h, _ := fc.calls(); h != 2 {
		t.Errorf("history called %d times, want 2", h)
	}
	if s.State() != Ready {
		t.Errorf("state = %s, want ready", s.State())
	}
}

func TestLoadMore_FailureRestoresReady(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fc := &fakeChat{history: func(cursor string) (chat.Page, error) {
		if cursor == "" {
			return chat.Page{Messages: []models.MessageView{msg(gid, "m")}, NextCursor: "c1"}, nil
		}
		return chat.Page{}, apperr.Validation("The history cursor is not valid.")
	}}
	s := newTestSession(fc, hub)
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.LoadMore(context.Background()); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if s.State() != Ready {
		t.Errorf("state = %s, want ready", s.State())
	}
	if !s.HasMore() {
		t.Error("cursor should be kept after a failed load")
	}
}

func TestSend_EmitsOnceWhenFeedAlsoDelivers(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fc := &fakeChat{history: func(string) (chat.Page, error) { return chat.Page{}, nil }}
	fc.send = func(body string) (models.MessageView, error) {
		v := msg(gid, body)
		_ = hub.Publish(context.Background(), fanout.MessageCreated{GroupID: gid.Hex(), Message: v})
		return v, nil
	}
	s := newTestSession(fc, hub)
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	view, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case u := <-s.Updates():
		if u.Message.ID != view.ID {
			t.Errorf("update %s, want %s", u.Message.ID.Hex(), view.ID.Hex())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update for sent message")
	}
	select {
	case u := <-s.Updates():
		t.Errorf("duplicate update %s", u.Message.Body)
	case <-time.After(100 * time.Millisecond):
	}

	if got := bodiesOf(s.Messages()); !equal(got, []string{"hello"}) {
		t.Errorf("messages = %v", got)
	}
}

func TestSend_FailureRestoresReady(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fc := &fakeChat{history: func(string) (chat.Page, error) { return chat.Page{}, nil }}
	fc.send = func(string) (models.MessageView, error) {
		return models.MessageView{}, apperr.Validation("Message cannot be empty.")
	}
	s := newTestSession(fc, hub)
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Send(context.Background(), ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, n := fc.calls(); n != 1 {
		t.Errorf("send called %d times, want 1", n)
	}
	if s.State() != Ready {
		t.Errorf("state = %s, want ready", s.State())
	}
}

func TestSend_ReturnsWhenUpdatesAreNotDrained(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fc := &fakeChat{history: func(string) (chat.Page, error) { return chat.Page{}, nil }}
	fc.send = func(body string) (models.MessageView, error) { return msg(gid, body), nil }
	s := New("alice", fc, hub, Options{PageSize: 20, UpdateBuffer: 1, Backoff: time.Millisecond}, zap.NewNop())
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Fill the one-slot buffer and leave it undrained.
	if err := hub.Publish(context.Background(), fanout.MessageCreated{GroupID: gid.Hex(), Message: msg(gid, "live")}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	waitFor(t, "live message", func() bool { return len(s.Messages()) == 1 })
	waitFor(t, "buffer full", func() bool { return len(s.updates) == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		_, err := s.Send(ctx, "hi")
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Send failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked after its context expired")
	}
	if s.State() != Ready {
		t.Errorf("state = %s, want ready", s.State())
	}
	if got := bodiesOf(s.Messages()); !equal(got, []string{"live", "hi"}) {
		t.Errorf("messages = %v", got)
	}
}

func TestSend_DoesNotRetryTimeouts(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fc := &fakeChat{history: func(string) (chat.Page, error) { return chat.Page{}, nil }}
	fc.send = func(string) (models.MessageView, error) {
		return models.MessageView{}, apperr.Persistence("could not send message", context.DeadlineExceeded)
	}
	s := newTestSession(fc, hub)
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Send(context.Background(), "hi"); !errors.Is(err, apperr.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
	if _, n := fc.calls(); n != 1 {
		t.Errorf("send called %d times, want 1", n)
	}
}

func TestSend_RetriesPersistenceErrors(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fc := &fakeChat{history: func(string) (chat.Page, error) { return chat.Page{}, nil }}
	var failures int
	fc.send = func(body string) (models.MessageView, error) {
		if failures < 2 {
			failures++
			return models.MessageView{}, apperr.Persistence("could not send message", errors.New("connection reset"))
		}
		return msg(gid, body), nil
	}
	s := newTestSession(fc, hub)
	defer s.Close()

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, n := fc.calls(); n != 3 {
		t.Errorf("send called %d times, want 3", n)
	}
}

func TestStateErrors(t *testing.T) {
	hub := fanout.NewHub(16, zap.NewNop())
	defer hub.Close()
	gid := primitive.NewObjectID()

	fc := &fakeChat{history: func(string) (chat.Page, error) { return chat.Page{}, nil }}
	s := newTestSession(fc, hub)

	if _, err := s.Send(context.Background(), "hi"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send on closed session: got %v, want ErrClosed", err)
	}
	if _, err := s.LoadMore(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("LoadMore on closed session: got %v, want ErrClosed", err)
	}

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Open(context.Background(), gid); !errors.Is(err, ErrBusy) {
		t.Errorf("second Open: got %v, want ErrBusy", err)
	}

	s.Close()
	s.Close()
	if s.State() != Closed {
		t.Errorf("state = %s, want closed", s.State())
	}
	waitFor(t, "subscription release", func() bool { return hub.Stats().Subscribers == 0 })

	if _, err := s.Open(context.Background(), gid); err != nil {
		t.Errorf("reopen failed: %v", err)
	}
	s.Close()
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Closed:      "closed",
		Loading:     "loading",
		Ready:       "ready",
		LoadingMore: "loading_more",
		Sending:     "sending",
		State(99):   "unknown",
	}
	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(st), got, want)
		}
	}
}
