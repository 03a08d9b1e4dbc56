package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"objektFeed/internal/model"
	"objektFeed/internal/replay"
)

type fakeSession struct {
	id       string
	writable bool
	sendErr  error

	mu   sync.Mutex
	sent [][]byte
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id, writable: true}
}

func (s *fakeSession) ID() string     { return s.id }
func (s *fakeSession) Writable() bool { return s.writable }

func (s *fakeSession) Send(msg []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSession) messages(t *testing.T) []model.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, 0, len(s.sent))
	for _, raw := range s.sent {
		msg, err := model.DecodeMessage(raw)
		if err != nil {
			t.Fatalf("decode message: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

type failingBuffer struct {
	replay.Buffer
}

func (failingBuffer) Append(context.Context, []model.TransferEvent) error {
	return errors.New("redis down")
}

func event(id string, ts int64) model.TransferEvent {
	return model.TransferEvent{ID: id, BlockTimestamp: time.Unix(ts, 0).UTC()}
}

func TestConnectSendsHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	buf := replay.NewMemory(50)
	if err := buf.Append(ctx, []model.TransferEvent{event("e3", 3), event("e2", 2), event("e1", 1)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h := New(NewSessionSet(), buf, zap.NewNop())

	s := newFakeSession("a")
	if err := h.Connect(ctx, s); err != nil {
		t.Fatalf("connect: %v", err)
	}

	msgs := s.messages(t)
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(msgs))
	}
	if msgs[0].Type() != model.MessageTypeHistory {
		t.Fatalf("expected history, got %s", msgs[0].Type())
	}
	got := msgs[0].Events()
	if len(got) != 3 || got[0].ID != "e3" || got[1].ID != "e2" || got[2].ID != "e1" {
		t.Fatalf("unexpected history: %+v", got)
	}
	if h.Sessions() != 1 {
		t.Fatalf("session not registered")
	}
}

func TestConnectEmptyHistorySendsNothing(t *testing.T) {
	h := New(NewSessionSet(), replay.NewMemory(50), zap.NewNop())
	s := newFakeSession("a")
	if err := h.Connect(context.Background(), s); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(s.messages(t)) != 0 {
		t.Fatalf("empty buffer must not produce a history message")
	}
}

func TestConnectUsesCutoff(t *testing.T) {
	ctx := context.Background()
	buf := replay.NewMemory(50)
	_ = buf.Append(ctx, []model.TransferEvent{event("e3", 30), event("e2", 20), event("e1", 10)})

	cutoff := WithCutoff(func(context.Context) (time.Time, bool, error) {
		return time.Unix(20, 0), true, nil
	})
	h := New(NewSessionSet(), buf, zap.NewNop(), cutoff)

	s := newFakeSession("a")
	if err := h.Connect(ctx, s); err != nil {
		t.Fatalf("connect: %v", err)
	}
	got := s.messages(t)[0].Events()
	if len(got) != 1 || got[0].ID != "e3" {
		t.Fatalf("unexpected history: %+v", got)
	}
}

func TestConnectCutoffFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	buf := replay.NewMemory(50)
	_ = buf.Append(ctx, []model.TransferEvent{event("e2", 20), event("e1", 10)})

	for name, fn := range map[string]CutoffFunc{
		"error": func(context.Context) (time.Time, bool, error) { return time.Time{}, false, errors.New("db down") },
		"none":  func(context.Context) (time.Time, bool, error) { return time.Time{}, false, nil },
	} {
		h := New(NewSessionSet(), buf, zap.NewNop(), WithCutoff(fn))
		s := newFakeSession(name)
		if err := h.Connect(ctx, s); err != nil {
			t.Fatalf("%s: connect: %v", name, err)
		}
		if got := s.messages(t)[0].Events(); len(got) != 2 {
			t.Fatalf("%s: expected full snapshot, got %d events", name, len(got))
		}
	}
}

func TestPublishOnlyWritableSessions(t *testing.T) {
	ctx := context.Background()
	h := New(NewSessionSet(), replay.NewMemory(50), zap.NewNop())

	open1, open2, closed := newFakeSession("open1"), newFakeSession("open2"), newFakeSession("closed")
	closed.writable = false
	for _, s := range []*fakeSession{open1, open2, closed} {
		if err := h.Connect(ctx, s); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}

	batch := []model.TransferEvent{event("b", 2), event("a", 1)}
	if err := h.Publish(ctx, batch); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, s := range []*fakeSession{open1, open2} {
		msgs := s.messages(t)
		if len(msgs) != 1 || msgs[0].Type() != model.MessageTypeTransfer || len(msgs[0].Events()) != 2 {
			t.Fatalf("session %s got %+v", s.id, msgs)
		}
	}
	if len(closed.messages(t)) != 0 {
		t.Fatalf("non-writable session must not receive messages")
	}
}

func TestPublishSkipsFailingSession(t *testing.T) {
	ctx := context.Background()
	h := New(NewSessionSet(), replay.NewMemory(50), zap.NewNop())

	broken, ok := newFakeSession("broken"), newFakeSession("ok")
	broken.sendErr = ErrNotWritable
	_ = h.Connect(ctx, broken)
	_ = h.Connect(ctx, ok)

	if err := h.Publish(ctx, []model.TransferEvent{event("a", 1)}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ok.messages(t)) != 1 {
		t.Fatalf("healthy session should still receive the batch")
	}
}

func TestPublishDeliversWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	h := New(NewSessionSet(), failingBuffer{Buffer: replay.NewMemory(50)}, zap.NewNop())

	s := newFakeSession("a")
	_ = h.Connect(ctx, s)
	if err := h.Publish(ctx, []model.TransferEvent{event("a", 1)}); err != nil {
		t.Fatalf("publish must not fail on persistence errors: %v", err)
	}
	if len(s.messages(t)) != 1 {
		t.Fatalf("expected live delivery despite persistence failure")
	}
}

func TestPublishThenConnectReplays(t *testing.T) {
	ctx := context.Background()
	h := New(NewSessionSet(), replay.NewMemory(3), zap.NewNop())

	_ = h.Publish(ctx, []model.TransferEvent{event("b", 2), event("a", 1)})
	_ = h.Publish(ctx, []model.TransferEvent{event("d", 4), event("c", 3)})

	s := newFakeSession("late")
	_ = h.Connect(ctx, s)
	got := s.messages(t)[0].Events()
	want := []string{"d", "c", "b"}
	for i, ev := range got {
		if ev.ID != want[i] {
			t.Fatalf("history[%d] = %s, want %s", i, ev.ID, want[i])
		}
	}
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	h := New(NewSessionSet(), replay.NewMemory(50), zap.NewNop())
	s := newFakeSession("a")
	_ = h.Connect(ctx, s)
	h.Disconnect(s)

	_ = h.Publish(ctx, []model.TransferEvent{event("a", 1)})
	if len(s.messages(t)) != 0 {
		t.Fatalf("disconnected session must not receive messages")
	}
	if h.Sessions() != 0 {
		t.Fatalf("registry not empty")
	}
}

func TestSessionSetConcurrent(t *testing.T) {
	set := NewSessionSet()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFakeSession(fmt.Sprintf("s%d", i))
			set.Add(s)
			_ = set.Sessions()
			if i%2 == 0 {
				set.Remove(s)
			}
		}(i)
	}
	wg.Wait()
	if set.Len() != 25 {
		t.Fatalf("len = %d, want 25", set.Len())
	}
}
