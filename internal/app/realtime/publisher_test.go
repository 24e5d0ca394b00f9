package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type recordingEmitter struct {
	mu  sync.Mutex
	out []Outbound
	err error
}

func (e *recordingEmitter) Emit(_ context.Context, o Outbound) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out = append(e.out, o)
	return e.err
}

func (e *recordingEmitter) statuses(userID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var s []string
	for _, o := range e.out {
		if su, ok := o.Message.Data.(StatusUpdate); ok && su.UserID == userID {
			s = append(s, su.Status)
		}
	}
	return s
}

func TestPublisher_FirstAndLastConnection(t *testing.T) {
	store := &fakeStatus{}
	bus := &recordingEmitter{}
	p := NewPublisher(store, bus, zap.NewNop())
	ctx := context.Background()

	_ = p.Connected(ctx, userA)
	_ = p.Connected(ctx, userA)
	if p.Online("userA") != 2 {
		t.Errorf("Online = %d, want 2", p.Online("userA"))
	}
	_ = p.Disconnected(ctx, userA)
	if got := bus.statuses("userA"); len(got) != 1 || got[0] != StatusOnline {
		t.Fatalf("after one of two disconnects: %v", got)
	}
	_ = p.Disconnected(ctx, userA)

	got := bus.statuses("userA")
	if len(got) != 2 || got[1] != StatusOffline {
		t.Errorf("statuses = %v, want [online offline]", got)
	}
	calls := store.history()
	if len(calls) != 2 || calls[0].Status != StatusOnline || calls[1].Status != StatusOffline {
		t.Errorf("store calls = %+v", calls)
	}
	for _, o := range bus.out {
		if o.Scope != ScopeGlobal || o.Message.Event != EventUpdateStatus {
			t.Errorf("status must be global update-status, got %v %s", o.Scope, o.Message.Event)
		}
	}
}

func TestPublisher_StoreFailureStillPublishes(t *testing.T) {
	store := &fakeStatus{err: errors.New("down")}
	bus := &recordingEmitter{}
	p := NewPublisher(store, bus, zap.NewNop())

	err := p.OnConnect(context.Background(), userA)
	var se *StoreError
	if !errors.As(err, &se) {
		t.Errorf("err = %v, want StoreError", err)
	}
	if got := bus.statuses("userA"); len(got) != 1 {
		t.Errorf("expected the status to be published anyway, got %v", got)
	}
}

func TestPublisher_PerUserOrdering(t *testing.T) {
	store := &fakeStatus{}
	bus := &recordingEmitter{}
	p := NewPublisher(store, bus, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Connected(ctx, userA)
			_ = p.Disconnected(ctx, userA)
		}()
	}
	wg.Wait()

	got := bus.statuses("userA")
	if len(got) == 0 || len(got)%2 != 0 {
		t.Fatalf("expected alternating pairs, got %d statuses", len(got))
	}
	for i, s := range got {
		want := StatusOnline
		if i%2 == 1 {
			want = StatusOffline
		}
		if s != want {
			t.Fatalf("status %d = %s, want %s (sequence %v)", i, s, want, got)
		}
	}
	if p.Online("userA") != 0 {
		t.Errorf("Online = %d, want 0", p.Online("userA"))
	}
}

func TestPublisher_DisconnectWithoutConnectIsNoop(t *testing.T) {
	store := &fakeStatus{}
	bus := &recordingEmitter{}
	p := NewPublisher(store, bus, zap.NewNop())

	if err := p.Disconnected(context.Background(), userA); err != nil {
		t.Fatalf("Disconnected: %v", err)
	}
	if len(bus.out) != 0 || len(store.history()) != 0 {
		t.Error("a stray disconnect must not publish offline")
	}
}
