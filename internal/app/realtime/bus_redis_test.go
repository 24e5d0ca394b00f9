package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dalemusser/noteku/internal/testutil"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRedisBus_FansOutAcrossInstances(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newInstance := func(connID string, id Identity) (*RedisBus, *Registry, *recordingSink) {
		reg := NewRegistry(fakeVerifier{})
		sink := &recordingSink{}
		reg.Register(NewConnection(connID, id, sink))
		_, _ = reg.Bind(connID, "g1")
		bus := NewRedisBus(rdb, "noteku-test:events", NewLocalBus(reg, zap.NewNop()), zap.NewNop())
		ready := make(chan struct{})
		go func() { _ = bus.Run(ctx, ready) }()
		select {
		case <-ready:
		case <-time.After(3 * time.Second):
			t.Fatal("subscription not ready")
		}
		return bus, reg, sink
	}

	busA, _, sinkA := newInstance("cA", userA)
	_, _, sinkB := newInstance("cB", userB)

	if err := busA.Emit(ctx, ToGroup("g1", EventNoteUpdated, NoteUpdated{NoteID: "n1", Content: "hi", UserID: "userA"})); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	waitFor(t, func() bool {
		return len(sinkA.events(EventNoteUpdated)) == 1 && len(sinkB.events(EventNoteUpdated)) == 1
	})

	m, _ := sinkB.last(EventNoteUpdated)
	raw, ok := m.Data.(json.RawMessage)
	if !ok {
		t.Fatalf("remote payload type %T", m.Data)
	}
	var got NoteUpdated
	if err := json.Unmarshal(raw, &got); err != nil || got.Content != "hi" {
		t.Errorf("remote payload = %s (%v)", raw, err)
	}

	// Direct messages never leave the instance.
	_ = busA.Emit(ctx, ToConn("cB", EventError, ErrorPayload{Event: "x"}))
	_ = busA.Emit(ctx, ToConn("cA", EventError, ErrorPayload{Event: "x"}))
	if len(sinkA.events(EventError)) != 1 {
		t.Error("direct message should reach the local connection")
	}
	time.Sleep(50 * time.Millisecond)
	if len(sinkB.events(EventError)) != 0 {
		t.Error("direct message must not reach another instance")
	}
}
