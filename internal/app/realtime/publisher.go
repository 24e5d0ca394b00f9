package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StatusStore persists a user's online status.
type StatusStore interface {
	SetStatus(ctx context.Context, userID, status string, lastSeen time.Time) error
}

// Publisher marks users online on their first live connection and offline
// after their last one closes, publishing update-status to every connection.
// Transitions for one user run one at a time, in the order they happen.
//
// Counts are per instance. With a shared bus, a user connected to two
// instances is published offline when either instance's last connection
// for that user closes.
type Publisher struct {
	store StatusStore
	bus   Emitter
	log   *zap.Logger
	now   func() time.Time
	lanes *lanes

	mu     sync.Mutex
	counts map[string]int
}

// NewPublisher creates a presence publisher.
func NewPublisher(store StatusStore, bus Emitter, logger *zap.Logger) *Publisher {
	return &Publisher{
		store:  store,
		bus:    bus,
		log:    logger,
		now:    time.Now,
		lanes:  newLanes(),
		counts: make(map[string]int),
	}
}

// Connected records a new connection for id and runs OnConnect if it is the first.
func (p *Publisher) Connected(ctx context.Context, id Identity) error {
	unlock := p.lanes.lock(id.UserID)
	defer unlock()

	if n, _ := p.adjust(id.UserID, 1); n != 1 {
		return nil
	}
	return p.OnConnect(ctx, id)
}

// Disconnected records a closed connection and runs OnDisconnect if it was the last.
func (p *Publisher) Disconnected(ctx context.Context, id Identity) error {
	unlock := p.lanes.lock(id.UserID)
	defer unlock()

	if n, ok := p.adjust(id.UserID, -1); !ok || n != 0 {
		return nil
	}
	return p.OnDisconnect(ctx, id)
}

// Online reports how many live connections userID has on this instance.
func (p *Publisher) Online(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID]
}

// adjust reports false when decrementing a user with no live connections.
func (p *Publisher) adjust(userID string, delta int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.counts[userID]
	if !ok && delta < 0 {
		return 0, false
	}
	n := cur + delta
	if n <= 0 {
		delete(p.counts, userID)
		return 0, true
	}
	p.counts[userID] = n
	return n, true
}

// OnConnect marks id online and publishes the change globally.
func (p *Publisher) OnConnect(ctx context.Context, id Identity) error {
	return p.transition(ctx, id, StatusOnline)
}

// OnDisconnect marks id offline with last-seen now and publishes the change globally.
func (p *Publisher) OnDisconnect(ctx context.Context, id Identity) error {
	return p.transition(ctx, id, StatusOffline)
}

// transition publishes even when the store write fails: the live state is
// real, only its persisted copy is stale.
func (p *Publisher) transition(ctx context.Context, id Identity, status string) error {
	err := p.store.SetStatus(ctx, id.UserID, status, p.now().UTC())
	if err != nil {
		p.log.Error("status update failed",
			zap.String("user_id", id.UserID),
			zap.String("status", status),
			zap.Error(err))
	}
	if perr := p.bus.Emit(ctx, ToAll(EventUpdateStatus, StatusUpdate{UserID: id.UserID, Status: status})); perr != nil {
		p.log.Error("status broadcast failed", zap.String("user_id", id.UserID), zap.Error(perr))
	}
	return storeErr("set status", err)
}
