package realtime

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Hub turns connection lifecycle and inbound events into presence and edit
// transitions. The transport calls it from one goroutine per connection, so
// events from a connection are handled in arrival order.
type Hub struct {
	reg     *Registry
	tracker *Tracker
	edits   *Broadcaster
	pub     *Publisher
	groups  GroupLookup
	bus     Emitter
	log     *zap.Logger

	// EditTimeout bounds one edit independently of the connection's lifetime.
	EditTimeout time.Duration
}

// HubDeps are the collaborators a Hub needs.
type HubDeps struct {
	Verifier TokenVerifier
	Presence PresenceStore
	Groups   GroupLookup
	Notes    NoteWriter
	Status   StatusStore
	Sanitize func(string) string
	Logger   *zap.Logger
}

// NewHub wires a hub that delivers through a LocalBus.
func NewHub(d HubDeps) *Hub {
	reg := NewRegistry(d.Verifier)
	return NewHubWithBus(reg, NewLocalBus(reg, d.Logger), d)
}

// NewHubWithBus wires a hub over an existing registry and bus, such as a RedisBus.
func NewHubWithBus(reg *Registry, bus Emitter, d HubDeps) *Hub {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		reg:         reg,
		tracker:     NewTracker(reg, d.Presence, bus, logger),
		edits:       NewBroadcaster(reg, d.Groups, d.Notes, d.Sanitize, bus, logger),
		pub:         NewPublisher(d.Status, bus, logger),
		groups:      d.Groups,
		bus:         bus,
		log:         logger,
		EditTimeout: 5 * time.Second,
	}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry { return h.reg }

// Authenticate validates a handshake credential. Transports call it before
// accepting the connection.
func (h *Hub) Authenticate(token string) (Identity, error) {
	return h.reg.Authenticate(token)
}

// Connect registers an authenticated connection and publishes the user's
// online status if this is their first connection.
func (h *Hub) Connect(ctx context.Context, c *Connection) {
	h.reg.Register(c)
	h.log.Info("realtime connection opened",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.Identity.UserID))
	_ = h.pub.Connected(ctx, c.Identity)
}

// Disconnect removes c from the registry and from every group it joined,
// then publishes offline status if it was the user's last connection.
// Calling it twice is a no-op the second time.
func (h *Hub) Disconnect(ctx context.Context, c *Connection) {
	dep, ok := h.reg.Unregister(c.ID)
	if !ok {
		return
	}
	h.tracker.RemoveConnection(ctx, dep.Conn, dep.Groups)
	_ = h.pub.Disconnected(ctx, dep.Conn.Identity)
	h.log.Info("realtime connection closed",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.Identity.UserID),
		zap.Strings("groups", dep.Groups))
}

// JoinGroup adds c to group after checking the user belongs to it.
func (h *Hub) JoinGroup(ctx context.Context, c *Connection, group string) ([]string, error) {
	if _, ok := h.reg.Get(c.ID); !ok {
		return nil, ErrAuth
	}
	ok, err := h.groups.IsMember(ctx, group, c.Identity.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("group lookup", err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	return h.tracker.Join(ctx, c, group)
}

// LeaveGroup removes c from group.
func (h *Hub) LeaveGroup(ctx context.Context, c *Connection, group string) ([]string, error) {
	if _, ok := h.reg.Get(c.ID); !ok {
		return nil, ErrAuth
	}
	return h.tracker.Leave(ctx, c, group)
}

// EditNote applies a collaborative edit on a context detached from ctx's
// cancellation, so a disconnect does not abort a write already in flight.
func (h *Hub) EditNote(ctx context.Context, c *Connection, req EditRequest) (AppliedEdit, error) {
	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.EditTimeout)
	defer cancel()
	return h.edits.ApplyEdit(ectx, c, req)
}

// Dispatch decodes and handles one inbound frame. Failures are contained to
// the event: they are logged, and store failures are reported to the sender
// with an error event.
func (h *Hub) Dispatch(ctx context.Context, c *Connection, f InboundFrame) {
	var err error
	switch f.Event {
	case EventJoinGroup:
		var group string
		if group, err = decodeGroupID(f.Data); err == nil {
			_, err = h.JoinGroup(ctx, c, group)
		}
	case EventLeaveGroup:
		var group string
		if group, err = decodeGroupID(f.Data); err == nil {
			_, err = h.LeaveGroup(ctx, c, group)
		}
	case EventEditNote:
		var req EditRequest
		if req, err = decodeEdit(f.Data); err == nil {
			_, err = h.EditNote(ctx, c, req)
		}
	default:
		h.log.Debug("ignoring unknown event", zap.String("conn_id", c.ID), zap.String("event", f.Event))
		return
	}
	if err != nil {
		h.fail(ctx, c, f.Event, err)
	}
}

func (h *Hub) fail(ctx context.Context, c *Connection, event string, err error) {
	fields := []zap.Field{
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.Identity.UserID),
		zap.String("event", event),
		zap.Error(err),
	}

	var se *StoreError
	switch {
	case errors.As(err, &se):
		h.log.Error("realtime event failed", fields...)
		out := ToConn(c.ID, EventError, ErrorPayload{Event: event, Message: "operation failed, please retry"})
		if eerr := h.bus.Emit(ctx, out); eerr != nil {
			h.log.Warn("error report failed", zap.Error(eerr))
		}
	case errors.Is(err, ErrAuth), errors.Is(err, ErrUnauthorized):
		h.log.Warn("realtime event rejected", fields...)
	default:
		h.log.Info("realtime event dropped", fields...)
	}
}
