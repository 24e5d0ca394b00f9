package realtime

import (
	"context"

	"go.uber.org/zap"
)

// Tracker maintains group presence and broadcasts the full member list to
// the group on every change. Changes to one group are serialized so
// snapshots reach clients in the order they were taken.
type Tracker struct {
	reg   *Registry
	store PresenceStore
	bus   Emitter
	log   *zap.Logger
	lanes *lanes
}

// NewTracker creates a tracker over the registry and presence store.
func NewTracker(reg *Registry, store PresenceStore, bus Emitter, logger *zap.Logger) *Tracker {
	return &Tracker{reg: reg, store: store, bus: bus, log: logger, lanes: newLanes()}
}

// Join binds c to group and returns the group's presence snapshot.
// Joining twice returns the same snapshot and broadcasts it again.
func (t *Tracker) Join(ctx context.Context, c *Connection, group string) ([]string, error) {
	unlock := t.lanes.lock(group)
	defer unlock()

	added, err := t.reg.Bind(c.ID, group)
	if err != nil {
		return nil, err
	}
	members, err := t.store.Add(ctx, group, c.Identity.UserID, c.ID)
	if err != nil {
		if added {
			t.reg.Unbind(c.ID, group)
		}
		return nil, storeErr("presence add", err)
	}
	t.broadcast(ctx, group, members)
	return members, nil
}

// Leave unbinds c from group and returns the snapshot. Leaving a group that
// was never joined changes nothing and broadcasts nothing.
func (t *Tracker) Leave(ctx context.Context, c *Connection, group string) ([]string, error) {
	unlock := t.lanes.lock(group)
	defer unlock()

	if !t.reg.IsJoined(c.ID, group) {
		members, err := t.store.Members(ctx, group)
		return members, storeErr("presence members", err)
	}
	// The binding stays until the store drops the entry, so a failed
	// leave can be retried and a later disconnect still cleans it up.
	members, err := t.store.Remove(ctx, group, c.Identity.UserID, c.ID)
	if err != nil {
		return nil, storeErr("presence remove", err)
	}
	t.reg.Unbind(c.ID, group)
	t.broadcast(ctx, group, members)
	return members, nil
}

// RemoveConnection drops c's presence from every group in groups, which the
// caller takes from the registry departure. The registry has already
// unbound c, so it receives none of the resulting broadcasts.
func (t *Tracker) RemoveConnection(ctx context.Context, c *Connection, groups []string) map[string][]string {
	out := make(map[string][]string, len(groups))
	for _, group := range groups {
		unlock := t.lanes.lock(group)
		members, err := t.store.Remove(ctx, group, c.Identity.UserID, c.ID)
		if err != nil {
			unlock()
			t.log.Error("presence cleanup failed",
				zap.String("conn_id", c.ID),
				zap.String("group_id", group),
				zap.Error(err))
			continue
		}
		t.broadcast(ctx, group, members)
		unlock()
		out[group] = members
	}
	return out
}

func (t *Tracker) broadcast(ctx context.Context, group string, members []string) {
	if err := t.bus.Emit(ctx, ToGroup(group, EventUpdateOnlineUsers, members)); err != nil {
		t.log.Error("presence broadcast failed", zap.String("group_id", group), zap.Error(err))
	}
}
