package realtime

import (
	"context"
	"sort"
	"sync"
)

// PresenceStore holds group presence keyed by user, with per-connection
// references: a user is present in a group while any of their connections
// is joined to it. Every mutation returns the full sorted member list.
type PresenceStore interface {
	Add(ctx context.Context, group, userID, connID string) ([]string, error)
	Remove(ctx context.Context, group, userID, connID string) ([]string, error)
	Members(ctx context.Context, group string) ([]string, error)
}

// MemoryPresence is an in-process PresenceStore for single-instance deployments.
type MemoryPresence struct {
	mu     sync.Mutex
	groups map[string]map[string]map[string]struct{} // group -> user -> conns
}

// NewMemoryPresence creates an empty in-process presence store.
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{groups: make(map[string]map[string]map[string]struct{})}
}

func (m *MemoryPresence) Add(_ context.Context, group, userID, connID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users, ok := m.groups[group]
	if !ok {
		users = make(map[string]map[string]struct{})
		m.groups[group] = users
	}
	conns, ok := users[userID]
	if !ok {
		conns = make(map[string]struct{})
		users[userID] = conns
	}
	conns[connID] = struct{}{}
	return m.membersLocked(group), nil
}

func (m *MemoryPresence) Remove(_ context.Context, group, userID, connID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if users, ok := m.groups[group]; ok {
		if conns, ok := users[userID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(m.groups, group)
		}
	}
	return m.membersLocked(group), nil
}

func (m *MemoryPresence) Members(_ context.Context, group string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.membersLocked(group), nil
}

func (m *MemoryPresence) membersLocked(group string) []string {
	users := m.groups[group]
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
