package realtime

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dalemusser/noteku/internal/app/system/auth"
)

// Identity is the authenticated user bound to a connection.
type Identity = auth.Identity

// TokenVerifier validates a bearer credential.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Sink is the write side of one client transport. Send must not block; it
// returns false when the message could not be queued.
type Sink interface {
	Send(msg Message) bool
}

// Connection is one live authenticated transport session. Its identity is
// fixed at creation; its joined groups are owned by the Registry.
type Connection struct {
	ID       string
	Identity Identity

	sink   Sink
	groups map[string]struct{} // guarded by Registry.mu
}

// NewConnection binds a transport sink to an identity.
func NewConnection(id string, ident Identity, sink Sink) *Connection {
	return &Connection{ID: id, Identity: ident, sink: sink, groups: make(map[string]struct{})}
}

// Departure describes a connection removed from the registry.
type Departure struct {
	Conn *Connection
	// Groups the connection had joined, sorted.
	Groups []string
}

// Registry tracks live connections and which groups each has joined.
// It is safe for concurrent use.
type Registry struct {
	verifier TokenVerifier

	mu      sync.RWMutex
	conns   map[string]*Connection
	byGroup map[string]map[string]*Connection
}

// NewRegistry creates an empty registry that authenticates with verifier.
func NewRegistry(verifier TokenVerifier) *Registry {
	return &Registry{
		verifier: verifier,
		conns:    make(map[string]*Connection),
		byGroup:  make(map[string]map[string]*Connection),
	}
}

// Authenticate validates a handshake credential.
func (r *Registry) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrAuth
	}
	id, err := r.verifier.Verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if id.UserID == "" {
		return Identity{}, ErrAuth
	}
	return id, nil
}

// Register adds c. Registering the same id twice replaces nothing.
func (r *Registry) Register(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID]; !ok {
		r.conns[c.ID] = c
	}
}

// Unregister removes a connection and every group binding it had.
// The second call for the same id returns ok == false.
func (r *Registry) Unregister(connID string) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return Departure{}, false
	}
	delete(r.conns, connID)

	groups := make([]string, 0, len(c.groups))
	for g := range c.groups {
		groups = append(groups, g)
		r.unbindLocked(c, g)
	}
	sort.Strings(groups)
	return Departure{Conn: c, Groups: groups}, true
}

// Get returns a live connection.
func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// Bind records that connID joined group. It reports whether the binding is new.
func (r *Registry) Bind(connID, group string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return false, ErrAuth
	}
	if _, joined := c.groups[group]; joined {
		return false, nil
	}
	c.groups[group] = struct{}{}
	set, ok := r.byGroup[group]
	if !ok {
		set = make(map[string]*Connection)
		r.byGroup[group] = set
	}
	set[connID] = c
	return true, nil
}

// Unbind removes the group binding. It reports whether one existed.
func (r *Registry) Unbind(connID, group string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := c.groups[group]; !joined {
		return false
	}
	r.unbindLocked(c, group)
	return true
}

func (r *Registry) unbindLocked(c *Connection, group string) {
	delete(c.groups, group)
	if set, ok := r.byGroup[group]; ok {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(r.byGroup, group)
		}
	}
}

// IsJoined reports whether connID is live and joined to group.
func (r *Registry) IsJoined(connID, group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := c.groups[group]
	return joined
}

// Groups returns the sorted groups connID has joined.
func (r *Registry) Groups(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.groups))
	for g := range c.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Members returns the connections currently joined to group.
func (r *Registry) Members(group string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byGroup[group]
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All returns every live connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
