package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeVerifier map[string]Identity

func (f fakeVerifier) Verify(token string) (Identity, error) {
	id, ok := f[token]
	if !ok {
		return Identity{}, errors.New("bad token")
	}
	return id, nil
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []Message
	full bool
}

func (s *recordingSink) Send(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.msgs = append(s.msgs, m)
	return true
}

func (s *recordingSink) events(name string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.msgs {
		if m.Event == name {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordingSink) last(name string) (Message, bool) {
	ev := s.events(name)
	if len(ev) == 0 {
		return Message{}, false
	}
	return ev[len(ev)-1], true
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}

type fakeGroups struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	notes   map[string]map[string]bool
	err     error
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{members: map[string]map[string]bool{}, notes: map[string]map[string]bool{}}
}

func (g *fakeGroups) add(group string, users []string, notes []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.members[group] == nil {
		g.members[group] = map[string]bool{}
		g.notes[group] = map[string]bool{}
	}
	for _, u := range users {
		g.members[group][u] = true
	}
	for _, n := range notes {
		g.notes[group][n] = true
	}
}

func (g *fakeGroups) IsMember(_ context.Context, group, user string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	m, ok := g.members[group]
	if !ok {
		return false, ErrNotFound
	}
	return m[user], nil
}

func (g *fakeGroups) HasNote(_ context.Context, group, note string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	n, ok := g.notes[group]
	if !ok {
		return false, ErrNotFound
	}
	return n[note], nil
}

type fakeNotes struct {
	mu      sync.Mutex
	content map[string]string
	editor  map[string]string
	calls   int
	err     error
	delay   time.Duration
}

func newFakeNotes(ids ...string) *fakeNotes {
	n := &fakeNotes{content: map[string]string{}, editor: map[string]string{}}
	for _, id := range ids {
		n.content[id] = ""
	}
	return n
}

func (n *fakeNotes) UpdateContent(ctx context.Context, id, content, editor string) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return n.err
	}
	if _, ok := n.content[id]; !ok {
		return ErrNotFound
	}
	n.content[id] = content
	n.editor[id] = editor
	return nil
}

func (n *fakeNotes) get(id string) (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.content[id], n.editor[id]
}

type statusCall struct {
	UserID string
	Status string
}

type fakeStatus struct {
	mu    sync.Mutex
	calls []statusCall
	err   error
}

func (s *fakeStatus) SetStatus(_ context.Context, userID, status string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statusCall{userID, status})
	return s.err
}

func (s *fakeStatus) history() []statusCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]statusCall(nil), s.calls...)
}

type testEnv struct {
	hub    *Hub
	groups *fakeGroups
	notes  *fakeNotes
	status *fakeStatus
}

var (
	userA = Identity{UserID: "userA", Username: "alice"}
	userB = Identity{UserID: "userB", Username: "bob"}
	userC = Identity{UserID: "userC", Username: "carol"}
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithPresence(t, NewMemoryPresence())
}

func newTestEnvWithPresence(t *testing.T, presence PresenceStore) *testEnv {
	t.Helper()
	env := &testEnv{
		groups: newFakeGroups(),
		notes:  newFakeNotes("n1", "n2"),
		status: &fakeStatus{},
	}
	env.groups.add("g1", []string{"userA", "userB"}, []string{"n1"})
	env.groups.add("g2", []string{"userA", "userB"}, []string{"n2"})
	env.hub = NewHub(HubDeps{
		Verifier: fakeVerifier{"tokA": userA, "tokB": userB, "tokC": userC},
		Presence: presence,
		Groups:   env.groups,
		Notes:    env.notes,
		Status:   env.status,
		Logger:   zap.NewNop(),
	})
	return env
}

// connect authenticates token and registers a connection with a recording sink.
func (e *testEnv) connect(t *testing.T, connID, token string) (*Connection, *recordingSink) {
	t.Helper()
	id, err := e.hub.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate(%q): %v", token, err)
	}
	sink := &recordingSink{}
	c := NewConnection(connID, id, sink)
	e.hub.Connect(context.Background(), c)
	return c, sink
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	a, b = sorted(a), sorted(b)
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

// onlineUsers returns the most recent update-online-users payload a sink received.
func onlineUsers(t *testing.T, s *recordingSink) []string {
	t.Helper()
	m, ok := s.last(EventUpdateOnlineUsers)
	if !ok {
		t.Fatalf("no %s received", EventUpdateOnlineUsers)
	}
	users, ok := m.Data.([]string)
	if !ok {
		t.Fatalf("payload type %T, want []string", m.Data)
	}
	return users
}

// flakyPresence fails the next failRemoves calls to Remove.
type flakyPresence struct {
	*MemoryPresence
	mu          sync.Mutex
	failRemoves int
}

func (p *flakyPresence) Remove(ctx context.Context, group, userID, connID string) ([]string, error) {
	p.mu.Lock()
	fail := p.failRemoves > 0
	if fail {
		p.failRemoves--
	}
	p.mu.Unlock()
	if fail {
		return nil, errors.New("redis down")
	}
	return p.MemoryPresence.Remove(ctx, group, userID, connID)
}
