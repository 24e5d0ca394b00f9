package realtime

import "sync"

// lanes serializes work per key (a group or a user) without a global lock.
// Idle keys are dropped.
type lanes struct {
	mu sync.Mutex
	m  map[string]*lane
}

type lane struct {
	sync.Mutex
	refs int
}

func newLanes() *lanes {
	return &lanes{m: make(map[string]*lane)}
}

// lock blocks until key is free and returns its unlock function.
func (l *lanes) lock(key string) func() {
	l.mu.Lock()
	ln, ok := l.m[key]
	if !ok {
		ln = &lane{}
		l.m[key] = ln
	}
	ln.refs++
	l.mu.Unlock()

	ln.Lock()
	return func() {
		ln.Unlock()
		l.mu.Lock()
		ln.refs--
		if ln.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}
