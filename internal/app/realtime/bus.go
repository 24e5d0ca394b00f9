package realtime

import (
	"context"

	"go.uber.org/zap"
)

// Scope selects which connections receive an Outbound message.
type Scope int

const (
	// ScopeGroup targets every connection joined to Target (a group id).
	ScopeGroup Scope = iota + 1
	// ScopeGlobal targets every connection.
	ScopeGlobal
	// ScopeDirect targets one connection (Target is its id).
	ScopeDirect
)

func (s Scope) String() string {
	switch s {
	case ScopeGroup:
		return "group"
	case ScopeGlobal:
		return "global"
	case ScopeDirect:
		return "direct"
	}
	return "unknown"
}

// Outbound is a message plus its audience.
type Outbound struct {
	Scope   Scope
	Target  string
	Message Message
}

// ToGroup addresses msg to the connections joined to group.
func ToGroup(group, event string, data any) Outbound {
	return Outbound{Scope: ScopeGroup, Target: group, Message: Message{Event: event, Data: data}}
}

// ToAll addresses msg to every connection.
func ToAll(event string, data any) Outbound {
	return Outbound{Scope: ScopeGlobal, Message: Message{Event: event, Data: data}}
}

// ToConn addresses msg to a single connection.
func ToConn(connID, event string, data any) Outbound {
	return Outbound{Scope: ScopeDirect, Target: connID, Message: Message{Event: event, Data: data}}
}

// Emitter delivers outbound messages.
type Emitter interface {
	Emit(ctx context.Context, out Outbound) error
}

// LocalBus delivers to connections in this process. Targets are resolved
// from the registry at emit time, so a connection that has left a group or
// disconnected receives nothing further.
type LocalBus struct {
	reg *Registry
	log *zap.Logger
}

// NewLocalBus creates a bus over reg.
func NewLocalBus(reg *Registry, logger *zap.Logger) *LocalBus {
	return &LocalBus{reg: reg, log: logger}
}

// Emit delivers out to its local targets. It never fails; slow clients whose
// queues are full are logged and skipped.
func (b *LocalBus) Emit(_ context.Context, out Outbound) error {
	b.Deliver(out)
	return nil
}

// Deliver resolves targets and queues the message on each sink.
func (b *LocalBus) Deliver(out Outbound) int {
	var targets []*Connection
	switch out.Scope {
	case ScopeGroup:
		targets = b.reg.Members(out.Target)
	case ScopeGlobal:
		targets = b.reg.All()
	case ScopeDirect:
		if c, ok := b.reg.Get(out.Target); ok {
			targets = []*Connection{c}
		}
	}

	delivered := 0
	for _, c := range targets {
		if c.sink.Send(out.Message) {
			delivered++
			continue
		}
		b.log.Warn("dropping message for slow connection",
			zap.String("conn_id", c.ID),
			zap.String("user_id", c.Identity.UserID),
			zap.String("event", out.Message.Event))
	}
	return delivered
}
