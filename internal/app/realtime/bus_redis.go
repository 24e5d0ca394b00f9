package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus fans group and global messages out to every instance through a
// Redis pub/sub channel. Each instance, including the publisher, delivers
// what it receives to its own connections. Direct messages stay local.
type RedisBus struct {
	rdb      redis.UniversalClient
	channel  string
	local    *LocalBus
	instance string
	log      *zap.Logger
}

type envelope struct {
	Origin string          `json:"origin"`
	Scope  Scope           `json:"scope"`
	Target string          `json:"target,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// NewRedisBus creates a bus publishing on channel and delivering through local.
func NewRedisBus(rdb redis.UniversalClient, channel string, local *LocalBus, logger *zap.Logger) *RedisBus {
	if channel == "" {
		channel = "noteku:events"
	}
	return &RedisBus{
		rdb:      rdb,
		channel:  channel,
		local:    local,
		instance: uuid.NewString(),
		log:      logger,
	}
}

// Emit publishes out, or delivers it locally when it is direct.
func (b *RedisBus) Emit(ctx context.Context, out Outbound) error {
	if out.Scope == ScopeDirect {
		return b.local.Emit(ctx, out)
	}
	data, err := json.Marshal(out.Message.Data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", out.Message.Event, err)
	}
	payload, err := json.Marshal(envelope{
		Origin: b.instance,
		Scope:  out.Scope,
		Target: out.Target,
		Event:  out.Message.Event,
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", out.Message.Event, err)
	}
	return nil
}

// Run subscribes to the channel and delivers messages until ctx is done.
// ready, when non-nil, is closed once the subscription is confirmed.
func (b *RedisBus) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	b.log.Info("realtime bus subscribed",
		zap.String("channel", b.channel),
		zap.String("instance", b.instance))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("discarding malformed bus message", zap.Error(err))
				continue
			}
			b.local.Deliver(Outbound{
				Scope:   env.Scope,
				Target:  env.Target,
				Message: Message{Event: env.Event, Data: env.Data},
			})
		}
	}
}
