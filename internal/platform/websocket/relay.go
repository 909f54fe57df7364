package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RelayChannel is the Redis channel shared by every server instance.
const RelayChannel = "patientflow:realtime"

type relayEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisRelay fans events out across server instances. Publish delivers to the
// local hub immediately and to other instances through Redis pub/sub.
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	origin string
	logger zerolog.Logger
}

func NewRedisRelay(client *redis.Client, hub *Hub, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client: client,
		hub:    hub,
		origin: uuid.NewString(),
		logger: logger,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, event Event) error {
	r.hub.Broadcast(event.Topic, event)

	data, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: event})
	if err != nil {
		return fmt.Errorf("marshal relay event: %w", err)
	}
	if err := r.client.Publish(ctx, RelayChannel, data).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

// Run forwards events from other instances into the local hub until ctx is
// done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, RelayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", RelayChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn().Err(err).Msg("drop malformed relay event")
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.hub.Broadcast(env.Event.Topic, env.Event)
}
