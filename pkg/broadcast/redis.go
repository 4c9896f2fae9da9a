package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publishes events over redis pub/sub. The socket gateway
// that fans out to browsers subscribes to the same channels.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedis wraps an existing redis client.
func NewRedis(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Publish marshals the event envelope and publishes it on the room channel.
func (b *RedisBroadcaster) Publish(ctx context.Context, room, event string, payload any) error {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}

	if err := b.client.Publish(ctx, room, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", room, err)
	}
	return nil
}
