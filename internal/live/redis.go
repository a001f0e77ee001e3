package live

import (
	"context"
	"encoding/json"
	"fmt"

	"contentpilot/internal/logging"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed distributes events across processes via Redis pub/sub, so a
// separate API server sees mutations made by the CLI and vice versa.
type RedisFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisFeed connects to Redis and verifies the connection.
func NewRedisFeed(ctx context.Context, addr, password, channel string) (*RedisFeed, error) {
	if channel == "" {
		channel = "contentpilot:updates"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisFeed{client: client, channel: channel}, nil
}

// Publish JSON-encodes the event onto the configured channel.
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe bridges a Redis subscription onto the Feed channel contract.
func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Event, func()) {
	sub := f.client.Subscribe(ctx, f.channel)
	out := make(chan Event, 16)
	log := logging.L(logging.CategoryLive)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn("dropping malformed live event", zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return out, cancel
}

// Close releases the Redis connection.
func (f *RedisFeed) Close() error {
	return f.client.Close()
}
