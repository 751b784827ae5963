package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"restaurant-hub/domain/event"
	"restaurant-hub/errors"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr    string
	Channel string
}

// RedisBridge fans envelopes out through a Redis pub/sub channel.
// Pub/sub has no memory: a node that is down misses what was published.
type RedisBridge struct {
	log     *slog.Logger
	client  *redis.Client
	channel string
}

func NewRedisBridge(cfg RedisConfig, log *slog.Logger) (*RedisBridge, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if cfg.Channel == "" {
		cfg.Channel = "restaurant-hub:events"
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	return &RedisBridge{log: log, client: client, channel: cfg.Channel}, nil
}

// Ping checks the connection to redis.
func (b *RedisBridge) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBridge) Publish(ctx context.Context, env event.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBridge) Subscribe(ctx context.Context, handler func(event.Envelope)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.ErrBridgeClosed
			}
			var env event.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("Dropping malformed bridge envelope", "channel", msg.Channel, "error", err)
				continue
			}
			handler(env)
		}
	}
}

func (b *RedisBridge) Close() error {
	return b.client.Close()
}
