package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/peskas/gateway/internal/domain"
)

// RedisWriter publishes audit events to a Redis Pub/Sub channel for live
// monitoring. Subscribers get a JSON-encoded event per message; there is no
// persistence, the durable trail is the Postgres writer's job.
type RedisWriter struct {
	client  *redis.Client
	channel string
}

// NewRedisWriter connects to Redis and verifies the connection.
func NewRedisWriter(ctx context.Context, addr, password string, db int, channel string) (*RedisWriter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("audit.NewRedisWriter: ping: %w", err)
	}

	return &RedisWriter{client: client, channel: channel}, nil
}

// Close releases the Redis connection.
func (w *RedisWriter) Close() error {
	if err := w.client.Close(); err != nil {
		return fmt.Errorf("audit.RedisWriter.Close: %w", err)
	}
	return nil
}

func (w *RedisWriter) Write(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit.RedisWriter.Write: marshal: %w", err)
	}

	if err := w.client.Publish(ctx, w.channel, payload).Err(); err != nil {
		return fmt.Errorf("audit.RedisWriter.Write: publish: %w", err)
	}

	return nil
}
