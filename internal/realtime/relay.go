package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/metrics"
)

// RedisRelay publishes envelopes to a Redis channel and feeds every envelope
// it receives back into the local hub, so each instance delivers to its own
// sessions.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	Log     *logger.Logger
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub, log *logger.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, hub: hub, Log: log}
}

func (r *RedisRelay) Publish(ctx context.Context, event Event) error {
	env, err := newEnvelope(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Name, err)
	}
	metrics.EventsPublished.WithLabelValues(event.Name).Inc()
	return nil
}

// Subscribe opens the subscription and waits for Redis to confirm it. Run
// consumes the returned PubSub.
func (r *RedisRelay) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	return pubsub, nil
}

// Run delivers relayed envelopes to the hub until ctx is cancelled or the
// subscription closes.
func (r *RedisRelay) Run(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				r.Log.Warn("Redis subscription closed", "channel", r.channel)
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.Log.Warn("Dropping malformed envelope", "error", err)
				continue
			}
			if err := r.hub.deliver(ctx, env); err != nil {
				r.Log.Warn("Failed to deliver relayed event", "event", env.Event, "error", err)
			}
		}
	}
}
