// Package redisbus adapts the engine's transport contract onto Redis the
// way the gateway expects it: commands arrive on a list the gateway LPUSHes,
// replies go out as a PUBLISH on the requester's correlation-id channel.
package redisbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"exchange_go/internal/event"

	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the list the gateway pushes commands onto.
const DefaultQueue = "messages"

// Bus is the Redis-backed duplex transport.
type Bus struct {
	client *redis.Client
	queue  string
}

// New connects a bus to the Redis at addr.
func New(addr, queue string) *Bus {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Bus{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		queue:  queue,
	}
}

// Run blocks on the command list and pumps envelopes into the inbox until
// ctx is done. Malformed payloads are logged and skipped; one bad message
// must not stall the queue.
func (b *Bus) Run(ctx context.Context, inbox chan<- event.Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := b.client.BRPop(ctx, 0, b.queue).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("redis receive failed", slog.Any("error", err))
			continue
		}
		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}

		var env event.Envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			slog.Warn("dropping malformed command", slog.Any("error", err))
			continue
		}

		select {
		case inbox <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reply publishes the message on the correlation-id channel. Errors are
// logged, not returned: a dead subscriber is the gateway's problem.
func (b *Bus) Reply(correlationID string, msg event.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal reply failed", slog.Any("error", err))
		return
	}
	if err := b.client.Publish(context.Background(), correlationID, payload).Err(); err != nil {
		slog.Error("publish reply failed",
			slog.String("correlation_id", correlationID),
			slog.Any("error", err))
	}
}

// Close releases the Redis connection.
func (b *Bus) Close() error {
	return b.client.Close()
}
