// Package localbus is the in-process transport: commands go straight into
// the engine inbox and replies resolve per-correlation futures. Tests and
// the demo binary use it in place of the Redis gateway.
package localbus

import (
	"context"
	"sync"

	"exchange_go/internal/event"

	"github.com/google/uuid"
)

// Bus routes replies to in-process waiters.
type Bus struct {
	mu      sync.Mutex
	waiters map[string]chan event.Message
}

// New creates an empty local bus.
func New() *Bus {
	return &Bus{waiters: make(map[string]chan event.Message)}
}

// Run satisfies transport.Source. The local bus has no external feed;
// commands enter through Send, so Run just parks until shutdown.
func (b *Bus) Run(ctx context.Context, inbox chan<- event.Envelope) error {
	<-ctx.Done()
	return ctx.Err()
}

// Send assigns a correlation id if absent, registers a reply future and
// pushes the command into the engine inbox. The returned channel yields
// exactly one message.
func (b *Bus) Send(inbox chan<- event.Envelope, env event.Envelope) <-chan event.Message {
	if env.CorrelationID == "" {
		env.CorrelationID = uuid.NewString()
	}

	ch := make(chan event.Message, 1)
	b.mu.Lock()
	b.waiters[env.CorrelationID] = ch
	b.mu.Unlock()

	inbox <- env
	return ch
}

// Reply resolves the waiter for the correlation id. An unknown id is
// dropped: the requester may have given up, and the engine must not care.
func (b *Bus) Reply(correlationID string, msg event.Message) {
	b.mu.Lock()
	ch, ok := b.waiters[correlationID]
	if ok {
		delete(b.waiters, correlationID)
	}
	b.mu.Unlock()

	if ok {
		ch <- msg
	}
}
