// Package transport carries commands into the engine and correlated
// replies back out. The engine only ever sees these interfaces; whether
// the other end is an in-process test harness or a Redis gateway is not
// its concern.
package transport

import (
	"context"

	"exchange_go/internal/event"
)

// Source feeds inbound command envelopes into the engine's inbox.
type Source interface {
	// Run pumps commands until ctx is done. It must not close inbox.
	Run(ctx context.Context, inbox chan<- event.Envelope) error
}

// Replier delivers a reply to whoever is waiting on the correlation id.
// Delivery is asynchronous with respect to the requester; a slow or gone
// requester must never block the engine.
type Replier interface {
	Reply(correlationID string, msg event.Message)
}

// Bus is a full duplex transport.
type Bus interface {
	Source
	Replier
}
