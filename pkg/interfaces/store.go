package interfaces

import (
	"context"

	"chatrelay/pkg/types"
)

// MessageStore is the durable persistence contract. Availability is decided
// once at startup; a per-call failure never flips it.
type MessageStore interface {
	// Available reports whether the backing store connected at startup.
	Available() bool

	// Append persists a message best-effort. It never returns an error:
	// backend failures are logged by the implementation and reported as
	// false so the broadcast path is never blocked.
	Append(msg types.Message) bool

	// Recent returns the most recent limit messages in chronological
	// ascending order.
	Recent(ctx context.Context, limit int) ([]types.Message, error)

	// Close releases the backing store.
	Close() error
}
