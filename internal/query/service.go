// Package query exposes read-only snapshots of recent messages and the
// active roster, used by newly joining clients to reconcile initial state.
package query

import (
	"context"

	"github.com/rs/zerolog/log"

	"chatrelay/internal/buffer"
	"chatrelay/internal/presence"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// Source tags report which backing store served a read. Observability hint
// only, not a correctness signal.
const (
	SourceDatabase       = "database"
	SourceMemory         = "memory"
	SourceMemoryFallback = "memory-fallback"
)

// DefaultLimit caps the number of messages returned by RecentMessages.
const DefaultLimit = 50

// Service answers reads from the durable store when available and from the
// ephemeral buffer otherwise.
type Service struct {
	store    interfaces.MessageStore
	buffer   *buffer.Buffer
	registry *presence.Registry
	limit    int
}

// NewService creates a query service. limit <= 0 selects DefaultLimit.
func NewService(store interfaces.MessageStore, buf *buffer.Buffer, registry *presence.Registry, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		store:    store,
		buffer:   buf,
		registry: registry,
		limit:    limit,
	}
}

// RecentMessages returns the most recent messages up to the configured
// limit, in chronological ascending order, plus the source that served
// them. A store
// that failed this one call degrades to the buffer with the fallback tag;
// availability itself never changes mid-session.
func (s *Service) RecentMessages(ctx context.Context) ([]types.Message, string) {
	if !s.store.Available() {
		return s.buffer.Recent(s.limit), SourceMemory
	}

	messages, err := s.store.Recent(ctx, s.limit)
	if err != nil {
		log.Warn().Err(err).Msg("durable store query failed, serving from memory")
		return s.buffer.Recent(s.limit), SourceMemoryFallback
	}
	if messages == nil {
		messages = []types.Message{}
	}
	return messages, SourceDatabase
}

// ActiveUsers returns the roster in join order.
func (s *Service) ActiveUsers() []types.User {
	return s.registry.Snapshot()
}
