// Package presence is the authoritative mapping of connected identities to
// live connections. The registry exclusively owns its entries; the session
// lifecycle is the only writer, the broadcast router and query surface read
// snapshots.
package presence

import (
	"sync"
	"time"

	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

type entry struct {
	conn     interfaces.Conn
	joinedAt time.Time
}

// Registry tracks connected identities in join order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Add registers a connection under an identity. A duplicate identity
// overwrites the existing mapping, last writer wins; the roster position of
// the original join is kept.
func (r *Registry) Add(identity string, conn interfaces.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[identity]; !exists {
		r.order = append(r.order, identity)
	}
	r.entries[identity] = &entry{conn: conn, joinedAt: time.Now().UTC()}
}

// Remove deletes an identity. No-op when absent.
func (r *Registry) Remove(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[identity]; !exists {
		return
	}
	delete(r.entries, identity)
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Identities returns the connected identities in join order.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Snapshot returns the roster with join times, in join order.
func (r *Registry) Snapshot() []types.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, types.User{Identity: id, JoinedAt: r.entries[id].joinedAt})
	}
	return out
}

// Conns returns a snapshot of the live connections so callers can fan out
// without holding the registry lock across network writes.
func (r *Registry) Conns() []interfaces.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]interfaces.Conn, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].conn)
	}
	return out
}

// Count reports the number of connected identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
