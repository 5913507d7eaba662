// Package relay fans server-originated events out to one, some, or all live
// connections. Delivery is fire and forget: no acknowledgement, no retry.
// Per-connection ordering is the connection's own single writer pump; the
// relative order of events emitted by a single action is preserved because
// fan-out is synchronous.
package relay

import (
	"github.com/rs/zerolog/log"

	"chatrelay/internal/presence"
	"chatrelay/pkg/interfaces"
)

// Router broadcasts events over a snapshot of the current connections taken
// at call time. The registry lock is never held during fan-out.
type Router struct {
	registry *presence.Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *presence.Registry) *Router {
	return &Router{registry: registry}
}

// ToAll sends an event to every live connection, including any sender.
func (r *Router) ToAll(event string, payload interface{}) {
	for _, conn := range r.registry.Conns() {
		r.send(conn, event, payload)
	}
}

// ToOthers sends an event to every live connection except origin.
func (r *Router) ToOthers(origin interfaces.Conn, event string, payload interface{}) {
	for _, conn := range r.registry.Conns() {
		if conn == origin {
			continue
		}
		r.send(conn, event, payload)
	}
}

// ToOne sends an event to a single connection.
func (r *Router) ToOne(conn interfaces.Conn, event string, payload interface{}) {
	r.send(conn, event, payload)
}

func (r *Router) send(conn interfaces.Conn, event string, payload interface{}) {
	if err := conn.Send(event, payload); err != nil {
		log.Debug().Err(err).Str("event", event).Msg("dropped event for slow or closed connection")
	}
}
