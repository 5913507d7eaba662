// Package session drives the per-connection state machine: a connection is
// Unidentified until a successful join, Active until disconnect, then Closed.
// All validation and the identity-before-action ordering are enforced here;
// the transport layer only decodes frames and hands them over.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"chatrelay/internal/buffer"
	"chatrelay/internal/presence"
	"chatrelay/internal/relay"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// State is the lifecycle position of one connection.
type State int

const (
	StateUnidentified State = iota
	StateActive
	StateClosed
)

// Session owns one connection for its duration. Events arrive from the
// connection's read pump; the mutex guards against a disconnect racing a
// late event.
type Session struct {
	conn     interfaces.Conn
	registry *presence.Registry
	buffer   *buffer.Buffer
	store    interfaces.MessageStore
	router   *relay.Router

	mu       sync.Mutex
	state    State
	identity string
}

// New creates a session in the Unidentified state.
func New(conn interfaces.Conn, registry *presence.Registry, buf *buffer.Buffer, store interfaces.MessageStore, router *relay.Router) *Session {
	return &Session{
		conn:     conn,
		registry: registry,
		buffer:   buf,
		store:    store,
		router:   router,
	}
}

// HandleEvent dispatches one decoded frame. Unknown event names are logged
// and dropped; a malformed action degrades to a no-op or a validation error,
// never a crash.
func (s *Session) HandleEvent(env types.Envelope) {
	switch env.Event {
	case types.EventJoin:
		var payload types.JoinPayload
		decode(env.Data, &payload)
		s.handleJoin(payload.Name)
	case types.EventSendMessage:
		var payload types.SendMessagePayload
		decode(env.Data, &payload)
		s.handleSend(payload.Message)
	case types.EventTyping:
		var payload types.TypingPayload
		decode(env.Data, &payload)
		s.handleTyping(payload.IsTyping)
	default:
		log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

// handleJoin validates the claimed name and, on success, registers the
// identity and announces it. The user-joined broadcast goes to others only;
// the refreshed roster goes to everyone including the joiner.
func (s *Session) handleJoin(rawName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return
	case StateActive:
		s.router.ToOne(s.conn, types.EventError, types.ErrorPayload{Reason: "already joined"})
		return
	}

	name, err := types.ValidateIdentity(rawName)
	if err != nil {
		s.router.ToOne(s.conn, types.EventError, types.ErrorPayload{Reason: err.Error()})
		return
	}

	s.state = StateActive
	s.identity = name
	s.registry.Add(name, s.conn)

	log.Info().Str("identity", name).Msg("user joined")

	// Order of these two broadcasts is fixed.
	s.router.ToOthers(s.conn, types.EventUserJoined, types.PresencePayload{
		Identity:  name,
		Timestamp: time.Now().UTC(),
	})
	s.router.ToAll(types.EventUsersUpdate, s.registry.Identities())
}

// handleSend broadcasts a validated message to everyone including the
// sender, shadows it into the ephemeral buffer, and appends it to the
// durable store off the broadcast path. Empty bodies are silently dropped;
// sends before join get an explicit error.
func (s *Session) handleSend(rawBody string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return
	case StateUnidentified:
		s.router.ToOne(s.conn, types.EventError, types.ErrorPayload{Reason: "must join first"})
		return
	}

	body := types.NormalizeBody(rawBody)
	if body == "" {
		return
	}

	msg := types.NewMessage(s.identity, body)
	s.buffer.Push(msg)
	s.router.ToAll(types.EventNewMessage, msg)

	// Best effort; the buffer is the ordering source of truth, so durable
	// appends from different connections may race with each other.
	go s.store.Append(msg)
}

// handleTyping relays a typing toggle to other connections. Typing before
// join is ignored without an error signal.
func (s *Session) handleTyping(isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return
	}
	s.router.ToOthers(s.conn, types.EventUserTyping, types.UserTypingPayload{
		Identity: s.identity,
		IsTyping: isTyping,
	})
}

// Disconnect moves the session to its terminal state. A previously Active
// identity is removed from the registry and announced to the remaining
// connections; a connection that never identified leaves silently.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	wasActive := s.state == StateActive
	s.state = StateClosed

	if !wasActive {
		return
	}

	s.registry.Remove(s.identity)
	log.Info().Str("identity", s.identity).Msg("user left")

	s.router.ToOthers(s.conn, types.EventUserLeft, types.PresencePayload{
		Identity:  s.identity,
		Timestamp: time.Now().UTC(),
	})
	s.router.ToAll(types.EventUsersUpdate, s.registry.Identities())
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the claimed identity, empty until a successful join.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// decode tolerates malformed payloads by leaving the zero value in place;
// downstream validation turns that into the appropriate rejection.
func decode(data json.RawMessage, v interface{}) {
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Msg("malformed event payload")
	}
}
