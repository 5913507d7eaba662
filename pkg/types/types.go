package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names exchanged over the wire. Inbound events are actions a client
// may request; outbound events are pushed by the server.
const (
	// inbound
	EventJoin        = "join"
	EventSendMessage = "send-message"
	EventTyping      = "typing"

	// outbound
	EventUsersUpdate = "users-update"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
	EventNewMessage  = "new-message"
	EventUserTyping  = "user-typing"
	EventError       = "error"
)

// Envelope is the tagged frame used in both directions. Data is decoded
// per event name after the envelope itself has been parsed.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload carries the display name a connection claims.
type JoinPayload struct {
	Name string `json:"name"`
}

// SendMessagePayload carries the body of a chat message.
type SendMessagePayload struct {
	Message string `json:"message"`
}

// TypingPayload carries a typing indicator toggle.
type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

// PresencePayload announces a join or leave to other connections.
type PresencePayload struct {
	Identity  string    `json:"identity"`
	Timestamp time.Time `json:"timestamp"`
}

// UserTypingPayload relays a typing indicator to other connections. The
// server holds no typing state; clients reconstruct it from the stream.
type UserTypingPayload struct {
	Identity string `json:"identity"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload is sent to the originating connection only.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

// Message is a validated chat message. Two copies may exist: one in the
// ephemeral buffer (always) and one in the durable store (when available).
type Message struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// User is a roster entry as exposed by the query surface.
type User struct {
	Identity string    `json:"identity"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewMessage builds a message from an already-validated identity and body.
func NewMessage(identity, body string) Message {
	return Message{
		ID:        uuid.NewString(),
		Identity:  identity,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
}
