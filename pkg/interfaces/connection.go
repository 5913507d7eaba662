package interfaces

// Conn is a live client connection able to receive server events. Send must
// be safe for concurrent use; the websocket implementation serializes writes
// through a single writer goroutine.
type Conn interface {
	// Send pushes one event frame to the client. Fire and forget from the
	// caller's perspective: an error means the frame was not queued.
	Send(event string, payload interface{}) error

	// Close tears down the connection. Safe to call more than once.
	Close() error
}
