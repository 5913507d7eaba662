// Package websocket is the transport boundary: it upgrades HTTP requests,
// decodes inbound frames into tagged events, and feeds them to the session
// lifecycle. No chat semantics live here.
package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chatrelay/internal/buffer"
	"chatrelay/internal/presence"
	"chatrelay/internal/relay"
	"chatrelay/internal/session"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// Options carries the transport tuning knobs from configuration.
type Options struct {
	ReadLimit       int64
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteTimeout    time.Duration
	SendBuffer      int
	AllowedOrigins  []string
	RateLimitBurst  int
	RateLimitRefill time.Duration
}

func (o *Options) applyDefaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 30 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 2 * o.PingPeriod
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
}

// Handler accepts websocket connections and runs one session per connection.
type Handler struct {
	registry *presence.Registry
	buffer   *buffer.Buffer
	store    interfaces.MessageStore
	router   *relay.Router
	opts     Options
	upgrader websocket.Upgrader
}

// NewHandler wires the transport to the chat core.
func NewHandler(registry *presence.Registry, buf *buffer.Buffer, store interfaces.MessageStore, router *relay.Router, opts Options) *Handler {
	opts.applyDefaults()
	h := &Handler{
		registry: registry,
		buffer:   buf,
		store:    store,
		router:   router,
		opts:     opts,
	}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// checkOrigin allows every origin when no allow-list is configured.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.opts.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades the request and serves the connection until it
// disconnects. Disconnection detected by the read pump is the only
// cancellation signal for a session.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws, h.opts.SendBuffer, h.opts.WriteTimeout)
	sess := session.New(conn, h.registry, h.buffer, h.store, h.router)
	limiter := newRateLimiter(h.opts.RateLimitBurst, h.opts.RateLimitRefill)

	log.Debug().Str("remote", r.RemoteAddr).Msg("connection established")

	defer func() {
		sess.Disconnect()
		_ = conn.Close()
		log.Debug().Str("remote", r.RemoteAddr).Msg("connection closed")
	}()

	h.readPump(ws, conn, sess, limiter)
}

func (h *Handler) readPump(ws *websocket.Conn, conn *Connection, sess *session.Session, limiter *rateLimiter) {
	ws.SetReadLimit(h.opts.ReadLimit)
	if err := ws.SetReadDeadline(time.Now().Add(h.opts.PongWait)); err != nil {
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	// Transport-level keepalive only; the protocol has no application
	// heartbeat.
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.opts.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		var env types.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.router.ToOne(conn, types.EventError, types.ErrorPayload{Reason: "malformed event"})
			continue
		}

		if env.Event == types.EventSendMessage && !limiter.allow() {
			h.router.ToOne(conn, types.EventError, types.ErrorPayload{Reason: "rate limit exceeded"})
			continue
		}

		sess.HandleEvent(env)
	}
}
