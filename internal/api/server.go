// Package api is the thin HTTP surface over the query layer. No chat
// semantics: JSON serialization and status codes only.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"chatrelay/internal/presence"
	"chatrelay/internal/query"
	"chatrelay/pkg/interfaces"
	"chatrelay/pkg/types"
)

// Server exposes the read-only query endpoints and a health probe.
type Server struct {
	query    *query.Service
	registry *presence.Registry
	store    interfaces.MessageStore
	router   *http.ServeMux
}

// NewServer sets up routing over the query surface.
func NewServer(q *query.Service, registry *presence.Registry, store interfaces.MessageStore) *Server {
	s := &Server{
		query:    q,
		registry: registry,
		store:    store,
		router:   http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/messages", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleMessages))))
	s.router.Handle("/api/users", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleUsers))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.handleHealth))))
}

// ServeHTTP implements http.Handler for mounting under the process mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// MessagesResponse is the recent-messages envelope. Source reflects which
// backing store served the read.
type MessagesResponse struct {
	Messages []types.Message `json:"messages"`
	Source   string          `json:"source"`
}

// UsersResponse is the active-roster envelope.
type UsersResponse struct {
	Users []types.User `json:"users"`
}

// HealthResponse reports process health. Degraded storage is still healthy;
// the relay keeps working from memory.
type HealthResponse struct {
	Status      string    `json:"status"`
	Storage     string    `json:"storage"`
	Connections int       `json:"connections"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}

	messages, source := s.query.RecentMessages(r.Context())
	s.writeJSON(w, MessagesResponse{Messages: messages, Source: source})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}

	users := s.query.ActiveUsers()
	if users == nil {
		users = []types.User{}
	}
	s.writeJSON(w, UsersResponse{Users: users})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allowGet(w, r) {
		return
	}

	storage := query.SourceMemory
	if s.store.Available() {
		storage = query.SourceDatabase
	}
	s.writeJSON(w, HealthResponse{
		Status:      "ok",
		Storage:     storage,
		Connections: s.registry.Count(),
		Timestamp:   time.Now().UTC(),
	})
}

func (s *Server) allowGet(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodGet:
		return true
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return false
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.WriteHeader(code)
	s.writeJSON(w, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
