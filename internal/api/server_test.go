package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/buffer"
	"chatrelay/internal/presence"
	"chatrelay/internal/query"
	"chatrelay/pkg/types"
)

type stubStore struct {
	available bool
	messages  []types.Message
}

func (s *stubStore) Available() bool           { return s.available }
func (s *stubStore) Append(types.Message) bool { return s.available }
func (s *stubStore) Close() error              { return nil }

func (s *stubStore) Recent(context.Context, int) ([]types.Message, error) {
	return s.messages, nil
}

func newServer(store *stubStore, registry *presence.Registry, buf *buffer.Buffer) *Server {
	return NewServer(query.NewService(store, buf, registry, 50), registry, store)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMessagesEndpointFromMemory(t *testing.T) {
	buf := buffer.New(100)
	buf.Push(types.Message{ID: "1", Identity: "alice", Body: "hi"})
	s := newServer(&stubStore{available: false}, presence.NewRegistry(), buf)

	rec := get(t, s, "/api/messages")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp MessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, query.SourceMemory, resp.Source)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "hi", resp.Messages[0].Body)
}

func TestMessagesEndpointFromDatabase(t *testing.T) {
	store := &stubStore{available: true, messages: []types.Message{{ID: "1", Body: "stored"}}}
	s := newServer(store, presence.NewRegistry(), buffer.New(100))

	rec := get(t, s, "/api/messages")

	var resp MessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, query.SourceDatabase, resp.Source)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "stored", resp.Messages[0].Body)
}

func TestUsersEndpoint(t *testing.T) {
	registry := presence.NewRegistry()
	registry.Add("alice", nil)
	registry.Add("bob", nil)
	s := newServer(&stubStore{}, registry, buffer.New(100))

	rec := get(t, s, "/api/users")

	var resp UsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 2)
	assert.Equal(t, "alice", resp.Users[0].Identity)
	assert.Equal(t, "bob", resp.Users[1].Identity)
	assert.False(t, resp.Users[0].JoinedAt.IsZero())
}

func TestUsersEndpointEmptyRoster(t *testing.T) {
	s := newServer(&stubStore{}, presence.NewRegistry(), buffer.New(100))

	rec := get(t, s, "/api/users")

	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	registry := presence.NewRegistry()
	registry.Add("alice", nil)
	s := newServer(&stubStore{available: false}, registry, buffer.New(100))

	rec := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code, "degraded storage is still healthy")

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, query.SourceMemory, resp.Storage)
	assert.Equal(t, 1, resp.Connections)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(&stubStore{}, presence.NewRegistry(), buffer.New(100))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestCORSHeaders(t *testing.T) {
	s := newServer(&stubStore{}, presence.NewRegistry(), buffer.New(100))

	rec := get(t, s, "/api/messages")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRecorder()
	s.ServeHTTP(preflight, httptest.NewRequest(http.MethodOptions, "/api/messages", nil))
	assert.Equal(t, http.StatusOK, preflight.Code)
}
