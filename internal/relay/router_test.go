package relay

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/presence"
)

type sentEvent struct {
	event   string
	payload interface{}
}

type fakeConn struct {
	mu     sync.Mutex
	sent   []sentEvent
	failed bool
}

func (f *fakeConn) Send(event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return errors.New("connection gone")
	}
	f.sent = append(f.sent, sentEvent{event: event, payload: payload})
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) events() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEvent, len(f.sent))
	copy(out, f.sent)
	return out
}

func setup() (*Router, *fakeConn, *fakeConn, *fakeConn) {
	registry := presence.NewRegistry()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	registry.Add("alice", a)
	registry.Add("bob", b)
	registry.Add("carol", c)
	return NewRouter(registry), a, b, c
}

func TestToAllReachesEveryone(t *testing.T) {
	router, a, b, c := setup()

	router.ToAll("new-message", "hi")

	for _, conn := range []*fakeConn{a, b, c} {
		events := conn.events()
		require.Len(t, events, 1)
		assert.Equal(t, "new-message", events[0].event)
	}
}

func TestToOthersExcludesOrigin(t *testing.T) {
	router, a, b, c := setup()

	router.ToOthers(a, "user-typing", "payload")

	assert.Empty(t, a.events())
	assert.Len(t, b.events(), 1)
	assert.Len(t, c.events(), 1)
}

func TestToOne(t *testing.T) {
	router, a, b, _ := setup()

	router.ToOne(b, "error", "must join first")

	assert.Empty(t, a.events())
	require.Len(t, b.events(), 1)
	assert.Equal(t, "error", b.events()[0].event)
}

func TestFailedSendDoesNotStopFanOut(t *testing.T) {
	router, a, b, c := setup()
	a.failed = true

	router.ToAll("users-update", []string{"alice", "bob", "carol"})

	assert.Len(t, b.events(), 1)
	assert.Len(t, c.events(), 1)
}

func TestEventOrderPreservedPerConnection(t *testing.T) {
	router, _, b, _ := setup()

	router.ToAll("user-joined", nil)
	router.ToAll("users-update", nil)

	events := b.events()
	require.Len(t, events, 2)
	assert.Equal(t, "user-joined", events[0].event)
	assert.Equal(t, "users-update", events[1].event)
}
