package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/pkg/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s := Open(filepath.Join(t.TempDir(), "chatrelay.db"))
	require.True(t, s.Available())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenConnectsAndCreatesSchema(t *testing.T) {
	s := openTemp(t)

	messages, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestOpenFailureIsNonFatal(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "missing", "nested", "chatrelay.db"))

	assert.False(t, s.Available())
	assert.False(t, s.Append(types.NewMessage("alice", "hi")))

	_, err := s.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.NoError(t, s.Close())
}

func TestOpenEmptyPathRunsEphemeralOnly(t *testing.T) {
	s := Open("")
	assert.False(t, s.Available())
	assert.NoError(t, s.Close())
}

func TestAppendAndRecentChronological(t *testing.T) {
	s := openTemp(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		msg := types.Message{
			ID:        fmt.Sprintf("id-%d", i),
			Identity:  "alice",
			Body:      fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.True(t, s.Append(msg))
	}

	messages, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	for i, msg := range messages {
		assert.Equal(t, fmt.Sprintf("id-%d", i), msg.ID)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	s := openTemp(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 8; i++ {
		s.Append(types.Message{
			ID:        fmt.Sprintf("id-%d", i),
			Identity:  "alice",
			Body:      "x",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	messages, err := s.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "id-5", messages[0].ID)
	assert.Equal(t, "id-7", messages[2].ID)
}

func TestDuplicateIDAppendFailsQuietly(t *testing.T) {
	s := openTemp(t)

	msg := types.NewMessage("alice", "hi")
	require.True(t, s.Append(msg))
	assert.False(t, s.Append(msg), "primary key violation is swallowed, not surfaced")

	messages, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.False(t, s.Append(types.NewMessage("alice", "late")))
}
