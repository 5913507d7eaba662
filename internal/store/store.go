// Package store wraps the SQLite message log behind the durable store
// contract: connect once at startup, append best-effort, query recent-N.
// Connect failure is non-fatal; the process runs ephemeral-only for its
// lifetime and no call ever surfaces a storage fault to a connection.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"chatrelay/pkg/types"
)

const writeTimeout = 30 * time.Second

// Store is the SQLite-backed message log. The zero-value availability of a
// failed Open is permanent: per-call failures degrade that call only.
type Store struct {
	db        *sql.DB
	available bool

	writeCh  chan writeOp
	shutdown chan struct{}
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type writeOp struct {
	op     func(*sql.DB) error
	result chan error
}

// Open attempts the one startup connection. It never fails the caller: on
// any error the returned store reports Available() == false and the system
// proceeds in ephemeral-only mode.
func Open(path string) *Store {
	s := &Store{
		writeCh:  make(chan writeOp, 100),
		shutdown: make(chan struct{}),
	}

	if path == "" {
		log.Warn().Msg("no database path configured, running ephemeral-only")
		return s
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("durable store unavailable, falling back to memory")
		return s
	}

	if err := db.Ping(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("durable store unavailable, falling back to memory")
		_ = db.Close()
		return s
	}

	if err := ensureSchema(db); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("durable store schema setup failed, falling back to memory")
		_ = db.Close()
		return s
	}

	s.db = db
	s.available = true

	// Single writer goroutine keeps SQLite writes contention-free.
	s.wg.Add(1)
	go s.writeLoop()

	log.Info().Str("path", path).Msg("durable store connected")
	return s
}

// Available reports whether the startup connection succeeded.
func (s *Store) Available() bool {
	return s.available
}

// Append persists one message best-effort. Failures are logged and swallowed;
// the broadcast path must never block on a durable write.
func (s *Store) Append(msg types.Message) bool {
	if !s.available {
		return false
	}

	err := s.executeWrite(func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO messages (id, identity, body, timestamp) VALUES (?, ?, ?, ?)`,
			msg.ID, msg.Identity, msg.Body, msg.Timestamp,
		)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Str("identity", msg.Identity).Msg("durable append failed, message kept in memory only")
		return false
	}
	return true
}

// Recent returns the most recent limit messages in chronological ascending
// order. A failure degrades this call only; availability is unchanged.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Message, error) {
	if !s.available {
		return nil, ErrUnavailable
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identity, body, timestamp FROM messages ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		if err := rows.Scan(&msg.ID, &msg.Identity, &msg.Body, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	// Rows arrive newest first; reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Close drains the writer goroutine and closes the pool. Safe when the store
// never connected.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if !s.available {
		return nil
	}

	close(s.shutdown)
	s.wg.Wait()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close durable store: %w", err)
	}
	return nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeCh:
			op.result <- op.op(s.db)
		case <-s.shutdown:
			return
		}
	}
}

func (s *Store) executeWrite(op func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeCh <- writeOp{op: op, result: result}:
		select {
		case err := <-result:
			return err
		case <-s.shutdown:
			return ErrClosed
		}
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-s.shutdown:
		return ErrClosed
	}
}
