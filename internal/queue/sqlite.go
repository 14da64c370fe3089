package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"fieldlog/internal/fieldlog"
	"fieldlog/internal/model"
	"fieldlog/internal/queue/migrations"
)

// SQLiteQueue implements fieldlog.Queue on a local SQLite database. Entries
// survive process restarts; all mutations share one critical section.
type SQLiteQueue struct {
	db         *sql.DB
	path       string
	clock      fieldlog.Clock
	idgen      fieldlog.IDGenerator
	maxEntries int
	mu         sync.Mutex
}

var _ fieldlog.Queue = (*SQLiteQueue)(nil)

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// SQLite supports one writer, and an in-memory database exists per
	// connection. A single pooled connection serves both cases.
	db.SetMaxOpenConns(1)

	// Wait for locks instead of failing when a drain and a submission race.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Queued business events must survive power loss, not just process death.
	if _, err := db.Exec("PRAGMA synchronous = FULL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	return db, nil
}

// NewSQLiteQueue opens (creating and migrating if necessary) a queue database
// at path. maxEntries caps the queue size; zero means unlimited.
// Entries left in the syncing state by a crash are reset to pending, so an
// interrupted drain is retried rather than lost (at-least-once delivery).
func NewSQLiteQueue(path string, clock fieldlog.Clock, idgen fieldlog.IDGenerator, maxEntries int) (*SQLiteQueue, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating queue database: %w", err)
	}

	q := &SQLiteQueue{db: db, path: path, clock: clock, idgen: idgen, maxEntries: maxEntries}

	if err := q.recoverSyncing(); err != nil {
		db.Close()
		return nil, err
	}

	return q, nil
}

// NewSQLiteQueueFromDB wraps an existing, already migrated connection.
// Used by tests that share a single in-memory database.
func NewSQLiteQueueFromDB(db *sql.DB, clock fieldlog.Clock, idgen fieldlog.IDGenerator, maxEntries int) (*SQLiteQueue, error) {
	if err := migrations.CheckStatus(db); err != nil {
		return nil, fmt.Errorf("queue schema out of date: %w", err)
	}

	q := &SQLiteQueue{db: db, clock: clock, idgen: idgen, maxEntries: maxEntries}
	if err := q.recoverSyncing(); err != nil {
		return nil, err
	}
	return q, nil
}

// recoverSyncing resets in-flight entries from a previous crashed drain.
func (q *SQLiteQueue) recoverSyncing() error {
	_, err := q.db.Exec(
		`UPDATE pending_submissions SET status = ? WHERE status = ?`,
		model.QueuePending, model.QueueSyncing,
	)
	if err != nil {
		return fmt.Errorf("recovering in-flight entries: %w", err)
	}
	return nil
}

// Enqueue appends a payload and returns the new entry id.
func (q *SQLiteQueue) Enqueue(payload []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxEntries > 0 {
		count, err := q.countLocked()
		if err != nil {
			return "", err
		}
		if count >= q.maxEntries {
			return "", fieldlog.ErrStorageFull
		}
	}

	id := q.idgen.New()
	_, err := q.db.Exec(
		`INSERT INTO pending_submissions (id, created_at, status, payload) VALUES (?, ?, ?, ?)`,
		id, q.clock.Now(), model.QueuePending, payload,
	)
	if err != nil {
		if isStorageFull(err) {
			return "", fieldlog.ErrStorageFull
		}
		return "", fmt.Errorf("enqueueing submission: %w", err)
	}
	return id, nil
}

// PeekAll returns every entry, FIFO by creation time then id.
func (q *SQLiteQueue) PeekAll() ([]model.PendingSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, err := q.db.Query(
		`SELECT id, created_at, status, failure_detail, attempts, payload
		 FROM pending_submissions ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	defer rows.Close()

	var entries []model.PendingSubmission
	for rows.Next() {
		var e model.PendingSubmission
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Status, &e.FailureDetail, &e.Attempts, &e.Payload); err != nil {
			return nil, fmt.Errorf("scanning queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	return entries, nil
}

// MarkSyncing flags an entry as in-flight.
func (q *SQLiteQueue) MarkSyncing(id string) error {
	return q.setStatus(id, model.QueueSyncing, "", false)
}

// MarkFailed flags an entry as failed and bumps its attempt count.
func (q *SQLiteQueue) MarkFailed(id string, detail string) error {
	return q.setStatus(id, model.QueueFailed, detail, true)
}

// Retry resets a failed entry to pending.
func (q *SQLiteQueue) Retry(id string) error {
	return q.setStatus(id, model.QueuePending, "", false)
}

func (q *SQLiteQueue) setStatus(id string, status model.QueueStatus, detail string, bumpAttempts bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	attempts := 0
	if bumpAttempts {
		attempts = 1
	}
	res, err := q.db.Exec(
		`UPDATE pending_submissions SET status = ?, failure_detail = ?, attempts = attempts + ? WHERE id = ?`,
		status, detail, attempts, id,
	)
	if err != nil {
		return fmt.Errorf("updating entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating entry %s: %w", id, err)
	}
	if n == 0 {
		return fieldlog.ErrEntryNotFound
	}
	return nil
}

// Remove deletes a committed entry.
func (q *SQLiteQueue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	res, err := q.db.Exec(`DELETE FROM pending_submissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing entry %s: %w", id, err)
	}
	if n == 0 {
		return fieldlog.ErrEntryNotFound
	}
	return nil
}

// Count returns the number of entries currently queued.
func (q *SQLiteQueue) Count() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.countLocked()
}

func (q *SQLiteQueue) countLocked() (int, error) {
	var count int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM pending_submissions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting queue entries: %w", err)
	}
	return count, nil
}

// Path returns the database file path (or ":memory:").
func (q *SQLiteQueue) Path() string {
	return q.path
}

// Close closes the database connection.
func (q *SQLiteQueue) Close() error {
	if q.db != nil {
		return q.db.Close()
	}
	return nil
}

// isStorageFull reports whether err is SQLite's disk-full condition.
func isStorageFull(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrFull
	}
	return false
}
