package testutil

import (
	"testing"

	"fieldlog/internal/fieldlog"
	"fieldlog/internal/queue"
	"fieldlog/internal/queue/migrations"
)

// NewTestQueue creates a new in-memory SQLite queue with schema applied.
// The queue is automatically closed when the test completes.
func NewTestQueue(t *testing.T, clock fieldlog.Clock, idgen fieldlog.IDGenerator) *queue.SQLiteQueue {
	t.Helper()

	db, err := queue.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open queue database: %v", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		t.Fatalf("failed to apply queue schema: %v", err)
	}

	q, err := queue.NewSQLiteQueueFromDB(db, clock, idgen, 0)
	if err != nil {
		db.Close()
		t.Fatalf("failed to create queue: %v", err)
	}

	t.Cleanup(func() {
		q.Close()
	})

	return q
}
