package queue_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fieldlog/internal/config"
	"fieldlog/internal/fieldlog"
	"fieldlog/internal/model"
	"fieldlog/internal/queue"
	"fieldlog/internal/testutil"
)

func configFor(queueType, dataDir string) config.QueueConfig {
	return config.QueueConfig{Type: queueType, DataDir: dataDir}
}

func newFileQueue(t *testing.T, path string, maxEntries int) *queue.SQLiteQueue {
	t.Helper()

	q, err := queue.NewSQLiteQueue(path, testutil.FixedClock(), testutil.NewStubIDGenerator(), maxEntries)
	if err != nil {
		t.Fatalf("NewSQLiteQueue() error = %v", err)
	}
	return q
}

func TestSQLiteQueue_EnqueuePeekRemove(t *testing.T) {
	clock := testutil.FixedClock()
	q := testutil.NewTestQueue(t, clock, testutil.NewStubIDGenerator())

	id1, err := q.Enqueue([]byte("payload-1"))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	clock.Advance(time.Second)
	id2, err := q.Enqueue([]byte("payload-2"))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	entries, err := q.PeekAll()
	if err != nil {
		t.Fatalf("PeekAll() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].ID != id1 || entries[1].ID != id2 {
		t.Errorf("order = [%s %s], want FIFO [%s %s]", entries[0].ID, entries[1].ID, id1, id2)
	}
	if string(entries[0].Payload) != "payload-1" {
		t.Errorf("Payload = %q, want payload-1", entries[0].Payload)
	}
	if entries[0].Status != model.QueuePending {
		t.Errorf("Status = %s, want pending", entries[0].Status)
	}

	if err := q.Remove(id1); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	count, _ := q.Count()
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestSQLiteQueue_FIFOWithinSameTimestamp(t *testing.T) {
	// A burst of entries within one clock tick still drains in insert order
	// because ids are sequential.
	q := testutil.NewTestQueue(t, testutil.FixedClock(), testutil.NewStubIDGenerator())

	for i := 0; i < 5; i++ {
		if _, err := q.Enqueue([]byte{byte(i)}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}

	entries, _ := q.PeekAll()
	for i, e := range entries {
		if e.Payload[0] != byte(i) {
			t.Fatalf("entry %d has payload %d, want insert order", i, e.Payload[0])
		}
	}
}

func TestSQLiteQueue_DurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	q := newFileQueue(t, path, 0)
	id, err := q.Enqueue([]byte("survives"))
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	q2 := newFileQueue(t, path, 0)
	defer q2.Close()

	entries, err := q2.PeekAll()
	if err != nil {
		t.Fatalf("PeekAll() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || string(entries[0].Payload) != "survives" {
		t.Errorf("entries after reopen = %+v, want the original entry", entries)
	}
}

func TestSQLiteQueue_RecoverSyncingOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	q := newFileQueue(t, path, 0)
	id, _ := q.Enqueue([]byte("in-flight"))
	if err := q.MarkSyncing(id); err != nil {
		t.Fatalf("MarkSyncing() error = %v", err)
	}
	// Simulated crash: close without removing or failing the entry.
	q.Close()

	q2 := newFileQueue(t, path, 0)
	defer q2.Close()

	entries, _ := q2.PeekAll()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Status != model.QueuePending {
		t.Errorf("Status after reopen = %s, want pending", entries[0].Status)
	}
}

func TestSQLiteQueue_MarkFailedAndRetry(t *testing.T) {
	q := testutil.NewTestQueue(t, testutil.FixedClock(), testutil.NewStubIDGenerator())

	id, _ := q.Enqueue([]byte("p"))

	if err := q.MarkFailed(id, "remote store returned 503"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	entries, _ := q.PeekAll()
	if entries[0].Status != model.QueueFailed {
		t.Errorf("Status = %s, want failed", entries[0].Status)
	}
	if entries[0].FailureDetail != "remote store returned 503" {
		t.Errorf("FailureDetail = %q", entries[0].FailureDetail)
	}
	if entries[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", entries[0].Attempts)
	}

	if err := q.MarkFailed(id, "timeout"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	entries, _ = q.PeekAll()
	if entries[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", entries[0].Attempts)
	}

	if err := q.Retry(id); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	entries, _ = q.PeekAll()
	if entries[0].Status != model.QueuePending {
		t.Errorf("Status = %s, want pending after retry", entries[0].Status)
	}
	if entries[0].FailureDetail != "" {
		t.Errorf("FailureDetail = %q, want cleared", entries[0].FailureDetail)
	}
	// Attempts history survives the retry.
	if entries[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", entries[0].Attempts)
	}
}

func TestSQLiteQueue_UnknownEntry(t *testing.T) {
	q := testutil.NewTestQueue(t, testutil.FixedClock(), testutil.NewStubIDGenerator())

	for name, fn := range map[string]func() error{
		"MarkSyncing": func() error { return q.MarkSyncing("missing") },
		"MarkFailed":  func() error { return q.MarkFailed("missing", "x") },
		"Retry":       func() error { return q.Retry("missing") },
		"Remove":      func() error { return q.Remove("missing") },
	} {
		if err := fn(); !errors.Is(err, fieldlog.ErrEntryNotFound) {
			t.Errorf("%s = %v, want ErrEntryNotFound", name, err)
		}
	}
}

func TestSQLiteQueue_MaxEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	q := newFileQueue(t, path, 2)
	defer q.Close()

	if _, err := q.Enqueue([]byte("1")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := q.Enqueue([]byte("2")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	_, err := q.Enqueue([]byte("3"))
	if !errors.Is(err, fieldlog.ErrStorageFull) {
		t.Fatalf("Enqueue() error = %v, want ErrStorageFull", err)
	}

	// Removing an entry frees capacity again.
	entries, _ := q.PeekAll()
	if err := q.Remove(entries[0].ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := q.Enqueue([]byte("3")); err != nil {
		t.Errorf("Enqueue() after Remove error = %v", err)
	}
}

func TestNewQueueFromConfig(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		dir := t.TempDir()
		q, err := queue.NewQueueFromConfig(
			configFor("sqlite", dir), testutil.FixedClock(), testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewQueueFromConfig() error = %v", err)
		}
		defer q.Close()

		if _, err := q.Enqueue([]byte("x")); err != nil {
			t.Errorf("Enqueue() error = %v", err)
		}
	})

	t.Run("memory", func(t *testing.T) {
		q, err := queue.NewQueueFromConfig(
			configFor("memory", ""), testutil.FixedClock(), testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewQueueFromConfig() error = %v", err)
		}
		defer q.Close()
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := queue.NewQueueFromConfig(
			configFor("redis", ""), testutil.FixedClock(), testutil.NewStubIDGenerator()); err == nil {
			t.Error("expected error for unknown queue type")
		}
	})

	t.Run("sqlite requires data dir", func(t *testing.T) {
		if _, err := queue.NewQueueFromConfig(
			configFor("sqlite", ""), testutil.FixedClock(), testutil.NewStubIDGenerator()); err == nil {
			t.Error("expected error for missing data_dir")
		}
	})
}
