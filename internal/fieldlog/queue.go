package fieldlog

import "fieldlog/internal/model"

// Queue is the durable local queue of pending submissions. Implementations
// must survive process restart and guard all mutations with a single
// critical section: no two callers may act on the same entry concurrently.
//
// A crash between MarkSyncing and Remove must leave the entry recoverable
// as pending on next open (at-least-once delivery).
type Queue interface {
	// Enqueue appends a payload and returns the new entry's id.
	// Returns ErrStorageFull when local storage cannot accept the entry.
	Enqueue(payload []byte) (string, error)

	// PeekAll returns every entry in FIFO order by creation time.
	// Entries are not removed.
	PeekAll() ([]model.PendingSubmission, error)

	// MarkSyncing flags an entry as in-flight.
	MarkSyncing(id string) error

	// MarkFailed flags an entry as failed with a human-readable detail
	// (conflict marker or transient error text) and bumps its attempt count.
	// Failed entries stay queued until retried or resolved by the user.
	MarkFailed(id string, detail string) error

	// Retry resets a failed entry to pending so the next drain picks it up.
	Retry(id string) error

	// Remove deletes a committed entry.
	Remove(id string) error

	// Count returns the number of entries currently queued.
	Count() (int, error)

	// Close releases the underlying storage.
	Close() error
}
