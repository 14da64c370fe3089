package fieldlog

import (
	"context"

	"fieldlog/internal/model"
)

// RemoteStore is the remote relational store collaborator. It exposes
// create/read/update per record with server-assigned identifiers; it is
// reachable only while the device has connectivity, so every call is
// context-bound and may fail with a TransientError.
type RemoteStore interface {
	// CreateTimePeriod commits a new parent record and returns it with its
	// server-assigned id. Implementations must deduplicate on the period's
	// ClientKey: creating the same key twice returns the already committed
	// record with existed true instead of inserting a duplicate. Callers
	// skip child and audit-trail writes for an existed record, which a
	// previous delivery already wrote.
	CreateTimePeriod(ctx context.Context, period *model.TimePeriod) (created *model.TimePeriod, existed bool, err error)

	// UpdateTimePeriod overwrites the mutable fields of an existing record.
	UpdateTimePeriod(ctx context.Context, period *model.TimePeriod) error

	// GetTimePeriod returns a record by id, or nil if it does not exist.
	GetTimePeriod(ctx context.Context, id string) (*model.TimePeriod, error)

	// ListTimePeriods returns all committed periods for a user on a work
	// date, ordered by start time. Used by the conflict detector.
	ListTimePeriods(ctx context.Context, userID, workDate string) ([]model.TimePeriod, error)

	// Child records use full replace-on-edit semantics: the existing set
	// for the parent is deleted and the new set inserted.

	ReplaceBreaks(ctx context.Context, periodID string, breaks []model.Break) error
	ReplaceUsedFleet(ctx context.Context, periodID string, entries []model.UsedFleetEntry) error
	ReplaceMobilisedFleet(ctx context.Context, periodID string, entries []model.MobilisedFleetEntry) error

	// InsertRevisions appends audit-trail rows. Never updates or deletes.
	InsertRevisions(ctx context.Context, records []model.RevisionRecord) error

	// ListRevisions returns the audit trail for a period, ordered by
	// revision number then field name.
	ListRevisions(ctx context.Context, periodID string) ([]model.RevisionRecord, error)
}

// Identity supplies the authenticated user for ownership and role checks.
type Identity interface {
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Probe answers whether the remote store is currently reachable.
type Probe interface {
	Online(ctx context.Context) bool
}

// Encryptor protects queued payloads at rest on the device.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
