package fieldlog

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for conditions callers branch on.
var (
	// ErrStorageFull is returned by Enqueue when the local durable store
	// cannot accept another entry. Never silently tolerated.
	ErrStorageFull = errors.New("local queue storage is full")

	// ErrDrainInProgress is returned when a drain is requested while
	// another drain is still running.
	ErrDrainInProgress = errors.New("a drain is already in progress")

	// ErrOffline is returned for operations that require connectivity.
	ErrOffline = errors.New("device is offline")

	// ErrEntryNotFound is returned by queue operations for unknown ids.
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrPeriodImmutable is returned when editing an admin-approved period.
	ErrPeriodImmutable = errors.New("period is admin approved and can no longer be edited")

	// ErrEditForbidden is returned when the current user lacks permission
	// to edit the period.
	ErrEditForbidden = errors.New("user is not permitted to edit this period")
)

// ValidationError is a blocking, locally resolved error: the submission
// never reaches the queue or the remote store.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Reason }

// ConflictError is a blocking temporal overlap between the candidate and
// one or more existing periods for the same user and date.
type ConflictError struct {
	Candidate Interval
	Offending []Interval
}

func (e *ConflictError) Error() string {
	spans := make([]string, len(e.Offending))
	for i, iv := range e.Offending {
		spans[i] = iv.String()
	}
	return fmt.Sprintf("period %s overlaps existing period(s) %s",
		e.Candidate.String(), strings.Join(spans, ", "))
}

// GapError is advisory, never blocking: the candidate leaves a non-zero gap
// to its nearest neighbor and the user has neither supplied a comment nor
// confirmed the gap. Resubmitting with GapAcknowledged set proceeds.
type GapError struct {
	MinutesBefore int
	MinutesAfter  int
}

func (e *GapError) Error() string {
	parts := []string{}
	if e.MinutesBefore > 0 {
		parts = append(parts, fmt.Sprintf("%d minute gap before this period", e.MinutesBefore))
	}
	if e.MinutesAfter > 0 {
		parts = append(parts, fmt.Sprintf("%d minute gap after this period", e.MinutesAfter))
	}
	return strings.Join(parts, "; ") + ": add a comment or confirm to continue"
}

// TransientError wraps a network-level or server-side failure that a later
// drain may succeed at. Entries failing transiently stay queued.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RemoteError is a permanent rejection from the remote store (4xx).
// Retrying without changing the submission will not help.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote store returned %d: %s", e.Op, e.Status, e.Body)
}
