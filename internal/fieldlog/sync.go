package fieldlog

import (
	"context"
	"fmt"
	"strings"

	"fieldlog/internal/model"
)

// conflictMarker prefixes the failure detail of entries rejected for a
// temporal overlap. Marked entries are not retried automatically: the user
// must adjust or explicitly retry them.
const conflictMarker = "conflict: "

// IsConflictDetail reports whether a queue entry's failure detail records a
// temporal conflict (as opposed to a transient failure).
func IsConflictDetail(detail string) bool {
	return strings.HasPrefix(detail, conflictMarker)
}

// ConflictDetail describes one queue entry rejected during a drain.
type ConflictDetail struct {
	EntryID   string
	Candidate Interval
	Offending []Interval
}

// DrainResult is the aggregate outcome of one drain pass.
type DrainResult struct {
	Succeeded int
	Failed    int

	// Partial counts entries whose parent committed but at least one child
	// or revision write failed. Those entries still count as Succeeded.
	Partial int

	Conflicts []ConflictDetail
}

// Drain processes the queue's current entries in FIFO order, committing each
// to the remote store. The engine moves Idle -> Draining -> Idle; a second
// Drain while one is running returns ErrDrainInProgress.
//
// The batch is snapshotted up front: entries enqueued mid-drain wait for the
// next drain. Each entry is re-validated against the remote store's current
// intervals before commit, because approvals or other devices may have
// changed the landscape since it was queued. One entry's failure never
// aborts the rest of the batch.
func (s *Service) Drain(ctx context.Context) (*DrainResult, error) {
	s.drainMu.Lock()
	if s.draining {
		s.drainMu.Unlock()
		return nil, ErrDrainInProgress
	}
	s.draining = true
	s.drainMu.Unlock()

	defer func() {
		s.drainMu.Lock()
		s.draining = false
		s.drainMu.Unlock()
	}()

	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}

	batch, err := s.queue.PeekAll()
	if err != nil {
		return nil, fmt.Errorf("snapshotting queue: %w", err)
	}

	res := &DrainResult{}
	s.logger.Info("drain started", "entries", len(batch))

	for _, entry := range batch {
		// Losing connectivity (or shutdown) cancels between entries; the
		// in-flight entry always completes or fails first.
		if ctx.Err() != nil {
			s.logger.Warn("drain interrupted", "remaining", len(batch)-res.Succeeded-res.Failed)
			return res, ctx.Err()
		}

		// Conflict-marked entries need user intervention, never auto-retry.
		if entry.Status == model.QueueFailed && IsConflictDetail(entry.FailureDetail) {
			continue
		}

		s.drainOne(ctx, user, entry, res)
	}

	s.logger.Info("drain complete", "succeeded", res.Succeeded, "failed", res.Failed, "partial", res.Partial)
	return res, nil
}

// drainOne processes a single queue entry.
func (s *Service) drainOne(ctx context.Context, user *model.User, entry model.PendingSubmission, res *DrainResult) {
	if err := s.queue.MarkSyncing(entry.ID); err != nil {
		s.logger.Error("marking entry syncing", "entry", entry.ID, "error", err)
		res.Failed++
		return
	}

	sub, err := s.decodeSubmission(entry.Payload)
	if err != nil {
		s.failEntry(entry.ID, "payload unreadable: "+err.Error(), res)
		return
	}

	// Final validation against the remote store's current state. Entries
	// committed earlier in this batch are visible here because the fetch
	// happens per entry.
	committed, err := s.remote.ListTimePeriods(ctx, sub.Period.UserID, sub.Period.WorkDate)
	if err != nil {
		s.failEntry(entry.ID, err.Error(), res)
		return
	}

	excludeID := ""
	if sub.Kind == model.KindEdit {
		excludeID = sub.Period.ID
	}

	// A period carrying this entry's client key was committed by an earlier
	// interrupted drain. It must not conflict with its own re-delivery; the
	// create below dedupes on the key instead.
	var existing []Interval
	for i := range committed {
		if sub.ClientKey != "" && committed[i].ClientKey == sub.ClientKey {
			continue
		}
		existing = append(existing, intervalOf(&committed[i]))
	}

	candidate := intervalOf(&sub.Period)
	check := DetectConflicts(candidate, existing, excludeID)
	if check.HasOverlap() {
		conflictErr := &ConflictError{Candidate: candidate, Offending: check.Overlaps}
		s.failEntry(entry.ID, conflictMarker+conflictErr.Error(), res)
		res.Conflicts = append(res.Conflicts, ConflictDetail{
			EntryID:   entry.ID,
			Candidate: candidate,
			Offending: check.Overlaps,
		})
		return
	}

	periodID, warnings, err := s.commitSubmission(ctx, user, sub)
	if err != nil {
		s.failEntry(entry.ID, err.Error(), res)
		return
	}

	if len(warnings) > 0 {
		res.Partial++
		for _, w := range warnings {
			s.logger.Warn("partial commit during drain", "entry", entry.ID, "period", periodID, "warning", w)
		}
	}

	if err := s.queue.Remove(entry.ID); err != nil {
		// The remote commit stands; the entry will be retried and
		// deduplicated by its client key on the next drain.
		s.logger.Error("removing committed entry", "entry", entry.ID, "error", err)
		res.Failed++
		return
	}

	res.Succeeded++
	s.logger.Info("entry committed", "entry", entry.ID, "period", periodID)
}

func (s *Service) failEntry(id, detail string, res *DrainResult) {
	if err := s.queue.MarkFailed(id, detail); err != nil {
		s.logger.Error("marking entry failed", "entry", id, "error", err)
	} else {
		s.logger.Warn("entry left queued", "entry", id, "detail", detail)
	}
	res.Failed++
}
