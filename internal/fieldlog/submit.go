package fieldlog

import (
	"context"
	"fmt"

	"fieldlog/internal/model"
)

// SubmitResult reports the outcome of a submission to the form collaborator.
type SubmitResult struct {
	// Queued is true when the submission was appended to the durable queue
	// instead of being committed directly.
	Queued bool

	// EntryID is the queue entry id when Queued.
	EntryID string

	// PeriodID is the server-assigned id when committed directly.
	PeriodID string

	// Warnings holds partial-success messages from a direct commit
	// (child records that failed after the parent committed).
	Warnings []string
}

// Submit records one business event. The submission is validated and checked
// for temporal conflicts first; conflicts and unacknowledged gaps are
// reported before anything is persisted. When the device is offline the
// submission is queued durably; when online it is committed directly.
// A direct commit that fails transiently falls back to the queue rather
// than losing the event.
func (s *Service) Submit(ctx context.Context, sub *model.Submission) (*SubmitResult, error) {
	if sub.Kind == "" {
		sub.Kind = model.KindCreate
	}
	if sub.ClientKey == "" {
		sub.ClientKey = s.idgen.New()
	}

	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}
	if sub.Period.UserID == "" {
		sub.Period.UserID = user.ID
	}

	if err := s.validate(user, sub); err != nil {
		return nil, err
	}

	online := s.probe.Online(ctx)

	if err := s.preflightCheck(ctx, sub, online); err != nil {
		return nil, err
	}

	if !online {
		return s.enqueue(sub)
	}

	periodID, warnings, err := s.commitSubmission(ctx, user, sub)
	if err != nil {
		if IsTransient(err) {
			// Connectivity dropped between the probe and the commit.
			s.logger.Warn("direct commit failed transiently, queuing instead", "error", err)
			return s.enqueue(sub)
		}
		return nil, err
	}

	for _, w := range warnings {
		s.logger.Warn("partial commit", "period", periodID, "warning", w)
	}

	return &SubmitResult{PeriodID: periodID, Warnings: warnings}, nil
}

// validate performs the blocking structural checks.
func (s *Service) validate(user *model.User, sub *model.Submission) error {
	if err := sub.Period.Validate(); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if sub.Kind == model.KindEdit {
		if sub.Period.ID == "" {
			return &ValidationError{Reason: "edit requires the period id"}
		}
		// Final authority is the remote record at commit time; this check
		// uses the locally known status so a forbidden edit fails fast.
		if sub.Period.Status == model.StatusAdminApproved {
			return ErrPeriodImmutable
		}
		if !user.CanEditPeriod(&sub.Period) {
			return ErrEditForbidden
		}
	}
	return nil
}

// preflightCheck runs the conflict detector against the queued intervals and,
// when online, the remote store's committed intervals for the same user/date.
func (s *Service) preflightCheck(ctx context.Context, sub *model.Submission, online bool) error {
	existing, err := s.pendingIntervals(sub.Period.UserID, sub.Period.WorkDate)
	if err != nil {
		return err
	}

	if online {
		committed, err := s.remote.ListTimePeriods(ctx, sub.Period.UserID, sub.Period.WorkDate)
		if err != nil {
			if !IsTransient(err) {
				return err
			}
			// Probe raced a connectivity loss; fall back to local-only.
			s.logger.Warn("remote interval fetch failed, checking locally only", "error", err)
		} else {
			existing = append(existing, intervalsOf(committed)...)
		}
	}

	excludeID := ""
	if sub.Kind == model.KindEdit {
		excludeID = sub.Period.ID
	}

	candidate := intervalOf(&sub.Period)
	check := DetectConflicts(candidate, existing, excludeID)
	if check.HasOverlap() {
		return &ConflictError{Candidate: candidate, Offending: check.Overlaps}
	}
	if check.HasGap() && !sub.GapAcknowledged && sub.Period.Comment == "" {
		return &GapError{MinutesBefore: check.GapBeforeMinutes, MinutesAfter: check.GapAfterMinutes}
	}
	return nil
}

// enqueue encodes, encrypts and durably stores a submission.
func (s *Service) enqueue(sub *model.Submission) (*SubmitResult, error) {
	payload, err := s.encodeSubmission(sub)
	if err != nil {
		return nil, err
	}
	id, err := s.queue.Enqueue(payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("submission queued", "entry", id, "work_date", sub.Period.WorkDate)
	return &SubmitResult{Queued: true, EntryID: id}, nil
}

// RetryEntry resets a failed queue entry to pending. Used after the user has
// resolved a conflict (or chosen to retry a transient failure immediately).
func (s *Service) RetryEntry(id string) error {
	return s.queue.Retry(id)
}

// PendingCount returns the number of entries currently queued.
func (s *Service) PendingCount() (int, error) {
	return s.queue.Count()
}

// PendingEntries lists the queue's entries with their decoded work dates
// where readable, for display.
func (s *Service) PendingEntries() ([]model.PendingSubmission, error) {
	return s.queue.PeekAll()
}

// Revisions returns the audit trail of a period.
func (s *Service) Revisions(ctx context.Context, periodID string) ([]model.RevisionRecord, error) {
	return s.remote.ListRevisions(ctx, periodID)
}
