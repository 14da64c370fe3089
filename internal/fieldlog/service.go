package fieldlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"fieldlog/internal/model"
)

// Service is the orchestration layer of the offline submission subsystem.
// It coordinates the durable queue, the conflict detector, the revision
// tracker and the remote store to perform the operations the form/UI
// collaborator needs.
type Service struct {
	queue     Queue
	remote    RemoteStore
	identity  Identity
	probe     Probe
	encryptor Encryptor
	tracker   *RevisionTracker
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	drainMu  sync.Mutex
	draining bool
}

// NewService creates a Service with the provided dependencies.
func NewService(queue Queue, remote RemoteStore, identity Identity, probe Probe, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		queue:     queue,
		remote:    remote,
		identity:  identity,
		probe:     probe,
		encryptor: encryptor,
		tracker:   NewRevisionTracker(clock, idgen),
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Draining reports whether a drain is currently in progress.
func (s *Service) Draining() bool {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()
	return s.draining
}

// encodeSubmission serializes and encrypts a submission for the queue.
func (s *Service) encodeSubmission(sub *model.Submission) ([]byte, error) {
	plain, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encoding submission: %w", err)
	}
	payload, err := s.encryptor.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("encrypting submission: %w", err)
	}
	return payload, nil
}

// decodeSubmission reverses encodeSubmission.
func (s *Service) decodeSubmission(payload []byte) (*model.Submission, error) {
	plain, err := s.encryptor.Decrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("decrypting submission: %w", err)
	}
	var sub model.Submission
	if err := json.Unmarshal(plain, &sub); err != nil {
		return nil, fmt.Errorf("decoding submission: %w", err)
	}
	return &sub, nil
}

// intervalOf extracts the candidate interval of a submission.
func intervalOf(p *model.TimePeriod) Interval {
	return Interval{PeriodID: p.ID, Start: p.StartTime, Finish: p.FinishTime}
}

// intervalsOf converts committed periods to detector intervals.
func intervalsOf(periods []model.TimePeriod) []Interval {
	out := make([]Interval, len(periods))
	for i := range periods {
		out[i] = intervalOf(&periods[i])
	}
	return out
}

// pendingIntervals returns the intervals of queued submissions for the given
// user and work date. A queued overlapping entry blocks a new submission the
// same way a committed one does. Entries already marked failed are excluded:
// they will not commit without user intervention.
func (s *Service) pendingIntervals(userID, workDate string) ([]Interval, error) {
	entries, err := s.queue.PeekAll()
	if err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}

	var intervals []Interval
	for _, entry := range entries {
		if entry.Status == model.QueueFailed {
			continue
		}
		sub, err := s.decodeSubmission(entry.Payload)
		if err != nil {
			// Unreadable entries are reported by the drain, not here.
			s.logger.Warn("skipping unreadable queue entry", "entry", entry.ID, "error", err)
			continue
		}
		if sub.Period.UserID != userID || sub.Period.WorkDate != workDate {
			continue
		}
		intervals = append(intervals, intervalOf(&sub.Period))
	}
	return intervals, nil
}

// commitSubmission commits one submission to the remote store: parent record
// first, then child records, then the audit trail. A child or revision
// failure after the parent has committed is NOT rolled back; it is returned
// as a partial-success warning. The error return is non-nil only when the
// parent itself failed to commit.
func (s *Service) commitSubmission(ctx context.Context, user *model.User, sub *model.Submission) (periodID string, warnings []string, err error) {
	switch sub.Kind {
	case model.KindEdit:
		return s.commitEdit(ctx, user, sub)
	default:
		return s.commitCreate(ctx, user, sub)
	}
}

func (s *Service) commitCreate(ctx context.Context, user *model.User, sub *model.Submission) (string, []string, error) {
	period := sub.Period
	period.ClientKey = sub.ClientKey
	period.Status = model.StatusSubmitted
	period.RevisionNumber = 0

	created, existed, err := s.remote.CreateTimePeriod(ctx, &period)
	if err != nil {
		return "", nil, err
	}
	if existed {
		// A previous delivery of this client key committed the record and
		// its children and wrote the revision-0 audit rows. Re-running them
		// would duplicate the append-only trail.
		s.logger.Info("create already committed, skipping children and revisions", "period", created.ID, "client_key", sub.ClientKey)
		return created.ID, nil, nil
	}

	warnings := s.replaceChildren(ctx, created.ID, sub)

	records := s.tracker.TrackOriginal(user.ID, created)
	if len(records) > 0 {
		if err := s.remote.InsertRevisions(ctx, records); err != nil {
			warnings = append(warnings, fmt.Sprintf("revision records not written: %v", err))
		}
	}

	return created.ID, warnings, nil
}

func (s *Service) commitEdit(ctx context.Context, user *model.User, sub *model.Submission) (string, []string, error) {
	old, err := s.remote.GetTimePeriod(ctx, sub.Period.ID)
	if err != nil {
		return "", nil, err
	}
	if old == nil {
		return "", nil, fmt.Errorf("period %s no longer exists on the remote store", sub.Period.ID)
	}
	if old.Status == model.StatusAdminApproved {
		return "", nil, ErrPeriodImmutable
	}
	if !user.CanEditPeriod(old) {
		return "", nil, ErrEditForbidden
	}

	records, newRevision := s.tracker.TrackEdit(user.ID, old, &sub.Period, old.RevisionNumber)

	period := sub.Period
	period.ClientKey = old.ClientKey
	period.Status = old.Status // a user edit never changes lifecycle status
	period.RevisionNumber = old.RevisionNumber
	if newRevision != nil {
		period.RevisionNumber = *newRevision
	}

	if err := s.remote.UpdateTimePeriod(ctx, &period); err != nil {
		return "", nil, err
	}

	warnings := s.replaceChildren(ctx, period.ID, sub)

	if len(records) > 0 {
		if err := s.remote.InsertRevisions(ctx, records); err != nil {
			warnings = append(warnings, fmt.Sprintf("revision records not written: %v", err))
		}
	}

	return period.ID, warnings, nil
}

// replaceChildren replaces the full child-record sets of a period. Each
// failed set is reported as a warning; the remaining sets are still written.
func (s *Service) replaceChildren(ctx context.Context, periodID string, sub *model.Submission) []string {
	var warnings []string

	breaks := make([]model.Break, len(sub.Breaks))
	for i, b := range sub.Breaks {
		b.TimePeriodID = periodID
		breaks[i] = b
	}
	if err := s.remote.ReplaceBreaks(ctx, periodID, breaks); err != nil {
		warnings = append(warnings, fmt.Sprintf("breaks not committed: %v", err))
	}

	used := make([]model.UsedFleetEntry, len(sub.UsedFleet))
	for i, e := range sub.UsedFleet {
		e.TimePeriodID = periodID
		used[i] = e
	}
	if err := s.remote.ReplaceUsedFleet(ctx, periodID, used); err != nil {
		warnings = append(warnings, fmt.Sprintf("used fleet not committed: %v", err))
	}

	mobilised := make([]model.MobilisedFleetEntry, len(sub.MobilisedFleet))
	for i, e := range sub.MobilisedFleet {
		e.TimePeriodID = periodID
		mobilised[i] = e
	}
	if err := s.remote.ReplaceMobilisedFleet(ctx, periodID, mobilised); err != nil {
		warnings = append(warnings, fmt.Sprintf("mobilised fleet not committed: %v", err))
	}

	return warnings
}
