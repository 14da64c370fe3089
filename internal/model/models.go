package model

import (
	"fmt"
	"time"
)

// WorkDateFormat is the canonical wire format for a time period's work date.
const WorkDateFormat = "2006-01-02"

// PeriodStatus is the lifecycle status of a TimePeriod.
type PeriodStatus string

const (
	StatusSubmitted          PeriodStatus = "submitted"
	StatusSupervisorApproved PeriodStatus = "supervisor_approved"
	StatusAdminApproved      PeriodStatus = "admin_approved"
)

// QueueStatus is the state of a pending submission in the local queue.
type QueueStatus string

const (
	QueuePending QueueStatus = "pending"
	QueueSyncing QueueStatus = "syncing"
	QueueFailed  QueueStatus = "failed"
)

// SubmissionKind distinguishes a first-time submission from an edit of an
// already committed period.
type SubmissionKind string

const (
	KindCreate SubmissionKind = "create"
	KindEdit   SubmissionKind = "edit"
)

// ChangeType classifies a revision record.
type ChangeType string

const (
	ChangeUserSubmission ChangeType = "user_submission"
	ChangeUserEdit       ChangeType = "user_edit"
	ChangeApproval       ChangeType = "approval"
)

// Role is the authenticated user's role, supplied by the identity collaborator.
type Role string

const (
	RoleFieldWorker Role = "field_worker"
	RoleSupervisor  Role = "supervisor"
	RoleAdmin       Role = "admin"
)

// User identifies the authenticated user for permission checks.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

func (u *User) IsSupervisor() bool { return u.Role == RoleSupervisor }
func (u *User) IsAdmin() bool      { return u.Role == RoleAdmin }

// CanEditPeriod reports whether the user may edit the given period.
// Submitted periods are editable by their owner or a supervisor/admin;
// supervisor-approved periods only by a supervisor/admin; admin-approved
// periods are immutable.
func (u *User) CanEditPeriod(p *TimePeriod) bool {
	switch p.Status {
	case StatusSubmitted:
		return u.ID == p.UserID || u.IsSupervisor() || u.IsAdmin()
	case StatusSupervisorApproved:
		return u.IsSupervisor() || u.IsAdmin()
	default:
		return false
	}
}

// TimePeriod is the canonical business record: one block of a user's worked
// time on a single date, logged against exactly one workload reference.
// ID is server-assigned and empty until the record is committed remotely.
type TimePeriod struct {
	ID             string       `json:"id,omitempty"`
	ClientKey      string       `json:"client_key,omitempty"`
	UserID         string       `json:"user_id"`
	WorkDate       string       `json:"work_date"`
	StartTime      time.Time    `json:"start_time"`
	FinishTime     time.Time    `json:"finish_time"`
	ProjectID      string       `json:"project_id,omitempty"`
	VehicleID      string       `json:"vehicle_id,omitempty"`
	WorkshopTaskID string       `json:"workshop_task_id,omitempty"`
	Status         PeriodStatus `json:"status"`
	RevisionNumber int          `json:"revision_number"`

	TravelMinutes    int    `json:"travel_minutes,omitempty"`
	AllowanceMinutes int    `json:"allowance_minutes,omitempty"`
	MaterialsUsed    string `json:"materials_used,omitempty"`
	MaterialsNotes   string `json:"materials_notes,omitempty"`
	Comment          string `json:"comment,omitempty"`
}

// Validate checks the construction invariants: required fields present,
// finish strictly after start, and exactly one workload reference set.
func (p *TimePeriod) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if _, err := time.Parse(WorkDateFormat, p.WorkDate); err != nil {
		return fmt.Errorf("work_date %q is not a valid date: %w", p.WorkDate, err)
	}
	if p.StartTime.IsZero() || p.FinishTime.IsZero() {
		return fmt.Errorf("start_time and finish_time are required")
	}
	if !p.FinishTime.After(p.StartTime) {
		return fmt.Errorf("finish_time must be after start_time")
	}
	refs := 0
	for _, ref := range []string{p.ProjectID, p.VehicleID, p.WorkshopTaskID} {
		if ref != "" {
			refs++
		}
	}
	if refs != 1 {
		return fmt.Errorf("exactly one of project_id, vehicle_id, workshop_task_id must be set (got %d)", refs)
	}
	return nil
}

// Workload returns the single workload reference as a (kind, id) pair.
// Validate must have passed for the result to be meaningful.
func (p *TimePeriod) Workload() (kind string, id string) {
	switch {
	case p.ProjectID != "":
		return "project", p.ProjectID
	case p.VehicleID != "":
		return "vehicle", p.VehicleID
	default:
		return "workshop_task", p.WorkshopTaskID
	}
}

// Break is a child record of a TimePeriod. The set of breaks is replaced
// wholesale whenever the parent is created or edited.
type Break struct {
	ID           string    `json:"id,omitempty"`
	TimePeriodID string    `json:"time_period_id,omitempty"`
	StartTime    time.Time `json:"start_time"`
	FinishTime   time.Time `json:"finish_time"`
	Paid         bool      `json:"paid"`
}

// UsedFleetEntry records equipment used during a period.
type UsedFleetEntry struct {
	ID           string  `json:"id,omitempty"`
	TimePeriodID string  `json:"time_period_id,omitempty"`
	FleetID      string  `json:"fleet_id"`
	Hours        float64 `json:"hours,omitempty"`
}

// MobilisedFleetEntry records equipment moved to or from site during a period.
type MobilisedFleetEntry struct {
	ID           string `json:"id,omitempty"`
	TimePeriodID string `json:"time_period_id,omitempty"`
	FleetID      string `json:"fleet_id"`
	Direction    string `json:"direction,omitempty"` // "to_site" or "from_site"
}

// RevisionRecord is one row of the append-only field-level audit trail.
// Records are never mutated or deleted.
type RevisionRecord struct {
	ID             string     `json:"id,omitempty"`
	TimePeriodID   string     `json:"time_period_id"`
	RevisionNumber int        `json:"revision_number"`
	FieldName      string     `json:"field_name"`
	OldValue       *string    `json:"old_value"`
	NewValue       *string    `json:"new_value"`
	ChangeType     ChangeType `json:"change_type"`
	ActorID        string     `json:"actor_id"`
	CreatedAt      time.Time  `json:"created_at"`

	IsRevision         bool `json:"is_revision"`
	IsApproval         bool `json:"is_approval"`
	IsEdit             bool `json:"is_edit"`
	OriginalSubmission bool `json:"original_submission"`
}

// Submission is the decoded form of a queued payload: one business event
// (a new or edited time period plus its child records) awaiting commit.
type Submission struct {
	Kind           SubmissionKind        `json:"kind"`
	ClientKey      string                `json:"client_key"`
	Period         TimePeriod            `json:"period"`
	Breaks         []Break               `json:"breaks,omitempty"`
	UsedFleet      []UsedFleetEntry      `json:"used_fleet,omitempty"`
	MobilisedFleet []MobilisedFleetEntry `json:"mobilised_fleet,omitempty"`

	// GapAcknowledged records that the user explicitly confirmed an
	// advisory gap warning at submission time.
	GapAcknowledged bool `json:"gap_acknowledged,omitempty"`

	// BaseRevision is the revision number the edit was based on (edits only).
	BaseRevision int `json:"base_revision,omitempty"`
}

// PendingSubmission is one entry of the durable local queue: an opaque
// payload plus queue metadata. Owned by the queue until the sync engine
// commits it remotely.
type PendingSubmission struct {
	ID            string
	CreatedAt     time.Time
	Status        QueueStatus
	FailureDetail string
	Attempts      int
	Payload       []byte
}
