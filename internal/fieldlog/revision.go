package fieldlog

import (
	"strconv"
	"time"

	"fieldlog/internal/model"
)

// RevisionTracker computes the field-level audit trail for time periods.
// It is pure apart from clock/id generation: callers persist the returned
// records through the remote store.
type RevisionTracker struct {
	clock Clock
	idgen IDGenerator
}

func NewRevisionTracker(clock Clock, idgen IDGenerator) *RevisionTracker {
	return &RevisionTracker{clock: clock, idgen: idgen}
}

// trackedField maps an audit field name to its value on a period.
// A nil value means the field is unpopulated; nil and empty string are
// treated as equivalent when diffing.
type trackedField struct {
	name string
	get  func(p *model.TimePeriod) *string
}

var trackedFields = []trackedField{
	{"start_time", func(p *model.TimePeriod) *string { return timeValue(p.StartTime) }},
	{"finish_time", func(p *model.TimePeriod) *string { return timeValue(p.FinishTime) }},
	{"project_id", func(p *model.TimePeriod) *string { return stringValue(p.ProjectID) }},
	{"vehicle_id", func(p *model.TimePeriod) *string { return stringValue(p.VehicleID) }},
	{"workshop_task_id", func(p *model.TimePeriod) *string { return stringValue(p.WorkshopTaskID) }},
	{"travel_minutes", func(p *model.TimePeriod) *string { return intValue(p.TravelMinutes) }},
	{"allowance_minutes", func(p *model.TimePeriod) *string { return intValue(p.AllowanceMinutes) }},
	{"materials_used", func(p *model.TimePeriod) *string { return stringValue(p.MaterialsUsed) }},
	{"materials_notes", func(p *model.TimePeriod) *string { return stringValue(p.MaterialsNotes) }},
	{"comment", func(p *model.TimePeriod) *string { return stringValue(p.Comment) }},
}

func stringValue(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// intValue follows the same normalization as stringValue: zero minutes is
// the unpopulated state, recorded as nil. An edit from a positive count back
// to zero therefore stores a nil new value, the same as clearing a text
// field, not the string "0".
func intValue(n int) *string {
	if n == 0 {
		return nil
	}
	s := strconv.Itoa(n)
	return &s
}

func timeValue(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func valuesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// TrackOriginal produces one revision record per populated tracked field for
// a newly committed period, all at revision 0 with change type
// user_submission and a nil old value.
func (t *RevisionTracker) TrackOriginal(actorID string, p *model.TimePeriod) []model.RevisionRecord {
	now := t.clock.Now()
	var records []model.RevisionRecord
	for _, f := range trackedFields {
		v := f.get(p)
		if v == nil {
			continue
		}
		records = append(records, model.RevisionRecord{
			ID:                 t.idgen.New(),
			TimePeriodID:       p.ID,
			RevisionNumber:     0,
			FieldName:          f.name,
			OldValue:           nil,
			NewValue:           v,
			ChangeType:         model.ChangeUserSubmission,
			ActorID:            actorID,
			CreatedAt:          now,
			OriginalSubmission: true,
		})
	}
	return records
}

// TrackEdit diffs the tracked fields of an existing record against its edited
// version. When at least one field changed it returns one record per changed
// field, all sharing the incremented revision number, and that new number.
// When nothing changed it returns (nil, nil): no records are written and the
// parent's revision number is left untouched. Revision numbers never decrease.
func (t *RevisionTracker) TrackEdit(actorID string, oldPeriod, newPeriod *model.TimePeriod, currentRevision int) ([]model.RevisionRecord, *int) {
	now := t.clock.Now()
	var records []model.RevisionRecord

	newRevision := currentRevision + 1
	for _, f := range trackedFields {
		oldV := f.get(oldPeriod)
		newV := f.get(newPeriod)
		if valuesEqual(oldV, newV) {
			continue
		}
		records = append(records, model.RevisionRecord{
			ID:             t.idgen.New(),
			TimePeriodID:   oldPeriod.ID,
			RevisionNumber: newRevision,
			FieldName:      f.name,
			OldValue:       oldV,
			NewValue:       newV,
			ChangeType:     model.ChangeUserEdit,
			ActorID:        actorID,
			CreatedAt:      now,
			IsRevision:     true,
			IsEdit:         true,
		})
	}

	if len(records) == 0 {
		return nil, nil
	}
	return records, &newRevision
}
