package fieldlog_test

import (
	"testing"
	"time"

	"fieldlog/internal/fieldlog"
	"fieldlog/internal/model"
	"fieldlog/internal/testutil"
)

func newTracker() *fieldlog.RevisionTracker {
	return fieldlog.NewRevisionTracker(testutil.FixedClock(), testutil.NewStubIDGenerator())
}

func basePeriod() *model.TimePeriod {
	return &model.TimePeriod{
		ID:         "p-1",
		UserID:     "user-1",
		WorkDate:   "2026-03-12",
		StartTime:  time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC),
		FinishTime: time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC),
		ProjectID:  "proj-9",
		Comment:    "poured footings",
	}
}

func TestTrackOriginal(t *testing.T) {
	tracker := newTracker()
	p := basePeriod()

	records := tracker.TrackOriginal("user-1", p)

	// start_time, finish_time, project_id, comment are populated.
	if len(records) != 4 {
		t.Fatalf("len(records) = %d, want 4", len(records))
	}

	for _, r := range records {
		if r.RevisionNumber != 0 {
			t.Errorf("%s: RevisionNumber = %d, want 0", r.FieldName, r.RevisionNumber)
		}
		if r.OldValue != nil {
			t.Errorf("%s: OldValue = %v, want nil", r.FieldName, *r.OldValue)
		}
		if r.NewValue == nil {
			t.Errorf("%s: NewValue is nil", r.FieldName)
		}
		if r.ChangeType != model.ChangeUserSubmission {
			t.Errorf("%s: ChangeType = %s, want user_submission", r.FieldName, r.ChangeType)
		}
		if !r.OriginalSubmission {
			t.Errorf("%s: OriginalSubmission = false, want true", r.FieldName)
		}
		if r.ActorID != "user-1" {
			t.Errorf("%s: ActorID = %s, want user-1", r.FieldName, r.ActorID)
		}
	}
}

func TestTrackEdit_ChangedFields(t *testing.T) {
	tracker := newTracker()
	oldP := basePeriod()
	newP := basePeriod()
	newP.FinishTime = time.Date(2026, 3, 12, 13, 0, 0, 0, time.UTC)
	newP.TravelMinutes = 45

	records, newRev := tracker.TrackEdit("user-1", oldP, newP, 0)

	if newRev == nil || *newRev != 1 {
		t.Fatalf("newRev = %v, want 1", newRev)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (finish_time, travel_minutes)", len(records))
	}

	byField := map[string]model.RevisionRecord{}
	for _, r := range records {
		byField[r.FieldName] = r
		if r.RevisionNumber != 1 {
			t.Errorf("%s: RevisionNumber = %d, want 1", r.FieldName, r.RevisionNumber)
		}
		if r.ChangeType != model.ChangeUserEdit {
			t.Errorf("%s: ChangeType = %s, want user_edit", r.FieldName, r.ChangeType)
		}
		if !r.IsRevision || !r.IsEdit {
			t.Errorf("%s: IsRevision/IsEdit flags not set", r.FieldName)
		}
		if r.OriginalSubmission {
			t.Errorf("%s: OriginalSubmission set on an edit", r.FieldName)
		}
	}

	ft, ok := byField["finish_time"]
	if !ok {
		t.Fatal("no record for finish_time")
	}
	if ft.OldValue == nil || *ft.OldValue != "2026-03-12T12:00:00Z" {
		t.Errorf("finish_time OldValue = %v, want 2026-03-12T12:00:00Z", ft.OldValue)
	}
	if ft.NewValue == nil || *ft.NewValue != "2026-03-12T13:00:00Z" {
		t.Errorf("finish_time NewValue = %v, want 2026-03-12T13:00:00Z", ft.NewValue)
	}

	tm, ok := byField["travel_minutes"]
	if !ok {
		t.Fatal("no record for travel_minutes")
	}
	if tm.OldValue != nil {
		t.Errorf("travel_minutes OldValue = %v, want nil (was unset)", *tm.OldValue)
	}
	if tm.NewValue == nil || *tm.NewValue != "45" {
		t.Errorf("travel_minutes NewValue = %v, want 45", tm.NewValue)
	}
}

func TestTrackEdit_NoChanges(t *testing.T) {
	tracker := newTracker()
	oldP := basePeriod()
	newP := basePeriod()

	records, newRev := tracker.TrackEdit("user-1", oldP, newP, 3)
	if records != nil {
		t.Errorf("records = %v, want nil for an identical edit", records)
	}
	if newRev != nil {
		t.Errorf("newRev = %d, want nil for an identical edit", *newRev)
	}

	// A second identical edit still writes nothing: revisions only ever
	// record real changes.
	records, newRev = tracker.TrackEdit("user-1", oldP, newP, 3)
	if records != nil || newRev != nil {
		t.Error("repeated identical edit produced records")
	}
}

func TestTrackEdit_ZeroMinutesRecordedAsUnset(t *testing.T) {
	tracker := newTracker()
	oldP := basePeriod()
	oldP.TravelMinutes = 30
	newP := basePeriod()
	newP.TravelMinutes = 0

	// Minute counts normalize like text fields: zero is the unpopulated
	// state, so clearing a count records a nil new value rather than "0".
	records, newRev := tracker.TrackEdit("user-1", oldP, newP, 0)
	if newRev == nil || *newRev != 1 {
		t.Fatalf("newRev = %v, want 1", newRev)
	}
	if len(records) != 1 || records[0].FieldName != "travel_minutes" {
		t.Fatalf("records = %+v, want one travel_minutes record", records)
	}
	if records[0].OldValue == nil || *records[0].OldValue != "30" {
		t.Errorf("OldValue = %v, want 30", records[0].OldValue)
	}
	if records[0].NewValue != nil {
		t.Errorf("NewValue = %v, want nil for a cleared count", *records[0].NewValue)
	}
}

func TestTrackEdit_RevisionNumbersIncrease(t *testing.T) {
	tracker := newTracker()
	oldP := basePeriod()

	rev := 0
	for i := 1; i <= 3; i++ {
		newP := *oldP
		newP.TravelMinutes = i * 10

		records, newRev := tracker.TrackEdit("user-1", oldP, &newP, rev)
		if newRev == nil {
			t.Fatalf("edit %d: newRev is nil", i)
		}
		if *newRev != rev+1 {
			t.Fatalf("edit %d: newRev = %d, want %d", i, *newRev, rev+1)
		}
		for _, r := range records {
			if r.RevisionNumber != *newRev {
				t.Errorf("edit %d: record revision = %d, want %d", i, r.RevisionNumber, *newRev)
			}
		}
		rev = *newRev
		*oldP = newP
	}
}

func TestTrackEdit_NilAndEmptyEquivalent(t *testing.T) {
	tracker := newTracker()
	oldP := basePeriod()
	oldP.MaterialsUsed = ""
	newP := basePeriod()
	newP.MaterialsUsed = ""

	records, _ := tracker.TrackEdit("user-1", oldP, newP, 0)
	if records != nil {
		t.Errorf("empty-to-empty produced records: %v", records)
	}

	// Setting a previously empty field is a change with a nil old value.
	newP.MaterialsUsed = "concrete"
	records, _ = tracker.TrackEdit("user-1", oldP, newP, 0)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].OldValue != nil {
		t.Errorf("OldValue = %v, want nil", *records[0].OldValue)
	}
}
