package fieldlog

import "time"

// Interval is a half-open [Start, Finish) span of one time period.
type Interval struct {
	PeriodID string
	Start    time.Time
	Finish   time.Time
}

func (iv Interval) String() string {
	return iv.Start.Format("15:04") + "-" + iv.Finish.Format("15:04")
}

// Overlaps reports whether two half-open intervals intersect.
// Exactly abutting intervals (finish == other.start) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.Finish) && iv.Finish.After(other.Start)
}

// ConflictCheck is the result of checking a candidate interval against a
// user's existing intervals for one work date.
type ConflictCheck struct {
	// Overlaps lists every existing interval the candidate intersects.
	// Non-empty means the candidate is rejected.
	Overlaps []Interval

	// GapBeforeMinutes is the whole minutes between the nearest earlier
	// interval's finish and the candidate's start; zero when the intervals
	// abut exactly or no earlier interval exists.
	GapBeforeMinutes int

	// GapAfterMinutes is the whole minutes between the candidate's finish
	// and the nearest later interval's start.
	GapAfterMinutes int
}

func (c ConflictCheck) HasOverlap() bool { return len(c.Overlaps) > 0 }

// HasGap reports an advisory (never blocking) gap on either side.
func (c ConflictCheck) HasGap() bool {
	return c.GapBeforeMinutes > 0 || c.GapAfterMinutes > 0
}

// DetectConflicts checks a candidate interval against the already committed
// (or queued) intervals for the same user and work date. excludeID names the
// period being edited, so a record never conflicts with itself; pass "" for
// new submissions.
//
// The function is pure: it is called identically for the pre-flight check at
// submission time and for the final check during a drain.
func DetectConflicts(candidate Interval, existing []Interval, excludeID string) ConflictCheck {
	var check ConflictCheck
	var nearestBefore, nearestAfter *Interval

	for i := range existing {
		other := existing[i]
		if excludeID != "" && other.PeriodID == excludeID {
			continue
		}

		if candidate.Overlaps(other) {
			check.Overlaps = append(check.Overlaps, other)
			continue
		}

		// Non-overlapping: track the nearest neighbor on each side.
		if !other.Finish.After(candidate.Start) {
			if nearestBefore == nil || other.Finish.After(nearestBefore.Finish) {
				nearestBefore = &existing[i]
			}
		} else if !other.Start.Before(candidate.Finish) {
			if nearestAfter == nil || other.Start.Before(nearestAfter.Start) {
				nearestAfter = &existing[i]
			}
		}
	}

	if nearestBefore != nil {
		check.GapBeforeMinutes = int(candidate.Start.Sub(nearestBefore.Finish).Minutes())
	}
	if nearestAfter != nil {
		check.GapAfterMinutes = int(nearestAfter.Start.Sub(candidate.Finish).Minutes())
	}

	return check
}
