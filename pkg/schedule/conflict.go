package schedule

import (
	"time"

	"github.com/atendo/booking-core/pkg/domain"
)

// Interval is a half-open time range [Start, End). End is exclusive,
// so an appointment starting exactly when another ends does not
// conflict with it.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates that end is strictly after start. A zero or
// negative duration interval is never meaningful.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, domain.ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals share any instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// HasConflict reports whether the candidate interval overlaps any of
// the existing ones. The caller supplies existing pre-filtered to the
// same service and to active-status appointments, excluding the
// candidate's own row on updates; this function never touches a store.
func HasConflict(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return true
		}
	}
	return false
}
