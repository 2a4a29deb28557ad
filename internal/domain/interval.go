package domain

import "time"

// Interval is a half-open time range [Start, End). Adjacent bookings may abut
// without overlapping because the end instant is excluded.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Empty intervals
// never overlap anything.
func (iv Interval) Overlaps(other Interval) bool {
	if iv.IsEmpty() || other.IsEmpty() {
		return false
	}
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// IsEmpty reports whether the interval covers no time at all.
func (iv Interval) IsEmpty() bool {
	return !iv.Start.Before(iv.End)
}

// Collapse returns the empty interval at the original start instant. A
// released reservation item keeps its row but its interval stops claiming any
// time, which frees the slot for re-booking.
func (iv Interval) Collapse() Interval {
	return Interval{Start: iv.Start, End: iv.Start}
}
