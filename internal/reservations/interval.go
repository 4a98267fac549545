package reservations

import "time"

// Interval is the half-open time range [Start, End) a reservation occupies.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, durationMinutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// Overlaps reports whether the two half-open ranges share an instant.
// Touching endpoints do not overlap, so back-to-back bookings coexist.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

func (iv Interval) Minutes() int {
	return int(iv.End.Sub(iv.Start) / time.Minute)
}
