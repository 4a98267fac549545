package reservations

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Reservation struct {
	ID            int64
	TableID       int64
	CustomerName  string
	CustomerPhone string
	PartySize     int
	StartTime     time.Time
	EndTime       time.Time
	Status        Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Reservation) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}
