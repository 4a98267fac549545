package waitlist

import (
	"context"
	"time"

	"github.com/example/tablebook/internal/db"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusNotified Status = "notified"
	StatusExpired  Status = "expired"
)

// Entry records a request no table could satisfy. Nothing promotes entries
// automatically; staff read the list and follow up out of band.
type Entry struct {
	ID            int64
	CustomerName  string
	CustomerPhone string
	PartySize     int
	RequestedTime time.Time
	Status        Status
	CreatedAt     time.Time
}

type Store struct{}

func (Store) Add(ctx context.Context, q db.Querier, e Entry) (Entry, error) {
	e.Status = StatusWaiting
	err := q.QueryRow(ctx, `
INSERT INTO waitlist(customer_name, customer_phone, party_size, requested_time, status)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, created_at`,
		e.CustomerName, e.CustomerPhone, e.PartySize, e.RequestedTime, e.Status).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (Store) List(ctx context.Context, q db.Querier) ([]Entry, error) {
	rows, err := q.Query(ctx, `
SELECT id, customer_name, customer_phone, party_size, requested_time, status, created_at
FROM waitlist
WHERE status=$1
ORDER BY requested_time ASC`, StatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CustomerName, &e.CustomerPhone, &e.PartySize,
			&e.RequestedTime, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
