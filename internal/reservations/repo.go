package reservations

import (
	"context"
	"time"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/tables"
	"github.com/jackc/pgx/v5"
)

const reservationCols = `id, table_id, customer_name, customer_phone, party_size, start_time, end_time, status, created_at, updated_at`

// Ledger is the reservation store. It is always read fresh; overlap
// decisions made against it must happen in the same transaction as the
// write they guard.
type Ledger struct{}

func (Ledger) Get(ctx context.Context, q db.Querier, id int64) (Reservation, error) {
	row := q.QueryRow(ctx, `SELECT `+reservationCols+` FROM reservations WHERE id=$1`, id)
	r, err := scanReservation(row)
	if err != nil {
		if db.IsNotFound(err) {
			return Reservation{}, internaltypes.E(internaltypes.KindNotFound, "reservation %d not found", id)
		}
		return Reservation{}, err
	}
	return r, nil
}

func (Ledger) Insert(ctx context.Context, q db.Querier, r Reservation) (Reservation, error) {
	row := q.QueryRow(ctx, `
INSERT INTO reservations(table_id, customer_name, customer_phone, party_size, start_time, end_time, status)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING `+reservationCols,
		r.TableID, r.CustomerName, r.CustomerPhone, r.PartySize, r.StartTime, r.EndTime, r.Status)
	return scanReservation(row)
}

// Update rewrites the slot-defining fields in one statement so a failed
// modify can never leave a half-updated row.
func (Ledger) Update(ctx context.Context, q db.Querier, id, tableID int64, iv Interval, partySize int) (Reservation, error) {
	row := q.QueryRow(ctx, `
UPDATE reservations
SET table_id=$2, start_time=$3, end_time=$4, party_size=$5, updated_at=now()
WHERE id=$1
RETURNING `+reservationCols,
		id, tableID, iv.Start, iv.End, partySize)
	r, err := scanReservation(row)
	if err != nil {
		if db.IsNotFound(err) {
			return Reservation{}, internaltypes.E(internaltypes.KindNotFound, "reservation %d not found", id)
		}
		return Reservation{}, err
	}
	return r, nil
}

// Cancel flips the reservation to cancelled. Cancelling an already
// cancelled reservation is a no-op that returns the row unchanged;
// cancelling an unknown id is NotFound.
func (Ledger) Cancel(ctx context.Context, q db.Querier, id int64) (Reservation, error) {
	row := q.QueryRow(ctx, `
UPDATE reservations
SET status=$2, updated_at=CASE WHEN status=$2 THEN updated_at ELSE now() END
WHERE id=$1
RETURNING `+reservationCols, id, StatusCancelled)
	r, err := scanReservation(row)
	if err != nil {
		if db.IsNotFound(err) {
			return Reservation{}, internaltypes.E(internaltypes.KindNotFound, "reservation %d not found", id)
		}
		return Reservation{}, err
	}
	return r, nil
}

// List returns reservations, optionally restricted to those starting on
// the given UTC date, soonest first.
func (Ledger) List(ctx context.Context, q db.Querier, date *time.Time) ([]Reservation, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if date != nil {
		dayStart := date.UTC().Truncate(24 * time.Hour)
		rows, err = q.Query(ctx, `
SELECT `+reservationCols+`
FROM reservations
WHERE start_time >= $1 AND start_time < $2
ORDER BY start_time ASC`, dayStart, dayStart.Add(24*time.Hour))
	} else {
		rows, err = q.Query(ctx, `
SELECT `+reservationCols+`
FROM reservations
ORDER BY start_time ASC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasOverlap reports whether a confirmed reservation on tableID overlaps
// iv. excludeID skips one reservation (a modify never conflicts with its
// own prior slot); pass 0 to exclude nothing.
func (Ledger) HasOverlap(ctx context.Context, q db.Querier, tableID int64, iv Interval, excludeID int64) (bool, error) {
	var overlap bool
	err := q.QueryRow(ctx, `
SELECT EXISTS(
	SELECT 1 FROM reservations
	WHERE table_id=$1
	  AND status=$2
	  AND start_time < $4
	  AND end_time > $3
	  AND ($5::bigint = 0 OR id <> $5)
)`, tableID, StatusConfirmed, iv.Start, iv.End, excludeID).Scan(&overlap)
	return overlap, err
}

// FindBestTable returns the smallest-capacity table seating partySize with
// no overlapping confirmed reservation in iv. One anti-join rather than a
// per-candidate probe: a single round trip keeps the race window at its
// minimum and avoids N+1 queries over the catalog.
func (Ledger) FindBestTable(ctx context.Context, q db.Querier, partySize int, iv Interval, excludeID int64) (tables.Table, bool, error) {
	var t tables.Table
	err := q.QueryRow(ctx, `
SELECT t.id, t.table_number, t.capacity
FROM tables t
WHERE t.capacity >= $1
  AND NOT EXISTS (
	SELECT 1 FROM reservations r
	WHERE r.table_id = t.id
	  AND r.status = $2
	  AND r.start_time < $4
	  AND r.end_time > $3
	  AND ($5::bigint = 0 OR r.id <> $5)
  )
ORDER BY t.capacity ASC, t.table_number ASC
LIMIT 1`, partySize, StatusConfirmed, iv.Start, iv.End, excludeID).
		Scan(&t.ID, &t.TableNumber, &t.Capacity)
	if err != nil {
		if db.IsNotFound(err) {
			return tables.Table{}, false, nil
		}
		return tables.Table{}, false, err
	}
	return t, true, nil
}

// FreeTables lists every table with no overlapping confirmed reservation
// in iv, for the availability endpoint.
func (Ledger) FreeTables(ctx context.Context, q db.Querier, iv Interval) ([]tables.Table, error) {
	rows, err := q.Query(ctx, `
SELECT t.id, t.table_number, t.capacity
FROM tables t
WHERE NOT EXISTS (
	SELECT 1 FROM reservations r
	WHERE r.table_id = t.id
	  AND r.status = $1
	  AND r.start_time < $3
	  AND r.end_time > $2
)
ORDER BY t.capacity ASC, t.table_number ASC`, StatusConfirmed, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tables.Table
	for rows.Next() {
		var t tables.Table
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.Capacity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(&r.ID, &r.TableID, &r.CustomerName, &r.CustomerPhone, &r.PartySize,
		&r.StartTime, &r.EndTime, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return Reservation{}, err
	}
	return r, nil
}
