package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/tables"
	"github.com/example/tablebook/internal/waitlist"
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(q db.Querier) error) error
}

type HoursValidator interface {
	Validate(ctx context.Context, q db.Querier, start, end time.Time, durationMinutes int) error
}

type Catalog interface {
	Get(ctx context.Context, q db.Querier, id int64) (tables.Table, error)
}

type Ledger interface {
	Get(ctx context.Context, q db.Querier, id int64) (reservations.Reservation, error)
	Insert(ctx context.Context, q db.Querier, r reservations.Reservation) (reservations.Reservation, error)
	Update(ctx context.Context, q db.Querier, id, tableID int64, iv reservations.Interval, partySize int) (reservations.Reservation, error)
	Cancel(ctx context.Context, q db.Querier, id int64) (reservations.Reservation, error)
	List(ctx context.Context, q db.Querier, date *time.Time) ([]reservations.Reservation, error)
	HasOverlap(ctx context.Context, q db.Querier, tableID int64, iv reservations.Interval, excludeID int64) (bool, error)
	FindBestTable(ctx context.Context, q db.Querier, partySize int, iv reservations.Interval, excludeID int64) (tables.Table, bool, error)
}

type Waiters interface {
	Add(ctx context.Context, q db.Querier, e waitlist.Entry) (waitlist.Entry, error)
}

// Engine decides create/modify/cancel outcomes. Every mutating flow runs
// inside one serializable transaction, and the write is always the last
// step: a failed check leaves the ledger untouched.
type Engine struct {
	DB        TxRunner
	Validator HoursValidator
	Tables    Catalog
	Ledger    Ledger
	Waitlist  Waiters
}

type CreateRequest struct {
	TableID         int64 // 0 means any table
	CustomerName    string
	CustomerPhone   string
	PartySize       int
	StartTime       time.Time
	DurationMinutes int
}

type ModifyRequest struct {
	StartTime       *time.Time
	DurationMinutes *int
	PartySize       *int
}

// Suggestion names why the exact request failed and the best alternative.
// Nothing is booked; the caller re-submits naming the suggested table.
type Suggestion struct {
	Reason string
	Table  tables.Table
}

// Outcome is the result of Create: exactly one field is set.
type Outcome struct {
	Reservation *reservations.Reservation
	Suggestion  *Suggestion
	Waitlisted  *waitlist.Entry
}

func (e *Engine) Create(ctx context.Context, req CreateRequest) (Outcome, error) {
	out, err := e.createOnce(ctx, req)
	if err != nil && db.IsRetryable(err) {
		// one re-allocation after a serialization failure; the winner's
		// rows are visible now, so the allocator may pick another table
		out, err = e.createOnce(ctx, req)
	}
	if err != nil && (db.IsRetryable(err) || db.IsExclusionViolation(err)) {
		return Outcome{}, internaltypes.E(internaltypes.KindConflict,
			"the requested time was booked by a concurrent request")
	}
	return out, err
}

func (e *Engine) createOnce(ctx context.Context, req CreateRequest) (Outcome, error) {
	var out Outcome
	err := e.DB.InTx(ctx, func(q db.Querier) error {
		iv := reservations.NewInterval(req.StartTime, req.DurationMinutes)
		if err := e.Validator.Validate(ctx, q, iv.Start, iv.End, req.DurationMinutes); err != nil {
			return err
		}

		if req.TableID == 0 {
			return e.bookAny(ctx, q, req, iv, &out)
		}

		t, err := e.Tables.Get(ctx, q, req.TableID)
		if err != nil {
			return err
		}

		tooSmall := t.Capacity < req.PartySize
		booked, err := e.Ledger.HasOverlap(ctx, q, t.ID, iv, 0)
		if err != nil {
			return err
		}
		if !tooSmall && !booked {
			r, err := e.Ledger.Insert(ctx, q, newConfirmed(req, iv, t.ID))
			if err != nil {
				return err
			}
			out.Reservation = &r
			return nil
		}

		// exact request can't be honored; look for an alternative before
		// falling back to the waitlist
		alt, found, err := e.Ledger.FindBestTable(ctx, q, req.PartySize, iv, 0)
		if err != nil {
			return err
		}
		if found {
			reason := fmt.Sprintf("table %d is already booked for this time", t.TableNumber)
			if tooSmall {
				reason = fmt.Sprintf("table %d is too small (capacity %d)", t.TableNumber, t.Capacity)
			}
			out.Suggestion = &Suggestion{Reason: reason, Table: alt}
			return nil
		}
		return e.enqueue(ctx, q, req, &out)
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (e *Engine) bookAny(ctx context.Context, q db.Querier, req CreateRequest, iv reservations.Interval, out *Outcome) error {
	t, found, err := e.Ledger.FindBestTable(ctx, q, req.PartySize, iv, 0)
	if err != nil {
		return err
	}
	if !found {
		return e.enqueue(ctx, q, req, out)
	}
	r, err := e.Ledger.Insert(ctx, q, newConfirmed(req, iv, t.ID))
	if err != nil {
		return err
	}
	out.Reservation = &r
	return nil
}

func (e *Engine) enqueue(ctx context.Context, q db.Querier, req CreateRequest, out *Outcome) error {
	w, err := e.Waitlist.Add(ctx, q, waitlist.Entry{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PartySize:     req.PartySize,
		RequestedTime: req.StartTime,
	})
	if err != nil {
		return err
	}
	out.Waitlisted = &w
	return nil
}

// Modify re-derives the whole slot from the merge of the partial update
// onto the current reservation, then re-allocates. The reservation's own
// slot is excluded from overlap checks so an unchanged or shrunk interval
// never conflicts with itself.
func (e *Engine) Modify(ctx context.Context, id int64, req ModifyRequest) (reservations.Reservation, error) {
	var updated reservations.Reservation
	err := e.DB.InTx(ctx, func(q db.Querier) error {
		cur, err := e.Ledger.Get(ctx, q, id)
		if err != nil {
			return err
		}

		start := cur.StartTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		duration := cur.Interval().Minutes()
		if req.DurationMinutes != nil {
			duration = *req.DurationMinutes
		}
		partySize := cur.PartySize
		if req.PartySize != nil {
			partySize = *req.PartySize
		}
		iv := reservations.NewInterval(start, duration)

		if err := e.Validator.Validate(ctx, q, iv.Start, iv.End, duration); err != nil {
			return err
		}

		t, found, err := e.Ledger.FindBestTable(ctx, q, partySize, iv, id)
		if err != nil {
			return err
		}
		if !found {
			return internaltypes.E(internaltypes.KindConflict,
				"no table is available for the modified reservation")
		}

		updated, err = e.Ledger.Update(ctx, q, id, t.ID, iv, partySize)
		return err
	})
	if err != nil {
		if db.IsRetryable(err) || db.IsExclusionViolation(err) {
			return reservations.Reservation{}, internaltypes.E(internaltypes.KindConflict,
				"the modified time was booked by a concurrent request")
		}
		return reservations.Reservation{}, err
	}
	return updated, nil
}

// Cancel marks the reservation cancelled, freeing its interval for future
// overlap checks. Cancelling twice is a no-op; an unknown id is NotFound.
func (e *Engine) Cancel(ctx context.Context, id int64) (reservations.Reservation, error) {
	var cancelled reservations.Reservation
	err := e.DB.InTx(ctx, func(q db.Querier) error {
		var err error
		cancelled, err = e.Ledger.Cancel(ctx, q, id)
		return err
	})
	if err != nil {
		return reservations.Reservation{}, err
	}
	return cancelled, nil
}

func (e *Engine) List(ctx context.Context, date *time.Time) ([]reservations.Reservation, error) {
	var out []reservations.Reservation
	err := e.DB.InTx(ctx, func(q db.Querier) error {
		var err error
		out, err = e.Ledger.List(ctx, q, date)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func newConfirmed(req CreateRequest, iv reservations.Interval, tableID int64) reservations.Reservation {
	return reservations.Reservation{
		TableID:       tableID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PartySize:     req.PartySize,
		StartTime:     iv.Start,
		EndTime:       iv.End,
		Status:        reservations.StatusConfirmed,
	}
}
