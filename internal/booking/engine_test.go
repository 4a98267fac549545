package booking

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/restaurant"
	"github.com/example/tablebook/internal/tables"
	"github.com/example/tablebook/internal/waitlist"
	"github.com/stretchr/testify/require"
)

// fakeStore backs every engine dependency with in-memory state, applying
// the same semantics the SQL repos implement.
type fakeStore struct {
	tables       []tables.Table
	reservations []reservations.Reservation
	waitlist     []waitlist.Entry
	nextID       int64
}

func (f *fakeStore) InTx(ctx context.Context, fn func(q db.Querier) error) error {
	return fn(nil)
}

func (f *fakeStore) Get(ctx context.Context, q db.Querier, id int64) (tables.Table, error) {
	for _, t := range f.tables {
		if t.ID == id {
			return t, nil
		}
	}
	return tables.Table{}, internaltypes.E(internaltypes.KindNotFound, "table %d not found", id)
}

func (f *fakeStore) GetReservation(ctx context.Context, q db.Querier, id int64) (reservations.Reservation, error) {
	for _, r := range f.reservations {
		if r.ID == id {
			return r, nil
		}
	}
	return reservations.Reservation{}, internaltypes.E(internaltypes.KindNotFound, "reservation %d not found", id)
}

func (f *fakeStore) Insert(ctx context.Context, q db.Querier, r reservations.Reservation) (reservations.Reservation, error) {
	f.nextID++
	r.ID = f.nextID
	f.reservations = append(f.reservations, r)
	return r, nil
}

func (f *fakeStore) Update(ctx context.Context, q db.Querier, id, tableID int64, iv reservations.Interval, partySize int) (reservations.Reservation, error) {
	for i := range f.reservations {
		if f.reservations[i].ID == id {
			f.reservations[i].TableID = tableID
			f.reservations[i].StartTime = iv.Start
			f.reservations[i].EndTime = iv.End
			f.reservations[i].PartySize = partySize
			return f.reservations[i], nil
		}
	}
	return reservations.Reservation{}, internaltypes.E(internaltypes.KindNotFound, "reservation %d not found", id)
}

func (f *fakeStore) Cancel(ctx context.Context, q db.Querier, id int64) (reservations.Reservation, error) {
	for i := range f.reservations {
		if f.reservations[i].ID == id {
			f.reservations[i].Status = reservations.StatusCancelled
			return f.reservations[i], nil
		}
	}
	return reservations.Reservation{}, internaltypes.E(internaltypes.KindNotFound, "reservation %d not found", id)
}

func (f *fakeStore) List(ctx context.Context, q db.Querier, date *time.Time) ([]reservations.Reservation, error) {
	var out []reservations.Reservation
	for _, r := range f.reservations {
		if date != nil {
			dayStart := date.UTC().Truncate(24 * time.Hour)
			if r.StartTime.Before(dayStart) || !r.StartTime.Before(dayStart.Add(24*time.Hour)) {
				continue
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeStore) HasOverlap(ctx context.Context, q db.Querier, tableID int64, iv reservations.Interval, excludeID int64) (bool, error) {
	for _, r := range f.reservations {
		if r.TableID != tableID || r.Status != reservations.StatusConfirmed || r.ID == excludeID {
			continue
		}
		if r.Interval().Overlaps(iv) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindBestTable(ctx context.Context, q db.Querier, partySize int, iv reservations.Interval, excludeID int64) (tables.Table, bool, error) {
	cands := append([]tables.Table(nil), f.tables...)
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Capacity != cands[j].Capacity {
			return cands[i].Capacity < cands[j].Capacity
		}
		return cands[i].TableNumber < cands[j].TableNumber
	})
	for _, t := range cands {
		if t.Capacity < partySize {
			continue
		}
		busy, _ := f.HasOverlap(ctx, q, t.ID, iv, excludeID)
		if !busy {
			return t, true, nil
		}
	}
	return tables.Table{}, false, nil
}

func (f *fakeStore) Add(ctx context.Context, q db.Querier, e waitlist.Entry) (waitlist.Entry, error) {
	f.nextID++
	e.ID = f.nextID
	e.Status = waitlist.StatusWaiting
	f.waitlist = append(f.waitlist, e)
	return e, nil
}

// ledgerAdapter renames GetReservation to the Ledger interface's Get,
// which fakeStore already uses for the table catalog.
type ledgerAdapter struct{ *fakeStore }

func (a ledgerAdapter) Get(ctx context.Context, q db.Querier, id int64) (reservations.Reservation, error) {
	return a.GetReservation(ctx, q, id)
}

type fixedRules struct {
	settings restaurant.Settings
	rules    []restaurant.PeakRule
}

func (f fixedRules) LoadSettings(ctx context.Context, q db.Querier) (restaurant.Settings, error) {
	return f.settings, nil
}

func (f fixedRules) PeakRulesFor(ctx context.Context, q db.Querier, day int) ([]restaurant.PeakRule, error) {
	var out []restaurant.PeakRule
	for _, r := range f.rules {
		if r.DayOfWeek == day {
			out = append(out, r)
		}
	}
	return out, nil
}

func newEngine(store *fakeStore, rules fixedRules) *Engine {
	return &Engine{
		DB:        store,
		Validator: restaurant.Validator{Rules: rules},
		Tables:    store,
		Ledger:    ledgerAdapter{store},
		Waitlist:  store,
	}
}

func openAllDay() fixedRules {
	return fixedRules{settings: restaurant.Settings{Name: "Chez Test", OpeningTime: "09:00", ClosingTime: "22:00"}}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func createReq(partySize int, start string, minutes int) CreateRequest {
	return CreateRequest{
		CustomerName:    "Ada",
		CustomerPhone:   "555-0100",
		PartySize:       partySize,
		StartTime:       ts(start),
		DurationMinutes: minutes,
	}
}

func TestCreateConfirmsSmallestFreeTable(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)
	require.NotNil(t, out.Reservation)
	require.Equal(t, int64(1), out.Reservation.TableID)
	require.Equal(t, ts("2024-05-01T20:30:00Z"), out.Reservation.EndTime)
	require.Equal(t, reservations.StatusConfirmed, out.Reservation.Status)
}

func TestCreateWaitlistsWhenEveryTableIsBusy(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	_, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:30:00Z", 60))
	require.NoError(t, err)
	require.Nil(t, out.Reservation)
	require.NotNil(t, out.Waitlisted)
	require.Equal(t, waitlist.StatusWaiting, out.Waitlisted.Status)
	require.Equal(t, ts("2024-05-01T19:30:00Z"), out.Waitlisted.RequestedTime)
	require.Len(t, store.reservations, 1, "no reservation row for a waitlisted request")
}

func TestCreateBackToBackDoesNotConflict(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	_, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T20:30:00Z", 90))
	require.NoError(t, err)
	require.NotNil(t, out.Reservation, "touching endpoints must not conflict")
}

func TestCreatePrefersSmallestSufficientTable(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{
		{ID: 1, TableNumber: 1, Capacity: 2},
		{ID: 2, TableNumber: 2, Capacity: 6},
	}}
	e := newEngine(store, openAllDay())

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 60))
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Reservation.TableID)
}

func TestCreateFallsBackToLargerTableWhenSmallIsBusy(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{
		{ID: 1, TableNumber: 1, Capacity: 2},
		{ID: 2, TableNumber: 2, Capacity: 6},
	}}
	e := newEngine(store, openAllDay())

	_, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 60))
	require.NoError(t, err)

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 60))
	require.NoError(t, err)
	require.NotNil(t, out.Reservation)
	require.Equal(t, int64(2), out.Reservation.TableID, "only feasible candidate even though larger than necessary")
}

func TestCreateOutOfHoursLeavesLedgerUntouched(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	// ends 23:00 against a 22:00 close
	_, err := e.Create(context.Background(), createReq(2, "2024-05-01T21:30:00Z", 90))
	require.Error(t, err)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindOutOfHours))
	require.Empty(t, store.reservations)
	require.Empty(t, store.waitlist)
}

func TestCreatePeakLimitExceeded(t *testing.T) {
	rules := openAllDay()
	rules.rules = []restaurant.PeakRule{
		{DayOfWeek: 5, StartHour: "18:00", EndHour: "21:00", MaxDurationMinutes: 60},
	}
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, rules)

	// 2024-05-03 is a Friday
	_, err := e.Create(context.Background(), createReq(2, "2024-05-03T19:00:00Z", 90))
	require.True(t, internaltypes.IsKind(err, internaltypes.KindPeakLimitExceeded))
	require.Empty(t, store.reservations)
}

func TestCreateNamedTableConfirmed(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{
		{ID: 1, TableNumber: 1, Capacity: 2},
		{ID: 2, TableNumber: 2, Capacity: 6},
	}}
	e := newEngine(store, openAllDay())

	req := createReq(2, "2024-05-01T19:00:00Z", 60)
	req.TableID = 2
	out, err := e.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, out.Reservation)
	require.Equal(t, int64(2), out.Reservation.TableID, "a named table is honored even when a smaller one is free")
}

func TestCreateNamedTableUnknownIsNotFound(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	req := createReq(2, "2024-05-01T19:00:00Z", 60)
	req.TableID = 99
	_, err := e.Create(context.Background(), req)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindNotFound))
}

func TestCreateNamedTableTooSmallSuggestsAlternative(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{
		{ID: 1, TableNumber: 1, Capacity: 2},
		{ID: 2, TableNumber: 2, Capacity: 6},
	}}
	e := newEngine(store, openAllDay())

	req := createReq(5, "2024-05-01T19:00:00Z", 60)
	req.TableID = 1
	out, err := e.Create(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, out.Reservation)
	require.NotNil(t, out.Suggestion)
	require.Contains(t, out.Suggestion.Reason, "too small")
	require.Equal(t, int64(2), out.Suggestion.Table.ID)
	require.Empty(t, store.reservations, "a suggestion must not book anything")
}

func TestCreateNamedTableBookedSuggestsAlternative(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{
		{ID: 1, TableNumber: 1, Capacity: 4},
		{ID: 2, TableNumber: 2, Capacity: 4},
	}}
	e := newEngine(store, openAllDay())

	first := createReq(2, "2024-05-01T19:00:00Z", 90)
	first.TableID = 1
	_, err := e.Create(context.Background(), first)
	require.NoError(t, err)

	second := createReq(2, "2024-05-01T19:30:00Z", 60)
	second.TableID = 1
	out, err := e.Create(context.Background(), second)
	require.NoError(t, err)
	require.NotNil(t, out.Suggestion)
	require.Contains(t, out.Suggestion.Reason, "already booked")
	require.Equal(t, int64(2), out.Suggestion.Table.ID)
	require.Len(t, store.reservations, 1)
}

func TestCreateNamedTableNoAlternativeWaitlists(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	first := createReq(2, "2024-05-01T19:00:00Z", 90)
	first.TableID = 1
	_, err := e.Create(context.Background(), first)
	require.NoError(t, err)

	second := createReq(2, "2024-05-01T19:30:00Z", 60)
	second.TableID = 1
	out, err := e.Create(context.Background(), second)
	require.NoError(t, err)
	require.NotNil(t, out.Waitlisted)
	require.Len(t, store.waitlist, 1)
}

func TestModifyEmptyUpdateIsANoOp(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)
	orig := *out.Reservation

	got, err := e.Modify(context.Background(), orig.ID, ModifyRequest{})
	require.NoError(t, err)
	require.Equal(t, orig.TableID, got.TableID)
	require.Equal(t, orig.StartTime, got.StartTime)
	require.Equal(t, orig.EndTime, got.EndTime)
	require.Equal(t, orig.PartySize, got.PartySize)
}

func TestModifyMovesToFittingTable(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{
		{ID: 1, TableNumber: 1, Capacity: 2},
		{ID: 2, TableNumber: 2, Capacity: 6},
	}}
	e := newEngine(store, openAllDay())

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 60))
	require.NoError(t, err)
	require.Equal(t, int64(1), out.Reservation.TableID)

	party := 5
	got, err := e.Modify(context.Background(), out.Reservation.ID, ModifyRequest{PartySize: &party})
	require.NoError(t, err)
	require.Equal(t, int64(2), got.TableID)
	require.Equal(t, 5, got.PartySize)
}

func TestModifyConflictLeavesOriginalUntouched(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	first, err := e.Create(context.Background(), createReq(2, "2024-05-01T12:00:00Z", 60))
	require.NoError(t, err)
	_, err = e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)

	// move the noon booking onto the evening one
	newStart := ts("2024-05-01T19:30:00Z")
	_, err = e.Modify(context.Background(), first.Reservation.ID, ModifyRequest{StartTime: &newStart})
	require.True(t, internaltypes.IsKind(err, internaltypes.KindConflict))

	got, err := ledgerAdapter{store}.Get(context.Background(), nil, first.Reservation.ID)
	require.NoError(t, err)
	require.Equal(t, ts("2024-05-01T12:00:00Z"), got.StartTime, "failed modify must not change the row")
}

func TestModifyUnknownIsNotFound(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	_, err := e.Modify(context.Background(), 42, ModifyRequest{})
	require.True(t, internaltypes.IsKind(err, internaltypes.KindNotFound))
}

func TestCancelFreesTheInterval(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)

	cancelled, err := e.Cancel(context.Background(), out.Reservation.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusCancelled, cancelled.Status)

	// the slot is free again
	again, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)
	require.NotNil(t, again.Reservation)
}

func TestCancelUnknownIsNotFound(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store, openAllDay())

	_, err := e.Cancel(context.Background(), 7)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindNotFound))
}

func TestCancelTwiceIsIdempotent(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	out, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 90))
	require.NoError(t, err)

	_, err = e.Cancel(context.Background(), out.Reservation.ID)
	require.NoError(t, err)
	again, err := e.Cancel(context.Background(), out.Reservation.ID)
	require.NoError(t, err)
	require.Equal(t, reservations.StatusCancelled, again.Status)
}

func TestListReturnsReservations(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	_, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 60))
	require.NoError(t, err)
	_, err = e.Create(context.Background(), createReq(2, "2024-05-01T12:00:00Z", 60))
	require.NoError(t, err)

	list, err := e.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.True(t, list[0].StartTime.Before(list[1].StartTime))
}

func TestListFiltersByDate(t *testing.T) {
	store := &fakeStore{tables: []tables.Table{{ID: 1, TableNumber: 1, Capacity: 4}}}
	e := newEngine(store, openAllDay())

	_, err := e.Create(context.Background(), createReq(2, "2024-05-01T19:00:00Z", 60))
	require.NoError(t, err)
	_, err = e.Create(context.Background(), createReq(2, "2024-05-02T19:00:00Z", 60))
	require.NoError(t, err)

	day := ts("2024-05-02T00:00:00Z")
	list, err := e.List(context.Background(), &day)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, ts("2024-05-02T19:00:00Z"), list[0].StartTime)

	// a day with no bookings lists nothing
	empty := ts("2024-05-03T00:00:00Z")
	list, err = e.List(context.Background(), &empty)
	require.NoError(t, err)
	require.Empty(t, list)
}
