package web

import (
	"time"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/restaurant"
	"github.com/example/tablebook/internal/tables"
	"github.com/example/tablebook/internal/waitlist"
)

// Requests are schema-validated here so the domain below can assume sane
// inputs (party sizes positive, durations within 30-180 minutes).

type createRestaurantRequest struct {
	Name         string `json:"name" validate:"required"`
	OpeningTime  string `json:"opening_time" validate:"required"`
	ClosingTime  string `json:"closing_time" validate:"required"`
	MaxNumTables int    `json:"max_num_tables" validate:"required,min=1"`
}

type createTableRequest struct {
	TableNumber int `json:"table_number" validate:"required,min=1"`
	Capacity    int `json:"capacity" validate:"required,min=1"`
}

type createReservationRequest struct {
	TableID         int64     `json:"table_id"`
	CustomerName    string    `json:"customer_name" validate:"required"`
	CustomerPhone   string    `json:"customer_phone" validate:"required"`
	PartySize       int       `json:"party_size" validate:"required,min=1"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=30,max=180"`
}

type modifyReservationRequest struct {
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=30,max=180"`
	PartySize       *int       `json:"party_size" validate:"omitempty,min=1"`
}

type restaurantJSON struct {
	Name         string      `json:"name"`
	OpeningTime  string      `json:"opening_time"`
	ClosingTime  string      `json:"closing_time"`
	MaxNumTables int         `json:"max_num_tables"`
	Tables       []tableJSON `json:"tables,omitempty"`
}

type tableJSON struct {
	ID          int64 `json:"id"`
	TableNumber int   `json:"table_number"`
	Capacity    int   `json:"capacity"`
}

type reservationJSON struct {
	ID            int64     `json:"id"`
	TableID       int64     `json:"table_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	PartySize     int       `json:"party_size"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
}

type suggestionJSON struct {
	Reason string    `json:"reason"`
	Table  tableJSON `json:"suggested_table"`
}

type waitlistJSON struct {
	ID            int64     `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	PartySize     int       `json:"party_size"`
	RequestedTime time.Time `json:"requested_time"`
	Status        string    `json:"status"`
}

func toRestaurantJSON(s restaurant.Settings, tbls []tables.Table) restaurantJSON {
	out := restaurantJSON{
		Name:         s.Name,
		OpeningTime:  s.OpeningTime,
		ClosingTime:  s.ClosingTime,
		MaxNumTables: s.MaxTables,
	}
	for _, t := range tbls {
		out.Tables = append(out.Tables, toTableJSON(t))
	}
	return out
}

func toTableJSON(t tables.Table) tableJSON {
	return tableJSON{ID: t.ID, TableNumber: t.TableNumber, Capacity: t.Capacity}
}

func toTableListJSON(ts []tables.Table) []tableJSON {
	out := make([]tableJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTableJSON(t))
	}
	return out
}

func toReservationJSON(r reservations.Reservation) reservationJSON {
	return reservationJSON{
		ID:            r.ID,
		TableID:       r.TableID,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		PartySize:     r.PartySize,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        string(r.Status),
	}
}

func toReservationListJSON(rs []reservations.Reservation) []reservationJSON {
	out := make([]reservationJSON, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservationJSON(r))
	}
	return out
}

func toSuggestionJSON(s booking.Suggestion) suggestionJSON {
	return suggestionJSON{Reason: s.Reason, Table: toTableJSON(s.Table)}
}

func toWaitlistJSON(e waitlist.Entry) waitlistJSON {
	return waitlistJSON{
		ID:            e.ID,
		CustomerName:  e.CustomerName,
		CustomerPhone: e.CustomerPhone,
		PartySize:     e.PartySize,
		RequestedTime: e.RequestedTime,
		Status:        string(e.Status),
	}
}

func toWaitlistListJSON(es []waitlist.Entry) []waitlistJSON {
	out := make([]waitlistJSON, 0, len(es))
	for _, e := range es {
		out = append(out, toWaitlistJSON(e))
	}
	return out
}
