package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/restaurant"
	"github.com/example/tablebook/internal/tables"
)

var errEmptyOutcome = errors.New("booking returned no outcome")

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeBadRequest(w, "invalid request: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleRestaurantCreate(w http.ResponseWriter, r *http.Request) {
	var req createRestaurantRequest
	if !s.decode(w, r, &req) {
		return
	}

	saved, err := s.Settings.SaveSettings(r.Context(), s.DB, restaurant.Settings{
		Name:        req.Name,
		OpeningTime: req.OpeningTime,
		ClosingTime: req.ClosingTime,
		MaxTables:   req.MaxNumTables,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toRestaurantJSON(saved, nil))
}

func (s *Server) handleRestaurantGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Settings.LoadSettings(r.Context(), s.DB)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tbls, err := s.Tables.List(r.Context(), s.DB)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, toRestaurantJSON(settings, tbls))
}

func (s *Server) handleTableCreate(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if !s.decode(w, r, &req) {
		return
	}

	// the restaurant must be configured first; its ceiling bounds the
	// catalog. Check and insert share one transaction so two concurrent
	// creations cannot both squeeze under the ceiling.
	var t tables.Table
	err := s.Tx.InTx(r.Context(), func(q db.Querier) error {
		settings, err := s.Settings.LoadSettings(r.Context(), q)
		if err != nil {
			return err
		}
		t, err = s.Tables.Create(r.Context(), q, req.TableNumber, req.Capacity, settings.MaxTables)
		return err
	})
	if err != nil {
		if db.IsRetryable(err) {
			err = internaltypes.E(internaltypes.KindConflict,
				"table creation raced a concurrent change; retry")
		}
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toTableJSON(t))
}

func (s *Server) handleTablesAvailable(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start_time"))
	if err != nil {
		writeBadRequest(w, "start_time must be RFC 3339")
		return
	}
	duration, err := strconv.Atoi(r.URL.Query().Get("duration_minutes"))
	if err != nil || duration < 1 {
		writeBadRequest(w, "duration_minutes must be a positive integer")
		return
	}

	free, err := s.Availability.FreeTables(r.Context(), s.DB, reservations.NewInterval(start, duration))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, toTableListJSON(free))
}

func (s *Server) handleReservationCreate(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if !s.decode(w, r, &req) {
		return
	}

	out, err := s.Bookings.Create(r.Context(), booking.CreateRequest{
		TableID:         req.TableID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		PartySize:       req.PartySize,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch {
	case out.Reservation != nil:
		writeData(w, http.StatusCreated, toReservationJSON(*out.Reservation))
	case out.Suggestion != nil:
		writeJSON(w, http.StatusOK, envelope{
			Status:  "success",
			Message: out.Suggestion.Reason,
			Data:    toSuggestionJSON(*out.Suggestion),
		})
	case out.Waitlisted != nil:
		writeJSON(w, http.StatusAccepted, envelope{
			Status:  "success",
			Message: "No tables available. You have been added to the waitlist.",
			Data:    toWaitlistJSON(*out.Waitlisted),
		})
	default:
		writeDomainError(w, errEmptyOutcome)
	}
}

func (s *Server) handleReservationList(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		date = &parsed
	}

	list, err := s.Bookings.List(r.Context(), date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, toReservationListJSON(list))
}

func (s *Server) handleReservationModify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req modifyReservationRequest
	if !s.decode(w, r, &req) {
		return
	}

	updated, err := s.Bookings.Modify(r.Context(), id, booking.ModifyRequest{
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		PartySize:       req.PartySize,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, toReservationJSON(updated))
}

func (s *Server) handleReservationCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cancelled, err := s.Bookings.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, toReservationJSON(cancelled))
}

func (s *Server) handleWaitlistList(w http.ResponseWriter, r *http.Request) {
	list, err := s.Waitlist.List(r.Context(), s.DB)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, toWaitlistListJSON(list))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
