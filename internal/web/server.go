package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/restaurant"
	"github.com/example/tablebook/internal/tables"
	"github.com/example/tablebook/internal/waitlist"
	"github.com/go-playground/validator/v10"
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(q db.Querier) error) error
}

type Bookings interface {
	Create(ctx context.Context, req booking.CreateRequest) (booking.Outcome, error)
	Modify(ctx context.Context, id int64, req booking.ModifyRequest) (reservations.Reservation, error)
	Cancel(ctx context.Context, id int64) (reservations.Reservation, error)
	List(ctx context.Context, date *time.Time) ([]reservations.Reservation, error)
}

type SettingsStore interface {
	LoadSettings(ctx context.Context, q db.Querier) (restaurant.Settings, error)
	SaveSettings(ctx context.Context, q db.Querier, s restaurant.Settings) (restaurant.Settings, error)
}

type TableStore interface {
	Create(ctx context.Context, q db.Querier, tableNumber, capacity, maxTables int) (tables.Table, error)
	List(ctx context.Context, q db.Querier) ([]tables.Table, error)
}

type AvailabilitySource interface {
	FreeTables(ctx context.Context, q db.Querier, iv reservations.Interval) ([]tables.Table, error)
}

type WaitlistSource interface {
	List(ctx context.Context, q db.Querier) ([]waitlist.Entry, error)
}

// Server exposes the booking core as a JSON API. It shapes records in and
// out and maps error kinds to status codes; every decision lives in the
// engine behind it.
type Server struct {
	Bookings     Bookings
	DB           db.Querier
	Tx           TxRunner
	Settings     SettingsStore
	Tables       TableStore
	Availability AvailabilitySource
	Waitlist     WaitlistSource

	validate *validator.Validate
}

func New(bookings Bookings, d db.Querier, tx TxRunner, settings SettingsStore, tbl TableStore, avail AvailabilitySource, wl WaitlistSource) *Server {
	return &Server{
		Bookings:     bookings,
		DB:           d,
		Tx:           tx,
		Settings:     settings,
		Tables:       tbl,
		Availability: avail,
		Waitlist:     wl,
		validate:     validator.New(),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("POST /api/restaurant", s.handleRestaurantCreate)
	mux.HandleFunc("GET /api/restaurant", s.handleRestaurantGet)

	mux.HandleFunc("POST /api/tables", s.handleTableCreate)
	mux.HandleFunc("GET /api/tables/available", s.handleTablesAvailable)

	mux.HandleFunc("POST /api/reservations", s.handleReservationCreate)
	mux.HandleFunc("GET /api/reservations", s.handleReservationList)
	mux.HandleFunc("PATCH /api/reservations/{id}", s.handleReservationModify)
	mux.HandleFunc("DELETE /api/reservations/{id}", s.handleReservationCancel)

	mux.HandleFunc("GET /api/waitlist", s.handleWaitlistList)

	return withRequestLog(mux)
}

func Start(ctx context.Context, addr string, h http.Handler, requestTimeout time.Duration) error {
	if requestTimeout > 0 {
		h = withTimeout(h, requestTimeout)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	fmt.Printf("listening on %s\n", addr)
	return srv.ListenAndServe()
}
