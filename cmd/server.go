package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/migrate"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/restaurant"
	"github.com/example/tablebook/internal/tables"
	"github.com/example/tablebook/internal/waitlist"
	"github.com/example/tablebook/internal/web"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the reservation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			store := restaurant.Store{}
			engine := &booking.Engine{
				DB:        d,
				Validator: restaurant.Validator{Rules: store},
				Tables:    tables.Catalog{},
				Ledger:    reservations.Ledger{},
				Waitlist:  waitlist.Store{},
			}

			ledger := reservations.Ledger{}
			srv := web.New(engine, d, d, store, tables.Catalog{}, ledger, waitlist.Store{})
			return web.Start(ctx, cfg.ListenAddr, srv.Routes(), cfg.RequestTimeout)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
