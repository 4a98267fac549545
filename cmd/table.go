package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/migrate"
	"github.com/example/tablebook/internal/restaurant"
	"github.com/example/tablebook/internal/tables"
	"github.com/spf13/cobra"
)

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Manage tables",
	}
	cmd.AddCommand(newTableAddCmd())
	cmd.AddCommand(newTableListCmd())
	return cmd
}

func newTableListCmd() *cobra.Command {
	var fits int

	c := &cobra.Command{
		Use:   "list",
		Short: "List tables, optionally only those seating a party size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			var ts []tables.Table
			if fits > 0 {
				ts, err = tables.Catalog{}.ListCandidates(ctx, d, fits)
			} else {
				ts, err = tables.Catalog{}.List(ctx, d)
			}
			if err != nil {
				return err
			}

			for _, t := range ts {
				fmt.Fprintf(os.Stdout, "table %d\tcapacity %d\n", t.TableNumber, t.Capacity)
			}
			return nil
		},
	}

	c.Flags().IntVar(&fits, "fits", 0, "only tables seating at least this many")
	return c
}

func newTableAddCmd() *cobra.Command {
	var number, capacity int

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			var t tables.Table
			err = d.InTx(ctx, func(q db.Querier) error {
				settings, err := restaurant.Store{}.LoadSettings(ctx, q)
				if err != nil {
					return err
				}
				t, err = tables.Catalog{}.Create(ctx, q, number, capacity, settings.MaxTables)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created table %d (capacity %d)\n", t.TableNumber, t.Capacity)
			return nil
		},
	}

	c.Flags().IntVar(&number, "number", 0, "table number")
	c.Flags().IntVar(&capacity, "capacity", 0, "seats")
	_ = c.MarkFlagRequired("number")
	_ = c.MarkFlagRequired("capacity")
	return c
}
