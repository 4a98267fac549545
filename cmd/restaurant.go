package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/migrate"
	"github.com/example/tablebook/internal/restaurant"
	"github.com/spf13/cobra"
)

func newRestaurantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restaurant",
		Short: "Manage the establishment configuration",
	}
	cmd.AddCommand(newRestaurantInitCmd())
	return cmd
}

func newRestaurantInitCmd() *cobra.Command {
	var name, open, closing string
	var maxTables int

	c := &cobra.Command{
		Use:   "init",
		Short: "Create or replace the establishment settings",
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

			s, err := restaurant.Store{}.SaveSettings(ctx, d, restaurant.Settings{
				Name:        name,
				OpeningTime: open,
				ClosingTime: closing,
				MaxTables:   maxTables,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "configured %q, hours %s-%s, up to %d tables\n",
				s.Name, s.OpeningTime, s.ClosingTime, s.MaxTables)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "establishment name")
	c.Flags().StringVar(&open, "open", "09:00", "opening time (HH:MM)")
	c.Flags().StringVar(&closing, "close", "22:00", "closing time (HH:MM)")
	c.Flags().IntVar(&maxTables, "max-tables", 20, "table ceiling")
	_ = c.MarkFlagRequired("name")
	return c
}
