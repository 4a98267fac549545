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

func newPeakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peak",
		Short: "Manage peak-hour duration rules",
	}
	cmd.AddCommand(newPeakAddCmd())
	return cmd
}

func newPeakAddCmd() *cobra.Command {
	var day, maxMinutes int
	var start, end string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a peak-hour rule (0=Sunday ... 6=Saturday)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if day < 0 || day > 6 {
				return fmt.Errorf("day must be 0-6")
			}

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

			r, err := restaurant.Store{}.AddPeakRule(ctx, d, restaurant.PeakRule{
				DayOfWeek:          day,
				StartHour:          start,
				EndHour:            end,
				MaxDurationMinutes: maxMinutes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "peak rule %d: day %d %s-%s capped at %d minutes\n",
				r.ID, r.DayOfWeek, r.StartHour, r.EndHour, r.MaxDurationMinutes)
			return nil
		},
	}

	c.Flags().IntVar(&day, "day", 0, "day of week (0=Sunday)")
	c.Flags().StringVar(&start, "start", "", "window start (HH:MM)")
	c.Flags().StringVar(&end, "end", "", "window end (HH:MM)")
	c.Flags().IntVar(&maxMinutes, "max-minutes", 0, "maximum reservation duration in the window")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
	_ = c.MarkFlagRequired("max-minutes")
	return c
}
