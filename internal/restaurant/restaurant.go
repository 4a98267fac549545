package restaurant

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
)

// Settings is the singleton establishment configuration. Exactly one row
// exists; the storage schema pins its id.
type Settings struct {
	Name        string
	OpeningTime string // HH:MM
	ClosingTime string // HH:MM
	MaxTables   int
}

// PeakRule caps reservation duration inside a daily window. Several rules
// may apply to the same day.
type PeakRule struct {
	ID                 int64
	DayOfWeek          int // 0 = Sunday, matching time.Weekday
	StartHour          string
	EndHour            string
	MaxDurationMinutes int
}

type Store struct{}

func (Store) LoadSettings(ctx context.Context, q db.Querier) (Settings, error) {
	var s Settings
	err := q.QueryRow(ctx, `
SELECT name, opening_time, closing_time, max_num_tables
FROM restaurant_settings WHERE id=1`).
		Scan(&s.Name, &s.OpeningTime, &s.ClosingTime, &s.MaxTables)
	if err != nil {
		if db.IsNotFound(err) {
			return Settings{}, internaltypes.E(internaltypes.KindNotFound, "restaurant not configured")
		}
		return Settings{}, err
	}
	return s, nil
}

// SaveSettings upserts the single settings row.
func (Store) SaveSettings(ctx context.Context, q db.Querier, s Settings) (Settings, error) {
	if _, err := ParseHM(s.OpeningTime); err != nil {
		return Settings{}, internaltypes.E(internaltypes.KindInvariantViolation, "opening_time: %v", err)
	}
	if _, err := ParseHM(s.ClosingTime); err != nil {
		return Settings{}, internaltypes.E(internaltypes.KindInvariantViolation, "closing_time: %v", err)
	}

	err := q.QueryRow(ctx, `
INSERT INTO restaurant_settings(id, name, opening_time, closing_time, max_num_tables)
VALUES (1,$1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE
SET name=excluded.name, opening_time=excluded.opening_time,
    closing_time=excluded.closing_time, max_num_tables=excluded.max_num_tables,
    updated_at=now()
RETURNING name, opening_time, closing_time, max_num_tables`,
		s.Name, s.OpeningTime, s.ClosingTime, s.MaxTables).
		Scan(&s.Name, &s.OpeningTime, &s.ClosingTime, &s.MaxTables)
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (Store) AddPeakRule(ctx context.Context, q db.Querier, r PeakRule) (PeakRule, error) {
	if _, err := ParseHM(r.StartHour); err != nil {
		return PeakRule{}, internaltypes.E(internaltypes.KindInvariantViolation, "start_hour: %v", err)
	}
	if _, err := ParseHM(r.EndHour); err != nil {
		return PeakRule{}, internaltypes.E(internaltypes.KindInvariantViolation, "end_hour: %v", err)
	}

	err := q.QueryRow(ctx, `
INSERT INTO peak_hours(day_of_week, start_hour, end_hour, max_duration_minutes)
VALUES ($1,$2,$3,$4)
RETURNING id`, r.DayOfWeek, r.StartHour, r.EndHour, r.MaxDurationMinutes).
		Scan(&r.ID)
	if err != nil {
		return PeakRule{}, err
	}
	return r, nil
}

func (Store) PeakRulesFor(ctx context.Context, q db.Querier, dayOfWeek int) ([]PeakRule, error) {
	rows, err := q.Query(ctx, `
SELECT id, day_of_week, start_hour, end_hour, max_duration_minutes
FROM peak_hours
WHERE day_of_week=$1
ORDER BY start_hour ASC`, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PeakRule
	for rows.Next() {
		var r PeakRule
		if err := rows.Scan(&r.ID, &r.DayOfWeek, &r.StartHour, &r.EndHour, &r.MaxDurationMinutes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ParseHM converts "HH:MM" to minutes from midnight.
func ParseHM(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return hh*60 + mm, nil
}

// MinuteOfDay returns the UTC time-of-day in minutes from midnight.
// Timestamps cross the boundary in one timezone, so the date component is
// irrelevant to hour checks.
func MinuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}
