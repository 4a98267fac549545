package restaurant

import (
	"context"
	"testing"
	"time"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/stretchr/testify/require"
)

type fakeRules struct {
	settings    Settings
	settingsErr error
	rules       []PeakRule
}

func (f fakeRules) LoadSettings(ctx context.Context, q db.Querier) (Settings, error) {
	if f.settingsErr != nil {
		return Settings{}, f.settingsErr
	}
	return f.settings, nil
}

func (f fakeRules) PeakRulesFor(ctx context.Context, q db.Querier, day int) ([]PeakRule, error) {
	var out []PeakRule
	for _, r := range f.rules {
		if r.DayOfWeek == day {
			out = append(out, r)
		}
	}
	return out, nil
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func defaultHours() Settings {
	return Settings{Name: "Chez Test", OpeningTime: "09:00", ClosingTime: "22:00"}
}

func TestValidateWithinHours(t *testing.T) {
	v := Validator{Rules: fakeRules{settings: defaultHours()}}
	err := v.Validate(context.Background(), nil, ts("2024-05-01T19:00:00Z"), ts("2024-05-01T20:30:00Z"), 90)
	require.NoError(t, err)
}

func TestValidateEndAtClosingIsAllowed(t *testing.T) {
	v := Validator{Rules: fakeRules{settings: defaultHours()}}
	err := v.Validate(context.Background(), nil, ts("2024-05-01T21:00:00Z"), ts("2024-05-01T22:00:00Z"), 60)
	require.NoError(t, err)
}

func TestValidateOutOfHours(t *testing.T) {
	v := Validator{Rules: fakeRules{settings: defaultHours()}}

	// ends 23:00 against a 22:00 close
	err := v.Validate(context.Background(), nil, ts("2024-05-01T21:30:00Z"), ts("2024-05-01T23:00:00Z"), 90)
	require.Error(t, err)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindOutOfHours))
	require.Contains(t, err.Error(), "09:00-22:00")

	// starts before opening
	err = v.Validate(context.Background(), nil, ts("2024-05-01T08:00:00Z"), ts("2024-05-01T09:30:00Z"), 90)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindOutOfHours))
}

func TestValidatePeakLimit(t *testing.T) {
	// Friday 18:00-21:00 caps duration at 60; 2024-05-03 is a Friday.
	rules := fakeRules{
		settings: defaultHours(),
		rules: []PeakRule{
			{DayOfWeek: 5, StartHour: "18:00", EndHour: "21:00", MaxDurationMinutes: 60},
		},
	}
	v := Validator{Rules: rules}

	err := v.Validate(context.Background(), nil, ts("2024-05-03T19:00:00Z"), ts("2024-05-03T20:30:00Z"), 90)
	require.Error(t, err)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindPeakLimitExceeded))
	require.Contains(t, err.Error(), "18:00-21:00")

	// same duration within the cap
	err = v.Validate(context.Background(), nil, ts("2024-05-03T19:00:00Z"), ts("2024-05-03T20:00:00Z"), 60)
	require.NoError(t, err)

	// same request on a Thursday is unconstrained
	err = v.Validate(context.Background(), nil, ts("2024-05-02T19:00:00Z"), ts("2024-05-02T20:30:00Z"), 90)
	require.NoError(t, err)

	// start outside the window, even if the interval reaches into it
	err = v.Validate(context.Background(), nil, ts("2024-05-03T17:00:00Z"), ts("2024-05-03T18:30:00Z"), 90)
	require.NoError(t, err)
}

func TestValidateAnyViolatedRuleIsFatal(t *testing.T) {
	rules := fakeRules{
		settings: defaultHours(),
		rules: []PeakRule{
			{DayOfWeek: 5, StartHour: "12:00", EndHour: "14:00", MaxDurationMinutes: 120},
			{DayOfWeek: 5, StartHour: "18:00", EndHour: "21:00", MaxDurationMinutes: 60},
		},
	}
	v := Validator{Rules: rules}

	err := v.Validate(context.Background(), nil, ts("2024-05-03T19:00:00Z"), ts("2024-05-03T20:30:00Z"), 90)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindPeakLimitExceeded))
}

func TestValidatePropagatesMissingSettings(t *testing.T) {
	v := Validator{Rules: fakeRules{settingsErr: internaltypes.E(internaltypes.KindNotFound, "restaurant not configured")}}
	err := v.Validate(context.Background(), nil, ts("2024-05-01T19:00:00Z"), ts("2024-05-01T20:00:00Z"), 60)
	require.True(t, internaltypes.IsKind(err, internaltypes.KindNotFound))
}

func TestParseHM(t *testing.T) {
	m, err := ParseHM("09:00")
	require.NoError(t, err)
	require.Equal(t, 540, m)

	m, err = ParseHM("22:30")
	require.NoError(t, err)
	require.Equal(t, 1350, m)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd", "12-30"} {
		_, err := ParseHM(bad)
		require.Error(t, err, "ParseHM(%q)", bad)
	}
}

func TestMinuteOfDay(t *testing.T) {
	require.Equal(t, 19*60, MinuteOfDay(ts("2024-05-01T19:00:00Z")))
	require.Equal(t, 0, MinuteOfDay(ts("2024-05-01T00:00:00Z")))
}
