package restaurant

import (
	"context"
	"time"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
)

// RuleSource supplies the operating hours and peak rules the validator
// checks against.
type RuleSource interface {
	LoadSettings(ctx context.Context, q db.Querier) (Settings, error)
	PeakRulesFor(ctx context.Context, q db.Querier, dayOfWeek int) ([]PeakRule, error)
}

// Validator checks a candidate interval against operating hours and
// peak-hour duration caps. It does not re-check the duration range; the
// transport boundary owns that.
type Validator struct {
	Rules RuleSource
}

func (v Validator) Validate(ctx context.Context, q db.Querier, start, end time.Time, durationMinutes int) error {
	settings, err := v.Rules.LoadSettings(ctx, q)
	if err != nil {
		return err
	}

	open, err := ParseHM(settings.OpeningTime)
	if err != nil {
		return err
	}
	closing, err := ParseHM(settings.ClosingTime)
	if err != nil {
		return err
	}

	startMin := MinuteOfDay(start)
	endMin := MinuteOfDay(end)
	if startMin < open || endMin > closing {
		return internaltypes.E(internaltypes.KindOutOfHours,
			"outside operating hours %s-%s", settings.OpeningTime, settings.ClosingTime)
	}

	rules, err := v.Rules.PeakRulesFor(ctx, q, int(start.UTC().Weekday()))
	if err != nil {
		return err
	}
	for _, r := range rules {
		ruleStart, err := ParseHM(r.StartHour)
		if err != nil {
			return err
		}
		ruleEnd, err := ParseHM(r.EndHour)
		if err != nil {
			return err
		}
		if startMin >= ruleStart && startMin <= ruleEnd && durationMinutes > r.MaxDurationMinutes {
			return internaltypes.E(internaltypes.KindPeakLimitExceeded,
				"peak hours %s-%s cap reservations at %d minutes", r.StartHour, r.EndHour, r.MaxDurationMinutes)
		}
	}
	return nil
}
