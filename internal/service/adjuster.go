package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pressure-alerts/internal/storage"
	"pressure-alerts/internal/tuning"
)

// Adjuster closes the feedback loop: once per day it aggregates resolved
// alert outcomes over a trailing window and rewrites the threshold set
// through the bounded adjustment rule.
type Adjuster struct {
	thresholds storage.ThresholdStore
	ledger     storage.AlertLedger
	logger     zerolog.Logger
	window     time.Duration
}

// NewAdjuster constructs a threshold adjuster over the given trailing window.
func NewAdjuster(thresholds storage.ThresholdStore, ledger storage.AlertLedger, window time.Duration, logger zerolog.Logger) *Adjuster {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Adjuster{
		thresholds: thresholds,
		ledger:     ledger,
		logger:     logger.With().Str("component", "adjuster").Logger(),
		window:     window,
	}
}

// Run computes and, unless dryRun is set, persists one adjustment. The
// recommendation is returned in full either way so callers can report both
// current and recommended values.
func (a *Adjuster) Run(ctx context.Context, dryRun bool) (tuning.Recommendation, error) {
	current, err := a.thresholds.Thresholds(ctx)
	if err != nil {
		return tuning.Recommendation{}, fmt.Errorf("load thresholds: %w", err)
	}

	since := time.Now().UTC().Add(-a.window)
	summary, err := a.ledger.OutcomeSummary(ctx, since)
	if err != nil {
		return tuning.Recommendation{}, fmt.Errorf("aggregate outcomes: %w", err)
	}

	rec := tuning.Recommend(current, summary)

	logEvent := a.logger.Info().
		Int64("alerts_sent", summary.AlertsSent).
		Int64("goals_confirmed", summary.GoalsConfirmed).
		Int64("distinct_matches", summary.DistinctMatches).
		Str("accuracy_pct", rec.Accuracy.StringFixed(1)).
		Str("factor", rec.Factor.String())

	if !rec.Changed() {
		logEvent.Msg("thresholds unchanged")
		return rec, nil
	}

	if dryRun {
		logEvent.Bool("dry_run", true).Msg("adjustment recommended but not persisted")
		return rec, nil
	}

	if err := a.thresholds.SaveThresholds(ctx, rec.Recommended); err != nil {
		return rec, fmt.Errorf("save thresholds: %w", err)
	}

	logEvent.
		Str("press_total", rec.Recommended.PressTotal.String()).
		Str("press_diff", rec.Recommended.PressDiff.String()).
		Msg("thresholds adjusted")
	return rec, nil
}
