package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pressure-alerts/internal/feed"
	"pressure-alerts/internal/storage"
)

const (
	defaultObservationWindow = 10 * time.Minute
	defaultVerifyBatchSize   = 50
	defaultFetchDelay        = 500 * time.Millisecond
	scoreFetchTimeout        = 15 * time.Second
)

// VerifierOptions tune the outcome verification batch.
type VerifierOptions struct {
	ObservationWindow time.Duration
	BatchSize         int
	FetchDelay        time.Duration
}

// VerifyStats summarises one verification run.
type VerifyStats struct {
	Candidates     int
	Resolved       int
	GoalsConfirmed int
	Skipped        int
}

// Verifier settles unresolved ledger records once their observation window
// has elapsed: a strict increase over the goal count at alert time confirms
// the alert.
type Verifier struct {
	matchFeed feed.MatchFeed
	ledger    storage.AlertLedger
	logger    zerolog.Logger
	opts      VerifierOptions
}

// NewVerifier constructs an outcome verifier.
func NewVerifier(matchFeed feed.MatchFeed, ledger storage.AlertLedger, opts VerifierOptions, logger zerolog.Logger) *Verifier {
	if opts.ObservationWindow <= 0 {
		opts.ObservationWindow = defaultObservationWindow
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultVerifyBatchSize
	}
	if opts.FetchDelay <= 0 {
		opts.FetchDelay = defaultFetchDelay
	}
	return &Verifier{
		matchFeed: matchFeed,
		ledger:    ledger,
		logger:    logger.With().Str("component", "verifier").Logger(),
		opts:      opts,
	}
}

// Run processes one bounded batch of eligible records. Per-record fetch
// failures are logged and skipped; the record stays unresolved for a future
// run. The batch cap keeps a large backlog from blowing the upstream quota
// in a single pass.
func (v *Verifier) Run(ctx context.Context) (VerifyStats, error) {
	var stats VerifyStats

	if v.ledger == nil {
		return stats, nil
	}

	cutoff := time.Now().UTC().Add(-v.opts.ObservationWindow)
	records, err := v.ledger.ListUnresolvedBefore(ctx, cutoff, v.opts.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("list unresolved alerts: %w", err)
	}
	stats.Candidates = len(records)

	for i, record := range records {
		if i > 0 {
			if err := v.pause(ctx); err != nil {
				return stats, err
			}
		}

		goalHappened, fetchErr := v.checkOutcome(ctx, record)
		if fetchErr != nil {
			stats.Skipped++
			v.logger.Warn().Err(fetchErr).
				Int64("alert_id", record.ID).
				Int64("fixture_id", record.FixtureID).
				Msg("outcome check failed; leaving record unresolved")
			continue
		}

		if resolveErr := v.ledger.ResolveAlert(ctx, record.ID, goalHappened); resolveErr != nil {
			stats.Skipped++
			v.logger.Error().Err(resolveErr).Int64("alert_id", record.ID).Msg("failed to resolve alert record")
			continue
		}

		stats.Resolved++
		if goalHappened {
			stats.GoalsConfirmed++
		}
	}

	if stats.Candidates > 0 {
		v.logger.Info().
			Int("candidates", stats.Candidates).
			Int("resolved", stats.Resolved).
			Int("goals_confirmed", stats.GoalsConfirmed).
			Int("skipped", stats.Skipped).
			Msg("outcome verification complete")
	}

	return stats, nil
}

func (v *Verifier) checkOutcome(ctx context.Context, record storage.AlertRecord) (bool, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, scoreFetchTimeout)
	defer cancel()

	score, err := v.matchFeed.CurrentScore(fetchCtx, record.FixtureID)
	if err != nil {
		return false, fmt.Errorf("fetch current score: %w", err)
	}

	// Strict increase only: a score that was already ahead at alert time
	// does not count as a confirmed goal.
	return score.Total() > record.GoalsAtAlert, nil
}

func (v *Verifier) pause(ctx context.Context) error {
	timer := time.NewTimer(v.opts.FetchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
