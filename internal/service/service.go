package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pressure-alerts/internal/alerting"
	"pressure-alerts/internal/config"
	"pressure-alerts/internal/feed"
	"pressure-alerts/internal/pressure"
	"pressure-alerts/internal/storage"
)

// CornersMode selects the recent-period corner derivation.
type CornersMode string

const (
	// CornersWindowed diffs the cumulative count against the newest sample
	// older than the configured window.
	CornersWindowed CornersMode = "window"
	// CornersTotal reuses the cumulative match count, replicating the
	// pre-windowing behaviour.
	CornersTotal CornersMode = "total"
)

// Service orchestrates one monitoring pass per scheduler tick: fetch live
// matches, score, decide, notify, then verify pending alert outcomes.
type Service struct {
	matchFeed  feed.MatchFeed
	thresholds storage.ThresholdStore
	ledger     storage.AlertLedger
	samples    storage.SampleStore
	notifier   alerting.Notifier
	verifier   *Verifier
	logger     zerolog.Logger

	shotsMode     pressure.ShotsMode
	cornersMode   CornersMode
	cornersWindow time.Duration
	channels      []string
	alertsOn      bool
	locker        storage.AdvisoryLocker
	lockKey       int64
}

// New constructs the monitoring service.
func New(cfg *config.Config, matchFeed feed.MatchFeed, thresholds storage.ThresholdStore, ledger storage.AlertLedger, samples storage.SampleStore, notifier alerting.Notifier, verifier *Verifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := thresholds.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		matchFeed:     matchFeed,
		thresholds:    thresholds,
		ledger:        ledger,
		samples:       samples,
		notifier:      notifier,
		verifier:      verifier,
		logger:        logger.With().Str("component", "service").Logger(),
		shotsMode:     pressure.ShotsMode(cfg.Monitor.ShotsMode),
		cornersMode:   CornersMode(cfg.Monitor.CornersMode),
		cornersWindow: cfg.Monitor.CornersWindow,
		channels:      cfg.Alerting.Channels,
		alertsOn:      cfg.Alerting.Enabled,
		locker:        locker,
		lockKey:       cfg.Scheduler.AdvisoryLockKey,
	}
}

// ProcessCycle 执行单个监控周期。 Overlapping timer invocations skip the
// cycle via the advisory lock instead of racing on shared state.
func (s *Service) ProcessCycle(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeCycle(ctx, bucket)
}

func (s *Service) executeCycle(ctx context.Context, bucket time.Time) error {
	if s.matchFeed == nil {
		return errors.New("match feed not configured")
	}

	matches, err := s.matchFeed.LiveMatches(ctx)
	if err != nil {
		return fmt.Errorf("fetch live matches: %w", err)
	}

	currentThresholds := pressure.DefaultThresholds()
	if s.thresholds != nil {
		loaded, thErr := s.thresholds.Thresholds(ctx)
		if thErr != nil {
			s.logger.Error().Err(thErr).Msg("failed to load thresholds; using defaults for this cycle")
		} else {
			currentThresholds = loaded
		}
	}

	evaluated := 0
	alerted := 0
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fired, evalErr := s.evaluateMatch(ctx, match, currentThresholds)
		if evalErr != nil {
			s.logger.Warn().Err(evalErr).Int64("fixture_id", match.FixtureID).Msg("match evaluation skipped")
			continue
		}
		evaluated++
		if fired {
			alerted++
		}
	}

	s.logger.Info().Time("bucket", bucket).
		Int("live_matches", len(matches)).
		Int("evaluated", evaluated).
		Int("alerts", alerted).
		Msg("monitoring cycle complete")

	if s.verifier != nil {
		if _, verifyErr := s.verifier.Run(ctx); verifyErr != nil {
			s.logger.Error().Err(verifyErr).Msg("outcome verification failed")
		}
	}

	return nil
}

// evaluateMatch scores one live match and fires an alert when the policy
// says so. A failed statistics fetch short-circuits the match for this
// cycle; it is never scored as zero pressure.
func (s *Service) evaluateMatch(ctx context.Context, match feed.Match, thresholds pressure.ThresholdSet) (bool, error) {
	snapshot, err := s.matchFeed.Statistics(ctx, match.FixtureID)
	if err != nil {
		return false, fmt.Errorf("fetch statistics: %w", err)
	}

	metrics, err := pressure.Score(snapshot)
	if err != nil {
		return false, fmt.Errorf("score statistics: %w", err)
	}

	recentCorners := s.recentCorners(ctx, match.FixtureID, metrics)

	s.recordSample(ctx, match, metrics)

	verdict := pressure.Decide(metrics, thresholds, pressure.PolicyInput{
		ShotsMode:     s.shotsMode,
		RecentCorners: recentCorners,
	})

	s.logger.Debug().Int64("fixture_id", match.FixtureID).
		Str("press_total", metrics.PressTotal.String()).
		Str("press_diff", metrics.PressDiff.String()).
		Int("recent_corners", recentCorners).
		Bool("alert", verdict.Alert).
		Msg("match evaluated")

	if !verdict.Alert {
		return false, nil
	}

	s.fireAlert(ctx, match, metrics, thresholds, verdict, recentCorners)
	return true, nil
}

// recentCorners derives the corner count for the recent period. In windowed
// mode the baseline is the newest sample at least cornersWindow old; a match
// without such a sample falls back to the cumulative count.
func (s *Service) recentCorners(ctx context.Context, fixtureID int64, metrics pressure.Metrics) int {
	total := metrics.CornersHome + metrics.CornersAway
	if s.cornersMode != CornersWindowed || s.samples == nil {
		return total
	}

	cutoff := time.Now().UTC().Add(-s.cornersWindow)
	baseline, err := s.samples.LatestSampleBefore(ctx, fixtureID, cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Int64("fixture_id", fixtureID).Msg("corner baseline lookup failed; using cumulative count")
		return total
	}
	if baseline == nil {
		return total
	}

	recent := total - baseline.Corners
	if recent < 0 {
		return 0
	}
	return recent
}

func (s *Service) recordSample(ctx context.Context, match feed.Match, metrics pressure.Metrics) {
	if s.samples == nil {
		return
	}
	sample := storage.PressureSample{
		FixtureID:  match.FixtureID,
		Minute:     match.Minute,
		PressHome:  metrics.PressHome,
		PressAway:  metrics.PressAway,
		PressTotal: metrics.PressTotal,
		PressDiff:  metrics.PressDiff,
		Corners:    metrics.CornersHome + metrics.CornersAway,
	}
	if err := s.samples.InsertSample(ctx, sample); err != nil {
		s.logger.Error().Err(err).Int64("fixture_id", match.FixtureID).Msg("failed to persist pressure sample")
	}
}

func (s *Service) fireAlert(ctx context.Context, match feed.Match, metrics pressure.Metrics, thresholds pressure.ThresholdSet, verdict pressure.Verdict, recentCorners int) {
	if s.ledger != nil {
		record := storage.AlertRecord{
			FixtureID:    match.FixtureID,
			Minute:       match.Minute,
			PressTotal:   metrics.PressTotal,
			PressDiff:    metrics.PressDiff,
			Corners:      metrics.CornersHome + metrics.CornersAway,
			ShotsOnGoal:  metrics.ShotsHome + metrics.ShotsAway,
			GoalsAtAlert: match.HomeGoals + match.AwayGoals,
		}
		if _, err := s.ledger.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Int64("fixture_id", match.FixtureID).Msg("failed to persist alert record")
		}
	}

	if !s.alertsOn || s.notifier == nil {
		return
	}

	note := alerting.Notification{
		FixtureID:     match.FixtureID,
		Home:          match.Home,
		Away:          match.Away,
		Minute:        match.Minute,
		Metrics:       metrics,
		Thresholds:    thresholds,
		Verdict:       verdict,
		RecentCorners: recentCorners,
		HomeGoals:     match.HomeGoals,
		AwayGoals:     match.AwayGoals,
		Channels:      s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Int64("fixture_id", match.FixtureID).Msg("failed to dispatch alert")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
