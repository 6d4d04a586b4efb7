package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pressure-alerts/internal/alerting"
	"pressure-alerts/internal/config"
	"pressure-alerts/internal/feed"
	"pressure-alerts/internal/pressure"
	"pressure-alerts/internal/storage"
	"pressure-alerts/internal/tuning"
)

type fakeFeed struct {
	matches    []feed.Match
	stats      map[int64]pressure.Snapshot
	statsErr   map[int64]error
	scores     map[int64]feed.Score
	scoreErr   map[int64]error
	scoreCalls int
}

func (f *fakeFeed) LiveMatches(ctx context.Context) ([]feed.Match, error) {
	return f.matches, nil
}

func (f *fakeFeed) Statistics(ctx context.Context, fixtureID int64) (pressure.Snapshot, error) {
	if err := f.statsErr[fixtureID]; err != nil {
		return nil, err
	}
	return f.stats[fixtureID], nil
}

func (f *fakeFeed) CurrentScore(ctx context.Context, fixtureID int64) (feed.Score, error) {
	f.scoreCalls++
	if err := f.scoreErr[fixtureID]; err != nil {
		return feed.Score{}, err
	}
	return f.scores[fixtureID], nil
}

type fakeThresholds struct {
	set   pressure.ThresholdSet
	saved *pressure.ThresholdSet
}

func (f *fakeThresholds) Thresholds(ctx context.Context) (pressure.ThresholdSet, error) {
	return f.set, nil
}

func (f *fakeThresholds) SaveThresholds(ctx context.Context, set pressure.ThresholdSet) error {
	f.saved = &set
	return nil
}

type fakeLedger struct {
	nextID     int64
	inserted   []storage.AlertRecord
	unresolved []storage.AlertRecord
	resolved   map[int64]bool
	summary    tuning.Summary
}

func (f *fakeLedger) InsertAlert(ctx context.Context, record storage.AlertRecord) (int64, error) {
	f.nextID++
	record.ID = f.nextID
	record.CreatedAt = time.Now().UTC()
	f.inserted = append(f.inserted, record)
	return record.ID, nil
}

func (f *fakeLedger) ListUnresolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]storage.AlertRecord, error) {
	eligible := make([]storage.AlertRecord, 0, limit)
	for _, record := range f.unresolved {
		if len(eligible) == limit {
			break
		}
		if _, done := f.resolved[record.ID]; done {
			continue
		}
		if record.CreatedAt.Before(cutoff) {
			eligible = append(eligible, record)
		}
	}
	return eligible, nil
}

func (f *fakeLedger) ResolveAlert(ctx context.Context, id int64, goalHappened bool) error {
	if f.resolved == nil {
		f.resolved = make(map[int64]bool)
	}
	// Retries are a no-op: the first stored outcome wins.
	if _, done := f.resolved[id]; done {
		return nil
	}
	f.resolved[id] = goalHappened
	return nil
}

func (f *fakeLedger) OutcomeSummary(ctx context.Context, since time.Time) (tuning.Summary, error) {
	return f.summary, nil
}

func (f *fakeLedger) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	return f.inserted, nil
}

type fakeSamples struct {
	inserted []storage.PressureSample
	baseline *storage.PressureSample
}

func (f *fakeSamples) InsertSample(ctx context.Context, sample storage.PressureSample) error {
	f.inserted = append(f.inserted, sample)
	return nil
}

func (f *fakeSamples) LatestSampleBefore(ctx context.Context, fixtureID int64, cutoff time.Time) (*storage.PressureSample, error) {
	return f.baseline, nil
}

func (f *fakeSamples) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]storage.PressureSample, error) {
	return f.inserted, nil
}

type fakeNotifier struct {
	notes []alerting.Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, note)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Interval: time.Minute},
		Monitor: config.MonitorConfig{
			ShotsMode:     "max",
			CornersMode:   "total",
			CornersWindow: 10 * time.Minute,
		},
		Alerting: config.AlertingConfig{Enabled: true, Channels: []string{"telegram"}},
	}
}

func teamStats(attacks, shots, corners int) pressure.TeamStatistics {
	return pressure.TeamStatistics{
		Statistics: []pressure.Statistic{
			{Name: "Total attacks", Value: pressure.IntValue(attacks)},
			{Name: "Shots on Goal", Value: pressure.IntValue(shots)},
			{Name: "Corner Kicks", Value: pressure.IntValue(corners)},
		},
	}
}

func TestProcessCycleFiresAlert(t *testing.T) {
	matchFeed := &fakeFeed{
		matches: []feed.Match{{FixtureID: 42, Home: "Alpha", Away: "Beta", Minute: 61, HomeGoals: 1, AwayGoals: 0}},
		stats: map[int64]pressure.Snapshot{
			42: {teamStats(90, 8, 7), teamStats(40, 3, 2)},
		},
	}
	thresholds := &fakeThresholds{set: pressure.DefaultThresholds()}
	ledger := &fakeLedger{}
	samples := &fakeSamples{}
	notifier := &fakeNotifier{}

	svc := New(testConfig(), matchFeed, thresholds, ledger, samples, notifier, nil, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}

	if len(ledger.inserted) != 1 {
		t.Fatalf("expected one ledger record, got %d", len(ledger.inserted))
	}
	record := ledger.inserted[0]
	if record.FixtureID != 42 || record.Minute != 61 {
		t.Fatalf("unexpected ledger record: %+v", record)
	}
	if record.GoalsAtAlert != 1 {
		t.Fatalf("goals at alert: want 1, got %d", record.GoalsAtAlert)
	}
	if record.GoalHappened != nil {
		t.Fatal("new ledger records must be unresolved")
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notes))
	}
	if !notifier.notes[0].Verdict.Alert {
		t.Fatalf("notification should carry the alert verdict: %+v", notifier.notes[0].Verdict)
	}

	if len(samples.inserted) != 1 {
		t.Fatalf("expected one pressure sample, got %d", len(samples.inserted))
	}
}

func TestProcessCycleQuietMatchNoAlert(t *testing.T) {
	matchFeed := &fakeFeed{
		matches: []feed.Match{{FixtureID: 7, Minute: 20}},
		stats: map[int64]pressure.Snapshot{
			7: {teamStats(10, 3, 1), teamStats(4, 1, 1)},
		},
	}
	ledger := &fakeLedger{}
	samples := &fakeSamples{}
	notifier := &fakeNotifier{}

	svc := New(testConfig(), matchFeed, &fakeThresholds{set: pressure.DefaultThresholds()}, ledger, samples, notifier, nil, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}

	if len(ledger.inserted) != 0 || len(notifier.notes) != 0 {
		t.Fatalf("quiet match must not alert: %d records, %d notes", len(ledger.inserted), len(notifier.notes))
	}
	if len(samples.inserted) != 1 {
		t.Fatalf("quiet match should still record a sample, got %d", len(samples.inserted))
	}
}

func TestProcessCycleStatsFailureShortCircuitsMatch(t *testing.T) {
	matchFeed := &fakeFeed{
		matches:  []feed.Match{{FixtureID: 9}},
		statsErr: map[int64]error{9: errors.New("upstream 500")},
	}
	ledger := &fakeLedger{}
	samples := &fakeSamples{}
	notifier := &fakeNotifier{}

	svc := New(testConfig(), matchFeed, &fakeThresholds{set: pressure.DefaultThresholds()}, ledger, samples, notifier, nil, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("a per-match failure must not fail the cycle: %v", err)
	}

	// A failed fetch is never scored as zero pressure: no sample, no alert.
	if len(samples.inserted) != 0 || len(ledger.inserted) != 0 || len(notifier.notes) != 0 {
		t.Fatal("failed statistics fetch must short-circuit the match entirely")
	}
}

func TestProcessCycleInsufficientDataSkipsMatch(t *testing.T) {
	matchFeed := &fakeFeed{
		matches: []feed.Match{{FixtureID: 3}},
		stats: map[int64]pressure.Snapshot{
			3: {teamStats(10, 1, 1)},
		},
	}
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}

	svc := New(testConfig(), matchFeed, &fakeThresholds{set: pressure.DefaultThresholds()}, ledger, &fakeSamples{}, notifier, nil, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}
	if len(ledger.inserted) != 0 || len(notifier.notes) != 0 {
		t.Fatal("one-team snapshot must not produce an alert")
	}
}

func TestRecentCornersWindowedAgainstBaseline(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.CornersMode = "window"

	// 6 cumulative corners now, 4 at the baseline sample: 2 recent, below
	// the default bar of 3, so only the corner condition stays quiet.
	matchFeed := &fakeFeed{
		matches: []feed.Match{{FixtureID: 5, Minute: 30}},
		stats: map[int64]pressure.Snapshot{
			5: {teamStats(80, 9, 4), teamStats(50, 4, 2)},
		},
	}
	samples := &fakeSamples{
		baseline: &storage.PressureSample{FixtureID: 5, Corners: 4},
	}
	notifier := &fakeNotifier{}

	svc := New(cfg, matchFeed, &fakeThresholds{set: pressure.DefaultThresholds()}, &fakeLedger{}, samples, notifier, nil, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("high pressure should still alert, got %d notes", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.RecentCorners != 2 {
		t.Fatalf("recent corners: want 2 (6 total - 4 baseline), got %d", note.RecentCorners)
	}
	if note.Verdict.CornerSurge {
		t.Fatal("2 recent corners must not trip the corner surge condition")
	}
}

func TestRecentCornersFallsBackToCumulative(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.CornersMode = "window"

	matchFeed := &fakeFeed{
		matches: []feed.Match{{FixtureID: 5}},
		stats: map[int64]pressure.Snapshot{
			5: {teamStats(1, 0, 4), teamStats(1, 0, 2)},
		},
	}
	notifier := &fakeNotifier{}

	// No baseline sample yet: the cumulative count (6) applies and clears
	// the default bar of 3.
	svc := New(cfg, matchFeed, &fakeThresholds{set: pressure.DefaultThresholds()}, &fakeLedger{}, &fakeSamples{}, notifier, nil, zerolog.Nop())
	if err := svc.ProcessCycle(context.Background(), time.Now()); err != nil {
		t.Fatalf("cycle should succeed: %v", err)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("cumulative corner fallback should alert, got %d notes", len(notifier.notes))
	}
	if !notifier.notes[0].Verdict.CornerSurge {
		t.Fatalf("corner surge should fire: %+v", notifier.notes[0].Verdict)
	}
}

func TestAdjusterPersistsOnlyOnChange(t *testing.T) {
	thresholds := &fakeThresholds{set: pressure.DefaultThresholds()}
	ledger := &fakeLedger{summary: tuning.Summary{AlertsSent: 10, GoalsConfirmed: 9}}

	adjuster := NewAdjuster(thresholds, ledger, 24*time.Hour, zerolog.Nop())
	rec, err := adjuster.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("adjuster should succeed: %v", err)
	}
	if thresholds.saved == nil {
		t.Fatal("90% accuracy should persist new thresholds")
	}
	if !thresholds.saved.PressTotal.Equal(decimal.RequireFromString("66.5")) {
		t.Fatalf("persisted press total: want 66.5, got %s", thresholds.saved.PressTotal)
	}
	if !rec.Current.PressTotal.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("recommendation must still report current values: %s", rec.Current.PressTotal)
	}
}

func TestAdjusterDryRunDoesNotPersist(t *testing.T) {
	thresholds := &fakeThresholds{set: pressure.DefaultThresholds()}
	ledger := &fakeLedger{summary: tuning.Summary{AlertsSent: 10, GoalsConfirmed: 9}}

	adjuster := NewAdjuster(thresholds, ledger, 24*time.Hour, zerolog.Nop())
	rec, err := adjuster.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("adjuster should succeed: %v", err)
	}
	if thresholds.saved != nil {
		t.Fatal("dry-run must not persist")
	}
	if !rec.Changed() {
		t.Fatal("dry-run must still report the recommendation")
	}
}

func TestAdjusterMidBandLeavesThresholds(t *testing.T) {
	thresholds := &fakeThresholds{set: pressure.DefaultThresholds()}
	ledger := &fakeLedger{summary: tuning.Summary{AlertsSent: 10, GoalsConfirmed: 7}}

	adjuster := NewAdjuster(thresholds, ledger, 24*time.Hour, zerolog.Nop())
	rec, err := adjuster.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("adjuster should succeed: %v", err)
	}
	if thresholds.saved != nil {
		t.Fatal("mid-band accuracy must not write the store")
	}
	if rec.Changed() {
		t.Fatalf("factor should be zero: %s", rec.Factor)
	}
}
