package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pressure-alerts/internal/pressure"
	"pressure-alerts/internal/tuning"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	selectThresholdsSQL = `SELECT press_total, press_diff, corners_10min, updated_at
    FROM thresholds
    WHERE id = 1;`

	upsertThresholdsSQL = `INSERT INTO thresholds (
        id,
        press_total,
        press_diff,
        corners_10min,
        updated_at
    ) VALUES (
        1,$1,$2,$3,now()
    )
    ON CONFLICT (id) DO UPDATE
    SET press_total   = EXCLUDED.press_total,
        press_diff    = EXCLUDED.press_diff,
        corners_10min = EXCLUDED.corners_10min,
        updated_at    = EXCLUDED.updated_at;`

	insertAlertSQL = `INSERT INTO alert_records (
        fixture_id,
        minute,
        press_total,
        press_diff,
        corners,
        shots_on_goal,
        goals_at_alert
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id;`

	listUnresolvedBeforeSQL = `SELECT
        id,
        fixture_id,
        minute,
        press_total,
        press_diff,
        corners,
        shots_on_goal,
        goals_at_alert,
        goal_happened,
        created_at
    FROM alert_records
    WHERE goal_happened IS NULL
      AND created_at < $1
    ORDER BY created_at
    LIMIT $2;`

	resolveAlertSQL = `UPDATE alert_records
    SET goal_happened = $2
    WHERE id = $1
      AND goal_happened IS NULL;`

	outcomeSummarySQL = `SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE goal_happened),
        COUNT(DISTINCT fixture_id)
    FROM alert_records
    WHERE created_at >= $1
      AND goal_happened IS NOT NULL;`

	listRecentAlertsSQL = `SELECT
        id,
        fixture_id,
        minute,
        press_total,
        press_diff,
        corners,
        shots_on_goal,
        goals_at_alert,
        goal_happened,
        created_at
    FROM alert_records
    ORDER BY created_at DESC
    LIMIT $1;`

	insertSampleSQL = `INSERT INTO pressure_samples (
        fixture_id,
        minute,
        press_home,
        press_away,
        press_total,
        press_diff,
        corners
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	latestSampleBeforeSQL = `SELECT
        fixture_id,
        minute,
        press_home,
        press_away,
        press_total,
        press_diff,
        corners,
        created_at
    FROM pressure_samples
    WHERE fixture_id = $1
      AND created_at <= $2
    ORDER BY created_at DESC
    LIMIT 1;`

	listSamplesBetweenSQL = `SELECT
        fixture_id,
        minute,
        press_home,
        press_away,
        press_total,
        press_diff,
        corners,
        created_at
    FROM pressure_samples
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ThresholdStore reads and replaces the singleton threshold set.
type ThresholdStore interface {
	Thresholds(ctx context.Context) (pressure.ThresholdSet, error)
	SaveThresholds(ctx context.Context, set pressure.ThresholdSet) error
}

// AlertLedger is the append-then-resolve record of issued alerts.
type AlertLedger interface {
	InsertAlert(ctx context.Context, record AlertRecord) (int64, error)
	ListUnresolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]AlertRecord, error)
	ResolveAlert(ctx context.Context, id int64, goalHappened bool) error
	OutcomeSummary(ctx context.Context, since time.Time) (tuning.Summary, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// SampleStore persists per-evaluation pressure observations.
type SampleStore interface {
	InsertSample(ctx context.Context, sample PressureSample) error
	LatestSampleBefore(ctx context.Context, fixtureID int64, cutoff time.Time) (*PressureSample, error)
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PressureSample, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to thresholds, the alert ledger, and samples.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Thresholds loads the singleton threshold row, substituting defaults when the
// row has never been written.
func (s *Store) Thresholds(ctx context.Context) (pressure.ThresholdSet, error) {
	pool, err := s.getPool()
	if err != nil {
		return pressure.ThresholdSet{}, err
	}

	var (
		totalStr  string
		diffStr   string
		corners   int
		updatedAt time.Time
	)
	scanErr := pool.QueryRow(ctx, selectThresholdsSQL).Scan(&totalStr, &diffStr, &corners, &updatedAt)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return pressure.DefaultThresholds(), nil
	}
	if scanErr != nil {
		return pressure.ThresholdSet{}, fmt.Errorf("select thresholds: %w", scanErr)
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return pressure.ThresholdSet{}, fmt.Errorf("parse press_total threshold: %w", err)
	}
	diff, err := decimal.NewFromString(diffStr)
	if err != nil {
		return pressure.ThresholdSet{}, fmt.Errorf("parse press_diff threshold: %w", err)
	}

	return pressure.ThresholdSet{
		PressTotal:   total,
		PressDiff:    diff,
		Corners10Min: corners,
		UpdatedAt:    updatedAt,
	}, nil
}

// SaveThresholds replaces the singleton threshold row and stamps updated_at.
// Concurrent writers race last-write-wins; thresholds drift slowly enough that
// a lost update self-corrects on the next adjustment cycle.
func (s *Store) SaveThresholds(ctx context.Context, set pressure.ThresholdSet) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertThresholdsSQL,
		set.PressTotal.String(),
		set.PressDiff.String(),
		set.Corners10Min,
	)
	if execErr != nil {
		return fmt.Errorf("upsert thresholds: %w", execErr)
	}
	return nil
}

// InsertAlert appends an unresolved ledger record and returns its id.
func (s *Store) InsertAlert(ctx context.Context, record AlertRecord) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var id int64
	scanErr := pool.QueryRow(ctx, insertAlertSQL,
		record.FixtureID,
		record.Minute,
		record.PressTotal.String(),
		record.PressDiff.String(),
		record.Corners,
		record.ShotsOnGoal,
		record.GoalsAtAlert,
	).Scan(&id)
	if scanErr != nil {
		return 0, fmt.Errorf("insert alert: %w", scanErr)
	}
	return id, nil
}

// ListUnresolvedBefore returns up to limit unresolved records created before
// the cutoff, oldest first.
func (s *Store) ListUnresolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listUnresolvedBeforeSQL, cutoff, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list unresolved alerts: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, limit)
}

// ResolveAlert transitions one unresolved record to its final outcome. The
// call is an idempotent no-op on a record that is already resolved: the
// stored outcome wins and retries succeed silently.
func (s *Store) ResolveAlert(ctx context.Context, id int64, goalHappened bool) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, resolveAlertSQL, id, goalHappened); execErr != nil {
		return fmt.Errorf("resolve alert: %w", execErr)
	}
	return nil
}

// OutcomeSummary aggregates resolved outcomes for records created since the
// given instant. Unresolved rows are excluded from every count.
func (s *Store) OutcomeSummary(ctx context.Context, since time.Time) (tuning.Summary, error) {
	pool, err := s.getPool()
	if err != nil {
		return tuning.Summary{}, err
	}

	var summary tuning.Summary
	scanErr := pool.QueryRow(ctx, outcomeSummarySQL, since).Scan(
		&summary.AlertsSent,
		&summary.GoalsConfirmed,
		&summary.DistinctMatches,
	)
	if scanErr != nil {
		return tuning.Summary{}, fmt.Errorf("aggregate outcomes: %w", scanErr)
	}
	return summary, nil
}

// ListRecentAlerts lists most recent ledger records.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, limit)
}

// InsertSample persists one match evaluation observation.
func (s *Store) InsertSample(ctx context.Context, sample PressureSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertSampleSQL,
		sample.FixtureID,
		sample.Minute,
		sample.PressHome.String(),
		sample.PressAway.String(),
		sample.PressTotal.String(),
		sample.PressDiff.String(),
		sample.Corners,
	)
	if execErr != nil {
		return fmt.Errorf("insert pressure sample: %w", execErr)
	}
	return nil
}

// LatestSampleBefore returns the most recent sample for a fixture at or
// before the cutoff, or nil when the fixture has no such sample.
func (s *Store) LatestSampleBefore(ctx context.Context, fixtureID int64, cutoff time.Time) (*PressureSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestSampleBeforeSQL, fixtureID, cutoff)
	if queryErr != nil {
		return nil, fmt.Errorf("latest sample before: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return nil, nil
	}

	sample, scanErr := scanSample(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	return &sample, rows.Err()
}

// ListSamplesBetween lists samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PressureSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]PressureSample, 0)
	for rows.Next() {
		sample, scanErr := scanSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func collectAlerts(rows pgx.Rows, capacity int) ([]AlertRecord, error) {
	if capacity < 0 {
		capacity = 0
	}
	records := make([]AlertRecord, 0, capacity)
	for rows.Next() {
		record, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanAlert(rows pgx.Rows) (AlertRecord, error) {
	var (
		record   AlertRecord
		totalStr string
		diffStr  string
	)

	if err := rows.Scan(
		&record.ID,
		&record.FixtureID,
		&record.Minute,
		&totalStr,
		&diffStr,
		&record.Corners,
		&record.ShotsOnGoal,
		&record.GoalsAtAlert,
		&record.GoalHappened,
		&record.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	record.PressTotal, convErr = decimal.NewFromString(totalStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse press total: %w", convErr)
	}
	record.PressDiff, convErr = decimal.NewFromString(diffStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse press diff: %w", convErr)
	}

	return record, nil
}

func scanSample(rows pgx.Rows) (PressureSample, error) {
	var (
		sample   PressureSample
		homeStr  string
		awayStr  string
		totalStr string
		diffStr  string
	)

	if err := rows.Scan(
		&sample.FixtureID,
		&sample.Minute,
		&homeStr,
		&awayStr,
		&totalStr,
		&diffStr,
		&sample.Corners,
		&sample.CreatedAt,
	); err != nil {
		return PressureSample{}, err
	}

	for _, conv := range []struct {
		dst  *decimal.Decimal
		src  string
		name string
	}{
		{&sample.PressHome, homeStr, "press home"},
		{&sample.PressAway, awayStr, "press away"},
		{&sample.PressTotal, totalStr, "press total"},
		{&sample.PressDiff, diffStr, "press diff"},
	} {
		value, convErr := decimal.NewFromString(conv.src)
		if convErr != nil {
			return PressureSample{}, fmt.Errorf("parse %s: %w", conv.name, convErr)
		}
		*conv.dst = value
	}

	return sample, nil
}
