package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"pressure-alerts/internal/service"
)

// MonitorOnce executes a single monitoring cycle and returns.
func (a *App) MonitorOnce(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot run a monitoring cycle")
	}
	if closeStore != nil {
		defer closeStore()
	}

	matchFeed := a.newFeed()
	verifier := a.newVerifier(matchFeed, store)
	svc := service.New(a.Config, matchFeed, store, store, store, a.newNotifier(), verifier, a.Logger)

	bucket := time.Now().UTC().Truncate(a.Config.Scheduler.Interval)
	return svc.ProcessCycle(ctx, bucket)
}

// VerifyOnce runs one outcome verification batch and reports the result.
func (a *App) VerifyOnce(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot verify outcomes")
	}
	if closeStore != nil {
		defer closeStore()
	}

	verifier := a.newVerifier(a.newFeed(), store)
	stats, err := verifier.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "candidates: %d\nresolved: %d\ngoals confirmed: %d\nskipped: %d\n",
		stats.Candidates, stats.Resolved, stats.GoalsConfirmed, stats.Skipped)
	return nil
}

// Adjust runs one threshold adjustment pass and prints both the current and
// recommended sets.
func (a *App) Adjust(ctx context.Context, opts AdjustOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot adjust thresholds")
	}
	if closeStore != nil {
		defer closeStore()
	}

	adjuster := service.NewAdjuster(store, store, a.Config.Adjuster.TrailingWindow, a.Logger)
	rec, err := adjuster.Run(ctx, opts.DryRun)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alerts sent: %d\ngoals confirmed: %d\naccuracy: %s%%\nfactor: %s\n",
		rec.Summary.AlertsSent, rec.Summary.GoalsConfirmed, rec.Accuracy.StringFixed(1), rec.Factor.String())
	fmt.Fprintf(os.Stdout, "current:     total=%s diff=%s corners=%d\n",
		rec.Current.PressTotal.String(), rec.Current.PressDiff.String(), rec.Current.Corners10Min)
	fmt.Fprintf(os.Stdout, "recommended: total=%s diff=%s corners=%d\n",
		rec.Recommended.PressTotal.String(), rec.Recommended.PressDiff.String(), rec.Recommended.Corners10Min)

	switch {
	case !rec.Changed():
		fmt.Fprintln(os.Stdout, "thresholds unchanged")
	case opts.DryRun:
		fmt.Fprintln(os.Stdout, "dry-run: recommendation not persisted")
	default:
		fmt.Fprintln(os.Stdout, "thresholds updated")
	}
	return nil
}

// Thresholds prints the current threshold set.
func (a *App) Thresholds(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot read thresholds")
	}
	if closeStore != nil {
		defer closeStore()
	}

	set, err := store.Thresholds(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "press total:  %s\npress diff:   %s\ncorners 10min: %d\n",
		set.PressTotal.String(), set.PressDiff.String(), set.Corners10Min)
	if !set.UpdatedAt.IsZero() {
		fmt.Fprintf(os.Stdout, "updated at:   %s\n", set.UpdatedAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(os.Stdout, "updated at:   never (defaults)")
	}
	return nil
}
