package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent alert ledger records with their verified outcomes.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tFixture\tMin\tPressTotal\tPressDiff\tCorners\tShots\tGoals@Alert\tOutcome")

	for _, alert := range alerts {
		outcome := "pending"
		if alert.Resolved() {
			if *alert.GoalHappened {
				outcome = "goal"
			} else {
				outcome = "no goal"
			}
		}
		fmt.Fprintf(
			writer,
			"%s\t%d\t%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.FixtureID,
			alert.Minute,
			alert.PressTotal.StringFixed(1),
			alert.PressDiff.StringFixed(1),
			alert.Corners,
			alert.ShotsOnGoal,
			alert.GoalsAtAlert,
			outcome,
		)
	}

	writer.Flush()
	return nil
}
