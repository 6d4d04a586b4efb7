package app

import (
	"context"
	"errors"

	"pressure-alerts/internal/alerting"
	"pressure-alerts/internal/pressure"
)

// SimulatedTeam 描述模拟统计输入的单支球队。
type SimulatedTeam struct {
	Attacks int
	Shots   int
	Corners int
}

// SimulateAlert 通过给定的统计数据模拟一次评分与告警流程。 The synthetic
// snapshot runs through the real scorer and policy against the default
// threshold set, then dispatches the configured notifier.
func (a *App) SimulateAlert(ctx context.Context, home, away SimulatedTeam) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	snapshot := pressure.Snapshot{
		syntheticTeam("Home", home),
		syntheticTeam("Away", away),
	}

	metrics, err := pressure.Score(snapshot)
	if err != nil {
		return err
	}

	thresholds := pressure.DefaultThresholds()
	verdict := pressure.Decide(metrics, thresholds, pressure.PolicyInput{
		ShotsMode:     pressure.ShotsMode(a.Config.Monitor.ShotsMode),
		RecentCorners: metrics.CornersHome + metrics.CornersAway,
	})

	a.Logger.Info().
		Str("press_total", metrics.PressTotal.String()).
		Str("press_diff", metrics.PressDiff.String()).
		Bool("alert", verdict.Alert).
		Msg("simulated evaluation")

	if !verdict.Alert {
		a.Logger.Info().Msg("模拟输入未触发告警")
		return nil
	}

	note := alerting.Notification{
		Home:          "Home (simulated)",
		Away:          "Away (simulated)",
		Metrics:       metrics,
		Thresholds:    thresholds,
		Verdict:       verdict,
		RecentCorners: metrics.CornersHome + metrics.CornersAway,
		Channels:      a.Config.Alerting.Channels,
		AdditionalMsg: "simulated alert",
	}
	return notifier.Notify(ctx, note)
}

func syntheticTeam(name string, team SimulatedTeam) pressure.TeamStatistics {
	return pressure.TeamStatistics{
		TeamName: name,
		Statistics: []pressure.Statistic{
			{Name: "Total attacks", Value: pressure.IntValue(team.Attacks)},
			{Name: "Shots on Goal", Value: pressure.IntValue(team.Shots)},
			{Name: "Corner Kicks", Value: pressure.IntValue(team.Corners)},
		},
	}
}
