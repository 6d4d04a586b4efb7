package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"pressure-alerts/internal/app"
)

var (
	simulateHomeAttacks int
	simulateHomeShots   int
	simulateHomeCorners int
	simulateAwayAttacks int
	simulateAwayShots   int
	simulateAwayCorners int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次压力评分并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateHomeAttacks < 0 || simulateAwayAttacks < 0 {
			return errors.New("统计数值不能为负数")
		}

		home := app.SimulatedTeam{
			Attacks: simulateHomeAttacks,
			Shots:   simulateHomeShots,
			Corners: simulateHomeCorners,
		}
		away := app.SimulatedTeam{
			Attacks: simulateAwayAttacks,
			Shots:   simulateAwayShots,
			Corners: simulateAwayCorners,
		}
		return getApp().SimulateAlert(cmd.Context(), home, away)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simulateHomeAttacks, "home-attacks", 0, "主队 Total attacks")
	simulateCmd.Flags().IntVar(&simulateHomeShots, "home-shots", 0, "主队 Shots on Goal")
	simulateCmd.Flags().IntVar(&simulateHomeCorners, "home-corners", 0, "主队 Corner Kicks")
	simulateCmd.Flags().IntVar(&simulateAwayAttacks, "away-attacks", 0, "客队 Total attacks")
	simulateCmd.Flags().IntVar(&simulateAwayShots, "away-shots", 0, "客队 Shots on Goal")
	simulateCmd.Flags().IntVar(&simulateAwayCorners, "away-corners", 0, "客队 Corner Kicks")
}
