package cli

import (
	"github.com/spf13/cobra"

	"pressure-alerts/internal/app"
)

var adjustDryRun bool

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Run one threshold adjustment pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AdjustOptions{
			DryRun: adjustDryRun,
		}
		return getApp().Adjust(cmd.Context(), opts)
	},
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Display the current threshold set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Thresholds(cmd.Context())
	},
}

func init() {
	adjustCmd.Flags().BoolVar(&adjustDryRun, "dry-run", false, "Compute the recommendation without persisting it")
}
