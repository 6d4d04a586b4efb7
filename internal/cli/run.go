package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Execute a single monitoring cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().MonitorOnce(cmd.Context())
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run one outcome verification batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().VerifyOnce(cmd.Context())
	},
}
