package main

import (
	"github.com/spf13/cobra"

	"github.com/ternarybob/reperio/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Version has no use for the runtime startup sequence
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("reperio %s\n", common.GetFullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
