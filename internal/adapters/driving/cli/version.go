package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("teams-portal %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
