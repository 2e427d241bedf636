package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		if getVersionInfo != nil {
			version, commit, date := getVersionInfo()
			fmt.Printf("yellowstone-kql version %s (commit: %s, built: %s)\n", version, commit, date)
			return
		}
		fmt.Println("yellowstone-kql version dev (commit: unknown, built: unknown)")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
