package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gh-store version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{"version": version.Version})
			return
		}
		fmt.Printf("gh-store %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
