package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var updateSnapshotCmd = &cobra.Command{
	Use:   "update-snapshot <path>",
	Short: "Refresh an existing snapshot file",
	Long: `Re-fetch only the objects updated since the file's snapshot_time and
rewrite the file. When nothing changed the file is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		refreshed, err := s.UpdateSnapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]any{"path": args[0], "refreshed": refreshed})
			return nil
		}
		if refreshed == 0 {
			fmt.Println(ui.RenderMuted("snapshot already up to date"))
			return nil
		}
		fmt.Printf("%s refreshed %d object(s) in %s\n", ui.RenderPass(ui.IconPass), refreshed, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateSnapshotCmd)
}
