package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export all objects to a snapshot file",
	Long: `Write a point-in-time export of every live object to a JSON file.
Refresh it later with update-snapshot instead of re-exporting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath, _ := cmd.Flags().GetString("output")

		s, err := newStore()
		if err != nil {
			return err
		}
		snap, err := s.WriteSnapshot(cmd.Context(), outputPath)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]any{
				"path":          outputPath,
				"object_count":  len(snap.Objects),
				"snapshot_time": snap.SnapshotTime,
			})
			return nil
		}
		fmt.Printf("%s wrote %d object(s) to %s\n", ui.RenderPass(ui.IconPass), len(snap.Objects), outputPath)
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringP("output", "o", "snapshot.json", "Snapshot file path")
	rootCmd.AddCommand(snapshotCmd)
}
