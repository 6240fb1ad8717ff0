package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <object-id>",
	Short: "Archive an object",
	Long: `Archive (soft-delete) an object. The anchor issue is labeled archived
and leaves every listing; its comment history stays on the tracker.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		if err := s.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"object_id": args[0], "status": "archived"})
			return nil
		}
		fmt.Printf("%s archived %s\n", ui.RenderPass(ui.IconPass), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
