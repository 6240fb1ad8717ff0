package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var ensureLabelsCmd = &cobra.Command{
	Use:   "ensure-labels",
	Short: "Create the store's labels in the repository",
	Long: `Create the base label and the role labels (canonical-object,
alias-object, deprecated-object, archived) with their standard colors.
Safe to re-run; existing labels are left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		if err := s.EnsureLabels(cmd.Context()); err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]string{"status": "ok"})
			return nil
		}
		fmt.Println(ui.RenderPass(ui.IconPass + " labels ready"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ensureLabelsCmd)
}
