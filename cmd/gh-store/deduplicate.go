package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var deduplicateCmd = &cobra.Command{
	Use:   "deduplicate <object-id>",
	Short: "Reconcile duplicate anchors for one object id",
	Long: `Elect one canonical issue for an object id claimed by multiple issues
and deprecate the rest. The oldest issue wins unless --canonical names
another member of the group. Deprecated issues keep their history but
give up the uid label.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		canonical, _ := cmd.Flags().GetInt("canonical")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			confirmed, err := confirmDedup(args[0])
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(ui.RenderMuted("aborted"))
				return nil
			}
		}

		s, err := newStore()
		if err != nil {
			return err
		}
		report, err := s.Deduplicate(cmd.Context(), args[0], canonical)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(report)
			return nil
		}
		fmt.Printf("%s %s: issue #%d is canonical; deprecated %v\n",
			ui.RenderPass(ui.IconPass), report.ObjectID, report.CanonicalIssue, report.DeprecatedIssues)
		return nil
	},
}

func confirmDedup(id string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Deduplicate %q?", id)).
			Description("Losing issues are deprecated and stop answering lookups. This is not undone automatically.").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation: %w", err)
	}
	return confirmed, nil
}

func init() {
	deduplicateCmd.Flags().Int("canonical", 0, "Issue number to elect as canonical (default: oldest)")
	deduplicateCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deduplicateCmd)
}
