package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var processUpdatesCmd = &cobra.Command{
	Use:   "process-updates <issue-number>",
	Short: "Run one process cycle on an issue",
	Long: `Consume the unprocessed authorized updates on an anchor issue: merge
them into the body in timestamp order, mark them processed, and close
the issue. Processing an alias issue redirects to its canonical anchor.

Typically run by a CI job reacting to issue webhooks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil || number <= 0 {
			return fmt.Errorf("%w: issue number must be a positive integer, got %q", errUsage, args[0])
		}
		s, err := newStore()
		if err != nil {
			return err
		}
		obj, err := s.ProcessUpdates(cmd.Context(), number)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(obj)
			return nil
		}
		fmt.Printf("%s processed %s (issue #%d, now v%d)\n",
			ui.RenderPass(ui.IconPass), obj.Meta.ObjectID, obj.Meta.IssueNumber, obj.Meta.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processUpdatesCmd)
}
