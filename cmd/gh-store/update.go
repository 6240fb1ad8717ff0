package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/envelope"
	"github.com/dmarx/gh-store/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:   "update <object-id> <json|@file|->",
	Short: "Queue an update for an object",
	Long: `Post an update envelope on the object's canonical anchor and reopen it.

The update is not merged immediately: it stays queued until a process
cycle runs (gh-store process-updates, typically from a webhook job).
By default updates merge recursively into the current state; --replace
makes the payload the entire new state.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		replace, _ := cmd.Flags().GetBool("replace")

		changes, err := readDataArg(args[1])
		if err != nil {
			return err
		}
		s, err := newStore()
		if err != nil {
			return err
		}
		mode := envelope.ModeAppend
		if replace {
			mode = envelope.ModeReplace
		}
		obj, err := s.Update(cmd.Context(), args[0], changes, mode)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(obj)
			return nil
		}
		fmt.Printf("%s update queued on issue #%d; state changes after the next process cycle\n",
			ui.RenderPass(ui.IconPass), obj.Meta.IssueNumber)
		return nil
	},
}

func init() {
	updateCmd.Flags().Bool("replace", false, "Replace the whole state instead of merging")
	rootCmd.AddCommand(updateCmd)
}
