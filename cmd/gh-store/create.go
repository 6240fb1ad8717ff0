package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var createCmd = &cobra.Command{
	Use:   "create <object-id> <json|@file|->",
	Short: "Create a new stored object",
	Long: `Create a new object anchored to a fresh issue.

The payload is a JSON object given inline, via @file, or - for stdin:

  gh-store create metrics '{"value": 42}'
  gh-store create metrics @seed.json
  cat seed.json | gh-store create metrics -`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readDataArg(args[1])
		if err != nil {
			return err
		}
		s, err := newStore()
		if err != nil {
			return err
		}
		obj, err := s.Create(cmd.Context(), args[0], data)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(obj)
			return nil
		}
		fmt.Printf("%s created %s (issue #%d)\n", ui.RenderPass(ui.IconPass), obj.Meta.ObjectID, obj.Meta.IssueNumber)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
