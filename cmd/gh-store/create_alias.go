package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var createAliasCmd = &cobra.Command{
	Use:   "create-alias <canonical-id> <alias-id>",
	Short: "Make an id an alias for an existing object",
	Long: `Create an alias: reads and updates through the alias id are routed to
the canonical object. The alias gets its own anchor issue carrying only
routing labels; the canonical issue keeps the data.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		obj, err := s.CreateAlias(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(map[string]any{
				"canonical_id": obj.Meta.ObjectID,
				"alias_id":     args[1],
				"canonical":    obj,
			})
			return nil
		}
		fmt.Printf("%s %s is now an alias of %s (issue #%d)\n",
			ui.RenderPass(ui.IconPass), args[1], obj.Meta.ObjectID, obj.Meta.IssueNumber)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAliasCmd)
}
