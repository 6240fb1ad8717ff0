package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var findAliasesCmd = &cobra.Command{
	Use:   "find-aliases [object-id...]",
	Short: "List alias relationships",
	Long:  `List alias → canonical pairs. With object ids, only relationships touching those ids are shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		pairs, err := s.FindAliases(cmd.Context(), args...)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(pairs)
			return nil
		}
		if len(pairs) == 0 {
			fmt.Println(ui.RenderMuted("no aliases"))
			return nil
		}
		for _, p := range pairs {
			fmt.Printf("%s %s %s  %s\n",
				ui.RenderAccent(p.AliasID),
				ui.RenderMuted("→"),
				ui.RenderAccent(p.CanonicalID),
				ui.RenderMuted(fmt.Sprintf("(#%d → #%d)", p.AliasIssue, p.CanonicalNum)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findAliasesCmd)
}
