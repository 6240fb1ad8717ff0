package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var findDuplicatesCmd = &cobra.Command{
	Use:   "find-duplicates",
	Short: "Find object ids claimed by multiple issues",
	Long: `Sweep the store for uids anchored by two or more live issues. Such
groups need reconciliation with deduplicate before reads are reliable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		duplicates, err := s.FindDuplicates(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(duplicates)
			return nil
		}
		if len(duplicates) == 0 {
			fmt.Println(ui.RenderPass(ui.IconPass + " no duplicates"))
			return nil
		}
		ids := make([]string, 0, len(duplicates))
		for id := range duplicates {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("%s %s anchored by issues %v\n", ui.RenderWarn(ui.IconWarn), ui.RenderAccent(id), duplicates[id])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findDuplicatesCmd)
}
