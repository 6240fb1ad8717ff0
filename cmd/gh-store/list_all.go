package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/store"
	"github.com/dmarx/gh-store/internal/ui"
)

var listAllCmd = &cobra.Command{
	Use:   "list-all",
	Short: "List every live object",
	Long:  `List all objects in the store, keyed by id. Archived objects, aliases, and deprecated duplicates are excluded.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		objects, err := s.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		printObjectListing(objects)
		return nil
	},
}

func printObjectListing(objects map[string]*store.Object) {
	if jsonOutput {
		outputJSON(objects)
		return
	}
	if len(objects) == 0 {
		fmt.Println(ui.RenderMuted("no objects"))
		return
	}
	ids := make([]string, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		obj := objects[id]
		fmt.Printf("%s  %s  v%d  updated %s\n",
			ui.RenderAccent(id),
			ui.RenderMuted(fmt.Sprintf("#%d", obj.Meta.IssueNumber)),
			obj.Meta.Version,
			obj.Meta.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func init() {
	rootCmd.AddCommand(listAllCmd)
}
