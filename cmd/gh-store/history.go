package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history <object-id>",
	Short: "Show an object's full update history",
	Long: `List every update in the object's log in order: the initial state,
user updates, and system bookkeeping entries. History read through an
alias shows the canonical anchor's log.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore()
		if err != nil {
			return err
		}
		entries, err := s.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(entries)
			return nil
		}
		for _, e := range entries {
			data, _ := json.Marshal(e.Data)
			fmt.Printf("%s  %s  %s\n",
				ui.RenderMuted(e.Timestamp.Format("2006-01-02 15:04:05")),
				ui.RenderAccent(fmt.Sprintf("%-22s", e.Type)),
				string(data))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
