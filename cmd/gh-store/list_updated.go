package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/timeparsing"
)

var listUpdatedCmd = &cobra.Command{
	Use:   "list-updated",
	Short: "List objects updated since a point in time",
	Long: `List objects whose consumed state changed after the given time.

--since accepts a compact duration (-1d, -6h), natural language
("yesterday", "2 days ago"), or an absolute timestamp (RFC 3339 or
YYYY-MM-DD):

  gh-store list-updated --since -1d
  gh-store list-updated --since "last monday"
  gh-store list-updated --since 2025-06-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceExpr, _ := cmd.Flags().GetString("since")
		if sinceExpr == "" {
			return fmt.Errorf("%w: --since is required", errUsage)
		}
		since, err := timeparsing.Parse(sinceExpr, time.Now())
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}

		s, err := newStore()
		if err != nil {
			return err
		}
		objects, err := s.ListUpdatedSince(cmd.Context(), since)
		if err != nil {
			return err
		}
		printObjectListing(objects)
		return nil
	},
}

func init() {
	listUpdatedCmd.Flags().String("since", "", "Time expression (duration, phrase, or timestamp)")
	rootCmd.AddCommand(listUpdatedCmd)
}
