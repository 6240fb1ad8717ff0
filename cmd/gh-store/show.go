package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/store"
	"github.com/dmarx/gh-store/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <object-id>",
	Short: "Show an object as a readable summary",
	Long:  `Render one object's metadata, data, and recent history as markdown for human reading. Use get for machine output.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")

		s, err := newStore()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		obj, err := s.Get(ctx, args[0])
		if err != nil {
			return err
		}
		entries, err := s.History(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Print(ui.RenderMarkdown(renderObjectMarkdown(obj, entries, full)))
		return nil
	},
}

func renderObjectMarkdown(obj *store.Object, entries []store.HistoryEntry, full bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", obj.Meta.ObjectID)
	fmt.Fprintf(&b, "- **issue**: #%d\n", obj.Meta.IssueNumber)
	fmt.Fprintf(&b, "- **version**: %d\n", obj.Meta.Version)
	fmt.Fprintf(&b, "- **created**: %s\n", obj.Meta.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **updated**: %s\n\n", obj.Meta.UpdatedAt.Format("2006-01-02 15:04:05 MST"))

	data, err := json.MarshalIndent(obj.Data, "", "  ")
	if err == nil {
		body := string(data)
		if !full {
			body = ui.TruncateLines(body, ui.DefaultMaxLines, 5)
		}
		fmt.Fprintf(&b, "## Data\n\n```json\n%s\n```\n\n", body)
	}

	if len(entries) > 0 {
		fmt.Fprintf(&b, "## History (%d entries)\n\n", len(entries))
		shown := entries
		if !full && len(shown) > 5 {
			shown = shown[len(shown)-5:]
			fmt.Fprintf(&b, "_showing the last %d; use --full for all_\n\n", len(shown))
		}
		for _, e := range shown {
			fmt.Fprintf(&b, "- `%s` **%s**\n", e.Timestamp.Format("2006-01-02 15:04"), e.Type)
		}
	}
	return b.String()
}

func init() {
	showCmd.Flags().Bool("full", false, "Show the complete data and history")
	rootCmd.AddCommand(showCmd)
}
