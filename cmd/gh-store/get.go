package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <object-id>",
	Short: "Fetch one object's current state",
	Long: `Fetch an object by id. Reading through an alias returns the canonical
object, canonical id included.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath, _ := cmd.Flags().GetString("output")

		s, err := newStore()
		if err != nil {
			return err
		}
		obj, err := s.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if outputPath != "" {
			data, err := json.MarshalIndent(obj, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding object: %w", err)
			}
			if err := os.WriteFile(outputPath, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outputPath, err)
			}
			return nil
		}
		outputJSON(obj)
		return nil
	},
}

func init() {
	getCmd.Flags().StringP("output", "o", "", "Write the object to a file instead of stdout")
	rootCmd.AddCommand(getCmd)
}
