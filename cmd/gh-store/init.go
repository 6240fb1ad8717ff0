package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmarx/gh-store/internal/config"
	"github.com/dmarx/gh-store/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a .ghstore/config.yml with the default settings. On a terminal,
missing values are asked for interactively; otherwise flags and
defaults are used as-is. The API token is never written to the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		repo, _ := cmd.Flags().GetString("repo-slug")
		baseLabel, _ := cmd.Flags().GetString("base-label")
		promptToken, _ := cmd.Flags().GetBool("prompt-token")

		if repo == "" {
			repo = repoFlag
		}

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		if interactive && repo == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Repository").
					Description("owner/name of the repository that will hold the store").
					Value(&repo),
				huh.NewInput().
					Title("Base label").
					Description("label marking store issues (empty for stored-object)").
					Value(&baseLabel),
			))
			if err := form.Run(); err != nil {
				return fmt.Errorf("init form: %w", err)
			}
		}

		if err := config.WriteDefault(path, repo, baseLabel); err != nil {
			return err
		}
		fmt.Printf("%s wrote %s\n", ui.RenderPass(ui.IconPass), path)

		if promptToken {
			fmt.Fprint(os.Stderr, "API token (input hidden): ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			if len(raw) > 0 {
				// Tokens stay out of the config file; hand the caller a
				// shell line instead.
				fmt.Printf("export GH_STORE_TOKEN=%s\n", string(raw))
			}
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("path", filepath.Join(".ghstore", "config.yml"), "Where to write the config file")
	initCmd.Flags().String("repo-slug", "", "Repository owner/name to record in the config")
	initCmd.Flags().String("base-label", "", "Base label override")
	initCmd.Flags().Bool("prompt-token", false, "Prompt for an API token and print an export line")
	rootCmd.AddCommand(initCmd)
}
