// gh-store turns a GitHub repository's issues into a durable JSON object
// store: issue bodies hold object state, comments hold the update log,
// labels encode identity, reactions mark consumption.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/config"
	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/gateway/github"
	"github.com/dmarx/gh-store/internal/store"
	"github.com/dmarx/gh-store/internal/telemetry"
	"github.com/dmarx/gh-store/internal/ui"
	"github.com/dmarx/gh-store/internal/version"
)

var (
	repoFlag    string
	tokenFlag   string
	configFlag  string
	jsonOutput  bool
	verboseFlag bool

	cfg *config.Config
)

// errUsage marks command-line mistakes so main can exit 2 instead of 1.
var errUsage = errors.New("usage error")

var rootCmd = &cobra.Command{
	Use:   "gh-store",
	Short: "Use GitHub Issues as a durable JSON object store",
	Long: `gh-store stores JSON objects in a GitHub repository's issues.

Each object is anchored to one issue: the body is the current state,
update comments form an ordered log, labels encode identity and role,
and reactions mark which updates have been consumed.

Objects are created, updated, and processed through this CLI; a typical
deployment runs process-updates from a webhook-triggered CI job.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug.SetVerbose(verboseFlag)
		loaded, err := config.Load(configFlag)
		if err != nil {
			return err
		}
		cfg = loaded
		if repoFlag == "" {
			repoFlag = os.Getenv("GH_STORE_REPO")
		}
		if repoFlag == "" {
			repoFlag = config.Repository(cfg.Path)
		}
		if err := telemetry.Init(cmd.Context(), "gh-store", version.Version); err != nil {
			debug.Warnf("telemetry init failed: %v", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Target repository as owner/name (default: $GH_STORE_REPO or config)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "API token (default: $GH_STORE_TOKEN or $GITHUB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file path (default: auto-discover .ghstore/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
}

// newStore builds the store bound to the configured repository.
func newStore() (*store.Store, error) {
	if repoFlag == "" {
		return nil, fmt.Errorf("%w: no repository: set --repo, $GH_STORE_REPO, or repository: in the config file", errUsage)
	}
	owner, name, err := config.SplitRepo(repoFlag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	token, err := config.ResolveToken(tokenFlag)
	if err != nil {
		return nil, err
	}

	gw := github.New(owner, name, token).
		WithRetryPolicy(cfg.Store.Retries.MaxAttempts, cfg.Store.Retries.BackoffFactor)

	return store.New(gw, store.Options{
		BaseLabel:            cfg.Store.BaseLabel,
		UIDPrefix:            cfg.Store.UIDPrefix,
		ProcessedReaction:    cfg.Store.Reactions.Processed,
		InitialStateReaction: cfg.Store.Reactions.InitialState,
	}), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			outputJSONError(err)
		}
		fmt.Fprintln(os.Stderr, ui.RenderFail(ui.IconFail+" "+err.Error()))
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
