package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/store"
	"github.com/dmarx/gh-store/internal/ui"
)

var watchSnapshotCmd = &cobra.Command{
	Use:   "watch-snapshot <path>",
	Short: "Re-render a snapshot listing whenever the file changes",
	Long: `Watch a local snapshot file and reprint its object listing on every
change. Pairs with a periodic update-snapshot job for a live local view
of the store. Runs until interrupted. Needs no token or repository.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := printSnapshotListing(path); err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer watcher.Close()

		// Watch the directory: editors and the snapshot writer itself
		// replace the file by rename, which drops a file-level watch.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
		}

		target, _ := filepath.Abs(path)
		// Debounce: a rename-based write fires several events.
		var pending *time.Timer
		rerender := make(chan struct{}, 1)

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-rerender:
				if err := printSnapshotListing(path); err != nil {
					debug.Warnf("could not render %s: %v", path, err)
				}
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				name, _ := filepath.Abs(event.Name)
				if name != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(200*time.Millisecond, func() {
					select {
					case rerender <- struct{}{}:
					default:
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				debug.Warnf("watch error: %v", err)
			}
		}
	},
}

func printSnapshotListing(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", path, err)
	}

	fmt.Printf("%s %s — %d object(s) as of %s\n",
		ui.RenderCategory("snapshot"),
		ui.RenderAccent(snap.Repository),
		len(snap.Objects),
		snap.SnapshotTime.Format("2006-01-02 15:04:05"))
	for _, id := range snap.IDs() {
		entry := snap.Objects[id]
		fmt.Printf("  %s  v%d  updated %s\n",
			ui.RenderAccent(id),
			entry.Meta.Version,
			ui.RenderMuted(entry.Meta.UpdatedAt.Format("2006-01-02 15:04")))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(watchSnapshotCmd)
}
