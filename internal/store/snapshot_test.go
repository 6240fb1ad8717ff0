package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestBuildSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"alpha", "beta"} {
		if _, err := s.Create(ctx, id, map[string]any{"id": id}); err != nil {
			t.Fatalf("Create(%q): %v", id, err)
		}
	}
	if _, err := s.Create(ctx, "gone", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	snap, err := s.BuildSnapshot(ctx)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if snap.Repository != s.Repo() {
		t.Errorf("repository = %q, want %q", snap.Repository, s.Repo())
	}
	if snap.SnapshotTime.IsZero() {
		t.Error("snapshot time not stamped")
	}
	if got := snap.IDs(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("ids = %v, want the live objects only", got)
	}
	obj := snap.Objects["alpha"]
	if !reflect.DeepEqual(obj.Data, map[string]any{"id": "alpha"}) {
		t.Errorf("alpha data = %v", obj.Data)
	}
	if obj.Meta.Version == 0 {
		t.Error("object meta missing version")
	}
}

func TestBuildSnapshotExcludesAliases(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "canon", map[string]any{"v": 1.0}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.CreateAlias(ctx, "canon", "nick"); err != nil {
		t.Fatalf("CreateAlias: %v", err)
	}

	snap, err := s.BuildSnapshot(ctx)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if got := snap.IDs(); !reflect.DeepEqual(got, []string{"canon"}) {
		t.Errorf("ids = %v; aliases hold no state and stay out of snapshots", got)
	}
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "alpha", map[string]any{"v": 1.0}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	written, err := s.WriteSnapshot(ctx, path)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading snapshot file: %v", err)
	}
	var loaded Snapshot
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatalf("parsing snapshot file: %v", err)
	}
	if !reflect.DeepEqual(loaded.IDs(), written.IDs()) {
		t.Errorf("file ids = %v, want %v", loaded.IDs(), written.IDs())
	}
	if !reflect.DeepEqual(loaded.Objects["alpha"].Data, map[string]any{"v": 1.0}) {
		t.Errorf("alpha data = %v", loaded.Objects["alpha"].Data)
	}
}

func TestUpdateSnapshotNoChanges(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "alpha", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if _, err := s.WriteSnapshot(ctx, path); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.UpdateSnapshot(ctx, path)
	if err != nil {
		t.Fatalf("UpdateSnapshot: %v", err)
	}
	if n != 0 {
		t.Errorf("refreshed %d objects, want 0", n)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("file rewritten despite no changes")
	}
}

func TestUpdateSnapshotRefreshes(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	obj, err := s.Create(ctx, "alpha", map[string]any{"v": 2.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A snapshot taken before this object's last change, carrying a stale
	// entry and an object that has since disappeared from the store.
	stale := Snapshot{
		SnapshotTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Repository:   s.Repo(),
		Objects: map[string]SnapshotObject{
			"alpha":     {Data: map[string]any{"v": 1.0}, Meta: SnapshotMeta{Version: 1}},
			"untouched": {Data: map[string]any{"kept": true}, Meta: SnapshotMeta{Version: 3}},
		},
	}
	path := filepath.Join(t.TempDir(), "snapshot.json")
	raw, err := json.Marshal(stale)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := s.UpdateSnapshot(ctx, path)
	if err != nil {
		t.Fatalf("UpdateSnapshot: %v", err)
	}
	if n != 1 {
		t.Errorf("refreshed %d objects, want 1", n)
	}

	var loaded Snapshot
	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &loaded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Objects["alpha"].Data, map[string]any{"v": 2.0}) {
		t.Errorf("alpha data = %v, want refreshed state", loaded.Objects["alpha"].Data)
	}
	// Objects absent from the store keep their old entry; a partial
	// refresh never loses data.
	if !reflect.DeepEqual(loaded.Objects["untouched"].Data, map[string]any{"kept": true}) {
		t.Errorf("untouched entry = %v", loaded.Objects["untouched"])
	}
	if !loaded.SnapshotTime.After(stale.SnapshotTime) {
		t.Error("snapshot time not advanced")
	}
	if loaded.Objects["alpha"].Meta.Version <= obj.Meta.Version {
		t.Errorf("alpha version = %d, want re-derived from the comment log", loaded.Objects["alpha"].Meta.Version)
	}
}

func TestUpdateSnapshotRejectsMissingTime(t *testing.T) {
	s, _ := newTestStore(t)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(`{"objects": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateSnapshot(context.Background(), path); err == nil {
		t.Fatal("UpdateSnapshot accepted a file with no snapshot_time")
	}
}
