package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmarx/gh-store/internal/gateway"
	"github.com/dmarx/gh-store/internal/labels"
	"github.com/dmarx/gh-store/internal/lockfile"
)

// snapshotReadConcurrency bounds parallel object reads during a snapshot.
// Each read costs two tracker requests; the bound keeps a large store
// from burning the rate limit in one burst.
const snapshotReadConcurrency = 4

// Snapshot is the file format written by snapshot and update-snapshot: a
// point-in-time export of every live object.
type Snapshot struct {
	SnapshotTime time.Time                 `json:"snapshot_time"`
	Repository   string                    `json:"repository"`
	Objects      map[string]SnapshotObject `json:"objects"`
}

// SnapshotObject is one object's entry in a snapshot file.
type SnapshotObject struct {
	Data map[string]any `json:"data"`
	Meta SnapshotMeta   `json:"meta"`
}

// SnapshotMeta is the object metadata persisted in snapshot files. The
// issue number is deliberately omitted: snapshots are consumed away from
// the tracker.
type SnapshotMeta struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// BuildSnapshot exports every live object. Object bodies are read with
// bounded concurrency; the result is keyed by object id and therefore
// deterministic regardless of read order.
func (s *Store) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	issues, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: []string{s.codec.Base()},
		State:  gateway.StateClosed,
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects for snapshot: %w", err)
	}

	snap := &Snapshot{
		SnapshotTime: time.Now().UTC(),
		Repository:   s.gw.Repo(),
		Objects:      map[string]SnapshotObject{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotReadConcurrency)
	for _, issue := range issues {
		if issue.HasLabel(labels.Archived) || issue.HasLabel(labels.Alias) || issue.HasLabel(labels.Deprecated) {
			continue
		}
		g.Go(func() error {
			obj, err := s.readObject(gctx, issue)
			if err != nil {
				if errors.Is(err, labels.ErrNoUIDLabel) {
					return nil
				}
				return err
			}
			mu.Lock()
			snap.Objects[obj.Meta.ObjectID] = SnapshotObject{
				Data: obj.Data,
				Meta: SnapshotMeta{
					CreatedAt: obj.Meta.CreatedAt,
					UpdatedAt: obj.Meta.UpdatedAt,
					Version:   obj.Meta.Version,
				},
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// WriteSnapshot exports the store to path. The write takes an advisory
// file lock and goes through a temp-file rename, so concurrent local
// writers cannot interleave and readers never observe a torn file.
func (s *Store) WriteSnapshot(ctx context.Context, path string) (*Snapshot, error) {
	snap, err := s.BuildSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeSnapshotFile(path, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// UpdateSnapshot refreshes an existing snapshot file in place: objects
// updated since the file's snapshot_time are re-fetched and replaced,
// everything else is kept. Returns the number of refreshed entries; when
// nothing changed the file is left untouched.
func (s *Store) UpdateSnapshot(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return 0, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if snap.SnapshotTime.IsZero() {
		return 0, fmt.Errorf("snapshot %s has no snapshot_time: %w", path, ErrStore)
	}

	updated, err := s.ListUpdatedSince(ctx, snap.SnapshotTime)
	if err != nil {
		return 0, err
	}
	if len(updated) == 0 {
		return 0, nil
	}

	if snap.Objects == nil {
		snap.Objects = map[string]SnapshotObject{}
	}
	for id, obj := range updated {
		snap.Objects[id] = SnapshotObject{
			Data: obj.Data,
			Meta: SnapshotMeta{
				CreatedAt: obj.Meta.CreatedAt,
				UpdatedAt: obj.Meta.UpdatedAt,
				Version:   obj.Meta.Version,
			},
		}
	}
	snap.SnapshotTime = time.Now().UTC()
	snap.Repository = s.gw.Repo()

	if err := writeSnapshotFile(path, &snap); err != nil {
		return 0, err
	}
	return len(updated), nil
}

// IDs returns the snapshot's object ids, sorted.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.Objects))
	for id := range s.Objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func writeSnapshotFile(path string, snap *Snapshot) error {
	release, err := lockfile.Lock(path + ".lock")
	if err != nil {
		return fmt.Errorf("locking snapshot %s: %w", path, err)
	}
	defer release()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot %s: %w", path, err)
	}
	return nil
}
