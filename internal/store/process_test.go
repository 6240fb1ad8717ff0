package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/dmarx/gh-store/internal/envelope"
)

// encodeUpdate builds an update comment body with an explicit envelope
// timestamp, so tests control replay order independent of arrival order.
func encodeUpdate(t *testing.T, data map[string]any, mode envelope.Mode, ts time.Time) string {
	t.Helper()
	env := envelope.Envelope{
		Data: data,
		Meta: envelope.Meta{
			ClientVersion: "test",
			Timestamp:     ts.UTC().Format(time.RFC3339),
			UpdateMode:    mode,
		},
	}
	body, err := env.Encode()
	if err != nil {
		t.Fatalf("encoding update envelope: %v", err)
	}
	return body
}

func TestUpdateReopensAnchor(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	obj, err := s.Update(ctx, "metrics", map[string]any{"count": 2.0}, "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	// Update stages the change; the returned object is the last persisted
	// state, untouched until a process cycle runs.
	if !reflect.DeepEqual(obj.Data, map[string]any{"count": 1.0}) {
		t.Errorf("data after staging = %v, want the pre-update state", obj.Data)
	}

	issue := repo.Issue(created.Meta.IssueNumber)
	if !issue.IsOpen() {
		t.Error("anchor not reopened; a pending update must flag the issue open")
	}
	if got := len(repo.Comments(issue.Number)); got != 2 {
		t.Errorf("got %d comments, want initial state + update", got)
	}
}

func TestUpdateWhilePending(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "metrics", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, "metrics", map[string]any{"a": 1.0}, ""); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	_, err := s.Update(ctx, "metrics", map[string]any{"b": 2.0}, "")
	var conc *ConcurrentUpdateError
	if !errors.As(err, &conc) {
		t.Fatalf("second Update = %v, want ConcurrentUpdateError", err)
	}
	if !errors.Is(err, ErrStore) {
		t.Error("ConcurrentUpdateError does not unwrap to ErrStore")
	}
}

func TestProcessUpdatesSingle(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0, "name": "m"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, "metrics", map[string]any{"count": 2.0}, ""); err != nil {
		t.Fatalf("Update: %v", err)
	}

	obj, err := s.ProcessUpdates(ctx, created.Meta.IssueNumber)
	if err != nil {
		t.Fatalf("ProcessUpdates: %v", err)
	}
	want := map[string]any{"count": 2.0, "name": "m"}
	if !reflect.DeepEqual(obj.Data, want) {
		t.Errorf("data = %v, want %v", obj.Data, want)
	}

	issue := repo.Issue(created.Meta.IssueNumber)
	if issue.IsOpen() {
		t.Error("anchor left open after the cycle")
	}
	for _, c := range repo.Comments(issue.Number) {
		if !repo.HasReaction(c.ID, DefaultProcessedReaction) {
			t.Errorf("comment %d not acknowledged", c.ID)
		}
	}
}

func TestProcessUpdatesReplaceMode(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0, "name": "m"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, "metrics", map[string]any{"fresh": true}, envelope.ModeReplace); err != nil {
		t.Fatalf("Update: %v", err)
	}

	obj, err := s.ProcessUpdates(ctx, created.Meta.IssueNumber)
	if err != nil {
		t.Fatalf("ProcessUpdates: %v", err)
	}
	want := map[string]any{"fresh": true}
	if !reflect.DeepEqual(obj.Data, want) {
		t.Errorf("data = %v, want the replacement payload only", obj.Data)
	}
}

func TestProcessUpdatesOrdersByTimestamp(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n := created.Meta.IssueNumber

	// Posted out of order: the later-stamped comment lands first.
	later := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)
	repo.CreateCommentAs("octocat", n, encodeUpdate(t, map[string]any{"winner": "late"}, envelope.ModeAppend, later))
	repo.CreateCommentAs("octocat", n, encodeUpdate(t, map[string]any{"winner": "early"}, envelope.ModeAppend, earlier))

	obj, err := s.ProcessUpdates(ctx, n)
	if err != nil {
		t.Fatalf("ProcessUpdates: %v", err)
	}
	if obj.Data["winner"] != "late" {
		t.Errorf("winner = %v; replay must follow envelope timestamps, not arrival order", obj.Data["winner"])
	}
}

func TestProcessUpdatesAtMostOnce(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, "metrics", map[string]any{"count": 2.0}, ""); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := s.ProcessUpdates(ctx, created.Meta.IssueNumber); err != nil {
		t.Fatalf("first ProcessUpdates: %v", err)
	}

	reactionsBefore := repo.Calls["CreateReaction"]
	obj, err := s.ProcessUpdates(ctx, created.Meta.IssueNumber)
	if err != nil {
		t.Fatalf("second ProcessUpdates: %v", err)
	}
	if repo.Calls["CreateReaction"] != reactionsBefore {
		t.Error("second cycle re-acknowledged comments; consumption must be at most once")
	}
	if !reflect.DeepEqual(obj.Data, map[string]any{"count": 2.0}) {
		t.Errorf("data after no-op cycle = %v", obj.Data)
	}
}

func TestProcessUpdatesSurvivesAckFailure(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, "metrics", map[string]any{"count": 2.0}, ""); err != nil {
		t.Fatalf("Update: %v", err)
	}

	repo.FailOn["CreateReaction"] = fmt.Errorf("rate limited")
	obj, err := s.ProcessUpdates(ctx, created.Meta.IssueNumber)
	if err != nil {
		t.Fatalf("ProcessUpdates with failing acks: %v", err)
	}
	if !reflect.DeepEqual(obj.Data, map[string]any{"count": 2.0}) {
		t.Errorf("data = %v; the write must land even when acks fail", obj.Data)
	}

	// The unmarked comment is replayed next cycle and absorbed by the
	// idempotent merge, then acknowledged.
	delete(repo.FailOn, "CreateReaction")
	obj, err = s.ProcessUpdates(ctx, created.Meta.IssueNumber)
	if err != nil {
		t.Fatalf("recovery cycle: %v", err)
	}
	if !reflect.DeepEqual(obj.Data, map[string]any{"count": 2.0}) {
		t.Errorf("data after replay = %v", obj.Data)
	}
	for _, c := range repo.Comments(created.Meta.IssueNumber) {
		if !repo.HasReaction(c.ID, DefaultProcessedReaction) {
			t.Errorf("comment %d still unacknowledged after recovery", c.ID)
		}
	}
}

func TestProcessUpdatesSkipsUnauthorized(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n := created.Meta.IssueNumber

	intruder := repo.CreateCommentAs("mallory", n,
		encodeUpdate(t, map[string]any{"count": 999.0}, envelope.ModeAppend, time.Now()))
	repo.CreateCommentAs("octocat", n,
		encodeUpdate(t, map[string]any{"count": 2.0}, envelope.ModeAppend, time.Now()))

	obj, err := s.ProcessUpdates(ctx, n)
	if err != nil {
		t.Fatalf("ProcessUpdates: %v", err)
	}
	if obj.Data["count"] != 2.0 {
		t.Errorf("count = %v; the unauthorized update must not merge", obj.Data["count"])
	}
	// Unconsumed, so a later authorization change could still pick it up.
	if repo.HasReaction(intruder.ID, DefaultProcessedReaction) {
		t.Error("unauthorized comment was acknowledged")
	}
}

func TestProcessUpdatesSkipsMalformed(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n := created.Meta.IssueNumber
	junk := repo.CreateCommentAs("octocat", n, "just chatting, not an update")

	obj, err := s.ProcessUpdates(ctx, n)
	if err != nil {
		t.Fatalf("ProcessUpdates: %v", err)
	}
	if !reflect.DeepEqual(obj.Data, map[string]any{"count": 1.0}) {
		t.Errorf("data = %v; chatter must not change state", obj.Data)
	}
	if repo.HasReaction(junk.ID, DefaultProcessedReaction) {
		t.Error("malformed comment was acknowledged")
	}
}

func TestProcessUpdatesLegacyBody(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "metrics", map[string]any{"count": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n := created.Meta.IssueNumber

	// Bare legacy payload with no envelope; merges in append mode with the
	// comment's tracker timestamp.
	repo.CreateCommentAs("octocat", n, `{"count": 5, "legacy": true}`)

	obj, err := s.ProcessUpdates(ctx, n)
	if err != nil {
		t.Fatalf("ProcessUpdates: %v", err)
	}
	want := map[string]any{"count": 5.0, "legacy": true}
	if !reflect.DeepEqual(obj.Data, want) {
		t.Errorf("data = %v, want %v", obj.Data, want)
	}
}

func TestProcessUpdatesDeniesForeignAnchor(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	// An anchor created by a stranger never processes, whatever its labels
	// claim.
	forged := repo.CreateIssueAs("mallory", "Stored Object: metrics", "{}",
		[]string{"stored-object", "UID:metrics"})

	_, err := s.ProcessUpdates(ctx, forged.Number)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("ProcessUpdates = %v, want AccessDeniedError", err)
	}
	if denied.Login != "mallory" {
		t.Errorf("denied login = %q", denied.Login)
	}
	if !errors.Is(err, ErrStore) {
		t.Error("AccessDeniedError does not unwrap to ErrStore")
	}
}

func TestProcessUpdatesMissingIssue(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.ProcessUpdates(context.Background(), 404)
	var nf *ObjectNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("ProcessUpdates = %v, want ObjectNotFoundError", err)
	}
}
