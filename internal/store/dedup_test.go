package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dmarx/gh-store/internal/labels"
)

func TestFindDuplicates(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "dup", map[string]any{"v": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := repo.CreateIssueAs("octocat", "Stored Object: dup", `{"v": 2}`,
		[]string{"stored-object", "UID:dup"})
	if _, err := s.Create(ctx, "clean", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	duplicates, err := s.FindDuplicates(ctx)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	want := map[string][]int{"dup": {first.Meta.IssueNumber, second.Number}}
	if !reflect.DeepEqual(duplicates, want) {
		t.Errorf("duplicates = %v, want %v", duplicates, want)
	}
}

func TestFindDuplicatesIgnoresResolvedRoles(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "canon", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// An alias shares the base label but claims a different uid; a
	// deprecated loser has no uid label at all. Neither is a duplicate.
	if _, err := s.CreateAlias(ctx, "canon", "nick"); err != nil {
		t.Fatalf("CreateAlias: %v", err)
	}
	repo.CreateIssueAs("octocat", "Stored Object: old", "{}",
		[]string{"stored-object", labels.Deprecated, labels.MergedInto("canon")})

	duplicates, err := s.FindDuplicates(ctx)
	if err != nil {
		t.Fatalf("FindDuplicates: %v", err)
	}
	if len(duplicates) != 0 {
		t.Errorf("duplicates = %v, want none", duplicates)
	}
}

func TestDeduplicateOldestWins(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "dup", map[string]any{"v": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := repo.CreateIssueAs("octocat", "Stored Object: dup", `{"v": 2}`,
		[]string{"stored-object", "UID:dup"})

	report, err := s.Deduplicate(ctx, "dup", 0)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if report.CanonicalIssue != first.Meta.IssueNumber {
		t.Errorf("canonical = #%d, want the oldest issue #%d", report.CanonicalIssue, first.Meta.IssueNumber)
	}
	if !reflect.DeepEqual(report.DeprecatedIssues, []int{second.Number}) {
		t.Errorf("deprecated = %v, want [%d]", report.DeprecatedIssues, second.Number)
	}

	winner := repo.Issue(first.Meta.IssueNumber)
	if !winner.HasLabel(labels.Canonical) {
		t.Error("winner not marked canonical-object")
	}

	loser := repo.Issue(second.Number)
	if !loser.HasLabel(labels.Deprecated) {
		t.Error("loser not marked deprecated-object")
	}
	if !loser.HasLabel(labels.MergedInto("dup")) {
		t.Errorf("loser missing merged-into pointer; labels: %v", loser.LabelNames())
	}
	if loser.HasLabel("UID:dup") {
		t.Error("loser kept its uid label and would still answer lookups")
	}
	if loser.IsOpen() {
		t.Error("loser left open")
	}

	// Reads now land deterministically on the winner.
	got, err := s.Get(ctx, "dup")
	if err != nil {
		t.Fatalf("Get after dedup: %v", err)
	}
	if got.Meta.IssueNumber != first.Meta.IssueNumber {
		t.Errorf("Get chose issue #%d, want #%d", got.Meta.IssueNumber, first.Meta.IssueNumber)
	}
}

func TestDeduplicateExplicitCanonical(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "dup", map[string]any{"v": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := repo.CreateIssueAs("octocat", "Stored Object: dup", `{"v": 2}`,
		[]string{"stored-object", "UID:dup"})

	report, err := s.Deduplicate(ctx, "dup", second.Number)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if report.CanonicalIssue != second.Number {
		t.Errorf("canonical = #%d, want the requested #%d", report.CanonicalIssue, second.Number)
	}
	if !reflect.DeepEqual(report.DeprecatedIssues, []int{first.Meta.IssueNumber}) {
		t.Errorf("deprecated = %v", report.DeprecatedIssues)
	}
}

func TestDeduplicateRejectsOutsider(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "dup", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.CreateIssueAs("octocat", "Stored Object: dup", "{}",
		[]string{"stored-object", "UID:dup"})
	outsider, err := s.Create(ctx, "unrelated", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Deduplicate(ctx, "dup", outsider.Meta.IssueNumber); err == nil {
		t.Fatal("Deduplicate accepted a canonical issue outside the group")
	}
}

func TestDeduplicateWithoutDuplicates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "solo", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := s.Deduplicate(ctx, "solo", 0)
	var nf *ObjectNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Deduplicate on a clean id = %v, want ObjectNotFoundError", err)
	}
}

func TestDeprecate(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	winner, err := s.Create(ctx, "keep", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	loser, err := s.Create(ctx, "drop", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Deprecate(ctx, loser.Meta.IssueNumber, winner.Meta.IssueNumber, ReasonMerged); err != nil {
		t.Fatalf("Deprecate: %v", err)
	}

	demoted := repo.Issue(loser.Meta.IssueNumber)
	if !demoted.HasLabel(labels.Deprecated) || !demoted.HasLabel(labels.MergedInto("keep")) {
		t.Errorf("loser labels = %v", demoted.LabelNames())
	}
	if demoted.HasLabel("UID:drop") {
		t.Error("loser kept its uid label")
	}
}

func TestDeprecateRejectsUnknownReason(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Deprecate(context.Background(), 1, 2, DeprecationReason("because"))
	if err == nil {
		t.Fatal("Deprecate accepted an unknown reason")
	}
	if !errors.Is(err, ErrStore) {
		t.Errorf("err = %v, want an ErrStore", err)
	}
}

func TestValidReason(t *testing.T) {
	for _, r := range []DeprecationReason{ReasonDuplicate, ReasonMerged, ReasonReplaced} {
		if !ValidReason(r) {
			t.Errorf("ValidReason(%q) = false", r)
		}
	}
	if ValidReason("whatever") {
		t.Error("ValidReason accepted an arbitrary string")
	}
}
