package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/envelope"
	"github.com/dmarx/gh-store/internal/gateway"
	"github.com/dmarx/gh-store/internal/labels"
)

// DeprecationReason explains why an anchor was demoted.
type DeprecationReason string

const (
	ReasonDuplicate DeprecationReason = "duplicate"
	ReasonMerged    DeprecationReason = "merged"
	ReasonReplaced  DeprecationReason = "replaced"
)

// ValidReason reports whether r is a recognized deprecation reason.
func ValidReason(r DeprecationReason) bool {
	switch r {
	case ReasonDuplicate, ReasonMerged, ReasonReplaced:
		return true
	}
	return false
}

// DedupReport summarizes one deduplication run.
type DedupReport struct {
	ObjectID         string `json:"object_id"`
	CanonicalIssue   int    `json:"canonical_issue"`
	DeprecatedIssues []int  `json:"deprecated_issues"`
}

// FindDuplicates sweeps the live anchors and groups them by uid label,
// returning only uids claimed by two or more issues.
func (s *Store) FindDuplicates(ctx context.Context) (map[string][]int, error) {
	issues, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: []string{s.codec.Base()},
		State:  gateway.StateAll,
	})
	if err != nil {
		return nil, fmt.Errorf("listing anchors: %w", err)
	}

	groups := map[string][]int{}
	for _, issue := range issues {
		if issue.HasLabel(labels.Archived) || issue.HasLabel(labels.Deprecated) || issue.HasLabel(labels.Alias) {
			continue
		}
		id, err := s.codec.ExtractUID(issue.LabelNames())
		if err != nil {
			continue
		}
		groups[id] = append(groups[id], issue.Number)
	}

	duplicates := map[string][]int{}
	for id, numbers := range groups {
		if len(numbers) < 2 {
			continue
		}
		sort.Ints(numbers)
		duplicates[id] = numbers
	}
	return duplicates, nil
}

// Deduplicate reconciles the anchors claiming uid into one canonical
// issue. The oldest issue wins unless canonicalIssue names another member
// of the group. Losers are deprecated, then one process cycle runs on the
// winner so any stranded updates land in the canonical body.
func (s *Store) Deduplicate(ctx context.Context, uid string, canonicalIssue int) (*DedupReport, error) {
	uid = s.codec.StripUID(uid)
	duplicates, err := s.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}
	numbers, ok := duplicates[uid]
	if !ok {
		return nil, &ObjectNotFoundError{ObjectID: uid}
	}

	winner := numbers[0]
	if canonicalIssue != 0 {
		if !containsInt(numbers, canonicalIssue) {
			return nil, fmt.Errorf("issue #%d does not anchor object %q: %w", canonicalIssue, uid, ErrStore)
		}
		winner = canonicalIssue
	}

	if err := s.gw.AddLabels(ctx, winner, []string{labels.Canonical}); err != nil {
		return nil, fmt.Errorf("marking issue #%d canonical: %w", winner, err)
	}

	report := &DedupReport{ObjectID: uid, CanonicalIssue: winner}
	for _, number := range numbers {
		if number == winner {
			continue
		}
		if err := s.deprecate(ctx, number, winner, uid, ReasonDuplicate); err != nil {
			return nil, err
		}
		report.DeprecatedIssues = append(report.DeprecatedIssues, number)
	}

	// Sweep any updates stranded on the losers' comment streams into
	// the canonical body.
	if _, err := s.ProcessUpdates(ctx, winner); err != nil {
		return nil, fmt.Errorf("processing canonical issue #%d after dedup: %w", winner, err)
	}
	return report, nil
}

// Deprecate demotes the anchor at loserIssue in favor of winnerIssue.
// The loser keeps its comment history but gives up its uid label, so it
// no longer answers lookups.
func (s *Store) Deprecate(ctx context.Context, loserIssue, winnerIssue int, reason DeprecationReason) error {
	if !ValidReason(reason) {
		return fmt.Errorf("unknown deprecation reason %q: %w", reason, ErrStore)
	}
	winner, err := s.gw.FetchIssue(ctx, winnerIssue)
	if err != nil {
		return fmt.Errorf("fetching issue #%d: %w", winnerIssue, err)
	}
	winnerID, err := s.codec.ExtractUID(winner.LabelNames())
	if err != nil {
		return fmt.Errorf("issue #%d: %w", winnerIssue, err)
	}
	return s.deprecate(ctx, loserIssue, winnerIssue, winnerID, reason)
}

func (s *Store) deprecate(ctx context.Context, loserIssue, winnerIssue int, winnerID string, reason DeprecationReason) error {
	loser, err := s.gw.FetchIssue(ctx, loserIssue)
	if err != nil {
		return fmt.Errorf("fetching issue #%d: %w", loserIssue, err)
	}

	if err := s.gw.CreateLabel(ctx, gateway.Label{Name: labels.MergedInto(winnerID), Color: labels.DeprecatedColor}); err != nil {
		return fmt.Errorf("creating merged-into label: %w", err)
	}

	// Rewrite the label set in one patch: uid label off, deprecation
	// labels on. Labels are the source of truth for deprecation.
	var kept []string
	for _, name := range loser.LabelNames() {
		if _, ok := s.codec.DecodeUID(name); ok {
			continue
		}
		kept = append(kept, name)
	}
	kept = append(kept, labels.Deprecated, labels.MergedInto(winnerID))
	closed := gateway.StateClosed
	if _, err := s.gw.UpdateIssue(ctx, loserIssue, gateway.IssuePatch{Labels: &kept, State: &closed}); err != nil {
		return fmt.Errorf("deprecating issue #%d: %w", loserIssue, err)
	}

	loserID, err := s.codec.ExtractUID(loser.LabelNames())
	if err != nil {
		loserID = fmt.Sprintf("issue-%d", loserIssue)
	}
	// Comment bookkeeping is best-effort once the labels are in place.
	s.postSystemComment(ctx, loserIssue, envelope.TypeDeprecation, envelope.DeprecationPayload(winnerID, string(reason)))
	s.postSystemComment(ctx, winnerIssue, envelope.TypeReference, envelope.ReferencePayload(loserID, string(reason)))

	debug.Logf("deprecated issue #%d (%s) in favor of issue #%d (%s)", loserIssue, loserID, winnerIssue, winnerID)
	return nil
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
