package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/envelope"
	"github.com/dmarx/gh-store/internal/gateway"
	"github.com/dmarx/gh-store/internal/labels"
)

// maxAliasDepth bounds alias-chain traversal. Users can mislabel their
// way into loops; resolution degrades to "canonical at the cutoff" rather
// than erroring or spinning.
const maxAliasDepth = 5

// AliasPair names one alias relationship by object ids.
type AliasPair struct {
	AliasID      string `json:"alias_id"`
	CanonicalID  string `json:"canonical_id"`
	AliasIssue   int    `json:"alias_issue"`
	CanonicalNum int    `json:"canonical_issue"`
}

// ResolveCanonicalID follows alias pointers from id to the canonical
// object id. Ids with no alias anchor resolve to themselves.
func (s *Store) ResolveCanonicalID(ctx context.Context, id string) (string, error) {
	return s.resolveCanonical(ctx, s.codec.StripUID(id), maxAliasDepth)
}

func (s *Store) resolveCanonical(ctx context.Context, id string, depth int) (string, error) {
	if depth == 0 {
		debug.Warnf("alias resolution for %q exceeded depth %d; treating as canonical", id, maxAliasDepth)
		return id, nil
	}
	issues, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: s.codec.QueryLabels(id),
		State:  gateway.StateAll,
	})
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", id, err)
	}
	for _, issue := range issues {
		target, err := labels.FirstAliasTarget(issue.LabelNames())
		if err != nil {
			continue
		}
		canonical, err := s.gw.FetchIssue(ctx, target)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				debug.Warnf("alias %q points at missing issue #%d; treating as canonical", id, target)
				return id, nil
			}
			return "", fmt.Errorf("resolving %q: %w", id, err)
		}
		canonicalID, err := s.codec.ExtractUID(canonical.LabelNames())
		if err != nil {
			debug.Warnf("alias target issue #%d has no uid label; treating %q as canonical", target, id)
			return id, nil
		}
		if canonicalID == id {
			// Self-loop; cut it here.
			return id, nil
		}
		return s.resolveCanonical(ctx, canonicalID, depth-1)
	}
	return id, nil
}

// FindAliasIssues returns the alias issues pointing at the given
// canonical issue number.
func (s *Store) FindAliasIssues(ctx context.Context, number int) ([]gateway.Issue, error) {
	issues, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: []string{labels.AliasTo(number)},
		State:  gateway.StateAll,
	})
	if err != nil {
		return nil, fmt.Errorf("finding aliases of issue #%d: %w", number, err)
	}
	return issues, nil
}

// CreateAlias makes aliasID an alternate identifier for canonicalID. The
// alias gets its own anchor issue whose labels route reads and updates to
// the canonical; system comments record the relationship on both sides.
func (s *Store) CreateAlias(ctx context.Context, canonicalID, aliasID string) (*Object, error) {
	canonicalID = s.codec.StripUID(canonicalID)
	aliasID = s.codec.StripUID(aliasID)
	if canonicalID == aliasID {
		return nil, &CircularReferenceError{ObjectID: aliasID, Target: canonicalID}
	}

	canonical, err := s.findAnchor(ctx, canonicalID)
	if err != nil {
		return nil, err
	}
	if canonical.HasLabel(labels.Alias) {
		// Aliasing to an alias would chain; callers must name the
		// canonical directly.
		return nil, &AliasedObjectError{ObjectID: canonicalID}
	}

	// The alias id must not already be taken.
	existing, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: s.codec.QueryLabels(aliasID),
		State:  gateway.StateAll,
	})
	if err != nil {
		return nil, fmt.Errorf("checking alias id %q: %w", aliasID, err)
	}
	for _, issue := range existing {
		if issue.HasLabel(labels.Deprecated) {
			continue
		}
		if target, err := labels.FirstAliasTarget(issue.LabelNames()); err == nil {
			if target == canonical.Number {
				return nil, &AliasedObjectError{ObjectID: aliasID, Canonical: canonicalID}
			}
			return nil, &AliasedObjectError{ObjectID: aliasID}
		}
		return nil, &CanonicalObjectError{ObjectID: aliasID}
	}

	if err := s.EnsureLabels(ctx); err != nil {
		return nil, err
	}
	if err := s.ensureUIDLabel(ctx, aliasID); err != nil {
		return nil, fmt.Errorf("creating uid label for %q: %w", aliasID, err)
	}
	if err := s.gw.CreateLabel(ctx, gateway.Label{Name: labels.AliasTo(canonical.Number), Color: labels.AliasColor}); err != nil {
		return nil, fmt.Errorf("creating alias pointer label: %w", err)
	}

	body, err := encodeBody(map[string]any{"alias_to": canonicalID})
	if err != nil {
		return nil, err
	}
	aliasLabels := append(s.codec.QueryLabels(aliasID), labels.Alias, labels.AliasTo(canonical.Number))
	aliasIssue, err := s.gw.CreateIssue(ctx, "Stored Object: "+aliasID, body, aliasLabels)
	if err != nil {
		return nil, fmt.Errorf("creating alias anchor for %q: %w", aliasID, err)
	}
	if err := s.closeIssue(ctx, aliasIssue.Number); err != nil {
		return nil, err
	}

	if !canonical.HasLabel(labels.Canonical) {
		if err := s.gw.AddLabels(ctx, canonical.Number, []string{labels.Canonical}); err != nil {
			return nil, fmt.Errorf("marking issue #%d canonical: %w", canonical.Number, err)
		}
	}

	// Bookkeeping comments on both sides. They are marked system so no
	// process cycle ever merges them; posting them is best-effort once
	// the labels (the source of truth) are in place.
	s.postSystemComment(ctx, aliasIssue.Number, envelope.TypeAlias, envelope.AliasPayload(canonicalID))
	s.postSystemComment(ctx, canonical.Number, envelope.TypeAliasReference, envelope.AliasReferencePayload(aliasID))

	return s.readObject(ctx, canonical)
}

// postSystemComment writes a system envelope and marks it processed.
// Failures warn: the labels already encode the relationship.
func (s *Store) postSystemComment(ctx context.Context, number int, typ envelope.Type, payload map[string]any) {
	body, err := envelope.NewSystem(typ, payload).Encode()
	if err != nil {
		debug.Warnf("could not encode %s comment for issue #%d: %v", typ, number, err)
		return
	}
	comment, err := s.gw.CreateComment(ctx, number, body)
	if err != nil {
		debug.Warnf("could not post %s comment on issue #%d: %v", typ, number, err)
		return
	}
	if err := s.gw.CreateReaction(ctx, comment.ID, s.processedReaction); err != nil {
		debug.Warnf("could not mark %s comment processed on issue #%d: %v", typ, number, err)
	}
}

// FindAliases enumerates alias relationships. With ids, only pairs whose
// alias or canonical id matches are returned; with none, all pairs.
func (s *Store) FindAliases(ctx context.Context, ids ...string) ([]AliasPair, error) {
	issues, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: []string{s.codec.Base(), labels.Alias},
		State:  gateway.StateAll,
	})
	if err != nil {
		return nil, fmt.Errorf("listing aliases: %w", err)
	}

	want := map[string]bool{}
	for _, id := range ids {
		want[s.codec.StripUID(id)] = true
	}

	var pairs []AliasPair
	for _, issue := range issues {
		aliasID, err := s.codec.ExtractUID(issue.LabelNames())
		if err != nil {
			debug.Warnf("alias issue #%d has no uid label; skipping", issue.Number)
			continue
		}
		target, err := labels.FirstAliasTarget(issue.LabelNames())
		if err != nil {
			debug.Warnf("alias issue #%d has no %s label; skipping", issue.Number, labels.AliasToPrefix)
			continue
		}
		canonical, err := s.gw.FetchIssue(ctx, target)
		if err != nil {
			debug.Warnf("alias issue #%d points at unreadable issue #%d: %v", issue.Number, target, err)
			continue
		}
		canonicalID, err := s.codec.ExtractUID(canonical.LabelNames())
		if err != nil {
			debug.Warnf("canonical issue #%d has no uid label; skipping alias #%d", target, issue.Number)
			continue
		}
		if len(want) > 0 && !want[aliasID] && !want[canonicalID] {
			continue
		}
		pairs = append(pairs, AliasPair{
			AliasID:      aliasID,
			CanonicalID:  canonicalID,
			AliasIssue:   issue.Number,
			CanonicalNum: canonical.Number,
		})
	}
	return pairs, nil
}
