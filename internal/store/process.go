package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/envelope"
	"github.com/dmarx/gh-store/internal/gateway"
	"github.com/dmarx/gh-store/internal/labels"
)

// Update appends an update envelope to the object's canonical anchor and
// reopens it, flagging a pending process cycle. The returned object is
// the last persisted state; the posted changes only become visible after
// ProcessUpdates runs.
//
// Updating while the anchor is already open fails with
// ConcurrentUpdateError rather than stacking a second pending cycle.
func (s *Store) Update(ctx context.Context, id string, changes map[string]any, mode envelope.Mode) (*Object, error) {
	id = s.codec.StripUID(id)
	canonical, err := s.ResolveCanonicalID(ctx, id)
	if err != nil {
		return nil, err
	}
	issue, err := s.findAnchor(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if issue.IsOpen() {
		return nil, &ConcurrentUpdateError{ObjectID: canonical, IssueNumber: issue.Number}
	}
	if mode == "" {
		mode = envelope.ModeAppend
	}

	body, err := envelope.New(changes, mode).Encode()
	if err != nil {
		return nil, err
	}
	if _, err := s.gw.CreateComment(ctx, issue.Number, body); err != nil {
		return nil, fmt.Errorf("posting update on issue #%d: %w", issue.Number, err)
	}
	open := gateway.StateOpen
	if _, err := s.gw.UpdateIssue(ctx, issue.Number, gateway.IssuePatch{State: &open}); err != nil {
		return nil, fmt.Errorf("reopening issue #%d: %w", issue.Number, err)
	}
	s.metrics.UpdatePosted(ctx)

	return s.readObject(ctx, issue)
}

// sourcedUpdate is one decoded comment queued for replay, tagged with the
// issue it came from so ties order deterministically across aliases.
type sourcedUpdate struct {
	issueNumber int
	comment     gateway.Comment
	env         envelope.Envelope
	ts          time.Time
}

// ProcessUpdates runs one process cycle on the given issue: collect
// unprocessed authorized comments from the anchor and its aliases, merge
// them into the body in timestamp order, persist, acknowledge, close.
//
// Processing an alias issue redirects to its canonical anchor, so a
// webhook can fire on either side and converge on the same state.
func (s *Store) ProcessUpdates(ctx context.Context, issueNumber int) (*Object, error) {
	start := time.Now()
	obj, consumed, err := s.processUpdates(ctx, issueNumber, 0)
	s.metrics.ProcessCycle(ctx, consumed, time.Since(start), err)
	return obj, err
}

func (s *Store) processUpdates(ctx context.Context, issueNumber, depth int) (*Object, int, error) {
	issue, err := s.gw.FetchIssue(ctx, issueNumber)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, 0, &ObjectNotFoundError{IssueNumber: issueNumber}
		}
		return nil, 0, fmt.Errorf("fetching issue #%d: %w", issueNumber, err)
	}

	// Aliases never hold state; follow the pointer to the canonical
	// anchor. Mislabeled alias chains are cut off at the same depth
	// bound as id resolution.
	if issue.HasLabel(labels.Alias) {
		target, err := labels.FirstAliasTarget(issue.LabelNames())
		if err != nil {
			return nil, 0, fmt.Errorf("issue #%d is labeled %s but %w", issueNumber, labels.Alias, err)
		}
		if target != issueNumber && depth < maxAliasDepth {
			debug.Logf("issue #%d is an alias; processing canonical issue #%d", issueNumber, target)
			return s.processUpdates(ctx, target, depth+1)
		}
		debug.Warnf("alias chain from issue #%d exceeded depth %d; treating as canonical", issueNumber, maxAliasDepth)
	}

	// The anchor's creator gates the whole cycle. Per-comment filtering
	// alone would still let anyone seed an anchor with crafted labels.
	if !s.access.ValidateIssueCreator(ctx, issue) {
		return nil, 0, &AccessDeniedError{IssueNumber: issue.Number, Login: issue.User.Login}
	}

	updates, err := s.collectUpdates(ctx, issue)
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(updates, func(i, j int) bool {
		a, b := updates[i], updates[j]
		if !a.ts.Equal(b.ts) {
			return a.ts.Before(b.ts)
		}
		if a.issueNumber != b.issueNumber {
			return a.issueNumber < b.issueNumber
		}
		return a.comment.ID < b.comment.ID
	})

	state, err := decodeBody(issue.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("issue #%d: %w", issue.Number, err)
	}
	for _, u := range updates {
		switch u.env.Meta.UpdateMode {
		case envelope.ModeReplace:
			state = u.env.Data
		default:
			state = deepMerge(state, u.env.Data)
		}
	}

	if err := s.writeBody(ctx, issue.Number, state); err != nil {
		return nil, 0, err
	}

	// Acknowledge after the write. A failure here leaves the comment
	// unmarked and re-applied next cycle, which the idempotent merge
	// absorbs; failing the whole cycle would not make that safer.
	acked := 0
	for _, u := range updates {
		if err := s.gw.CreateReaction(ctx, u.comment.ID, s.processedReaction); err != nil {
			debug.Warnf("could not mark comment %d processed: %v", u.comment.ID, err)
			continue
		}
		acked++
	}
	debug.Logf("processed %d update(s) on issue #%d (%d acknowledged)", len(updates), issue.Number, acked)

	final, err := s.gw.FetchIssue(ctx, issue.Number)
	if err != nil {
		return nil, len(updates), fmt.Errorf("re-reading issue #%d: %w", issue.Number, err)
	}
	obj, err := s.readObject(ctx, final)
	return obj, len(updates), err
}

// collectUpdates gathers the consumable comments for one cycle: the
// anchor's own unprocessed comments plus, when the anchor is canonical,
// those of every alias whose creator passes authorization.
func (s *Store) collectUpdates(ctx context.Context, issue gateway.Issue) ([]sourcedUpdate, error) {
	updates, err := s.unprocessedComments(ctx, issue.Number)
	if err != nil {
		return nil, err
	}
	if !issue.HasLabel(labels.Canonical) {
		return updates, nil
	}

	aliasIssues, err := s.FindAliasIssues(ctx, issue.Number)
	if err != nil {
		return nil, err
	}
	for _, alias := range aliasIssues {
		if !s.access.ValidateIssueCreator(ctx, alias) {
			debug.Warnf("skipping alias issue #%d: unauthorized creator %q", alias.Number, alias.User.Login)
			continue
		}
		aliasUpdates, err := s.unprocessedComments(ctx, alias.Number)
		if err != nil {
			return nil, err
		}
		updates = append(updates, aliasUpdates...)
	}
	return updates, nil
}

// unprocessedComments returns the decodable, authorized, not-yet-consumed
// user updates on one issue. Everything dropped here is dropped quietly:
// a bad comment never fails a cycle.
func (s *Store) unprocessedComments(ctx context.Context, number int) ([]sourcedUpdate, error) {
	comments, err := s.gw.FetchComments(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("fetching comments for issue #%d: %w", number, err)
	}

	var updates []sourcedUpdate
	for _, comment := range comments {
		processed, err := s.isProcessed(ctx, comment.ID)
		if err != nil {
			return nil, err
		}
		if processed {
			continue
		}
		env, err := envelope.Decode([]byte(comment.Body), comment.CreatedAt)
		if err != nil {
			debug.Warnf("skipping malformed comment %d on issue #%d: %v", comment.ID, number, err)
			continue
		}
		if env.IsSystem() || env.IsInitialState() {
			continue
		}
		if !s.access.IsAuthorized(ctx, comment.User.Login) {
			debug.Warnf("skipping comment %d on issue #%d from unauthorized user %q", comment.ID, number, comment.User.Login)
			continue
		}
		updates = append(updates, sourcedUpdate{
			issueNumber: number,
			comment:     comment,
			env:         env,
			ts:          env.EffectiveTimestamp(comment.CreatedAt),
		})
	}
	return updates, nil
}

// isProcessed reports whether the comment already carries the processed
// reaction.
func (s *Store) isProcessed(ctx context.Context, commentID int64) (bool, error) {
	reactions, err := s.gw.FetchReactions(ctx, commentID)
	if err != nil {
		return false, fmt.Errorf("fetching reactions for comment %d: %w", commentID, err)
	}
	for _, r := range reactions {
		if r.Content == s.processedReaction {
			return true, nil
		}
	}
	return false, nil
}
