// Package store implements the object-store engine over a tracker
// gateway.
//
// Each stored object is anchored to one issue: the body holds the current
// merged state, comments form the update log, labels encode identity and
// role, reactions mark consumption, and the open/closed state flags
// pending updates. The engine is request-driven and runs no goroutines of
// its own apart from bounded fan-out during snapshot reads.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmarx/gh-store/internal/access"
	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/envelope"
	"github.com/dmarx/gh-store/internal/gateway"
	"github.com/dmarx/gh-store/internal/labels"
	"github.com/dmarx/gh-store/internal/telemetry"
)

// Default reactions marking comment consumption.
const (
	DefaultProcessedReaction    = "+1"
	DefaultInitialStateReaction = "rocket"
)

// Options configures a Store. Zero-value fields fall back to defaults.
type Options struct {
	BaseLabel            string
	UIDPrefix            string
	ProcessedReaction    string
	InitialStateReaction string
}

// Store is the public surface of the object store. It composes the label
// codec, access control, update processing, alias resolution, and
// deduplication over one tracker gateway. Safe for use from multiple
// goroutines; the only shared mutable state is the access cache.
type Store struct {
	gw      gateway.RepoGateway
	access  *access.Resolver
	codec   labels.Codec
	metrics *telemetry.StoreMetrics

	processedReaction    string
	initialStateReaction string
}

// New returns a store bound to gw.
func New(gw gateway.RepoGateway, opts Options) *Store {
	processed := opts.ProcessedReaction
	if processed == "" {
		processed = DefaultProcessedReaction
	}
	initial := opts.InitialStateReaction
	if initial == "" {
		initial = DefaultInitialStateReaction
	}
	return &Store{
		gw:                   gw,
		access:               access.NewResolver(gw),
		codec:                labels.NewCodec(opts.BaseLabel, opts.UIDPrefix),
		metrics:              telemetry.NewStoreMetrics(),
		processedReaction:    processed,
		initialStateReaction: initial,
	}
}

// Repo returns the owner/name slug of the underlying repository.
func (s *Store) Repo() string { return s.gw.Repo() }

// Codec exposes the label codec for callers that need to interpret raw
// issues (the CLI's duplicate listing does).
func (s *Store) Codec() labels.Codec { return s.codec }

// ClearAccessCache drops the cached owner and codeowner set.
func (s *Store) ClearAccessCache() { s.access.ClearCache() }

// EnsureLabels creates the store's special labels when missing. Creating
// an existing label is a no-op at the gateway.
func (s *Store) EnsureLabels(ctx context.Context) error {
	existing, err := s.gw.FetchLabels(ctx)
	if err != nil {
		return fmt.Errorf("listing labels: %w", err)
	}
	have := map[string]bool{}
	for _, l := range existing {
		have[l.Name] = true
	}
	for _, spec := range s.codec.SpecialLabels() {
		if have[spec.Name] {
			continue
		}
		label := gateway.Label{Name: spec.Name, Color: spec.Color, Description: spec.Description}
		if err := s.gw.CreateLabel(ctx, label); err != nil {
			return fmt.Errorf("creating label %q: %w", spec.Name, err)
		}
		debug.Logf("created label %q", spec.Name)
	}
	return nil
}

// ensureUIDLabel creates the uid label for id when missing, so issue
// creation does not fail on an unknown label.
func (s *Store) ensureUIDLabel(ctx context.Context, id string) error {
	label := gateway.Label{Name: s.codec.EncodeUID(id), Color: labels.DefaultColor}
	return s.gw.CreateLabel(ctx, label)
}

// Create opens a new anchor for id holding data. The anchor is created
// closed with a pre-processed initial-state comment, so the first process
// cycle has nothing to do.
func (s *Store) Create(ctx context.Context, id string, data map[string]any) (*Object, error) {
	id = s.codec.StripUID(id)

	// A live anchor with this uid, in any state, blocks the create.
	// Deprecated anchors gave up their uid label and do not collide.
	existing, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: s.codec.QueryLabels(id),
		State:  gateway.StateAll,
	})
	if err != nil {
		return nil, fmt.Errorf("checking for existing object %q: %w", id, err)
	}
	for _, issue := range existing {
		if !issue.HasLabel(labels.Deprecated) {
			return nil, &DuplicateUIDError{ObjectID: id, IssueNumber: issue.Number}
		}
	}

	if err := s.EnsureLabels(ctx); err != nil {
		return nil, err
	}
	if err := s.ensureUIDLabel(ctx, id); err != nil {
		return nil, fmt.Errorf("creating uid label for %q: %w", id, err)
	}

	body, err := encodeBody(data)
	if err != nil {
		return nil, err
	}
	issue, err := s.gw.CreateIssue(ctx, "Stored Object: "+id, body, s.codec.QueryLabels(id))
	if err != nil {
		return nil, fmt.Errorf("creating anchor for %q: %w", id, err)
	}

	if err := s.seedInitialState(ctx, issue.Number, data); err != nil {
		return nil, err
	}
	if err := s.closeIssue(ctx, issue.Number); err != nil {
		return nil, err
	}
	s.metrics.ObjectCreated(ctx)

	return &Object{
		Meta: ObjectMeta{
			ObjectID:    id,
			CreatedAt:   issue.CreatedAt,
			UpdatedAt:   issue.UpdatedAt,
			Version:     1,
			IssueNumber: issue.Number,
		},
		Data: data,
	}, nil
}

// seedInitialState posts the initial-state comment and immediately marks
// it both processed and initial-state so no cycle ever merges it.
func (s *Store) seedInitialState(ctx context.Context, number int, data map[string]any) error {
	body, err := envelope.NewInitialState(data).Encode()
	if err != nil {
		return err
	}
	comment, err := s.gw.CreateComment(ctx, number, body)
	if err != nil {
		return fmt.Errorf("posting initial state on issue #%d: %w", number, err)
	}
	if err := s.gw.CreateReaction(ctx, comment.ID, s.processedReaction); err != nil {
		return fmt.Errorf("marking initial state processed: %w", err)
	}
	if err := s.gw.CreateReaction(ctx, comment.ID, s.initialStateReaction); err != nil {
		return fmt.Errorf("marking initial state comment: %w", err)
	}
	return nil
}

// Get returns the current state of the object. Reading through an alias
// returns the canonical object, canonical id included.
func (s *Store) Get(ctx context.Context, id string) (*Object, error) {
	id = s.codec.StripUID(id)
	canonical, err := s.ResolveCanonicalID(ctx, id)
	if err != nil {
		return nil, err
	}
	issue, err := s.findAnchor(ctx, canonical)
	if err != nil {
		return nil, err
	}
	return s.readObject(ctx, issue)
}

// readObject parses an anchor issue into its object view.
func (s *Store) readObject(ctx context.Context, issue gateway.Issue) (*Object, error) {
	comments, err := s.gw.FetchComments(ctx, issue.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching comments for issue #%d: %w", issue.Number, err)
	}
	return s.objectFromIssue(issue, len(comments))
}

// findAnchor locates the anchor issue for id. Closed issues are the
// common case (a quiescent store), so they are queried first with a
// fallback to all states for anchors mid-cycle.
func (s *Store) findAnchor(ctx context.Context, id string) (gateway.Issue, error) {
	query := gateway.IssueQuery{Labels: s.codec.QueryLabels(id), State: gateway.StateClosed}
	issues, err := s.gw.FetchIssues(ctx, query)
	if err != nil {
		return gateway.Issue{}, fmt.Errorf("looking up object %q: %w", id, err)
	}
	if len(issues) == 0 {
		query.State = gateway.StateAll
		issues, err = s.gw.FetchIssues(ctx, query)
		if err != nil {
			return gateway.Issue{}, fmt.Errorf("looking up object %q: %w", id, err)
		}
	}
	if len(issues) == 0 {
		return gateway.Issue{}, &ObjectNotFoundError{ObjectID: id}
	}
	if len(issues) == 1 {
		return issues[0], nil
	}

	// Duplicates: prefer the canonical; otherwise the oldest issue wins
	// until someone runs deduplicate.
	debug.Warnf("object %q has %d anchor issues; run deduplicate", id, len(issues))
	best := issues[0]
	for _, issue := range issues[1:] {
		if issue.HasLabel(labels.Canonical) && !best.HasLabel(labels.Canonical) {
			best = issue
			continue
		}
		if issue.HasLabel(labels.Canonical) == best.HasLabel(labels.Canonical) && issue.Number < best.Number {
			best = issue
		}
	}
	return best, nil
}

// writeBody persists data as the anchor's body and closes it, ending the
// pending-updates state.
func (s *Store) writeBody(ctx context.Context, number int, data map[string]any) error {
	body, err := encodeBody(data)
	if err != nil {
		return err
	}
	closed := gateway.StateClosed
	if _, err := s.gw.UpdateIssue(ctx, number, gateway.IssuePatch{Body: &body, State: &closed}); err != nil {
		return fmt.Errorf("writing body of issue #%d: %w", number, err)
	}
	return nil
}

func (s *Store) closeIssue(ctx context.Context, number int) error {
	closed := gateway.StateClosed
	if _, err := s.gw.UpdateIssue(ctx, number, gateway.IssuePatch{State: &closed}); err != nil {
		return fmt.Errorf("closing issue #%d: %w", number, err)
	}
	return nil
}

// Delete archives the object: the archived label goes on, the base label
// comes off (so listings and anchor lookups no longer see it), and the
// issue closes. History stays readable on the tracker.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = s.codec.StripUID(id)
	issue, err := s.findAnchor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gw.AddLabels(ctx, issue.Number, []string{labels.Archived}); err != nil {
		return fmt.Errorf("archiving issue #%d: %w", issue.Number, err)
	}
	if err := s.gw.RemoveLabel(ctx, issue.Number, s.codec.Base()); err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return fmt.Errorf("removing base label from issue #%d: %w", issue.Number, err)
	}
	return s.closeIssue(ctx, issue.Number)
}

// ListAll returns every live object keyed by id. Archived, alias, and
// deprecated issues are excluded; issues with no uid label or an invalid
// body are skipped with a warning.
func (s *Store) ListAll(ctx context.Context) (map[string]*Object, error) {
	issues, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: []string{s.codec.Base()},
		State:  gateway.StateClosed,
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	return s.collectObjects(ctx, issues, nil)
}

// ListUpdatedSince returns live objects whose consumed state changed
// after t. The tracker's since filter also matches bare comment activity,
// so each candidate's computed updated_at is re-checked.
func (s *Store) ListUpdatedSince(ctx context.Context, t time.Time) (map[string]*Object, error) {
	issues, err := s.gw.FetchIssues(ctx, gateway.IssueQuery{
		Labels: []string{s.codec.Base()},
		State:  gateway.StateClosed,
		Since:  &t,
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects updated since %s: %w", t.Format(time.RFC3339), err)
	}
	after := t
	return s.collectObjects(ctx, issues, &after)
}

// collectObjects reads the listed issues into objects, skipping roles
// that are not live anchors. When after is non-nil, objects whose
// updated_at is not later than it are dropped.
func (s *Store) collectObjects(ctx context.Context, issues []gateway.Issue, after *time.Time) (map[string]*Object, error) {
	objects := make(map[string]*Object, len(issues))
	for _, issue := range issues {
		if issue.HasLabel(labels.Archived) || issue.HasLabel(labels.Alias) || issue.HasLabel(labels.Deprecated) {
			continue
		}
		obj, err := s.readObject(ctx, issue)
		if err != nil {
			if errors.Is(err, labels.ErrNoUIDLabel) {
				debug.Warnf("issue #%d carries the base label but no uid label; skipping", issue.Number)
				continue
			}
			var nf *ObjectNotFoundError
			if errors.As(err, &nf) {
				continue
			}
			// Invalid bodies are a data problem on one issue, not a
			// reason to fail the whole listing.
			debug.Warnf("skipping issue #%d: %v", issue.Number, err)
			continue
		}
		if after != nil && !obj.Meta.UpdatedAt.After(*after) {
			continue
		}
		objects[obj.Meta.ObjectID] = obj
	}
	return objects, nil
}
