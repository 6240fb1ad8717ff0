package store

import (
	"context"
	"fmt"

	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/envelope"
)

// History returns the object's full update log in tracker order: the
// initial state, every user update, and the system bookkeeping comments.
// Malformed comments are skipped. Reading history through an alias
// returns the canonical anchor's history.
func (s *Store) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	id = s.codec.StripUID(id)
	canonical, err := s.ResolveCanonicalID(ctx, id)
	if err != nil {
		return nil, err
	}
	issue, err := s.findAnchor(ctx, canonical)
	if err != nil {
		return nil, err
	}

	comments, err := s.gw.FetchComments(ctx, issue.Number)
	if err != nil {
		return nil, fmt.Errorf("fetching history for %q: %w", canonical, err)
	}

	entries := make([]HistoryEntry, 0, len(comments))
	for _, comment := range comments {
		env, err := envelope.Decode([]byte(comment.Body), comment.CreatedAt)
		if err != nil {
			debug.Warnf("skipping malformed comment %d in history of %q: %v", comment.ID, canonical, err)
			continue
		}
		entries = append(entries, HistoryEntry{
			Timestamp: env.EffectiveTimestamp(comment.CreatedAt),
			Type:      env.HistoryType(),
			Data:      env.Data,
			CommentID: comment.ID,
			Metadata: map[string]any{
				"client_version": env.Meta.ClientVersion,
				"update_mode":    string(env.Meta.UpdateMode),
			},
		})
	}
	return entries, nil
}
