package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmarx/gh-store/internal/gateway"
)

// ObjectMeta describes one stored object's bookkeeping state, derived
// from its anchor issue.
type ObjectMeta struct {
	ObjectID    string    `json:"object_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
	IssueNumber int       `json:"issue_number"`
}

// Object is one stored object: caller data plus derived metadata.
type Object struct {
	Meta ObjectMeta     `json:"meta"`
	Data map[string]any `json:"data"`
}

// HistoryEntry is one comment on an anchor, decoded for history listings.
type HistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	CommentID int64          `json:"comment_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// encodeBody renders object data as the pretty-printed JSON written to
// anchor issue bodies.
func encodeBody(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding object body: %w", err)
	}
	return string(b), nil
}

// decodeBody parses an anchor issue body back into object data. Empty
// bodies decode to an empty object.
func decodeBody(body string) (map[string]any, error) {
	if body == "" {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, fmt.Errorf("parsing object body: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// objectFromIssue builds the object view of an anchor issue. version is
// len(comments)+1: the initial state plus one per update comment.
func (s *Store) objectFromIssue(issue gateway.Issue, commentCount int) (*Object, error) {
	id, err := s.codec.ExtractUID(issue.LabelNames())
	if err != nil {
		return nil, fmt.Errorf("issue #%d: %w", issue.Number, err)
	}
	data, err := decodeBody(issue.Body)
	if err != nil {
		return nil, fmt.Errorf("issue #%d: %w", issue.Number, err)
	}
	return &Object{
		Meta: ObjectMeta{
			ObjectID:    id,
			CreatedAt:   issue.CreatedAt,
			UpdatedAt:   issue.UpdatedAt,
			Version:     commentCount + 1,
			IssueNumber: issue.Number,
		},
		Data: data,
	}, nil
}
