// Package gateway defines the tracker abstraction the store engine runs on.
//
// The concrete implementation lives in the github sub-package. This package
// holds the interface and the wire value types referenced by both the
// implementation and its consumers (internal/store, internal/access,
// cmd/gh-store) so that fakes can be substituted in tests.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist on the
// tracker (missing issue, file, label, or repository).
var ErrNotFound = errors.New("not found")

// APIError carries a non-success tracker response that is not a plain 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tracker API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("tracker API error: status %d: %s", e.StatusCode, e.Message)
}

// Owner identifies the account a repository belongs to.
type Owner struct {
	Login string `json:"login"`
	Type  string `json:"type"` // "User" or "Organization"
}

// IsOrganization reports whether the owner is an organization account.
func (o Owner) IsOrganization() bool { return o.Type == "Organization" }

// User is the author of an issue or comment.
type User struct {
	Login string `json:"login"`
}

// Label is a repository label. Color is the hex string without '#'.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// Issue is the tracker-side view of an issue. Labels carry names only at
// this layer; colors are queried separately when needed.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"` // "open" or "closed"
	Labels    []Label   `json:"labels"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LabelNames returns the issue's label names in tracker order.
func (i Issue) LabelNames() []string {
	names := make([]string, len(i.Labels))
	for n, l := range i.Labels {
		names[n] = l.Name
	}
	return names
}

// HasLabel reports whether the issue carries the named label.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// IsOpen reports whether the issue is in the open state.
func (i Issue) IsOpen() bool { return i.State == "open" }

// Comment is one comment on an issue.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Reaction is one reaction on a comment.
type Reaction struct {
	Content string `json:"content"`
}

// Issue states accepted by IssueQuery and IssuePatch.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// IssueQuery filters an issue listing. A nil Since means no time filter;
// an empty State means StateOpen (the tracker's default).
type IssueQuery struct {
	Labels []string
	State  string
	Since  *time.Time
}

// IssuePatch edits an issue. Nil fields are left untouched; Labels, when
// set, replaces the whole label set.
type IssuePatch struct {
	Body   *string
	State  *string
	Labels *[]string
}

// RepoGateway is the tracker surface the store engine consumes. Every
// method may block on network I/O and honors ctx cancellation.
type RepoGateway interface {
	// Repo returns the "owner/name" slug of the bound repository.
	Repo() string

	FetchOwner(ctx context.Context) (Owner, error)
	// FetchFile returns the raw contents of a repository file, or
	// ErrNotFound when the path does not exist on the default branch.
	FetchFile(ctx context.Context, path string) ([]byte, error)

	FetchIssues(ctx context.Context, q IssueQuery) ([]Issue, error)
	FetchIssue(ctx context.Context, number int) (Issue, error)
	CreateIssue(ctx context.Context, title, body string, labels []string) (Issue, error)
	UpdateIssue(ctx context.Context, number int, patch IssuePatch) (Issue, error)

	// CreateLabel creates a repository label; creating one that already
	// exists is not an error.
	CreateLabel(ctx context.Context, label Label) error
	FetchLabels(ctx context.Context) ([]Label, error)
	AddLabels(ctx context.Context, number int, labels []string) error
	RemoveLabel(ctx context.Context, number int, label string) error

	FetchComments(ctx context.Context, number int) ([]Comment, error)
	CreateComment(ctx context.Context, number int, body string) (Comment, error)

	FetchReactions(ctx context.Context, commentID int64) ([]Reaction, error)
	CreateReaction(ctx context.Context, commentID int64, content string) error

	// FetchTeamMembers expands an organization team to member logins.
	// Best-effort: callers treat failures as an empty team.
	FetchTeamMembers(ctx context.Context, org, team string) ([]string, error)
}
