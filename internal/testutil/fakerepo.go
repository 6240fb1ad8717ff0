// Package testutil provides an in-memory RepoGateway for engine tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmarx/gh-store/internal/gateway"
)

// FakeRepo is an in-memory tracker. It implements gateway.RepoGateway
// with deterministic issue/comment numbering and lets tests script
// failures per method name via FailOn.
type FakeRepo struct {
	mu sync.Mutex

	RepoSlug string
	Owner    gateway.Owner
	Files    map[string][]byte
	Teams    map[string][]string // "org/team" -> logins

	issues      map[int]*gateway.Issue
	comments    map[int][]gateway.Comment // issue number -> comments
	reactions   map[int64][]gateway.Reaction
	labels      map[string]gateway.Label
	nextIssue   int
	nextComment int64

	// FailOn maps a method name ("CreateReaction", "UpdateIssue", ...) to
	// an error returned on every call until cleared. Calls is the count of
	// invocations per method, failures included.
	FailOn map[string]error
	Calls  map[string]int

	// Clock returns the timestamp stamped on created issues and comments.
	// Defaults to a monotonic fake clock advancing one second per use.
	Clock func() time.Time

	now time.Time
}

// NewFakeRepo returns an empty repository owned by ownerLogin (a User
// account unless changed by the test).
func NewFakeRepo(ownerLogin string) *FakeRepo {
	return &FakeRepo{
		RepoSlug:    ownerLogin + "/store-repo",
		Owner:       gateway.Owner{Login: ownerLogin, Type: "User"},
		Files:       map[string][]byte{},
		Teams:       map[string][]string{},
		issues:      map[int]*gateway.Issue{},
		comments:    map[int][]gateway.Comment{},
		reactions:   map[int64][]gateway.Reaction{},
		labels:      map[string]gateway.Label{},
		nextIssue:   1,
		nextComment: 1,
		FailOn:      map[string]error{},
		Calls:       map[string]int{},
		now:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var _ gateway.RepoGateway = (*FakeRepo)(nil)

func (f *FakeRepo) tick() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	f.now = f.now.Add(time.Second)
	return f.now
}

// fail records the call and returns the scripted error, if any.
func (f *FakeRepo) fail(method string) error {
	f.Calls[method]++
	return f.FailOn[method]
}

// Repo returns the owner/name slug.
func (f *FakeRepo) Repo() string { return f.RepoSlug }

func (f *FakeRepo) FetchOwner(ctx context.Context) (gateway.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchOwner"); err != nil {
		return gateway.Owner{}, err
	}
	return f.Owner, nil
}

func (f *FakeRepo) FetchFile(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchFile"); err != nil {
		return nil, err
	}
	content, ok := f.Files[path]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return content, nil
}

func (f *FakeRepo) FetchIssues(ctx context.Context, q gateway.IssueQuery) ([]gateway.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchIssues"); err != nil {
		return nil, err
	}
	var out []gateway.Issue
	for _, issue := range f.issues {
		if q.State != "" && q.State != gateway.StateAll && issue.State != q.State {
			continue
		}
		if !hasAllLabels(*issue, q.Labels) {
			continue
		}
		if q.Since != nil && issue.UpdatedAt.Before(*q.Since) {
			continue
		}
		out = append(out, *issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func hasAllLabels(issue gateway.Issue, labels []string) bool {
	for _, want := range labels {
		if !issue.HasLabel(want) {
			return false
		}
	}
	return true
}

func (f *FakeRepo) FetchIssue(ctx context.Context, number int) (gateway.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchIssue"); err != nil {
		return gateway.Issue{}, err
	}
	issue, ok := f.issues[number]
	if !ok {
		return gateway.Issue{}, gateway.ErrNotFound
	}
	return *issue, nil
}

func (f *FakeRepo) CreateIssue(ctx context.Context, title, body string, labelNames []string) (gateway.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateIssue"); err != nil {
		return gateway.Issue{}, err
	}
	return f.createIssueLocked(title, body, labelNames, f.Owner.Login), nil
}

// CreateIssueAs seeds an issue authored by a specific user; tests use it
// to construct anchors this fake's owner did not create.
func (f *FakeRepo) CreateIssueAs(login, title, body string, labelNames []string) gateway.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createIssueLocked(title, body, labelNames, login)
}

func (f *FakeRepo) createIssueLocked(title, body string, labelNames []string, author string) gateway.Issue {
	now := f.tick()
	issue := &gateway.Issue{
		Number:    f.nextIssue,
		Title:     title,
		Body:      body,
		State:     gateway.StateOpen,
		Labels:    toLabels(labelNames),
		User:      gateway.User{Login: author},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.issues[f.nextIssue] = issue
	f.nextIssue++
	return *issue
}

func (f *FakeRepo) UpdateIssue(ctx context.Context, number int, patch gateway.IssuePatch) (gateway.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("UpdateIssue"); err != nil {
		return gateway.Issue{}, err
	}
	issue, ok := f.issues[number]
	if !ok {
		return gateway.Issue{}, gateway.ErrNotFound
	}
	if patch.Body != nil {
		issue.Body = *patch.Body
	}
	if patch.State != nil {
		issue.State = *patch.State
	}
	if patch.Labels != nil {
		issue.Labels = toLabels(*patch.Labels)
	}
	issue.UpdatedAt = f.tick()
	return *issue, nil
}

func (f *FakeRepo) CreateLabel(ctx context.Context, label gateway.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateLabel"); err != nil {
		return err
	}
	if _, exists := f.labels[label.Name]; !exists {
		f.labels[label.Name] = label
	}
	return nil
}

func (f *FakeRepo) FetchLabels(ctx context.Context) ([]gateway.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchLabels"); err != nil {
		return nil, err
	}
	var out []gateway.Label
	for _, l := range f.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *FakeRepo) AddLabels(ctx context.Context, number int, labelNames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddLabels"); err != nil {
		return err
	}
	issue, ok := f.issues[number]
	if !ok {
		return gateway.ErrNotFound
	}
	for _, name := range labelNames {
		if !issue.HasLabel(name) {
			issue.Labels = append(issue.Labels, gateway.Label{Name: name})
		}
	}
	issue.UpdatedAt = f.tick()
	return nil
}

func (f *FakeRepo) RemoveLabel(ctx context.Context, number int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RemoveLabel"); err != nil {
		return err
	}
	issue, ok := f.issues[number]
	if !ok {
		return gateway.ErrNotFound
	}
	kept := issue.Labels[:0]
	found := false
	for _, l := range issue.Labels {
		if l.Name == label {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return gateway.ErrNotFound
	}
	issue.Labels = kept
	issue.UpdatedAt = f.tick()
	return nil
}

func (f *FakeRepo) FetchComments(ctx context.Context, number int) ([]gateway.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchComments"); err != nil {
		return nil, err
	}
	if _, ok := f.issues[number]; !ok {
		return nil, gateway.ErrNotFound
	}
	return append([]gateway.Comment(nil), f.comments[number]...), nil
}

func (f *FakeRepo) CreateComment(ctx context.Context, number int, body string) (gateway.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateComment"); err != nil {
		return gateway.Comment{}, err
	}
	return f.createCommentLocked(number, body, f.Owner.Login)
}

// CreateCommentAs posts a comment authored by a specific user.
func (f *FakeRepo) CreateCommentAs(login string, number int, body string) gateway.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, _ := f.createCommentLocked(number, body, login)
	return c
}

func (f *FakeRepo) createCommentLocked(number int, body, author string) (gateway.Comment, error) {
	issue, ok := f.issues[number]
	if !ok {
		return gateway.Comment{}, gateway.ErrNotFound
	}
	comment := gateway.Comment{
		ID:        f.nextComment,
		Body:      body,
		User:      gateway.User{Login: author},
		CreatedAt: f.tick(),
	}
	f.nextComment++
	f.comments[number] = append(f.comments[number], comment)
	issue.UpdatedAt = comment.CreatedAt
	return comment, nil
}

func (f *FakeRepo) FetchReactions(ctx context.Context, commentID int64) ([]gateway.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchReactions"); err != nil {
		return nil, err
	}
	return append([]gateway.Reaction(nil), f.reactions[commentID]...), nil
}

func (f *FakeRepo) CreateReaction(ctx context.Context, commentID int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateReaction"); err != nil {
		return err
	}
	// GitHub returns the existing reaction on a duplicate; mirror that
	// idempotence.
	for _, r := range f.reactions[commentID] {
		if r.Content == content {
			return nil
		}
	}
	f.reactions[commentID] = append(f.reactions[commentID], gateway.Reaction{Content: content})
	return nil
}

func (f *FakeRepo) FetchTeamMembers(ctx context.Context, org, team string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FetchTeamMembers"); err != nil {
		return nil, err
	}
	members, ok := f.Teams[org+"/"+team]
	if !ok {
		return nil, fmt.Errorf("team %s/%s: %w", org, team, gateway.ErrNotFound)
	}
	return append([]string(nil), members...), nil
}

// Issue returns the stored issue by number, failing the test convention
// of "must exist" with a panic so scenario setup bugs surface early.
func (f *FakeRepo) Issue(number int) gateway.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[number]
	if !ok {
		panic(fmt.Sprintf("fake repo has no issue #%d", number))
	}
	return *issue
}

// Comments returns the comments on an issue.
func (f *FakeRepo) Comments(number int) []gateway.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Comment(nil), f.comments[number]...)
}

// Reactions returns the reaction contents on a comment.
func (f *FakeRepo) Reactions(commentID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.reactions[commentID] {
		out = append(out, r.Content)
	}
	return out
}

// HasReaction reports whether a comment carries the given reaction.
func (f *FakeRepo) HasReaction(commentID int64, content string) bool {
	for _, r := range f.Reactions(commentID) {
		if r == content {
			return true
		}
	}
	return false
}

// LabelNames returns the label names on an issue, sorted.
func (f *FakeRepo) LabelNames(number int) []string {
	issue := f.Issue(number)
	names := issue.LabelNames()
	sort.Strings(names)
	return names
}

func toLabels(names []string) []gateway.Label {
	out := make([]gateway.Label, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, gateway.Label{Name: name})
	}
	return out
}
