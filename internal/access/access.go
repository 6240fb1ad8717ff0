// Package access decides which tracker accounts may mutate the store.
//
// An author is authorized when they own the repository or appear in its
// CODEOWNERS file. Authorization never fails loudly: lookup errors degrade
// to "unauthorized" so a flaky tracker cannot grant access by accident.
package access

import (
	"context"
	"strings"
	"sync"

	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/gateway"
)

// codeownersPaths are the locations checked for a CODEOWNERS file, in
// the order GitHub itself resolves them.
var codeownersPaths = []string{
	".github/CODEOWNERS",
	"docs/CODEOWNERS",
	"CODEOWNERS",
}

// Resolver answers authorization questions for one repository. Owner
// identity and the codeowner set are fetched once and cached for the
// lifetime of the Resolver; long-lived callers use ClearCache.
type Resolver struct {
	gw gateway.RepoGateway

	mu         sync.Mutex
	owner      *gateway.Owner
	codeowners map[string]bool
}

// NewResolver returns a resolver bound to gw.
func NewResolver(gw gateway.RepoGateway) *Resolver {
	return &Resolver{gw: gw}
}

// IsAuthorized reports whether login may create anchors or post updates.
func (r *Resolver) IsAuthorized(ctx context.Context, login string) bool {
	if login == "" {
		return false
	}
	owner, err := r.repoOwner(ctx)
	if err != nil {
		debug.Warnf("could not resolve repository owner: %v", err)
		return false
	}
	if strings.EqualFold(login, owner.Login) {
		return true
	}
	return r.codeownerSet(ctx, owner)[strings.ToLower(login)]
}

// ValidateIssueCreator authorizes the issue's author.
func (r *Resolver) ValidateIssueCreator(ctx context.Context, issue gateway.Issue) bool {
	ok := r.IsAuthorized(ctx, issue.User.Login)
	if !ok {
		debug.Warnf("issue #%d created by unauthorized user %q", issue.Number, issue.User.Login)
	}
	return ok
}

// FilterAuthorizedComments retains only comments whose author is
// authorized. Unauthorized comments are dropped with a warning, never an
// error.
func (r *Resolver) FilterAuthorizedComments(ctx context.Context, comments []gateway.Comment) []gateway.Comment {
	kept := make([]gateway.Comment, 0, len(comments))
	for _, c := range comments {
		if r.IsAuthorized(ctx, c.User.Login) {
			kept = append(kept, c)
			continue
		}
		debug.Warnf("skipping comment %d from unauthorized user %q", c.ID, c.User.Login)
	}
	return kept
}

// ClearCache drops the cached owner identity and codeowner set. The next
// authorization check re-fetches both.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = nil
	r.codeowners = nil
}

func (r *Resolver) repoOwner(ctx context.Context) (gateway.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner != nil {
		return *r.owner, nil
	}
	owner, err := r.gw.FetchOwner(ctx)
	if err != nil {
		return gateway.Owner{}, err
	}
	r.owner = &owner
	return owner, nil
}

// codeownerSet returns the cached set of authorized logins from
// CODEOWNERS, lowercased. A missing file yields an empty set.
func (r *Resolver) codeownerSet(ctx context.Context, owner gateway.Owner) map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codeowners != nil {
		return r.codeowners
	}
	r.codeowners = r.loadCodeowners(ctx, owner)
	return r.codeowners
}

func (r *Resolver) loadCodeowners(ctx context.Context, owner gateway.Owner) map[string]bool {
	set := map[string]bool{}
	for _, path := range codeownersPaths {
		content, err := r.gw.FetchFile(ctx, path)
		if err != nil {
			continue
		}
		r.parseCodeowners(ctx, owner, string(content), set)
		debug.Logf("loaded %d codeowner(s) from %s", len(set), path)
		return set
	}
	debug.Logf("no CODEOWNERS file found")
	return set
}

// parseCodeowners collects the logins named in a CODEOWNERS body. Each
// line pairs a path pattern with owner tokens; only the tokens matter
// here. Team tokens (@org/team) expand through the tracker best-effort.
func (r *Resolver) parseCodeowners(ctx context.Context, owner gateway.Owner, content string, set map[string]bool) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, token := range strings.Fields(line) {
			if !strings.HasPrefix(token, "@") {
				continue
			}
			token = strings.TrimPrefix(token, "@")
			if org, team, isTeam := strings.Cut(token, "/"); isTeam {
				for _, member := range r.teamMembers(ctx, owner, org, team) {
					set[strings.ToLower(member)] = true
				}
				continue
			}
			set[strings.ToLower(token)] = true
		}
	}
}

// teamMembers expands one org team. Failures (bad token scope, team in a
// foreign org, deleted team) yield an empty slice with a warning.
func (r *Resolver) teamMembers(ctx context.Context, owner gateway.Owner, org, team string) []string {
	if !owner.IsOrganization() || !strings.EqualFold(org, owner.Login) {
		debug.Warnf("skipping team @%s/%s: not a team of this repository's organization", org, team)
		return nil
	}
	members, err := r.gw.FetchTeamMembers(ctx, org, team)
	if err != nil {
		debug.Warnf("could not expand team @%s/%s: %v", org, team, err)
		return nil
	}
	return members
}
