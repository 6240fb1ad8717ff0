package access

import (
	"context"
	"fmt"
	"testing"

	"github.com/dmarx/gh-store/internal/gateway"
	"github.com/dmarx/gh-store/internal/testutil"
)

func TestIsAuthorizedOwner(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	r := NewResolver(repo)
	ctx := context.Background()

	tests := []struct {
		login string
		want  bool
	}{
		{"octocat", true},
		{"OctoCat", true}, // logins compare case-insensitively
		{"mallory", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := r.IsAuthorized(ctx, tt.login); got != tt.want {
			t.Errorf("IsAuthorized(%q) = %v, want %v", tt.login, got, tt.want)
		}
	}
}

func TestIsAuthorizedCodeowner(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	repo.Files[".github/CODEOWNERS"] = []byte(`
# store maintainers
*        @Alice
docs/**  @bob @octocat
`)
	r := NewResolver(repo)
	ctx := context.Background()

	for _, login := range []string{"alice", "Alice", "bob"} {
		if !r.IsAuthorized(ctx, login) {
			t.Errorf("IsAuthorized(%q) = false, want codeowner accepted", login)
		}
	}
	if r.IsAuthorized(ctx, "mallory") {
		t.Error("IsAuthorized(mallory) = true")
	}
}

func TestCodeownersPathPrecedence(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	repo.Files[".github/CODEOWNERS"] = []byte("* @alice")
	repo.Files["CODEOWNERS"] = []byte("* @bob")
	r := NewResolver(repo)
	ctx := context.Background()

	// Only the first file found is honored, matching the tracker's own
	// resolution order.
	if !r.IsAuthorized(ctx, "alice") {
		t.Error("codeowner from .github/CODEOWNERS not honored")
	}
	if r.IsAuthorized(ctx, "bob") {
		t.Error("root CODEOWNERS consulted despite .github/CODEOWNERS existing")
	}
}

func TestTeamExpansion(t *testing.T) {
	repo := testutil.NewFakeRepo("acme")
	repo.Owner = gateway.Owner{Login: "acme", Type: "Organization"}
	repo.Files[".github/CODEOWNERS"] = []byte("* @acme/storekeepers")
	repo.Teams["acme/storekeepers"] = []string{"Carol", "dave"}
	r := NewResolver(repo)
	ctx := context.Background()

	for _, login := range []string{"carol", "dave"} {
		if !r.IsAuthorized(ctx, login) {
			t.Errorf("IsAuthorized(%q) = false, want team member accepted", login)
		}
	}
}

func TestTeamExpansionForeignOrg(t *testing.T) {
	repo := testutil.NewFakeRepo("acme")
	repo.Owner = gateway.Owner{Login: "acme", Type: "Organization"}
	repo.Files[".github/CODEOWNERS"] = []byte("* @other-org/team")
	repo.Teams["other-org/team"] = []string{"eve"}
	r := NewResolver(repo)

	// Teams of a foreign organization never expand.
	if r.IsAuthorized(context.Background(), "eve") {
		t.Error("member of a foreign org's team was authorized")
	}
}

func TestTeamExpansionOnUserRepo(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	repo.Files[".github/CODEOWNERS"] = []byte("* @octocat/friends")
	repo.Teams["octocat/friends"] = []string{"eve"}
	r := NewResolver(repo)

	// User accounts have no teams; the token is skipped.
	if r.IsAuthorized(context.Background(), "eve") {
		t.Error("team token expanded on a user-owned repository")
	}
}

func TestTeamExpansionFailureDegrades(t *testing.T) {
	repo := testutil.NewFakeRepo("acme")
	repo.Owner = gateway.Owner{Login: "acme", Type: "Organization"}
	repo.Files[".github/CODEOWNERS"] = []byte("* @acme/ghost-team @alice")
	r := NewResolver(repo)
	ctx := context.Background()

	// The team does not exist; its members stay unauthorized but the
	// individual entries on the same line still count.
	if r.IsAuthorized(ctx, "ghost") {
		t.Error("member of an unexpandable team was authorized")
	}
	if !r.IsAuthorized(ctx, "alice") {
		t.Error("individual codeowner lost to a failing team expansion")
	}
}

func TestOwnerLookupFailureDeniesAll(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	repo.FailOn["FetchOwner"] = fmt.Errorf("boom")
	r := NewResolver(repo)

	if r.IsAuthorized(context.Background(), "octocat") {
		t.Error("authorization granted while the owner lookup fails")
	}
}

func TestCaching(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	repo.Files[".github/CODEOWNERS"] = []byte("* @alice")
	r := NewResolver(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r.IsAuthorized(ctx, "alice")
	}
	if repo.Calls["FetchOwner"] != 1 {
		t.Errorf("FetchOwner called %d times, want cached after the first", repo.Calls["FetchOwner"])
	}
	if repo.Calls["FetchFile"] != 1 {
		t.Errorf("FetchFile called %d times, want cached after the first", repo.Calls["FetchFile"])
	}

	r.ClearCache()
	r.IsAuthorized(ctx, "alice")
	if repo.Calls["FetchOwner"] != 2 {
		t.Errorf("FetchOwner not re-fetched after ClearCache: %d calls", repo.Calls["FetchOwner"])
	}
}

func TestValidateIssueCreator(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	r := NewResolver(repo)
	ctx := context.Background()

	ok := gateway.Issue{Number: 1, User: gateway.User{Login: "octocat"}}
	bad := gateway.Issue{Number: 2, User: gateway.User{Login: "mallory"}}
	if !r.ValidateIssueCreator(ctx, ok) {
		t.Error("owner-created issue rejected")
	}
	if r.ValidateIssueCreator(ctx, bad) {
		t.Error("stranger-created issue accepted")
	}
}

func TestFilterAuthorizedComments(t *testing.T) {
	repo := testutil.NewFakeRepo("octocat")
	repo.Files[".github/CODEOWNERS"] = []byte("* @alice")
	r := NewResolver(repo)

	comments := []gateway.Comment{
		{ID: 1, User: gateway.User{Login: "octocat"}},
		{ID: 2, User: gateway.User{Login: "mallory"}},
		{ID: 3, User: gateway.User{Login: "alice"}},
	}
	kept := r.FilterAuthorizedComments(context.Background(), comments)
	if len(kept) != 2 {
		t.Fatalf("kept %d comments, want 2", len(kept))
	}
	if kept[0].ID != 1 || kept[1].ID != 3 {
		t.Errorf("kept = %v", kept)
	}
}
