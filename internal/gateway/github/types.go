package github

import (
	"time"

	"github.com/dmarx/gh-store/internal/gateway"
)

// API constants.
const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts bounds rate-limit retries per request.
	DefaultMaxAttempts = 3

	// DefaultBackoffFactor seeds the retry policy: the first delay is
	// BackoffFactor seconds and each subsequent delay multiplies by it.
	DefaultBackoffFactor = 2

	// MaxPageSize is GitHub's maximum per_page value.
	MaxPageSize = 100

	// MaxPages guards against runaway pagination.
	MaxPages = 1000

	// maxResponseSize caps response bodies read into memory.
	maxResponseSize = 50 * 1024 * 1024
)

// apiIssue wraps the gateway issue with the pull_request marker GitHub
// includes when an "issue" is actually a pull request.
type apiIssue struct {
	gateway.Issue
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

func toIssues(items []apiIssue) []gateway.Issue {
	issues := make([]gateway.Issue, 0, len(items))
	for i := range items {
		if items[i].PullRequest != nil {
			continue
		}
		issues = append(issues, items[i].Issue)
	}
	return issues
}

// apiRepo is the subset of the repository response the gateway needs.
type apiRepo struct {
	FullName string        `json:"full_name"`
	Owner    gateway.Owner `json:"owner"`
}

// apiUser is a member entry from the team members endpoint.
type apiUser struct {
	Login string `json:"login"`
}

// apiError is GitHub's error response body.
type apiError struct {
	Message string `json:"message"`
}
