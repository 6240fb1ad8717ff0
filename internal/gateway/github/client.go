// Package github implements the tracker gateway over the GitHub REST API.
//
// Requests authenticate with a bearer token, paginate through Link headers,
// and retry on rate limiting with exponential backoff. The retry budget
// comes from store.retries.* configuration.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/metric"

	"github.com/dmarx/gh-store/internal/debug"
	"github.com/dmarx/gh-store/internal/gateway"
	"github.com/dmarx/gh-store/internal/telemetry"
)

// Client talks to one GitHub repository. Construct with New; the WithX
// methods return copies for tests and GitHub Enterprise endpoints.
type Client struct {
	Token         string
	Owner         string
	Repository    string
	BaseURL       string
	HTTPClient    *http.Client
	MaxAttempts   int
	BackoffFactor int

	apiRequests metric.Int64Counter
}

var _ gateway.RepoGateway = (*Client)(nil)

// New creates a client for owner/repo authenticated with token.
func New(owner, repo, token string) *Client {
	return &Client{
		Token:         token,
		Owner:         owner,
		Repository:    repo,
		BaseURL:       DefaultAPIEndpoint,
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxAttempts:   DefaultMaxAttempts,
		BackoffFactor: DefaultBackoffFactor,
		apiRequests:   telemetry.APIRequests(),
	}
}

// WithHTTPClient returns a copy using a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	cp := *c
	cp.HTTPClient = httpClient
	return &cp
}

// WithBaseURL returns a copy targeting a custom base URL (tests, GitHub
// Enterprise).
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.BaseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

// WithRetryPolicy returns a copy with the given rate-limit retry budget.
func (c *Client) WithRetryPolicy(maxAttempts, backoffFactor int) *Client {
	cp := *c
	if maxAttempts > 0 {
		cp.MaxAttempts = maxAttempts
	}
	if backoffFactor > 0 {
		cp.BackoffFactor = backoffFactor
	}
	return &cp
}

// Repo returns the owner/name slug of the bound repository.
func (c *Client) Repo() string {
	return c.Owner + "/" + c.Repository
}

func (c *Client) repoPath() string {
	return "/repos/" + c.Owner + "/" + c.Repository
}

// buildURL constructs a full API URL.
func (c *Client) buildURL(path string, params map[string]string) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}
	return u
}

// doRequest performs one API call with authentication and rate-limit
// retries. accept overrides the Accept header when non-empty (the contents
// endpoint uses it to fetch raw file bytes).
func (c *Client) doRequest(ctx context.Context, method, urlStr, accept string, body any) ([]byte, http.Header, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = b
	}

	var respBody []byte
	var respHeader http.Header

	attempt := func() error {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if accept != "" {
			req.Header.Set("Accept", accept)
		} else {
			req.Header.Set("Accept", "application/vnd.github+json")
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		if c.apiRequests != nil {
			c.apiRequests.Add(ctx, 1)
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request failed: %w", err)
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		// GitHub rate limiting: 429, or 403 with the quota exhausted.
		if resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0") {
			if delay := retryAfter(resp.Header); delay > 0 {
				debug.Logf("rate limited, server asked for %s", delay)
				select {
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				case <-time.After(delay):
				}
			}
			return &gateway.APIError{StatusCode: resp.StatusCode, Message: "rate limited"}
		}

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(gateway.ErrNotFound)
		}
		if resp.StatusCode >= 500 {
			return &gateway.APIError{StatusCode: resp.StatusCode, Message: errorMessage(b)}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&gateway.APIError{StatusCode: resp.StatusCode, Message: errorMessage(b)})
		}

		respBody, respHeader = b, resp.Header
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(c.BackoffFactor) * time.Second
	bo.Multiplier = float64(c.BackoffFactor)
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.MaxAttempts-1)), ctx)

	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, nil, err
	}
	return respBody, respHeader, nil
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// errorMessage extracts GitHub's error message from a response body.
func errorMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

// linkNextPattern matches the "next" relation in GitHub Link headers.
var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// hasNextPage checks the Link header for a next page URL.
func hasNextPage(headers http.Header) bool {
	link := headers.Get("Link")
	if link == "" {
		return false
	}
	return linkNextPattern.MatchString(link)
}

// fetchPages GETs path repeatedly, decoding each page into []T, until the
// Link header carries no next relation.
func fetchPages[T any](ctx context.Context, c *Client, path string, params map[string]string) ([]T, error) {
	var all []T
	page := 1
	for {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		p := map[string]string{
			"per_page": strconv.Itoa(MaxPageSize),
			"page":     strconv.Itoa(page),
		}
		for k, v := range params {
			p[k] = v
		}

		respBody, headers, err := c.doRequest(ctx, http.MethodGet, c.buildURL(path, p), "", nil)
		if err != nil {
			return nil, err
		}

		var items []T
		if err := json.Unmarshal(respBody, &items); err != nil {
			return nil, fmt.Errorf("parsing %s response: %w", path, err)
		}
		all = append(all, items...)

		if !hasNextPage(headers) {
			return all, nil
		}
		page++
		if page > MaxPages {
			return nil, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
	}
}

// FetchOwner returns the repository owner's login and account type.
func (c *Client) FetchOwner(ctx context.Context) (gateway.Owner, error) {
	respBody, _, err := c.doRequest(ctx, http.MethodGet, c.buildURL(c.repoPath(), nil), "", nil)
	if err != nil {
		return gateway.Owner{}, fmt.Errorf("fetching repository: %w", err)
	}
	var repo apiRepo
	if err := json.Unmarshal(respBody, &repo); err != nil {
		return gateway.Owner{}, fmt.Errorf("parsing repository response: %w", err)
	}
	return repo.Owner, nil
}

// FetchFile returns the raw contents of a file on the default branch, or
// gateway.ErrNotFound when the path does not exist.
func (c *Client) FetchFile(ctx context.Context, path string) ([]byte, error) {
	urlStr := c.buildURL(c.repoPath()+"/contents/"+escapePath(path), nil)
	respBody, _, err := c.doRequest(ctx, http.MethodGet, urlStr, "application/vnd.github.raw+json", nil)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, gateway.ErrNotFound
		}
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	return respBody, nil
}

// escapePath escapes each segment of a repository file path.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// FetchIssues lists repository issues matching the query. Pull requests
// are filtered out (GitHub returns them on the issues endpoint).
func (c *Client) FetchIssues(ctx context.Context, q gateway.IssueQuery) ([]gateway.Issue, error) {
	params := map[string]string{}
	if q.State != "" {
		params["state"] = q.State
	}
	if len(q.Labels) > 0 {
		params["labels"] = strings.Join(q.Labels, ",")
	}
	if q.Since != nil {
		params["since"] = q.Since.UTC().Format(time.RFC3339)
	}

	items, err := fetchPages[apiIssue](ctx, c, c.repoPath()+"/issues", params)
	if err != nil {
		return nil, fmt.Errorf("fetching issues: %w", err)
	}
	return toIssues(items), nil
}

// FetchIssue returns one issue by number.
func (c *Client) FetchIssue(ctx context.Context, number int) (gateway.Issue, error) {
	urlStr := c.buildURL(fmt.Sprintf("%s/issues/%d", c.repoPath(), number), nil)
	respBody, _, err := c.doRequest(ctx, http.MethodGet, urlStr, "", nil)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return gateway.Issue{}, gateway.ErrNotFound
		}
		return gateway.Issue{}, fmt.Errorf("fetching issue #%d: %w", number, err)
	}
	var issue gateway.Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return gateway.Issue{}, fmt.Errorf("parsing issue response: %w", err)
	}
	return issue, nil
}

// CreateIssue opens a new issue with the given labels.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (gateway.Issue, error) {
	payload := map[string]any{
		"title":  title,
		"body":   body,
		"labels": labels,
	}
	respBody, _, err := c.doRequest(ctx, http.MethodPost, c.buildURL(c.repoPath()+"/issues", nil), "", payload)
	if err != nil {
		return gateway.Issue{}, fmt.Errorf("creating issue: %w", err)
	}
	var issue gateway.Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return gateway.Issue{}, fmt.Errorf("parsing issue response: %w", err)
	}
	return issue, nil
}

// UpdateIssue patches an issue's body, state, or label set.
func (c *Client) UpdateIssue(ctx context.Context, number int, patch gateway.IssuePatch) (gateway.Issue, error) {
	payload := map[string]any{}
	if patch.Body != nil {
		payload["body"] = *patch.Body
	}
	if patch.State != nil {
		payload["state"] = *patch.State
	}
	if patch.Labels != nil {
		payload["labels"] = *patch.Labels
	}
	urlStr := c.buildURL(fmt.Sprintf("%s/issues/%d", c.repoPath(), number), nil)
	respBody, _, err := c.doRequest(ctx, http.MethodPatch, urlStr, "", payload)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return gateway.Issue{}, gateway.ErrNotFound
		}
		return gateway.Issue{}, fmt.Errorf("updating issue #%d: %w", number, err)
	}
	var issue gateway.Issue
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return gateway.Issue{}, fmt.Errorf("parsing issue response: %w", err)
	}
	return issue, nil
}

// CreateLabel creates a repository label. Creating a label that already
// exists is not an error.
func (c *Client) CreateLabel(ctx context.Context, label gateway.Label) error {
	payload := map[string]any{"name": label.Name}
	if label.Color != "" {
		payload["color"] = label.Color
	}
	if label.Description != "" {
		payload["description"] = label.Description
	}
	_, _, err := c.doRequest(ctx, http.MethodPost, c.buildURL(c.repoPath()+"/labels", nil), "", payload)
	if err != nil {
		// 422 means the label exists.
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			return nil
		}
		return fmt.Errorf("creating label %q: %w", label.Name, err)
	}
	return nil
}

// FetchLabels lists the repository's labels.
func (c *Client) FetchLabels(ctx context.Context) ([]gateway.Label, error) {
	items, err := fetchPages[gateway.Label](ctx, c, c.repoPath()+"/labels", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching labels: %w", err)
	}
	return items, nil
}

// AddLabels appends labels to an issue.
func (c *Client) AddLabels(ctx context.Context, number int, labels []string) error {
	urlStr := c.buildURL(fmt.Sprintf("%s/issues/%d/labels", c.repoPath(), number), nil)
	_, _, err := c.doRequest(ctx, http.MethodPost, urlStr, "", map[string]any{"labels": labels})
	if err != nil {
		return fmt.Errorf("adding labels to issue #%d: %w", number, err)
	}
	return nil
}

// RemoveLabel removes one label from an issue. Removing a label the issue
// does not carry returns gateway.ErrNotFound.
func (c *Client) RemoveLabel(ctx context.Context, number int, label string) error {
	urlStr := c.buildURL(fmt.Sprintf("%s/issues/%d/labels/%s", c.repoPath(), number, url.PathEscape(label)), nil)
	_, _, err := c.doRequest(ctx, http.MethodDelete, urlStr, "", nil)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return gateway.ErrNotFound
		}
		return fmt.Errorf("removing label %q from issue #%d: %w", label, number, err)
	}
	return nil
}

// FetchComments lists an issue's comments in creation order.
func (c *Client) FetchComments(ctx context.Context, number int) ([]gateway.Comment, error) {
	path := fmt.Sprintf("%s/issues/%d/comments", c.repoPath(), number)
	items, err := fetchPages[gateway.Comment](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching comments for issue #%d: %w", number, err)
	}
	return items, nil
}

// CreateComment posts a comment on an issue.
func (c *Client) CreateComment(ctx context.Context, number int, body string) (gateway.Comment, error) {
	urlStr := c.buildURL(fmt.Sprintf("%s/issues/%d/comments", c.repoPath(), number), nil)
	respBody, _, err := c.doRequest(ctx, http.MethodPost, urlStr, "", map[string]any{"body": body})
	if err != nil {
		return gateway.Comment{}, fmt.Errorf("creating comment on issue #%d: %w", number, err)
	}
	var comment gateway.Comment
	if err := json.Unmarshal(respBody, &comment); err != nil {
		return gateway.Comment{}, fmt.Errorf("parsing comment response: %w", err)
	}
	return comment, nil
}

// FetchReactions lists the reactions on a comment.
func (c *Client) FetchReactions(ctx context.Context, commentID int64) ([]gateway.Reaction, error) {
	path := fmt.Sprintf("%s/issues/comments/%d/reactions", c.repoPath(), commentID)
	items, err := fetchPages[gateway.Reaction](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching reactions for comment %d: %w", commentID, err)
	}
	return items, nil
}

// CreateReaction adds a reaction to a comment. GitHub returns the existing
// reaction when it is already present, so re-acking is idempotent.
func (c *Client) CreateReaction(ctx context.Context, commentID int64, content string) error {
	urlStr := c.buildURL(fmt.Sprintf("%s/issues/comments/%d/reactions", c.repoPath(), commentID), nil)
	_, _, err := c.doRequest(ctx, http.MethodPost, urlStr, "", map[string]any{"content": content})
	if err != nil {
		return fmt.Errorf("adding %q reaction to comment %d: %w", content, commentID, err)
	}
	return nil
}

// FetchTeamMembers expands an organization team to its member logins.
func (c *Client) FetchTeamMembers(ctx context.Context, org, team string) ([]string, error) {
	path := fmt.Sprintf("/orgs/%s/teams/%s/members", url.PathEscape(org), url.PathEscape(team))
	items, err := fetchPages[apiUser](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching members of %s/%s: %w", org, team, err)
	}
	logins := make([]string, len(items))
	for i, u := range items {
		logins[i] = u.Login
	}
	return logins, nil
}
