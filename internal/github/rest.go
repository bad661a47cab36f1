package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/paged"
	"github.com/huangsam/cistat/schema"
)

// perPage is the largest page size the Actions API accepts.
const perPage = 100

// RESTClient is an EventSource over the GitHub REST API.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ contract.EventSource = &RESTClient{} // Compile-time check

// Option is a function that configures a RESTClient.
type Option func(*RESTClient)

// WithBaseURL sets the base URL for the GitHub API.
func WithBaseURL(baseURL string) Option {
	return func(c *RESTClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *RESTClient) {
		c.httpClient = httpClient
	}
}

// NewRESTClient creates a new GitHub API client. An empty token sends
// unauthenticated requests.
func NewRESTClient(token string, opts ...Option) *RESTClient {
	client := &RESTClient{
		baseURL:    contract.DefaultGitHubAPIURL,
		token:      token,
		httpClient: cleanhttp.DefaultPooledClient(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type runsPage struct {
	TotalCount   int                  `json:"total_count"`
	WorkflowRuns []schema.WorkflowRun `json:"workflow_runs"`
}

type jobsPage struct {
	TotalCount int          `json:"total_count"`
	Jobs       []schema.Job `json:"jobs"`
}

// ListWorkflowRuns implements the EventSource interface.
func (c *RESTClient) ListWorkflowRuns(ctx context.Context, owner, repo string, created time.Time) ([]schema.WorkflowRun, error) {
	params := url.Values{
		"created":  {">=" + created.UTC().Format(time.RFC3339)},
		"per_page": {fmt.Sprint(perPage)},
	}
	first := fmt.Sprintf("%s/repos/%s/%s/actions/runs?%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), params.Encode())
	return paged.FetchAll(ctx, func(ctx context.Context, token string) (paged.Page[schema.WorkflowRun], error) {
		var page runsPage
		next, err := c.getPage(ctx, pageURL(first, token), &page)
		return paged.Page[schema.WorkflowRun]{Items: page.WorkflowRuns, NextToken: next}, err
	})
}

// ListJobs implements the EventSource interface.
func (c *RESTClient) ListJobs(ctx context.Context, owner, repo string, _ time.Time, runID int64, attempt int) ([]schema.Job, error) {
	first := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%d/attempts/%d/jobs?per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), runID, attempt, perPage)
	return paged.FetchAll(ctx, func(ctx context.Context, token string) (paged.Page[schema.Job], error) {
		var page jobsPage
		next, err := c.getPage(ctx, pageURL(first, token), &page)
		return paged.Page[schema.Job]{Items: page.Jobs, NextToken: next}, err
	})
}

// Close implements the EventSource interface.
func (c *RESTClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// getPage fetches one page into out and returns the URL of the next page,
// or "" on the last one.
func (c *RESTClient) getPage(ctx context.Context, target string, out any) (string, error) {
	contract.LogDebug("GET %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("GitHub API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("GitHub API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return "", fmt.Errorf("failed to parse GitHub API response: %w", err)
	}
	return nextLink(resp.Header.Get("Link")), nil
}

// pageURL returns the continuation URL, or the first page URL at the start.
func pageURL(first, token string) string {
	if token == "" {
		return first
	}
	return token
}

// nextLink extracts the rel="next" target of a Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
