// Package circleci provides a client for the CircleCI Insights API.
package circleci

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/paged"
	"github.com/huangsam/cistat/schema"
)

// DefaultBaseURL is the public CircleCI v2 API.
const DefaultBaseURL = "https://circleci.com/api/v2"

// vcsSlug is the version control prefix of every project slug.
const vcsSlug = "gh"

const resourceUsageBase = "https://bff.circleci.com/private/insights/resource-usage"

// Client represents a CircleCI API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

var _ contract.InsightsClient = &Client{} // Compile-time check

// Option is a function that configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the CircleCI API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock sets the clock used to compute run windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new CircleCI client authenticating with the given token.
func NewClient(token string, opts ...Option) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: cleanhttp.DefaultPooledClient(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GetJSON requests path with the given query and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	contract.LogDebug("GET %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Circle-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("CircleCI API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CircleCI API request to %s failed with status %d: %s", path, resp.StatusCode, truncate(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse CircleCI API response from %s: %w", path, err)
	}
	return nil
}

// GetPagedJSON drains every page of a list endpoint.
func GetPagedJSON[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	return paged.FetchAll(ctx, func(ctx context.Context, token string) (paged.Page[T], error) {
		query := url.Values{}
		for k, v := range params {
			query[k] = v
		}
		if token != "" {
			query.Set("page-token", token)
		}
		var page schema.Paged[T]
		if err := c.GetJSON(ctx, path, query, &page); err != nil {
			return paged.Page[T]{}, err
		}
		return paged.Page[T]{Items: page.Items, NextToken: page.NextPageToken}, nil
	})
}

// GetOrgSummaryData implements the InsightsClient interface.
func (c *Client) GetOrgSummaryData(ctx context.Context, org string, window schema.ReportingWindow) (schema.OrgSummaryData, error) {
	var data schema.OrgSummaryData
	err := c.GetJSON(ctx, fmt.Sprintf("/insights/%s/%s/summary", vcsSlug, url.PathEscape(org)),
		url.Values{"reporting-window": {string(window)}}, &data)
	return data, err
}

// GetProjectWorkflowsPageData implements the InsightsClient interface.
func (c *Client) GetProjectWorkflowsPageData(ctx context.Context, org, project string, window schema.ReportingWindow) (schema.ProjectWorkflowsPageData, error) {
	var data schema.ProjectWorkflowsPageData
	err := c.GetJSON(ctx, fmt.Sprintf("/insights/pages/%s/summary", projectSlug(org, project)),
		url.Values{"reporting-window": {string(window)}}, &data)
	return data, err
}

// GetProjectBySlug implements the InsightsClient interface.
func (c *Client) GetProjectBySlug(ctx context.Context, org, project string) (schema.ProjectBySlug, error) {
	var data schema.ProjectBySlug
	err := c.GetJSON(ctx, "/project/"+projectSlug(org, project), nil, &data)
	return data, err
}

// GetProjectWorkflowMetrics implements the InsightsClient interface.
func (c *Client) GetProjectWorkflowMetrics(ctx context.Context, org, project string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowMetrics, error) {
	return GetPagedJSON[schema.WorkflowMetrics](ctx, c, fmt.Sprintf("/insights/%s/workflows", projectSlug(org, project)),
		url.Values{"reporting-window": {string(window)}, "all-branches": {strconv.FormatBool(allBranches)}})
}

// GetProjectWorkflowRuns implements the InsightsClient interface. Only the
// first page is requested, covering the window that ends now.
func (c *Client) GetProjectWorkflowRuns(ctx context.Context, org, project, workflow string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowRunItem, error) {
	end := c.now().UTC()
	start := end.Add(-time.Duration(window.Days()) * 24 * time.Hour)

	var page schema.Paged[schema.WorkflowRunItem]
	err := c.GetJSON(ctx, fmt.Sprintf("/insights/%s/workflows/%s", projectSlug(org, project), url.PathEscape(workflow)),
		url.Values{
			"all-branches": {strconv.FormatBool(allBranches)},
			"start-date":   {start.Format(time.RFC3339)},
			"end-date":     {end.Format(time.RFC3339)},
		}, &page)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetProjectWorkflowJobMetrics implements the InsightsClient interface.
func (c *Client) GetProjectWorkflowJobMetrics(ctx context.Context, org, project, workflow string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowMetrics, error) {
	return GetPagedJSON[schema.WorkflowMetrics](ctx, c, fmt.Sprintf("/insights/%s/workflows/%s/jobs", projectSlug(org, project), url.PathEscape(workflow)),
		url.Values{"reporting-window": {string(window)}, "all-branches": {strconv.FormatBool(allBranches)}})
}

// ListWorkflowJobs implements the InsightsClient interface.
func (c *Client) ListWorkflowJobs(ctx context.Context, workflowID string) ([]schema.WorkflowJob, error) {
	return GetPagedJSON[schema.WorkflowJob](ctx, c, fmt.Sprintf("/workflow/%s/job", url.PathEscape(workflowID)), nil)
}

// GetJobDetails implements the InsightsClient interface.
func (c *Client) GetJobDetails(ctx context.Context, org, project string, jobNumber int) (schema.JobDetails, error) {
	var data schema.JobDetails
	err := c.GetJSON(ctx, fmt.Sprintf("/project/%s/job/%d", projectSlug(org, project), jobNumber), nil, &data)
	return data, err
}

// ResourceUsageURL returns the resource usage view of a workflow's jobs. It
// is addressed by the organization and project ids of ProjectBySlug.
func ResourceUsageURL(orgID, projectID, workflow string, allBranches bool, window schema.ReportingWindow) string {
	return fmt.Sprintf("%s/%s/%s/workflows/%s/jobs/?allBranches=%t&reporting-window=%s",
		resourceUsageBase, orgID, projectID, url.PathEscape(workflow), allBranches, window)
}

func projectSlug(org, project string) string {
	return vcsSlug + "/" + url.PathEscape(org) + "/" + url.PathEscape(project)
}

func truncate(body []byte) string {
	const maxBody = 200
	if len(body) > maxBody {
		return string(body[:maxBody]) + "..."
	}
	return string(body)
}
