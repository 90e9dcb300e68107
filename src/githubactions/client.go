package githubactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"buildmail-agent/src/provider"
)

var (
	ErrInvalidURL = errors.New("invalid GitHub Actions URL")
)

var workflowRunURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/actions/runs/(\d+)`)

// Client is a GitHub Actions API client
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new GitHub Actions client
func NewClient(token string) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://api.github.com",
	}
}

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ParseWorkflowRunURL extracts owner, repo, and run ID from URL
func ParseWorkflowRunURL(url string) (owner, repo, runID string, err error) {
	matches := workflowRunURLPattern.FindStringSubmatch(url)
	if matches == nil {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	return matches[1], matches[2], matches[3], nil
}

// GetWorkflowRun fetches workflow run metadata
func (c *Client) GetWorkflowRun(ctx context.Context, owner, repo, runID string) (*WorkflowRun, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%s", c.baseURL, owner, repo, runID)

	var run WorkflowRun
	if err := c.getJSON(ctx, url, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListWorkflowRuns returns up to perPage runs of a workflow on branch,
// newest first.
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo string, workflowID int64, branch string, perPage int) ([]WorkflowRun, error) {
	q := url.Values{}
	q.Set("per_page", fmt.Sprint(perPage))
	if branch != "" {
		q.Set("branch", branch)
	}
	u := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%d/runs?%s", c.baseURL, owner, repo, workflowID, q.Encode())

	var resp WorkflowRunsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.WorkflowRuns, nil
}

// GetWorkflowJobs fetches jobs for a workflow run (handles pagination)
func (c *Client) GetWorkflowJobs(ctx context.Context, owner, repo, runID string) ([]WorkflowJob, error) {
	var allJobs []WorkflowJob
	page := 1
	perPage := 100 // GitHub's max per page

	for {
		url := fmt.Sprintf("%s/repos/%s/%s/actions/runs/%s/jobs?per_page=%d&page=%d",
			c.baseURL, owner, repo, runID, perPage, page)

		var jobsResp WorkflowJobsResponse
		if err := c.getJSON(ctx, url, &jobsResp); err != nil {
			return nil, err
		}

		allJobs = append(allJobs, jobsResp.Jobs...)

		// Check if we've fetched all jobs
		if len(allJobs) >= jobsResp.TotalCount || len(jobsResp.Jobs) < perPage {
			break
		}

		page++
	}

	return allJobs, nil
}

// GetJobLogs fetches the plain text log of a job. The API answers with a
// redirect to short-lived storage.
func (c *Client) GetJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/jobs/%d/logs", c.baseURL, owner, repo, jobID)

	req, err := c.newRequest(ctx, url)
	if err != nil {
		return "", err
	}

	// Don't follow redirects - the storage URL must be fetched without our token
	client := &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: c.httpClient.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", statusError(resp, url)
	}

	logURL := resp.Header.Get("Location")
	if logURL == "" {
		return "", errors.New("no redirect location for logs")
	}

	logReq, err := http.NewRequestWithContext(ctx, "GET", logURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	logResp, err := c.httpClient.Do(logReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer logResp.Body.Close()

	if logResp.StatusCode != http.StatusOK {
		return "", statusError(logResp, logURL)
	}

	body, err := io.ReadAll(logResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read log content: %w", err)
	}

	return string(body), nil
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := c.newRequest(ctx, url)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError maps an unexpected response onto the provider errors.
func statusError(resp *http.Response, url string) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", provider.ErrAuthFailed, url)
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return fmt.Errorf("%w: %s", provider.ErrRateLimited, url)
		}
		return fmt.Errorf("%w: %s", provider.ErrAuthFailed, url)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", provider.ErrBuildNotFound, url)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimited, url)
	}

	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("GitHub API error %d: %s", resp.StatusCode, string(body))
}
