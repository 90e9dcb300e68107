// Package buildkite reads build history from the Buildkite REST API.
package buildkite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"buildmail-agent/src/provider"
)

const (
	// APIBaseURL is the base URL for the Buildkite API.
	APIBaseURL = "https://api.buildkite.com/v2"
)

// Client is a Buildkite API client.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

// Build represents a Buildkite build.
type Build struct {
	ID            string         `json:"id"`
	Number        int            `json:"number"`
	State         string         `json:"state"`
	WebURL        string         `json:"web_url"`
	Message       string         `json:"message"`
	Commit        string         `json:"commit"`
	Branch        string         `json:"branch"`
	Author        *Person        `json:"author"`
	CreatedAt     time.Time      `json:"created_at"`
	FinishedAt    *time.Time     `json:"finished_at"`
	Jobs          []Job          `json:"jobs"`
	TriggeredFrom *TriggeredFrom `json:"triggered_from"`
}

// Person is a commit author.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TriggeredFrom names the upstream build that triggered a build.
type TriggeredFrom struct {
	BuildID           string `json:"build_id"`
	BuildNumber       int    `json:"build_number"`
	BuildPipelineSlug string `json:"build_pipeline_slug"`
}

// Job represents a Buildkite job within a build.
type Job struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	State         string    `json:"state"`
	ExitStatus    *int      `json:"exit_status"`
	SoftFailed    bool      `json:"soft_failed"`
	ArtifactPaths string    `json:"artifact_paths"`
	CreatedAt     time.Time `json:"created_at"`
	RawLogURL     string    `json:"raw_log_url"`
}

// NewClient creates a new Buildkite API client.
func NewClient(apiToken string) *Client {
	return &Client{
		apiToken: apiToken,
		baseURL:  APIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ParseBuildURL extracts the organization, pipeline, and build number from a Buildkite URL.
// Expected format: https://buildkite.com/{org}/{pipeline}/builds/{number}
func ParseBuildURL(buildURL string) (org, pipeline string, buildNumber int, err error) {
	pattern := `https://buildkite\.com/([^/]+)/([^/]+)/builds/(\d+)`
	re := regexp.MustCompile(pattern)

	matches := re.FindStringSubmatch(buildURL)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("invalid Buildkite URL format: %s", buildURL)
	}

	org = matches[1]
	pipeline = matches[2]
	buildNumber, err = strconv.Atoi(matches[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid build number in URL: %w", err)
	}

	return org, pipeline, buildNumber, nil
}

// GetBuild fetches a build's metadata from the Buildkite API.
func (c *Client) GetBuild(ctx context.Context, org, pipeline string, buildNumber int) (*Build, error) {
	url := fmt.Sprintf("%s/organizations/%s/pipelines/%s/builds/%d", c.baseURL, org, pipeline, buildNumber)

	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var build Build
	if err := json.NewDecoder(body).Decode(&build); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &build, nil
}

// GetJobLogByURL fetches the raw log content using the provided raw_log_url.
func (c *Client) GetJobLogByURL(ctx context.Context, rawLogURL string) (string, error) {
	body, err := c.get(ctx, rawLogURL, "text/plain")
	if err != nil {
		return "", err
	}
	defer body.Close()

	logBytes, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read log content: %w", err)
	}

	return string(logBytes), nil
}

func (c *Client) get(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", provider.ErrAuthFailed, url)
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", provider.ErrBuildNotFound, url)
	case http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", provider.ErrRateLimited, url)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
}
