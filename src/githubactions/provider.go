package githubactions

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"buildmail-agent/src/history"
	"buildmail-agent/src/provider"
)

// DefaultWindow is how many earlier runs are listed at most.
const DefaultWindow = 20

var logTimestamp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z `)

// Provider implements provider.Provider for GitHub Actions
type Provider struct {
	client *Client
	// Window bounds the history walk.
	Window int
}

// NewProvider creates a GitHub Actions provider with API token
func NewProvider(token string) *Provider {
	return NewProviderWithClient(NewClient(token))
}

// NewProviderWithClient creates a provider around an existing client.
func NewProviderWithClient(c *Client) *Provider {
	return &Provider{client: c, Window: DefaultWindow}
}

// Name returns "github"
func (p *Provider) Name() string {
	return "github"
}

// ParseURL delegates to provider.ParseURL
func (p *Provider) ParseURL(url string) (*provider.BuildRef, error) {
	return provider.ParseURL(url)
}

// FetchGraph loads the run ref points at and the earlier runs of the same
// workflow and branch back to the last success. Workflow runs carry no
// upstream links.
func (p *Provider) FetchGraph(ctx context.Context, ref *provider.BuildRef) (provider.Graph, provider.Build, error) {
	owner := ref.Metadata["owner"]
	repo := ref.Metadata["repo"]

	current, err := p.client.GetWorkflowRun(ctx, owner, repo, ref.BuildID)
	if err != nil {
		return nil, nil, err
	}

	chain, err := p.previousRuns(ctx, owner, repo, current)
	if err != nil {
		return nil, nil, err
	}
	chain = append(chain, *current)

	workflow := workflowName(current)
	name := repo + "/" + workflow
	g := history.NewGraph()
	project := g.AddProject(name,
		history.WithFullName(owner+"/"+name),
		history.WithURL(fmt.Sprintf("%s/%s/actions/workflows/%s/", owner, repo, workflowFile(current))),
	)

	for i := range chain {
		run := &chain[i]
		spec := buildSpec(owner, repo, run)
		if run.ID == current.ID && spec.Result == provider.ResultFailure {
			spec.Log, spec.LogErr = p.runLog(ctx, owner, repo, run)
		}
		if _, err := project.AddBuild(spec); err != nil {
			return nil, nil, err
		}
	}

	build, err := g.Lookup(name, current.RunNumber)
	if err != nil {
		return nil, nil, err
	}
	return g, build, nil
}

func (p *Provider) window() int {
	if p.Window <= 0 {
		return DefaultWindow
	}
	return p.Window
}

// previousRuns lists the runs before current on its branch until a
// successful or running one, oldest first.
func (p *Provider) previousRuns(ctx context.Context, owner, repo string, current *WorkflowRun) ([]WorkflowRun, error) {
	if current.WorkflowID == 0 {
		return nil, nil
	}
	runs, err := p.client.ListWorkflowRuns(ctx, owner, repo, current.WorkflowID, current.HeadBranch, p.window()+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs of workflow %d: %w", current.WorkflowID, err)
	}

	var found []WorkflowRun
	last := current.RunNumber
	for _, run := range runs {
		// Newest first; re-runs and concurrent runs may repeat or interleave.
		if run.RunNumber >= last {
			continue
		}
		last = run.RunNumber
		found = append(found, run)

		result, building := MapConclusion(&run)
		if building || result == provider.ResultSuccess || len(found) >= p.window() {
			break
		}
	}

	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}
	return found, nil
}

// runLog concatenates the logs of the failed jobs of run.
func (p *Provider) runLog(ctx context.Context, owner, repo string, run *WorkflowRun) ([]string, error) {
	jobs, err := p.client.GetWorkflowJobs(ctx, owner, repo, strconv.FormatInt(run.ID, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs of run %d: %w", run.ID, err)
	}

	var lines []string
	for _, job := range jobs {
		if job.Conclusion != "failure" && job.Conclusion != "timed_out" {
			continue
		}
		content, err := p.client.GetJobLogs(ctx, owner, repo, job.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch log of job %s: %w", job.Name, err)
		}
		for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
			lines = append(lines, logTimestamp.ReplaceAllString(strings.TrimRight(line, "\r"), ""))
		}
	}
	return lines, nil
}

// MapConclusion converts a run status and conclusion into a result.
// building is set while the run has not completed.
func MapConclusion(run *WorkflowRun) (result provider.Result, building bool) {
	if run.Status != "" && run.Status != "completed" {
		return provider.ResultNone, true
	}
	switch run.Conclusion {
	case "success":
		return provider.ResultSuccess, false
	case "failure", "timed_out", "startup_failure":
		return provider.ResultFailure, false
	case "cancelled":
		return provider.ResultAborted, false
	case "skipped", "neutral", "stale":
		return provider.ResultNotBuilt, false
	case "action_required":
		return provider.ResultUnstable, false
	}
	return provider.ResultNone, false
}

func buildSpec(owner, repo string, run *WorkflowRun) history.BuildSpec {
	result, building := MapConclusion(run)
	spec := history.BuildSpec{
		Number:   run.RunNumber,
		Result:   result,
		Building: building,
		URL:      fmt.Sprintf("%s/%s/actions/runs/%d/", owner, repo, run.ID),
	}

	if c := run.HeadCommit; c != nil && (c.Author.Email != "" || c.Author.Name != "") {
		id := c.Author.Email
		if id == "" {
			id = c.Author.Name
		}
		user := provider.User{ID: id, FullName: c.Author.Name, Email: c.Author.Email}
		spec.Changes = []provider.ChangeEntry{{Author: user, Message: c.Message}}
	}
	return spec
}

// workflowName is the workflow file name without extension, falling back to
// the run name for runs without a path.
func workflowName(run *WorkflowRun) string {
	if run.Path != "" {
		base := path.Base(run.Path)
		return strings.TrimSuffix(base, path.Ext(base))
	}
	if run.Name != "" {
		return run.Name
	}
	return strconv.FormatInt(run.WorkflowID, 10)
}

func workflowFile(run *WorkflowRun) string {
	if run.Path != "" {
		return path.Base(run.Path)
	}
	return strconv.FormatInt(run.WorkflowID, 10)
}
