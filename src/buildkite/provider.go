package buildkite

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"buildmail-agent/src/history"
	"buildmail-agent/src/provider"
)

// DefaultWindow is how many earlier builds are fetched at most.
const DefaultWindow = 20

// Provider implements provider.Provider for Buildkite
type Provider struct {
	client *Client
	// Window bounds the history walk, per project.
	Window int
}

// NewProvider creates a Buildkite provider with API token
func NewProvider(token string) *Provider {
	return NewProviderWithClient(NewClient(token))
}

// NewProviderWithClient creates a provider around an existing client.
func NewProviderWithClient(c *Client) *Provider {
	return &Provider{client: c, Window: DefaultWindow}
}

// Name returns "buildkite"
func (p *Provider) Name() string {
	return "buildkite"
}

// ParseURL delegates to provider.ParseURL
func (p *Provider) ParseURL(url string) (*provider.BuildRef, error) {
	return provider.ParseURL(url)
}

// FetchGraph loads the build ref points at, the earlier builds of its
// pipeline back to the last success, and the upstream builds that triggered
// it since the previous build.
func (p *Provider) FetchGraph(ctx context.Context, ref *provider.BuildRef) (provider.Graph, provider.Build, error) {
	org := ref.Metadata["org"]
	pipeline := ref.Metadata["pipeline"]
	number, err := strconv.Atoi(ref.BuildID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid build number %q: %w", ref.BuildID, err)
	}

	current, err := p.client.GetBuild(ctx, org, pipeline, number)
	if err != nil {
		return nil, nil, err
	}

	chain, err := p.previousBuilds(ctx, org, pipeline, current)
	if err != nil {
		return nil, nil, err
	}
	chain = append(chain, current)

	g := history.NewGraph()
	project := g.AddProject(pipeline,
		history.WithFullName(org+"/"+pipeline),
		history.WithURL(org+"/"+pipeline+"/builds/"),
		history.WithArtifacts(artifactPatterns(current)),
	)

	if err := p.addUpstream(ctx, g, org, chain); err != nil {
		return nil, nil, err
	}

	for _, b := range chain {
		spec := buildSpec(b)
		if b.Number == current.Number && spec.Result == provider.ResultFailure {
			spec.Log, spec.LogErr = p.buildLog(ctx, b)
		}
		if _, err := project.AddBuild(spec); err != nil {
			return nil, nil, err
		}
	}

	build, err := g.Lookup(pipeline, current.Number)
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

// previousBuilds walks back from current until a passed or running build, or
// the window, and returns what it found oldest first.
func (p *Provider) previousBuilds(ctx context.Context, org, pipeline string, current *Build) ([]*Build, error) {
	var found []*Build
	for n := current.Number - 1; n >= 1 && n >= current.Number-p.window(); n-- {
		b, err := p.client.GetBuild(ctx, org, pipeline, n)
		if errors.Is(err, provider.ErrBuildNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s/%s #%d: %w", org, pipeline, n, err)
		}
		found = append(found, b)

		result, building := MapState(b)
		if building || result == provider.ResultSuccess {
			break
		}
	}

	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}
	return found, nil
}

// addUpstream loads the builds of the pipeline that triggered the newest
// build, from the one that triggered the build before it.
func (p *Provider) addUpstream(ctx context.Context, g *history.Graph, org string, chain []*Build) error {
	current := chain[len(chain)-1]
	if current.TriggeredFrom == nil || current.TriggeredFrom.BuildPipelineSlug == "" {
		return nil
	}
	slug := current.TriggeredFrom.BuildPipelineSlug
	last := current.TriggeredFrom.BuildNumber

	first := last
	if len(chain) > 1 {
		if prev := chain[len(chain)-2].TriggeredFrom; prev != nil && prev.BuildPipelineSlug == slug && prev.BuildNumber < last {
			first = prev.BuildNumber
		}
	}
	if first < last-p.window() {
		first = last - p.window()
	}

	upstream := g.AddProject(slug,
		history.WithFullName(org+"/"+slug),
		history.WithURL(org+"/"+slug+"/builds/"),
	)
	for n := first; n <= last; n++ {
		b, err := p.client.GetBuild(ctx, org, slug, n)
		if errors.Is(err, provider.ErrBuildNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to fetch upstream %s/%s #%d: %w", org, slug, n, err)
		}
		if _, err := upstream.AddBuild(buildSpec(b)); err != nil {
			return err
		}
	}
	return nil
}

// buildLog concatenates the raw logs of the build's script jobs.
func (p *Provider) buildLog(ctx context.Context, b *Build) ([]string, error) {
	var lines []string
	for _, job := range b.Jobs {
		if job.Type != "script" || job.RawLogURL == "" {
			continue
		}
		content, err := p.client.GetJobLogByURL(ctx, job.RawLogURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch log of job %s: %w", job.Name, err)
		}
		lines = append(lines, strings.Split(strings.TrimRight(content, "\n"), "\n")...)
	}
	return lines, nil
}

// MapState converts a build state into a result. building is set while the
// build is still running.
func MapState(b *Build) (result provider.Result, building bool) {
	switch b.State {
	case "passed":
		for _, job := range b.Jobs {
			if job.SoftFailed {
				return provider.ResultUnstable, false
			}
		}
		return provider.ResultSuccess, false
	case "failed":
		return provider.ResultFailure, false
	case "canceled", "canceling":
		return provider.ResultAborted, false
	case "skipped", "not_run":
		return provider.ResultNotBuilt, false
	case "scheduled", "running", "failing", "creating":
		return provider.ResultNone, true
	}
	return provider.ResultNone, false
}

func buildSpec(b *Build) history.BuildSpec {
	result, building := MapState(b)
	spec := history.BuildSpec{
		Number:   b.Number,
		Result:   result,
		Building: building,
	}
	if b.Author != nil && (b.Author.Email != "" || b.Author.Name != "") {
		id := b.Author.Email
		if id == "" {
			id = b.Author.Name
		}
		spec.Changes = []provider.ChangeEntry{{
			Author:  provider.User{ID: id, FullName: b.Author.Name, Email: b.Author.Email},
			Message: b.Message,
		}}
	}
	if t := b.TriggeredFrom; t != nil && t.BuildPipelineSlug != "" {
		spec.Upstream = map[string]int{t.BuildPipelineSlug: t.BuildNumber}
	}
	return spec
}

// artifactPatterns joins the artifact_paths of every job. Buildkite
// separates paths with ';'.
func artifactPatterns(b *Build) string {
	var patterns []string
	for _, job := range b.Jobs {
		for _, p := range strings.Split(job.ArtifactPaths, ";") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	return strings.Join(patterns, ",")
}
