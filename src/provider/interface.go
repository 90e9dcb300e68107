package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidURL      = errors.New("invalid build URL")
	ErrProviderUnknown = errors.New("unknown CI provider")
)

// Project is a job/pipeline whose builds form a strictly ordered chain.
type Project interface {
	// Name is the short name used in configuration (e.g. upstream-individuals:<name>).
	Name() string
	// FullName is the fully qualified name, used in identification headers.
	FullName() string
	// URL is the project path relative to the CI root URL, ending in "/".
	URL() string
	// ArtifactPatterns is the comma/space separated list of archived include globs.
	ArtifactPatterns() string
}

// Build is a read-only view of one build. Implementations must return a nil
// interface (not a typed nil) when a link is absent.
type Build interface {
	Project() Project
	Number() int
	Result() Result
	// IsBuilding reports whether the build is still running.
	IsBuilding() bool
	Previous() Build
	Next() Build
	ChangeSet() []ChangeEntry
	// Culprits are the users implicated in the current non-success streak.
	Culprits() []User
	// UpstreamBuild returns the build of p recorded as feeding this build.
	UpstreamBuild(p Project) Build
	FullDisplayName() string
	// URL is the build path relative to the CI root URL, ending in "/".
	URL() string
	// Workspace is the absolute workspace path used by the build, if known.
	Workspace() string
	// Log returns at most maxLines trailing lines of the build console.
	Log(maxLines int) ([]string, error)
}

// ProjectResolver looks projects up by name.
type ProjectResolver interface {
	Project(name string) (Project, error)
}

// Graph is a materialised, read-only window of build history.
type Graph interface {
	ProjectResolver
	Lookup(project string, number int) (Build, error)
}

// Provider defines the interface for CI/CD platform integrations
type Provider interface {
	// Name returns the provider name (e.g., "buildkite", "github")
	Name() string

	// ParseURL extracts build reference from URL
	ParseURL(url string) (*BuildRef, error)

	// FetchGraph loads the history window needed to notify for ref and
	// returns it together with the build ref points at.
	FetchGraph(ctx context.Context, ref *BuildRef) (Graph, Build, error)
}

var (
	buildkiteURLPattern = regexp.MustCompile(`^https://buildkite\.com/([^/]+)/([^/]+)/builds/(\d+)`)
	githubURLPattern    = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/actions/runs/(\d+)`)
)

// ParseURL detects provider and parses build reference from URL
func ParseURL(url string) (*BuildRef, error) {
	if matches := buildkiteURLPattern.FindStringSubmatch(url); matches != nil {
		return &BuildRef{
			Provider: "buildkite",
			BuildID:  matches[3],
			Metadata: map[string]string{
				"org":      matches[1],
				"pipeline": matches[2],
			},
		}, nil
	}

	if matches := githubURLPattern.FindStringSubmatch(url); matches != nil {
		return &BuildRef{
			Provider: "github",
			BuildID:  matches[3],
			Metadata: map[string]string{
				"owner": matches[1],
				"repo":  matches[2],
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidURL, url)
}

// FetchURL resolves the provider for buildURL among providers and loads the
// history window of the build it names.
func FetchURL(ctx context.Context, buildURL string, providers ...Provider) (Graph, Build, error) {
	ref, err := ParseURL(buildURL)
	if err != nil {
		return nil, nil, err
	}
	p, err := GetProvider(ref, providers...)
	if err != nil {
		return nil, nil, err
	}
	return p.FetchGraph(ctx, ref)
}

// GetProvider returns the provider registered for ref.Provider.
func GetProvider(ref *BuildRef, providers ...Provider) (Provider, error) {
	for _, p := range providers {
		if p != nil && p.Name() == ref.Provider {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, ref.Provider)
}
