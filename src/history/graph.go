// Package history provides an in-memory, append-only build graph.
//
// Each project holds a strictly ordered chain of builds. Links between
// builds (previous/next, upstream) are resolved on read, so readers never
// observe a half-built chain and never need to lock across a walk.
package history

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"buildmail-agent/src/provider"
)

// Graph holds every project known to one notification run.
type Graph struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{projects: make(map[string]*Project)}
}

// ProjectOption customises a project when it is added.
type ProjectOption func(*Project)

// WithFullName sets the fully qualified project name.
func WithFullName(name string) ProjectOption {
	return func(p *Project) { p.fullName = name }
}

// WithURL sets the project path relative to the CI root URL.
func WithURL(url string) ProjectOption {
	return func(p *Project) { p.url = url }
}

// WithArtifacts sets the archived include patterns.
func WithArtifacts(patterns string) ProjectOption {
	return func(p *Project) { p.artifacts = patterns }
}

// AddProject registers a project, returning the existing one if the name is taken.
func (g *Graph) AddProject(name string, opts ...ProjectOption) *Project {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.projects[name]; ok {
		return p
	}
	p := &Project{
		graph:    g,
		name:     name,
		fullName: name,
		url:      "job/" + name + "/",
	}
	for _, opt := range opts {
		opt(p)
	}
	g.projects[name] = p
	return p
}

// Project implements provider.ProjectResolver.
func (g *Graph) Project(name string) (provider.Project, error) {
	p := g.project(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrProjectNotFound, name)
	}
	return p, nil
}

// Lookup implements provider.Graph.
func (g *Graph) Lookup(project string, number int) (provider.Build, error) {
	p := g.project(project)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrProjectNotFound, project)
	}
	b := p.build(number)
	if b == nil {
		return nil, fmt.Errorf("%w: %s #%d", provider.ErrBuildNotFound, project, number)
	}
	return b, nil
}

// Latest returns the newest build of project.
func (g *Graph) Latest(project string) (provider.Build, error) {
	p := g.project(project)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrProjectNotFound, project)
	}
	b := p.Last()
	if b == nil {
		return nil, fmt.Errorf("%w: %s has no builds", provider.ErrBuildNotFound, project)
	}
	return b, nil
}

// Projects returns the project names in sorted order.
func (g *Graph) Projects() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.projects))
	for name := range g.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) project(name string) *Project {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.projects[name]
}

// Project is a chain of builds ordered by number.
type Project struct {
	graph     *Graph
	name      string
	fullName  string
	url       string
	artifacts string
	builds    []*Build
}

func (p *Project) Name() string             { return p.name }
func (p *Project) FullName() string         { return p.fullName }
func (p *Project) URL() string              { return p.url }
func (p *Project) ArtifactPatterns() string { return p.artifacts }

// BuildSpec describes a build to append to a project.
type BuildSpec struct {
	Number   int
	Result   provider.Result
	Building bool
	Changes  []provider.ChangeEntry
	// Upstream maps an upstream project name to the build number that fed this build.
	Upstream  map[string]int
	Workspace string
	// URL overrides the build path derived from the project URL and number.
	URL string
	Log []string
	// LogErr, when set, is returned by Log instead of the lines.
	LogErr error
}

// AddBuild appends a build. Numbers must be strictly increasing.
func (p *Project) AddBuild(spec BuildSpec) (*Build, error) {
	p.graph.mu.Lock()
	defer p.graph.mu.Unlock()

	if n := len(p.builds); n > 0 && p.builds[n-1].number >= spec.Number {
		return nil, fmt.Errorf("build %s #%d must come after #%d", p.name, spec.Number, p.builds[n-1].number)
	}

	upstream := make(map[string]int, len(spec.Upstream))
	for name, number := range spec.Upstream {
		upstream[name] = number
	}

	b := &Build{
		project:   p,
		index:     len(p.builds),
		number:    spec.Number,
		result:    spec.Result,
		building:  spec.Building,
		changes:   append([]provider.ChangeEntry(nil), spec.Changes...),
		upstream:  upstream,
		workspace: spec.Workspace,
		url:       spec.URL,
		log:       append([]string(nil), spec.Log...),
		logErr:    spec.LogErr,
	}
	p.builds = append(p.builds, b)
	return b, nil
}

// Builds returns the project's builds, oldest first.
func (p *Project) Builds() []*Build {
	p.graph.mu.RLock()
	defer p.graph.mu.RUnlock()
	return append([]*Build(nil), p.builds...)
}

// Last returns the newest build, or nil.
func (p *Project) Last() *Build {
	p.graph.mu.RLock()
	defer p.graph.mu.RUnlock()
	if len(p.builds) == 0 {
		return nil
	}
	return p.builds[len(p.builds)-1]
}

func (p *Project) build(number int) *Build {
	p.graph.mu.RLock()
	defer p.graph.mu.RUnlock()

	i := sort.Search(len(p.builds), func(i int) bool { return p.builds[i].number >= number })
	if i < len(p.builds) && p.builds[i].number == number {
		return p.builds[i]
	}
	return nil
}

func (p *Project) at(i int) *Build {
	p.graph.mu.RLock()
	defer p.graph.mu.RUnlock()
	if i < 0 || i >= len(p.builds) {
		return nil
	}
	return p.builds[i]
}

// Build is one finished (or running) build in a project chain.
type Build struct {
	project   *Project
	index     int
	number    int
	result    provider.Result
	building  bool
	changes   []provider.ChangeEntry
	upstream  map[string]int
	workspace string
	url       string
	log       []string
	logErr    error
}

func (b *Build) Project() provider.Project         { return b.project }
func (b *Build) Number() int                       { return b.number }
func (b *Build) Result() provider.Result           { return b.result }
func (b *Build) IsBuilding() bool                  { return b.building }
func (b *Build) ChangeSet() []provider.ChangeEntry { return b.changes }
func (b *Build) Workspace() string                 { return b.workspace }

func (b *Build) Previous() provider.Build {
	if prev := b.project.at(b.index - 1); prev != nil {
		return prev
	}
	return nil
}

func (b *Build) Next() provider.Build {
	if next := b.project.at(b.index + 1); next != nil {
		return next
	}
	return nil
}

// UpstreamBuild returns the build of p recorded as feeding this build.
func (b *Build) UpstreamBuild(p provider.Project) provider.Build {
	if p == nil {
		return nil
	}
	number, ok := b.upstream[p.Name()]
	if !ok {
		return nil
	}
	up := b.project.graph.project(p.Name())
	if up == nil {
		return nil
	}
	if ub := up.build(number); ub != nil {
		return ub
	}
	return nil
}

// Culprits returns the authors of this build's changes plus the culprits of
// every directly preceding non-success build, in first-seen order.
func (b *Build) Culprits() []provider.User {
	seen := make(map[string]bool)
	var users []provider.User
	add := func(entries []provider.ChangeEntry) {
		for _, e := range entries {
			key := e.Author.ID
			if key == "" {
				key = e.Author.FullName
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			users = append(users, e.Author)
		}
	}

	add(b.changes)
	for prev := b.project.at(b.index - 1); prev != nil; prev = b.project.at(prev.index - 1) {
		if !prev.result.IsCompleted() || prev.result == provider.ResultSuccess {
			break
		}
		add(prev.changes)
	}
	return users
}

func (b *Build) FullDisplayName() string {
	return b.project.fullName + " #" + strconv.Itoa(b.number)
}

func (b *Build) URL() string {
	if b.url != "" {
		return b.url
	}
	return b.project.url + strconv.Itoa(b.number) + "/"
}

// Log returns at most maxLines trailing console lines.
func (b *Build) Log(maxLines int) ([]string, error) {
	if b.logErr != nil {
		return nil, b.logErr
	}
	if maxLines <= 0 || len(b.log) <= maxLines {
		return append([]string(nil), b.log...), nil
	}
	return append([]string(nil), b.log[len(b.log)-maxLines:]...), nil
}
