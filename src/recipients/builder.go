// Package recipients computes who receives a build notification: configured
// addresses, upstream committers and the build's own culprits, filtered once
// at the end.
package recipients

import (
	"strings"

	"buildmail-agent/src/address"
	"buildmail-agent/src/identity"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/provider"
)

// UpstreamIndividualsPrefix marks a recipient token naming an upstream
// project whose committers should be notified.
const UpstreamIndividualsPrefix = "upstream-individuals:"

// Normalizer applies the configured suffix and charset to address tokens.
type Normalizer struct {
	DefaultSuffix string
	Charset       string
}

// Parse splits s on whitespace and commas and normalizes every token.
// Unusable tokens are logged and skipped.
func (n Normalizer) Parse(log logger.Logger, s string) *address.Set {
	set := address.NewSet()
	for _, token := range address.Tokenize(s) {
		a, err := address.Normalize(token, n.DefaultSuffix, n.Charset)
		if err != nil {
			log.Info("Unable to send to address: %s: %v", token, err)
			continue
		}
		set.Add(a)
	}
	return set
}

// Request is one recipient computation.
type Request struct {
	// Recipients is the configured recipients string.
	Recipients string
	// UpstreamProjects are projects whose committers are always included.
	UpstreamProjects []string
	// SendToIndividuals adds the build's own culprits.
	SendToIndividuals bool
	Build             provider.Build
}

// Builder assembles the recipient set for a build.
type Builder struct {
	Projects   provider.ProjectResolver
	Resolver   *Resolver
	Authorizer *Authorizer
	Normalizer Normalizer
	Filters    FilterChain
}

// Options configures NewBuilder.
type Options struct {
	DefaultSuffix string
	Charset       string
	Identities    identity.Store
	Policy        Policy
	Verbose       bool
	Filters       FilterChain
}

// NewBuilder wires a Builder whose resolver and individual lookups share one
// Authorizer and Normalizer.
func NewBuilder(projects provider.ProjectResolver, opts Options) *Builder {
	norm := Normalizer{DefaultSuffix: opts.DefaultSuffix, Charset: opts.Charset}
	auth := &Authorizer{Identities: opts.Identities, Policy: opts.Policy, Verbose: opts.Verbose}
	return &Builder{
		Projects:   projects,
		Resolver:   &Resolver{Authorizer: auth, Normalizer: norm},
		Authorizer: auth,
		Normalizer: norm,
		Filters:    opts.Filters,
	}
}

// Build merges every recipient source and applies the filter chain once to
// the complete candidate set.
func (bl *Builder) Build(log logger.Logger, req Request) *address.Set {
	candidates := address.NewSet()

	for _, token := range strings.Fields(req.Recipients) {
		if name, ok := strings.CutPrefix(token, UpstreamIndividualsPrefix); ok {
			candidates.Merge(bl.upstream(log, name, req.Build))
			continue
		}
		candidates.Merge(bl.Normalizer.Parse(log, token))
	}

	for _, name := range req.UpstreamProjects {
		candidates.Merge(bl.upstream(log, name, req.Build))
	}

	if req.SendToIndividuals {
		for _, addr := range bl.Authorizer.AuthorizedAddresses(log, req.Build) {
			candidates.Merge(bl.Normalizer.Parse(log, addr))
		}
	}

	return bl.Filters.Apply(req.Build, log, candidates)
}

func (bl *Builder) upstream(log logger.Logger, name string, b provider.Build) *address.Set {
	if bl.Projects == nil {
		log.Info("No project graph available. Cannot retrieve project %s", name)
		return nil
	}
	project, err := bl.Projects.Project(name)
	if err != nil {
		log.Info("No such project exists: %s", name)
		return nil
	}
	set, err := bl.Resolver.Resolve(log, project, b)
	if err != nil {
		return nil
	}
	return set
}
