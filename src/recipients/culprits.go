package recipients

import (
	"errors"
	"fmt"

	"buildmail-agent/src/address"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/provider"
)

var (
	// ErrNoFingerprint means neither build is linked to the upstream project at all.
	ErrNoFingerprint = errors.New("no upstream relationship recorded")
	// ErrIncompleteChain means only part of the upstream relationship is known.
	ErrIncompleteChain = errors.New("incomplete upstream relationship")
)

// Resolver computes the committers of upstream builds newly reflected in a
// downstream build.
type Resolver struct {
	Authorizer *Authorizer
	Normalizer Normalizer
}

// Resolve returns the addresses of everyone who committed to upstream in the
// builds after the previous build's upstream build, up to and including the
// current build's upstream build.
//
// A nil set with ErrNoFingerprint or ErrIncompleteChain means the range is
// unknown. An empty set means the range is known and had no committers.
func (r *Resolver) Resolve(log logger.Logger, upstream provider.Project, current provider.Build) (*address.Set, error) {
	upstreamBuild := current.UpstreamBuild(upstream)
	previous := current.Previous()
	var previousUpstream provider.Build
	if previous != nil {
		previousUpstream = previous.UpstreamBuild(upstream)
	}

	if previous == nil && upstreamBuild == nil && previousUpstream == nil {
		log.Info("Unable to compute the changesets in %s. Is the fingerprint configured?", upstream.FullName())
		return nil, fmt.Errorf("%w: %s", ErrNoFingerprint, upstream.FullName())
	}
	if previous == nil || upstreamBuild == nil || previousUpstream == nil {
		log.Info("Unable to compute the changesets in %s", upstream.FullName())
		return nil, fmt.Errorf("%w: %s", ErrIncompleteChain, upstream.FullName())
	}

	set := address.NewSet()
	if upstreamBuild.Number() <= previousUpstream.Number() {
		return set, nil
	}

	for b := previousUpstream.Next(); b != nil; b = b.Next() {
		for _, addr := range r.Authorizer.AuthorizedAddresses(log, b) {
			set.Merge(r.Normalizer.Parse(log, addr))
		}
		if b.Number() >= upstreamBuild.Number() {
			break
		}
	}
	return set, nil
}
