package recipients

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"buildmail-agent/src/address"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/provider"
)

// Filter decides whether a candidate recipient must be dropped.
type Filter interface {
	ShouldExclude(b provider.Build, log logger.Logger, a *address.Address) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(b provider.Build, log logger.Logger, a *address.Address) bool

func (f FilterFunc) ShouldExclude(b provider.Build, log logger.Logger, a *address.Address) bool {
	return f(b, log, a)
}

// FilterChain runs filters in order; the first one to exclude an address wins.
// An empty chain approves everything.
type FilterChain []Filter

// Apply returns the approved subset of candidates, preserving order.
func (c FilterChain) Apply(b provider.Build, log logger.Logger, candidates *address.Set) *address.Set {
	return candidates.Filter(func(a *address.Address) bool {
		for _, f := range c {
			if f.ShouldExclude(b, log, a) {
				log.Debug("Filtered out e-mail recipient %s", a.Addr)
				return false
			}
		}
		return true
	})
}

// PatternFilter excludes addresses matching any of its glob patterns.
// Patterns are matched case-insensitively against the bare address.
type PatternFilter struct {
	patterns []string
}

// NewPatternFilter validates patterns such as "*@bots.example.com" or "noreply*".
func NewPatternFilter(patterns ...string) (*PatternFilter, error) {
	f := &PatternFilter{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		f.patterns = append(f.patterns, p)
	}
	return f, nil
}

func (f *PatternFilter) ShouldExclude(_ provider.Build, log logger.Logger, a *address.Address) bool {
	addr := a.Key()
	for _, p := range f.patterns {
		if doublestar.MatchUnvalidated(p, addr) {
			log.Info("Not sending mail to %s, excluded by pattern %s", a.Addr, p)
			return true
		}
	}
	return false
}

// DomainFilter only lets through addresses in one of the allowed domains.
// With no domains configured it excludes nothing.
type DomainFilter struct {
	domains map[string]bool
}

func NewDomainFilter(domains ...string) *DomainFilter {
	f := &DomainFilter{domains: make(map[string]bool)}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			f.domains[d] = true
		}
	}
	return f
}

func (f *DomainFilter) ShouldExclude(_ provider.Build, log logger.Logger, a *address.Address) bool {
	if len(f.domains) == 0 {
		return false
	}
	key := a.Key()
	domain := key[strings.LastIndex(key, "@")+1:]
	if f.domains[domain] {
		return false
	}
	log.Info("Not sending mail to %s, domain %s is not allowed", a.Addr, domain)
	return true
}
