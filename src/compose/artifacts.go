package compose

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var patternSeparator = regexp.MustCompile(`[, ]+`)

// ArtifactMatcher reports whether a workspace-relative path is covered by a
// project's archive include patterns. Patterns are Ant style: comma or space
// separated, "**" crosses directories, and a trailing '/' means everything
// below that directory.
type ArtifactMatcher struct {
	patterns []string
}

// NewArtifactMatcher parses an include string such as "dist/, **/*.jar".
// Patterns that do not compile are dropped.
func NewArtifactMatcher(includes string) *ArtifactMatcher {
	m := &ArtifactMatcher{}
	for _, p := range patternSeparator.Split(strings.TrimSpace(includes), -1) {
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(p, `\`, "/")
		if strings.HasSuffix(p, "/") {
			p += "**"
		}
		if !doublestar.ValidatePattern(p) {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Matches reports whether path (separated by '/') would be archived.
func (m *ArtifactMatcher) Matches(path string) bool {
	if m == nil || path == "" {
		return false
	}
	for _, p := range m.patterns {
		if doublestar.MatchUnvalidated(p, path) {
			return true
		}
	}
	return false
}

// Patterns returns the normalized patterns.
func (m *ArtifactMatcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
