package compose

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Linkifier rewrites workspace paths found in console lines into links to
// the archived artifact or the live workspace.
type Linkifier struct {
	pattern      *regexp.Regexp
	workspaceURL string
	artifactURL  string
	artifacts    *ArtifactMatcher
}

// NewLinkifier returns nil when there is no workspace to match.
// Both the plain path and its file: URL form are recognized.
func NewLinkifier(workspace, workspaceURL, artifactURL string, artifacts *ArtifactMatcher) *Linkifier {
	if workspace == "" {
		return nil
	}
	trimmed := strings.TrimRight(workspace, `/\`)
	if trimmed == "" {
		trimmed = workspace
	}
	fileURI := "file:" + filepath.ToSlash(trimmed) + "/"
	if !strings.HasPrefix(filepath.ToSlash(trimmed), "/") {
		fileURI = "file:/" + filepath.ToSlash(trimmed) + "/"
	}
	pattern := regexp.MustCompile(
		"(" + regexp.QuoteMeta(trimmed) + "|" + regexp.QuoteMeta(fileURI) + `)[/\\]?([^:#\s]*)`,
	)
	return &Linkifier{
		pattern:      pattern,
		workspaceURL: workspaceURL,
		artifactURL:  artifactURL,
		artifacts:    artifacts,
	}
}

// Line rewrites every workspace reference in line as <url>.
func (l *Linkifier) Line(line string) string {
	if l == nil {
		return line
	}
	matches := l.pattern.FindAllStringSubmatchIndex(line, -1)
	if matches == nil {
		return line
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		rel := strings.ReplaceAll(line[m[4]:m[5]], `\`, "/")
		link := l.workspaceURL
		if l.artifacts.Matches(rel) {
			link = l.artifactURL
		}
		b.WriteString(line[last:m[0]])
		b.WriteByte('<')
		b.WriteString(link)
		b.WriteString(encodePath(rel))
		b.WriteByte('>')
		last = m[1]
	}
	b.WriteString(line[last:])
	return b.String()
}

// encodePath escapes each segment of a '/'-separated path.
func encodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
