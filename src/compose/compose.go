// Package compose renders the subject and plain-text body of a build
// notification.
package compose

import (
	"fmt"
	"net/url"
	"strings"

	"buildmail-agent/src/decision"
	"buildmail-agent/src/provider"
	"buildmail-agent/src/sanitize"
)

// DefaultMaxLogLines caps the console excerpt in failure mails.
const DefaultMaxLogLines = 250

const changesSeparator = "\n------------------------------------------\n"

// Options configures a Composer.
type Options struct {
	// BaseURL is the CI root URL. Without it, links are relative and
	// workspace paths are not linkified.
	BaseURL     string
	MaxLogLines int
}

// Composer renders notification text.
type Composer struct {
	baseURL     string
	maxLogLines int
}

func New(opts Options) *Composer {
	base := strings.TrimSpace(opts.BaseURL)
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	maxLines := opts.MaxLogLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLogLines
	}
	return &Composer{baseURL: base, maxLogLines: maxLines}
}

// Content is a composed subject and body.
type Content struct {
	Subject string
	Body    string
}

// Compose renders the message for d. It returns false when d does not call
// for a message.
func (c *Composer) Compose(b provider.Build, d decision.Decision) (Content, bool) {
	var body string
	switch d.Variant {
	case decision.VariantFailure:
		body = c.failureBody(b)
	case decision.VariantUnstable:
		body = c.unstableBody(b)
	case decision.VariantBackToNormal:
		body = c.buildLink(b)
	default:
		return Content{}, false
	}
	return Content{Subject: Subject(d.Caption, b), Body: body}, true
}

// Subject is the caption followed by the build's full display name.
func Subject(caption string, b provider.Build) string {
	return caption + " " + b.FullDisplayName()
}

// RunURL is the absolute URL of the build page.
func (c *Composer) RunURL(b provider.Build) string {
	return c.baseURL + encodeURLPath(b.URL())
}

// ChangesURL is the absolute URL of the build's changes page.
func (c *Composer) ChangesURL(b provider.Build) string {
	return c.RunURL(b) + "changes"
}

// WorkspaceURL is where live workspace files of b's project are browsed.
func (c *Composer) WorkspaceURL(b provider.Build) string {
	return c.baseURL + encodeURLPath(b.Project().URL()) + "ws/"
}

// ArtifactURL is where b's archived artifacts are browsed.
func (c *Composer) ArtifactURL(b provider.Build) string {
	return c.RunURL(b) + "artifact/"
}

// buildLink links to the changes page when b has changes, else the build.
func (c *Composer) buildLink(b provider.Build) string {
	if len(b.ChangeSet()) == 0 {
		return link(c.RunURL(b))
	}
	return link(c.ChangesURL(b))
}

func (c *Composer) unstableBody(b provider.Build) string {
	prev := decision.EffectivePreviousBuild(b)
	still := prev != nil && prev.Result() == provider.ResultUnstable
	if still && (len(b.ChangeSet()) > 0 || len(prev.ChangeSet()) > 0) {
		return link(c.ChangesURL(b))
	}
	return c.buildLink(b)
}

func (c *Composer) failureBody(b provider.Build) string {
	var buf strings.Builder
	buf.WriteString(c.buildLink(b))

	buf.WriteString("Changes:\n\n")
	for _, entry := range b.ChangeSet() {
		buf.WriteString("[")
		buf.WriteString(entry.Author.DisplayName())
		buf.WriteString("] ")
		if msg := normalizeNewlines(entry.Message); msg != "" {
			buf.WriteString(msg)
			if !strings.HasSuffix(msg, "\n") {
				buf.WriteByte('\n')
			}
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(changesSeparator)

	lines, err := b.Log(c.maxLogLines)
	if err != nil {
		buf.WriteString("Failed to access build log\n\n")
		buf.WriteString(DescribeError(err))
		return buf.String()
	}

	var linker *Linkifier
	if c.baseURL != "" {
		linker = NewLinkifier(
			b.Workspace(),
			c.WorkspaceURL(b),
			c.ArtifactURL(b),
			NewArtifactMatcher(b.Project().ArtifactPatterns()),
		)
	}
	for _, line := range lines {
		line = sanitize.StripControl(sanitize.StripANSI(line))
		buf.WriteString(linker.Line(line))
		buf.WriteByte('\n')
	}
	return buf.String()
}

func link(u string) string {
	return "See <" + u + ">\n\n"
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// DescribeError renders err and every error it wraps, one per line.
func DescribeError(err error) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%T: %v\n", err, err)
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
		if err == nil {
			break
		}
		fmt.Fprintf(&buf, "Caused by: %T: %v\n", err, err)
	}
	return buf.String()
}

func encodeURLPath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
