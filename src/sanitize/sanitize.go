// Package sanitize cleans console output before it is quoted in a
// notification body or returned from an MCP tool. It removes ANSI escape
// sequences, CI-specific markers (like Buildkite timestamps) and the control
// characters that mail clients render as garbage.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// ANSI escape codes: \x1b[...m (SGR sequences)
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	// Buildkite timestamp markers: \x1b_bk;t=...\x07
	buildkiteTimestamp = regexp.MustCompile(`\x1b_bk;t=[0-9]+\x07`)
)

// StripANSI removes ANSI escape codes and Buildkite timestamp markers.
func StripANSI(s string) string {
	s = buildkiteTimestamp.ReplaceAllString(s, "")
	s = ansiPattern.ReplaceAllString(s, "")
	return ansi.Strip(s)
}

// StripControl drops C0 control characters other than tab and newline, plus DEL.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// Clean normalizes line endings and removes escape sequences and control
// characters. Trailing newlines are trimmed.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = StripANSI(s)
	s = StripControl(s)
	return strings.TrimRight(s, "\n")
}

// Lines applies Clean to every line.
func Lines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Clean(line)
	}
	return out
}
