package mcp

import (
	"fmt"
	"regexp"
	"strings"
)

// timestampPattern matches leading timestamps in various formats:
// - 2024-05-21T10:00:05.123Z
// - 2024-05-21 10:00:05,123
// - 2024-05-21T10:00:05+00:00
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.,]?\d*[Z]?([+-]\d{2}:?\d{2})?\s*`)

func stripTimestamps(line string) string {
	return timestampPattern.ReplaceAllString(line, "")
}

// hashPattern matches hex strings of 12+ characters (container IDs, git SHAs, etc.)
var hashPattern = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)

func maskHashes(line string) string {
	return hashPattern.ReplaceAllString(line, "<HASH>")
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func normalizeWhitespace(line string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}

// minPrefixLength is the shortest shared prefix worth replacing with "...".
const minPrefixLength = 20

func commonPrefix(lines []string) string {
	if len(lines) < 2 {
		return ""
	}

	prefix := lines[0]
	for _, line := range lines[1:] {
		for len(prefix) > 0 && !strings.HasPrefix(line, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
		if prefix == "" {
			break
		}
	}

	if len(prefix) < minPrefixLength {
		return ""
	}
	return prefix
}

// compactTranscript shrinks build log lines for a language model: leading
// timestamps go, hashes are masked, runs of identical lines collapse into
// one with a count, and a long prefix shared by every line is elided.
// At most maxLines trailing lines are kept.
func compactTranscript(lines []string, maxLines int) []string {
	var out []string
	var last string
	repeats := 0
	flush := func() {
		if repeats > 0 {
			out = append(out, fmt.Sprintf("(previous line repeated %d more times)", repeats))
			repeats = 0
		}
	}

	for _, line := range lines {
		line = normalizeWhitespace(maskHashes(stripTimestamps(line)))
		if line == "" {
			continue
		}
		if len(out) > 0 && line == last {
			repeats++
			continue
		}
		flush()
		out = append(out, line)
		last = line
	}
	flush()

	if prefix := commonPrefix(out); prefix != "" {
		for i, line := range out {
			out[i] = "... " + line[len(prefix):]
		}
	}

	if maxLines > 0 && len(out) > maxLines {
		out = append([]string{fmt.Sprintf("(%d earlier lines omitted)", len(out)-maxLines)}, out[len(out)-maxLines:]...)
	}
	return out
}
