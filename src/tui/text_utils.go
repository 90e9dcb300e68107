package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// CleanLogText removes ANSI escape sequences, carriage returns and tabs so
// a build log line can be measured and styled.
func CleanLogText(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\t", "    ")
}

// cell fits s into a table column exactly width cells wide, ending cut text
// with an ellipsis when elide is set.
func cell(s string, width int, elide bool) string {
	if width <= 0 {
		return ""
	}
	tail := ""
	if elide {
		tail = "..."
	}
	return runewidth.FillRight(runewidth.Truncate(strings.TrimSpace(s), width, tail), width)
}

// wrap folds text to width. Addresses, URLs and message ids have no spaces,
// so they may also break after a slash, dash or at-sign, and anything longer
// is cut mid-token.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Wrap(text, width, "/-@")
}
