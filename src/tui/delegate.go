package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	// Breakdown: panel border (2) + list internal padding/margins (8) = 10 chars total.
	listRenderingOverhead = 10

	// resultWidth fits the longest result label, "in progress".
	resultWidth = 11
	mailWidth   = 4
)

// Delegate renders previewed builds as table rows.
type Delegate struct {
	NumberWidth int
	styles      *StyleConfig
}

// NewDelegate creates a new delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		NumberWidth: 2,
		styles:      styles,
	}
}

// SetNumberWidth sizes the build number column for maxNumber.
func (d *Delegate) SetNumberWidth(maxNumber int) {
	d.NumberWidth = len(fmt.Sprintf("%d", maxNumber))
	if d.NumberWidth < 2 {
		d.NumberWidth = 2
	}
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// getSnippetText returns the text shown after the fixed columns. It falls
// back to the last transcript line when the outcome carries no summary.
func getSnippetText(entry Item) string {
	if summary := CleanLogText(entry.Summary()); strings.TrimSpace(summary) != "" {
		return summary
	}
	for i := len(entry.Transcript) - 1; i >= 0; i-- {
		if line := CleanLogText(entry.Transcript[i]); strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	numberCol := fmt.Sprintf("%*d", d.NumberWidth, entry.Number)
	resultCol := cell(entry.Result, resultWidth, false)
	mailCol := cell(entry.MailLabel(), mailWidth, false)

	// Fixed columns plus three " │ " separators
	fixedWidth := d.NumberWidth + resultWidth + mailWidth + 9
	availableWidth := m.Width() - fixedWidth - listRenderingOverhead

	var snippet string
	if availableWidth > 0 {
		snippet = cell(getSnippetText(entry), availableWidth, true)
	}

	line := fmt.Sprintf("%s │ %s │ %s │ %s", numberCol, resultCol, mailCol, snippet)

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if entry.WouldSend() {
		style = style.Foreground(d.styles.TextPrimary)
	}
	if index == m.Index() {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
	}

	fmt.Fprint(w, style.Render(line))
}
