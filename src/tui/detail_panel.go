package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// renderDetail renders the decision, the composed mail and the transcript
// of a previewed build.
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	content := strings.Builder{}
	section := m.styles.SectionStyle()
	faint := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true)

	fmt.Fprintf(&content, "%s %s\n", section.Render("Result:"), m.styles.ResultStyle(item.Result).Render(item.Result))
	if item.Previous != "" {
		fmt.Fprintf(&content, "%s %s\n", section.Render("Previous:"), m.styles.ResultStyle(item.Previous).Render(item.Previous))
	}
	fmt.Fprintln(&content)

	fmt.Fprintln(&content, section.Render("Decision:"))
	decision := item.Outcome.Status
	if item.Outcome.Variant != "" {
		decision = fmt.Sprintf("%s (%s)", decision, item.Outcome.Variant)
	}
	if item.Outcome.Reason != "" {
		decision += ": " + item.Outcome.Reason
	}
	fmt.Fprintln(&content, wrap(decision, maxWidth))
	if item.Outcome.Error != "" {
		fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render(wrap(item.Outcome.Error, maxWidth)))
	}
	fmt.Fprintln(&content)

	if len(item.Outcome.Recipients) > 0 {
		fmt.Fprintln(&content, section.Render("To:"))
		fmt.Fprintln(&content, wrap(strings.Join(item.Outcome.Recipients, ", "), maxWidth))
		fmt.Fprintln(&content)
	}
	if item.Outcome.InReplyTo != "" {
		fmt.Fprintln(&content, section.Render("In-Reply-To:"))
		fmt.Fprintln(&content, wrap(item.Outcome.InReplyTo, maxWidth))
		fmt.Fprintln(&content)
	}

	if item.Subject != "" {
		fmt.Fprintln(&content, section.Render("Subject:"))
		fmt.Fprintln(&content, lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true).Render(wrap(item.Subject, maxWidth)))
		fmt.Fprintln(&content)
		for _, line := range strings.Split(strings.TrimRight(item.Body, "\n"), "\n") {
			// Wrap line before styling
			fmt.Fprintln(&content, wrap(CleanLogText(line), maxWidth))
		}
		fmt.Fprintln(&content)
	}

	if len(item.Transcript) > 0 {
		fmt.Fprintln(&content, section.Render("Build log:"))
		for _, line := range item.Transcript {
			fmt.Fprintln(&content, faint.Render(wrap(CleanLogText(line), maxWidth)))
		}
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	// 1 char padding on each side
	maxWidth := m.detailViewport.Width - 2
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		headerRow := lipgloss.NewStyle().
			Foreground(m.styles.PrimaryBlue).
			Bold(true).
			Padding(0, 1).
			Render(ansi.Truncate(fmt.Sprintf("%s #%d", m.project, selectedItem.Number), width-2, "…"))

		panel := m.styles.PanelStyle(m.detailFocused).
			Width(width - 2).
			Height(height).
			Render(m.detailViewport.View())

		return lipgloss.JoinVertical(lipgloss.Left, headerRow, panel)
	}

	// No selection - show empty state
	placeholderRow := lipgloss.NewStyle().
		Foreground(m.styles.TextSecondary).
		Padding(0, 1).
		Render(" ")

	emptyStyle := m.styles.PanelStyle(false).
		Width(width-2).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(m.styles.TextSecondary).
		Faint(true)

	return lipgloss.JoinVertical(lipgloss.Left, placeholderRow, emptyStyle.Render("No builds match"))
}
