package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderListPanel renders the left panel with the build list
func (m MainModel) renderListPanel(width, height int) string {
	// list size is set in resizeComponents(), not here during render
	listPanel := m.styles.PanelStyle(!m.detailFocused).
		Width(width - 2).
		Height(height).
		Render(m.listView.Render())

	delegate := m.listView.GetDelegate()
	numberHeader := fmt.Sprintf("%*s", delegate.NumberWidth, "#")
	headerText := fmt.Sprintf("%s │ %s │ %s │ Subject",
		numberHeader,
		cell("Result", resultWidth, false),
		cell("Mail", mailWidth, false))

	// Fit to width-4 to account for padding (2 chars)
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(cell(headerText, width-4, true))

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, listPanel)
}
