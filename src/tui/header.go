package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Mail filters cycled with Tab.
const (
	FilterAll  = "ALL"
	FilterSend = "SEND"
	FilterSkip = "SKIP"
)

var mailFilters = []string{FilterAll, FilterSend, FilterSkip}

// Header represents the top status bar component.
type Header struct {
	projectStatus  string
	selectedFilter string
	searchQuery    string
	searchMode     bool
	styles         *StyleConfig
}

// NewHeader creates a new header
func NewHeader(projectStatus string, styles *StyleConfig) Header {
	return Header{
		projectStatus:  projectStatus,
		selectedFilter: FilterAll,
		styles:         styles,
	}
}

// SetStatus replaces the project status text.
func (h *Header) SetStatus(status string) {
	h.projectStatus = status
}

// SetFilter sets the current filter
func (h *Header) SetFilter(filter string) {
	h.selectedFilter = filter
}

// GetFilter returns the current filter
func (h Header) GetFilter() string {
	return h.selectedFilter
}

// CycleFilter cycles to the next filter
func (h *Header) CycleFilter() {
	currentIndex := 0
	for i, f := range mailFilters {
		if f == h.selectedFilter {
			currentIndex = i
			break
		}
	}
	h.selectedFilter = mailFilters[(currentIndex+1)%len(mailFilters)]
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	status := sectionStyle.Render(fmt.Sprintf("✉ %s", h.projectStatus))
	filter := sectionStyle.Render(fmt.Sprintf("Mail: %s", h.selectedFilter))

	var searchText string
	switch {
	case h.searchMode:
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	case h.searchQuery != "":
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	default:
		searchText = "[/] to search"
	}

	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Left, status, filter, searchStyle.Render(searchText))

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width).
		MaxWidth(width)

	return headerStyle.Render(content)
}
