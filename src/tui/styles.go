package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds all customizable style colors for the preview UI.
type StyleConfig struct {
	// Primary colors
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// ResultColors colors build results; unknown results use TextSecondary.
	ResultColors map[string]lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		ResultColors: map[string]lipgloss.Color{
			"SUCCESS":   lipgloss.Color("#34A853"), // Green
			"UNSTABLE":  lipgloss.Color("#FBBC04"), // Yellow
			"FAILURE":   lipgloss.Color("#EA4335"), // Red
			"ABORTED":   lipgloss.Color("#A142F4"), // Purple
			"NOT_BUILT": lipgloss.Color("#24C1E0"), // Cyan
		},
	}
}

// ResultStyle returns the style for a build result label.
func (s *StyleConfig) ResultStyle(result string) lipgloss.Style {
	color, ok := s.ResultColors[result]
	if !ok {
		color = s.TextSecondary
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// SectionStyle returns the style of detail section titles.
func (s *StyleConfig) SectionStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Bold(true)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// PanelStyle returns a bordered panel style; focused panels use the accent color.
func (s *StyleConfig) PanelStyle(focused bool) lipgloss.Style {
	border := s.BorderColor
	if focused {
		border = s.AccentBlue
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}
