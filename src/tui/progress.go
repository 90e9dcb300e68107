package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Phase is the step ChainLoader is at for one build.
type Phase int

const (
	PhaseDeciding Phase = iota
	PhaseComposing
	PhasePreviewed
)

func (p Phase) String() string {
	switch p {
	case PhaseDeciding:
		return "deciding"
	case PhaseComposing:
		return "composing"
	case PhasePreviewed:
		return "previewed"
	}
	return "unknown"
}

// ProgressMsg reports the loader's phase for build Number, the Current'th of
// Total builds. Mail is set once the build is previewed.
type ProgressMsg struct {
	Phase   Phase
	Number  int
	Current int
	Total   int
	Mail    string
}

// recentBuilds is how many previewed builds the loading screen lists.
const recentBuilds = 5

// ProgressModel is the loading screen shown while builds are previewed.
type ProgressModel struct {
	spinner spinner.Model
	last    ProgressMsg
	started bool
	done    bool
	recent  []ProgressMsg
}

func NewProgressModel() ProgressModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	return ProgressModel{spinner: s}
}

// Tick starts the spinner.
func (m ProgressModel) Tick() tea.Cmd {
	return m.spinner.Tick
}

// Complete stops the spinner.
func (m ProgressModel) Complete() ProgressModel {
	m.done = true
	return m
}

// Status describes the current phase, e.g. "composing #12".
func (m ProgressModel) Status() string {
	switch {
	case m.done:
		return "complete"
	case !m.started:
		return "starting"
	}
	return fmt.Sprintf("%s #%d", m.last.Phase, m.last.Number)
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.started = true
		m.last = msg
		if msg.Phase == PhasePreviewed {
			m.recent = append(m.recent, msg)
			if len(m.recent) > recentBuilds {
				m.recent = m.recent[len(m.recent)-recentBuilds:]
			}
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	if m.done {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓ Previews ready. Press (r) to refresh")
	}

	line := m.spinner.View() + " " + m.Status()
	if m.started && m.last.Total > 0 {
		line += fmt.Sprintf(" (%d/%d)", m.last.Current+1, m.last.Total)
	}

	lines := []string{line}
	if len(m.recent) > 0 {
		faint := lipgloss.NewStyle().Faint(true)
		lines = append(lines, "")
		for i := len(m.recent) - 1; i >= 0; i-- {
			b := m.recent[i]
			lines = append(lines, faint.Render(fmt.Sprintf("#%-6d %s", b.Number, b.Mail)))
		}
	}
	return strings.Join(lines, "\n")
}
