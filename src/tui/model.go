// Package tui provides the terminal preview browser: it lists the recent
// builds of a project next to the mail the notifier would send for each.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Status is the state of the item load.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

// ItemsMsg delivers the result of a load.
type ItemsMsg struct {
	Items []Item
	Err   error
}

// Loader previews builds, reporting progress as it goes.
type Loader func(ctx context.Context, progress func(ProgressMsg)) ([]Item, error)

// MainModel is the Bubble Tea model of the preview browser: the build list
// on the left and the selected build's mail on the right.
type MainModel struct {
	project        string
	items          []Item
	status         Status
	err            error
	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel
	styles         *StyleConfig

	width, height int
	ready         bool
	detailFocused bool
	searchMode    bool
	searchQuery   string

	// reload starts a new load; nil disables the r key.
	reload func()
}

// NewMainModel creates a model for project with no items yet.
func NewMainModel(project string) MainModel {
	styles := DefaultStyles()
	return MainModel{
		project:        project,
		status:         StatusLoading,
		header:         NewHeader(project, styles),
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel(),
		styles:         styles,
	}
}

// Init starts the loading spinner.
func (m MainModel) Init() tea.Cmd {
	return m.progress.Tick()
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case ProgressMsg, spinner.TickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case ItemsMsg:
		m.progress = m.progress.Complete()
		if msg.Err != nil {
			m.status = StatusError
			m.err = msg.Err
			return m, nil
		}
		m.status = StatusReady
		m.err = nil
		m.items = msg.Items
		m.header.SetStatus(m.projectStatus())
		m.applyFilter()
		return m, nil

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg), nil
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.detailFocused {
			m.detailFocused = false
		} else if m.searchQuery != "" {
			m.searchQuery = ""
			m.header.SetSearch("", false)
			m.applyFilter()
		}
		return m, nil
	case "enter":
		if _, ok := m.listView.GetSelectedItem(); ok {
			m.detailFocused = true
		}
		return m, nil
	}

	if m.detailFocused {
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "r":
		if m.reload == nil || m.status == StatusLoading {
			return m, nil
		}
		m.status = StatusLoading
		m.items = nil
		m.listView.SetItems(nil)
		m.progress = NewProgressModel()
		reload := m.reload
		return m, tea.Batch(m.progress.Tick(), func() tea.Msg {
			reload()
			return nil
		})
	}

	before := m.listView.Index()
	var cmd tea.Cmd
	m.listView, cmd = m.listView.Update(msg)
	if m.listView.Index() != before {
		if selectedItem, ok := m.listView.GetSelectedItem(); ok {
			m.updateDetailContent(selectedItem)
		}
	}
	return m, cmd
}

// updateSearch edits the search query while search mode is on.
func (m MainModel) updateSearch(msg tea.KeyMsg) MainModel {
	switch msg.Type {
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyEsc, tea.KeyCtrlC:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyBackspace:
		if runes := []rune(m.searchQuery); len(runes) > 0 {
			m.searchQuery = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		m.searchQuery += " "
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
	default:
		return m
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m
}

func (m MainModel) projectStatus() string {
	sending := 0
	for _, item := range m.items {
		if item.WouldSend() {
			sending++
		}
	}
	return fmt.Sprintf("%s: %d builds, %d mails", m.project, len(m.items), sending)
}

// Run starts the preview browser for project and loads its items with load.
func Run(ctx context.Context, project string, load Loader) error {
	var p *tea.Program
	start := func() {
		go func() {
			items, err := load(ctx, func(msg ProgressMsg) { p.Send(msg) })
			p.Send(ItemsMsg{Items: items, Err: err})
		}()
	}

	m := NewMainModel(project)
	m.reload = start
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	start()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run preview browser: %w", err)
	}
	return nil
}
