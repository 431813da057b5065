// Package tui is a terminal viewer for console panes. The active tab is the
// visible pane; every other pane is hidden and defers its batches.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/consolefold/internal/console"
	"pkt.systems/consolefold/schema"
)

// Backend is the subset of the pane service the viewer drives.
type Backend interface {
	GetPane(ctx context.Context, id schema.PaneID) (schema.PaneSnapshot, error)
	SetVisibility(ctx context.Context, req schema.SetVisibilityRequest) error
	ToggleSection(ctx context.Context, req schema.ToggleSectionRequest) (schema.ToggleSectionResponse, error)
	SnapshotPane(ctx context.Context, id schema.PaneID) ([]console.SectionSnapshot, error)
}

// Options configures a Model.
type Options struct {
	Backend Backend
	Events  <-chan schema.PaneEvent
	Panes   []schema.PaneID
}

type tab struct {
	id        schema.PaneID
	title     string
	completed bool
	lines     int
}

type paneEventMsg schema.PaneEvent

type eventsClosedMsg struct{}

type refreshedMsg struct {
	id       schema.PaneID
	snap     schema.PaneSnapshot
	sections []console.SectionSnapshot
	err      error
}

type tabAddedMsg struct {
	snap schema.PaneSnapshot
	err  error
}

type errMsg struct{ err error }

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx     context.Context
	backend Backend
	events  <-chan schema.PaneEvent

	tabs     []tab
	active   int
	sections []console.SectionSnapshot
	offsets  []int
	selected int
	follow   bool

	vp     viewport.Model
	width  int
	height int
	status string
}

// New builds a model over the given panes. The first pane starts visible.
func New(ctx context.Context, opts Options) Model {
	m := Model{
		ctx:      ctx,
		backend:  opts.Backend,
		events:   opts.Events,
		follow:   true,
		selected: -1,
	}
	for _, id := range opts.Panes {
		m.tabs = append(m.tabs, tab{id: id, title: string(id)})
	}
	return m
}

// Init applies initial visibility and starts listening for pane events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent()}
	for i := range m.tabs {
		cmds = append(cmds, m.setVisible(m.tabs[i].id, i == m.active))
	}
	cmds = append(cmds, m.refresh())
	return tea.Batch(cmds...)
}

// Update handles input, pane events and backend replies.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		m.refreshViewport()
		return m, nil
	case paneEventMsg:
		return m.handleEvent(schema.PaneEvent(msg))
	case eventsClosedMsg:
		m.status = "event stream closed"
		return m, nil
	case tabAddedMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		if m.tabIndex(msg.snap.ID) < 0 {
			m.tabs = append(m.tabs, tab{id: msg.snap.ID, title: msg.snap.Title, completed: msg.snap.Completed, lines: msg.snap.Lines})
			if len(m.tabs)-1 == m.active {
				return m, m.activate(m.active, -1)
			}
			return m, m.setVisible(msg.snap.ID, false)
		}
		return m, nil
	case refreshedMsg:
		return m.applyRefresh(msg), nil
	case errMsg:
		m.status = "Error: " + msg.err.Error()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleEvent(event schema.PaneEvent) (tea.Model, tea.Cmd) {
	next := m.waitForEvent()
	idx := m.tabIndex(event.PaneID)
	if idx < 0 {
		if event.Type == schema.PaneEventCreated {
			return m, tea.Batch(next, m.addTab(event.PaneID))
		}
		return m, next
	}
	switch event.Type {
	case schema.PaneEventComplete:
		m.tabs[idx].completed = true
	case schema.PaneEventClosed:
		m = m.removeTab(idx)
		return m, tea.Batch(next, m.activate(m.active, -1))
	}
	if idx != m.active {
		return m, next
	}
	switch event.Type {
	case schema.PaneEventFlush, schema.PaneEventToggle, schema.PaneEventComplete, schema.PaneEventVisibility:
		return m, tea.Batch(next, m.refresh())
	}
	return m, next
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab", "right", "l":
		if len(m.tabs) > 1 {
			prev := m.active
			m.active = (m.active + 1) % len(m.tabs)
			return m.switched(prev)
		}
	case "shift+tab", "left", "h":
		if len(m.tabs) > 1 {
			prev := m.active
			m.active = (m.active - 1 + len(m.tabs)) % len(m.tabs)
			return m.switched(prev)
		}
	case "down", "j":
		m.moveSelection(1)
	case "up", "k":
		m.moveSelection(-1)
	case "enter", " ":
		return m, m.toggleSelected()
	case "g":
		m.follow = false
		m.vp.GotoTop()
	case "G":
		m.follow = true
		m.vp.GotoBottom()
	default:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		m.follow = m.vp.AtBottom()
		return m, cmd
	}
	return m, nil
}

func (m Model) switched(prev int) (tea.Model, tea.Cmd) {
	m.sections = nil
	m.offsets = nil
	m.selected = -1
	m.follow = true
	m.refreshViewport()
	return m, m.activate(m.active, prev)
}

// activate shows the pane at idx and hides the pane at prev (if any).
func (m Model) activate(idx, prev int) tea.Cmd {
	var cmds []tea.Cmd
	if prev >= 0 && prev < len(m.tabs) && prev != idx {
		cmds = append(cmds, m.setVisible(m.tabs[prev].id, false))
	}
	if idx >= 0 && idx < len(m.tabs) {
		cmds = append(cmds, m.setVisible(m.tabs[idx].id, true), m.refresh())
	}
	return tea.Batch(cmds...)
}

func (m Model) removeTab(idx int) Model {
	wasActive := idx == m.active
	m.tabs = append(m.tabs[:idx:idx], m.tabs[idx+1:]...)
	if idx < m.active {
		m.active--
	}
	if m.active >= len(m.tabs) {
		m.active = max(0, len(m.tabs)-1)
	}
	if wasActive {
		m.sections = nil
		m.offsets = nil
		m.selected = -1
		m.follow = true
		m.refreshViewport()
	}
	return m
}

func (m *Model) moveSelection(delta int) {
	candidates := m.toggleable()
	if len(candidates) == 0 {
		return
	}
	pos := -1
	for i, idx := range candidates {
		if idx == m.selected {
			pos = i
			break
		}
	}
	switch {
	case pos < 0 && delta > 0:
		pos = 0
	case pos < 0:
		pos = len(candidates) - 1
	default:
		pos = min(max(pos+delta, 0), len(candidates)-1)
	}
	m.selected = candidates[pos]
	m.follow = false
	m.refreshViewport()
	m.scrollToSelected()
}

// toggleable lists indexes of sections that can be folded.
func (m Model) toggleable() []int {
	var out []int
	for i, s := range m.sections {
		if s.Multiline && s.HasHeader {
			out = append(out, i)
		}
	}
	return out
}

func (m Model) toggleSelected() tea.Cmd {
	if m.selected < 0 || m.selected >= len(m.sections) || len(m.tabs) == 0 {
		return nil
	}
	backend, ctx := m.backend, m.ctx
	req := schema.ToggleSectionRequest{PaneID: m.tabs[m.active].id, Section: int(m.sections[m.selected].ID)}
	return func() tea.Msg {
		if _, err := backend.ToggleSection(ctx, req); err != nil {
			return errMsg{fmt.Errorf("toggle section %d: %w", req.Section, err)}
		}
		// The toggle event triggers the refresh.
		return nil
	}
}

func (m Model) applyRefresh(msg refreshedMsg) Model {
	idx := m.tabIndex(msg.id)
	if msg.err != nil {
		if !errors.Is(msg.err, schema.ErrPaneNotFound) && !errors.Is(msg.err, schema.ErrPaneClosed) {
			m.status = "Error: " + msg.err.Error()
		}
		return m
	}
	if idx < 0 {
		return m
	}
	m.tabs[idx].completed = msg.snap.Completed
	m.tabs[idx].lines = msg.snap.Lines
	if msg.snap.Title != "" {
		m.tabs[idx].title = msg.snap.Title
	}
	if idx != m.active {
		return m
	}
	var selectedID console.SectionID
	if m.selected >= 0 && m.selected < len(m.sections) {
		selectedID = m.sections[m.selected].ID
	}
	m.sections = msg.sections
	m.selected = -1
	for i, s := range m.sections {
		if selectedID != 0 && s.ID == selectedID {
			m.selected = i
		}
	}
	m.status = fmt.Sprintf("%d lines | %d sections | pending %d", msg.snap.Lines, len(msg.sections), msg.snap.Pending)
	m.refreshViewport()
	return m
}

func (m *Model) resizeViewport() {
	width := max(20, m.width)
	height := max(3, m.height-4)
	if m.vp.Width == 0 {
		m.vp = viewport.New(width, height)
		return
	}
	m.vp.Width = width
	m.vp.Height = height
}

func (m *Model) refreshViewport() {
	if m.vp.Width <= 0 || m.vp.Height <= 0 {
		return
	}
	if len(m.tabs) == 0 {
		m.vp.SetContent("No panes")
		return
	}
	if len(m.sections) == 0 {
		m.vp.SetContent("Waiting for output...")
		return
	}
	content, offsets := renderSections(m.sections, m.selected)
	m.offsets = offsets
	m.vp.SetContent(content)
	if m.follow {
		m.vp.GotoBottom()
	}
}

func (m *Model) scrollToSelected() {
	if m.selected < 0 || m.selected >= len(m.offsets) {
		return
	}
	row := m.offsets[m.selected]
	if row < m.vp.YOffset || row >= m.vp.YOffset+m.vp.Height {
		m.vp.SetYOffset(row)
	}
}

func (m Model) tabIndex(id schema.PaneID) int {
	for i, t := range m.tabs {
		if t.id == id {
			return i
		}
	}
	return -1
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return paneEventMsg(event)
	}
}

func (m Model) setVisible(id schema.PaneID, visible bool) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		if err := backend.SetVisibility(ctx, schema.SetVisibilityRequest{PaneID: id, Visible: visible}); err != nil {
			return errMsg{fmt.Errorf("set visibility of %s: %w", id, err)}
		}
		return nil
	}
}

func (m Model) refresh() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	backend, ctx, id := m.backend, m.ctx, m.tabs[m.active].id
	return func() tea.Msg {
		snap, err := backend.GetPane(ctx, id)
		if err != nil {
			return refreshedMsg{id: id, err: err}
		}
		sections, err := backend.SnapshotPane(ctx, id)
		return refreshedMsg{id: id, snap: snap, sections: sections, err: err}
	}
}

func (m Model) addTab(id schema.PaneID) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		snap, err := backend.GetPane(ctx, id)
		return tabAddedMsg{snap: snap, err: err}
	}
}

// View renders the tab bar, the active pane and the status line.
func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing consolefold..."
	}
	return m.renderTabs() + "\n" + m.vp.View() + "\n" + helpStyle.Render(m.status) + "\n" +
		helpStyle.Render("tab/shift+tab: pane | j/k: section | enter: fold | g/G: top/bottom | q: quit")
}

func (m Model) renderTabs() string {
	parts := []string{titleStyle.Render("consolefold")}
	for i, t := range m.tabs {
		label := t.title
		if t.completed {
			label += " ✓"
		}
		if i == m.active {
			parts = append(parts, activeTabStyle.Render(label))
			continue
		}
		parts = append(parts, tabStyle.Render(label))
	}
	return strings.Join(parts, " ")
}

// Run starts the viewer and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	program := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
