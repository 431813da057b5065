package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/consolefold/core"
	"pkt.systems/consolefold/internal/console"
	"pkt.systems/consolefold/schema"
)

var job = []string{
	"##|00:00:01.000 Start",
	"!!|00:00:02.000 [go] Task: ls",
	"&1|00:00:02.500 a.txt",
	"&2|00:00:02.600 b.txt: permission denied",
	"?0|00:00:03.000 [go] Task status: passed (1500 ms) (exit code: 0)",
}

func newService(t *testing.T) core.Service {
	t.Helper()
	svc, err := core.NewService(schema.ServiceConfig{FrameInterval: time.Hour}, core.ServiceDeps{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

// run executes cmd and any batch it expands to, feeding results back into m.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = run(t, m, c)
		}
		return m
	}
	if msg == nil {
		return m
	}
	next, follow := m.Update(msg)
	return run(t, next.(Model), follow)
}

func TestRenderSectionsFolding(t *testing.T) {
	sections := []console.SectionSnapshot{
		{
			Section: console.Section{ID: 1, HasHeader: true},
			Header:  console.LineSnapshot{Text: "Start", Timestamp: "00:00:01.000"},
		},
		{
			Section:  console.Section{ID: 2, HasHeader: true, Multiline: true, Status: console.StatusPassed},
			Expanded: false,
			Header:   console.LineSnapshot{Text: "Task: ls", Badges: []string{"took: 500ms"}},
			Body:     []console.LineSnapshot{{Text: "a.txt"}, {Text: "b.txt"}},
		},
	}
	out, offsets := renderSections(sections, -1)
	if strings.Contains(out, "a.txt") {
		t.Fatalf("collapsed body must be hidden: %q", out)
	}
	if !strings.Contains(out, markerCollapsed) || !strings.Contains(out, "[took: 500ms]") {
		t.Fatalf("expected collapsed marker and badge: %q", out)
	}
	if len(offsets) != 2 || offsets[1] != 1 {
		t.Fatalf("unexpected offsets %v", offsets)
	}

	sections[1].Expanded = true
	out, _ = renderSections(sections, 1)
	if !strings.Contains(out, "a.txt") || !strings.Contains(out, markerExpanded) {
		t.Fatalf("expanded body must be shown: %q", out)
	}
	if got := strings.Count(out, "\n") + 1; got != 4 {
		t.Fatalf("expected 4 rows, got %d", got)
	}
}

func TestModelShowsActivePaneAndToggles(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for _, id := range []schema.PaneID{"first", "second"} {
		visible := true
		if _, err := svc.CreatePane(ctx, schema.CreatePaneRequest{ID: id, Visible: &visible}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if err := svc.AppendLines(ctx, schema.AppendLinesRequest{PaneID: id, Lines: job}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	m := New(ctx, Options{Backend: svc, Panes: []schema.PaneID{"first", "second"}})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	m = run(t, next.(Model), m.Init())

	if snap, _ := svc.GetPane(ctx, "second"); snap.Visible {
		t.Fatalf("inactive pane must be hidden")
	}
	if len(m.sections) != 2 {
		t.Fatalf("expected active pane sections, got %d", len(m.sections))
	}
	if view := m.View(); !strings.Contains(view, "Task: ls") || strings.Contains(view, "permission denied") {
		t.Fatalf("expected collapsed task in view:\n%s", view)
	}
	if view := m.View(); !strings.Contains(view, "[exited: 0]") {
		t.Fatalf("expected collapsed task header to keep its badges:\n%s", view)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.selected != 1 {
		t.Fatalf("expected multiline section selected, got %d", m.selected)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = run(t, next.(Model), cmd)
	// No event subscription in this test: refresh explicitly.
	m = run(t, m, m.refresh())
	if !m.sections[1].Expanded {
		t.Fatalf("expected toggled section to expand")
	}
	if !strings.Contains(m.View(), "permission denied") {
		t.Fatalf("expected expanded body in view")
	}

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = run(t, next.(Model), cmd)
	if m.active != 1 {
		t.Fatalf("expected second tab active, got %d", m.active)
	}
	first, _ := svc.GetPane(ctx, "first")
	second, _ := svc.GetPane(ctx, "second")
	if first.Visible || !second.Visible {
		t.Fatalf("visibility must follow the active tab: first=%v second=%v", first.Visible, second.Visible)
	}
}

func TestModelTracksPaneEvents(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for _, id := range []schema.PaneID{"a", "b"} {
		if _, err := svc.CreatePane(ctx, schema.CreatePaneRequest{ID: id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	m := New(ctx, Options{Backend: svc, Panes: []schema.PaneID{"a"}})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m = next.(Model)

	next, cmd := m.Update(paneEventMsg(schema.PaneEvent{Type: schema.PaneEventCreated, PaneID: "b"}))
	m = run(t, next.(Model), cmd)
	if len(m.tabs) != 2 {
		t.Fatalf("expected created pane to get a tab, got %d", len(m.tabs))
	}

	next, _ = m.Update(paneEventMsg(schema.PaneEvent{Type: schema.PaneEventComplete, PaneID: "a"}))
	m = next.(Model)
	if !m.tabs[0].completed || !strings.Contains(m.renderTabs(), "✓") {
		t.Fatalf("expected completed marker")
	}

	next, _ = m.Update(paneEventMsg(schema.PaneEvent{Type: schema.PaneEventClosed, PaneID: "a"}))
	m = next.(Model)
	if len(m.tabs) != 1 || m.tabs[0].id != "b" || m.active != 0 {
		t.Fatalf("unexpected tabs after close %+v active=%d", m.tabs, m.active)
	}
}
