package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pkt.systems/consolefold/internal/console"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("250"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("238"))

	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	badgeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	passedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const (
	markerCollapsed = "▸ "
	markerExpanded  = "▾ "
	markerNone      = "  "
)

// renderSections lays sections out as terminal text. It returns the content
// and the line offset of each section's first row.
func renderSections(sections []console.SectionSnapshot, selected int) (string, []int) {
	var b strings.Builder
	offsets := make([]int, len(sections))
	row := 0
	for i, s := range sections {
		offsets[i] = row
		var header string
		if s.HasHeader {
			header = sectionMarker(s) + statusStyle(s).Render(formatLine(s.Header))
			for _, badge := range s.Header.Badges {
				header += " " + badgeStyle.Render("["+badge+"]")
			}
			if i == selected {
				header = selectedStyle.Render(header)
			}
			b.WriteString(header)
			b.WriteByte('\n')
			row++
		}
		if s.Multiline && !s.Expanded {
			continue
		}
		for _, line := range s.Body {
			text := markerNone + formatLine(line)
			if isErrorLine(line.Code) {
				text = errLineStyle.Render(text)
			}
			b.WriteString(text)
			b.WriteByte('\n')
			row++
		}
	}
	return strings.TrimSuffix(b.String(), "\n"), offsets
}

func sectionMarker(s console.SectionSnapshot) string {
	switch {
	case !s.Multiline:
		return markerNone
	case s.Expanded:
		return markerExpanded
	default:
		return markerCollapsed
	}
}

func statusStyle(s console.SectionSnapshot) lipgloss.Style {
	switch s.Status {
	case console.StatusPassed:
		return passedStyle
	case console.StatusFailed:
		return failedStyle
	case console.StatusCancelled:
		return cancelledStyle
	}
	if s.HasError {
		return failedStyle
	}
	return lipgloss.NewStyle()
}

func formatLine(line console.LineSnapshot) string {
	if line.Timestamp == "" {
		return line.Text
	}
	return timestampStyle.Render(line.Timestamp) + " " + line.Text
}

func isErrorLine(code console.Code) bool {
	return code == console.CodeErr || console.IsErrorCode(code)
}
