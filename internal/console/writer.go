package console

import (
	"regexp"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pkt.systems/consolefold/internal/dom"
	"pkt.systems/consolefold/internal/format"
)

// LineFormatter turns non-blank line content into render nodes. The text of
// the returned nodes must equal content.
type LineFormatter interface {
	FormatLine(content string) []*html.Node
}

// CommandFormatter renders the command embedded in a task start line.
type CommandFormatter interface {
	FormatCommand(command string) []*html.Node
}

// Line node CSS classes.
const (
	classLine      = "log-fs-line"
	classLineBase  = "log-fs-line-"
	classBlank     = "log-fs-blank"
	classTimestamp = "log-fs-timestamp"
	classContent   = "log-fs-content"
	classLabel     = "log-fs-label"
	classCommand   = "log-fs-command"
	classBadge     = "log-fs-badge"
	classDuration  = "log-fs-duration"
	classExitCode  = "log-fs-exit-code"
)

var (
	taskStartLine = regexp.MustCompile(`(?s)^(\[go\] (?:On Cancel )?Task: )(.*)$`)
	statusLine    = regexp.MustCompile(`^\[go\] (?:Current job|Task|On Cancel Task) status: (\w+)(?: \((\d+) ms\))?(?: \(exit code: (-?\d+)\))?`)
)

type lineWriter struct {
	lines    LineFormatter
	commands CommandFormatter
}

func newLineWriter(lines LineFormatter, commands CommandFormatter) *lineWriter {
	if lines == nil {
		lines = format.NewPlainRenderer()
	}
	return &lineWriter{lines: lines, commands: commands}
}

// write renders l and returns the annotations found on status lines.
func (w *lineWriter) write(l LogLine) (*html.Node, Annotations) {
	node, content := shell(l)
	switch {
	case IsSectionStart(l.Code):
		if m := taskStartLine.FindStringSubmatch(l.Content); m != nil {
			w.command(content, m[1], m[2])
			return node, Annotations{}
		}
	case IsEndBoundary(l.Code):
		if ann, ok := parseStatus(l.Content); ok {
			w.fill(node, content, l.Content)
			dom.Append(node, badges(ann)...)
			return node, ann
		}
	}
	w.fill(node, content, l.Content)
	return node, Annotations{}
}

func shell(l LogLine) (line, content *html.Node) {
	line = dom.Element(atom.Div, classLine, classLineBase+l.Code.Name())
	if l.Code != CodeNone {
		dom.SetAttr(line, "data-code", string(l.Code))
	}
	if l.Timestamp != "" {
		ts := dom.Element(atom.Span, classTimestamp)
		dom.Append(ts, dom.Text(l.Timestamp))
		dom.Append(line, ts)
	}
	content = dom.Element(atom.Span, classContent)
	dom.Append(line, content)
	return line, content
}

func (w *lineWriter) fill(line, content *html.Node, text string) {
	if text == "" {
		dom.AddClass(line, classBlank)
		dom.Append(content, dom.Text("\n"))
		return
	}
	dom.Append(content, w.lines.FormatLine(text)...)
}

func (w *lineWriter) command(content *html.Node, label, command string) {
	l := dom.Element(atom.Span, classLabel)
	dom.Append(l, dom.Text(label))
	code := dom.Element(atom.Code, classCommand)
	if w.commands != nil {
		dom.Append(code, w.commands.FormatCommand(command)...)
	} else if command != "" {
		dom.Append(code, dom.Text(command))
	}
	dom.Append(content, l, code)
}

// parseStatus matches a status line. Duration and exit code are optional
// and independent; groups that fail to parse are dropped.
func parseStatus(content string) (Annotations, bool) {
	m := statusLine.FindStringSubmatch(content)
	if m == nil {
		return Annotations{}, false
	}
	var ann Annotations
	if m[2] != "" {
		if ms, err := strconv.ParseInt(m[2], 10, 64); err == nil {
			ann.DurationMS = &ms
		}
	}
	if m[3] != "" {
		if code, err := strconv.Atoi(m[3]); err == nil {
			ann.ExitCode = &code
		}
	}
	return ann, true
}

func badges(ann Annotations) []*html.Node {
	var out []*html.Node
	if ann.DurationMS != nil {
		b := dom.Element(atom.Span, classBadge, classDuration)
		dom.Append(b, dom.Text("took: "+format.Elapsed(*ann.DurationMS)))
		out = append(out, b)
	}
	if ann.ExitCode != nil {
		b := dom.Element(atom.Span, classBadge, classExitCode)
		dom.Append(b, dom.Text("exited: "+strconv.Itoa(*ann.ExitCode)))
		out = append(out, b)
	}
	return out
}

// markWithAnnotations appends the badges of a closed section to its header.
func markWithAnnotations(header *html.Node, ann Annotations) {
	if ann.Empty() {
		return
	}
	dom.Append(header, badges(ann)...)
}

// lineText returns the content text of a rendered line node.
func lineText(line *html.Node) string {
	if dom.HasClass(line, classBlank) {
		return ""
	}
	content := dom.FirstWithClass(line, classContent)
	if content == nil {
		return ""
	}
	return dom.TextContent(content)
}
