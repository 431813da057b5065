package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pkt.systems/consolefold/internal/dom"
)

// ANSIRenderer converts SGR-styled console text into classed span nodes.
// Escape sequences other than SGR are dropped, as are control characters
// except tab. An ANSIRenderer reuses one parser and must not be shared
// between goroutines.
type ANSIRenderer struct {
	parser *ansi.Parser
}

// NewANSIRenderer returns a renderer with its own escape sequence parser.
func NewANSIRenderer() *ANSIRenderer {
	return &ANSIRenderer{parser: ansi.NewParser()}
}

// FormatLine renders one line of console content.
func (r *ANSIRenderer) FormatLine(content string) []*html.Node {
	if content == "" {
		return nil
	}
	if strings.IndexByte(content, ansi.ESC) < 0 {
		return []*html.Node{dom.Text(content)}
	}

	var (
		out   []*html.Node
		text  strings.Builder
		style sgrStyle
		state byte
	)
	flush := func() {
		if text.Len() == 0 {
			return
		}
		out = append(out, style.node(text.String()))
		text.Reset()
	}

	s := content
	for len(s) > 0 {
		seq, width, n, newState := ansi.DecodeSequence(s, state, r.parser)
		state = newState
		if n <= 0 {
			s = s[1:]
			continue
		}
		s = s[n:]
		switch {
		case width > 0 || isText(seq):
			text.WriteString(seq)
		case ansi.HasCsiPrefix(seq):
			cmd := ansi.Cmd(r.parser.Command())
			if cmd.Final() != 'm' || cmd.Prefix() != 0 || cmd.Intermediate() != 0 {
				continue
			}
			flush()
			style = style.apply(r.parser.Params())
		}
	}
	flush()
	return out
}

func isText(seq string) bool {
	if seq == "" {
		return false
	}
	c := seq[0]
	switch {
	case c == '\t':
		return true
	case c < 0x20 || c == 0x7f:
		return false
	case c >= 0x80 && c < 0xc0:
		return false
	}
	return true
}

type colorKind uint8

const (
	colorNone colorKind = iota
	colorBasic
	colorBright
	colorIndexed
	colorRGB
)

type sgrColor struct {
	kind  colorKind
	index int
	rgb   [3]int
}

var basicNames = [8]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

func (c sgrColor) class(layer string) string {
	switch c.kind {
	case colorBasic:
		return "ansi-" + layer + "-" + basicNames[c.index]
	case colorBright:
		return "ansi-" + layer + "-bright-" + basicNames[c.index]
	case colorIndexed:
		return fmt.Sprintf("ansi-%s-%d", layer, c.index)
	}
	return ""
}

type sgrStyle struct {
	bold      bool
	faint     bool
	italic    bool
	underline bool
	inverse   bool
	strike    bool
	fg        sgrColor
	bg        sgrColor
}

func (s sgrStyle) apply(params ansi.Params) sgrStyle {
	if len(params) == 0 {
		return sgrStyle{}
	}
	values := make([]int, len(params))
	for i, p := range params {
		values[i] = p.Param(0)
	}
	for i := 0; i < len(values); i++ {
		v := values[i]
		switch {
		case v == 0:
			s = sgrStyle{}
		case v == 1:
			s.bold = true
		case v == 2:
			s.faint = true
		case v == 3:
			s.italic = true
		case v == 4:
			s.underline = true
		case v == 7:
			s.inverse = true
		case v == 9:
			s.strike = true
		case v == 22:
			s.bold, s.faint = false, false
		case v == 23:
			s.italic = false
		case v == 24:
			s.underline = false
		case v == 27:
			s.inverse = false
		case v == 29:
			s.strike = false
		case v >= 30 && v <= 37:
			s.fg = sgrColor{kind: colorBasic, index: v - 30}
		case v == 38:
			var c sgrColor
			c, i = extendedColor(values, i)
			s.fg = c
		case v == 39:
			s.fg = sgrColor{}
		case v >= 40 && v <= 47:
			s.bg = sgrColor{kind: colorBasic, index: v - 40}
		case v == 48:
			var c sgrColor
			c, i = extendedColor(values, i)
			s.bg = c
		case v == 49:
			s.bg = sgrColor{}
		case v >= 90 && v <= 97:
			s.fg = sgrColor{kind: colorBright, index: v - 90}
		case v >= 100 && v <= 107:
			s.bg = sgrColor{kind: colorBright, index: v - 100}
		}
	}
	return s
}

// extendedColor parses "38;5;n" and "38;2;r;g;b" forms starting at values[i]
// and returns the colour with the index of the last consumed parameter.
func extendedColor(values []int, i int) (sgrColor, int) {
	if i+1 >= len(values) {
		return sgrColor{}, len(values) - 1
	}
	switch values[i+1] {
	case 5:
		if i+2 < len(values) {
			return sgrColor{kind: colorIndexed, index: clampByte(values[i+2])}, i + 2
		}
	case 2:
		if i+4 < len(values) {
			return sgrColor{kind: colorRGB, rgb: [3]int{
				clampByte(values[i+2]),
				clampByte(values[i+3]),
				clampByte(values[i+4]),
			}}, i + 4
		}
	}
	return sgrColor{}, len(values) - 1
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func (s sgrStyle) plain() bool {
	return s == sgrStyle{}
}

func (s sgrStyle) node(text string) *html.Node {
	if s.plain() {
		return dom.Text(text)
	}
	span := dom.Element(atom.Span)
	var classes []string
	flags := []struct {
		on   bool
		name string
	}{
		{s.bold, "ansi-bold"},
		{s.faint, "ansi-faint"},
		{s.italic, "ansi-italic"},
		{s.underline, "ansi-underline"},
		{s.inverse, "ansi-inverse"},
		{s.strike, "ansi-strike"},
	}
	for _, f := range flags {
		if f.on {
			classes = append(classes, f.name)
		}
	}
	if c := s.fg.class("fg"); c != "" {
		classes = append(classes, c)
	}
	if c := s.bg.class("bg"); c != "" {
		classes = append(classes, c)
	}
	dom.AddClass(span, classes...)
	var inline []string
	if s.fg.kind == colorRGB {
		inline = append(inline, fmt.Sprintf("color:#%02x%02x%02x", s.fg.rgb[0], s.fg.rgb[1], s.fg.rgb[2]))
	}
	if s.bg.kind == colorRGB {
		inline = append(inline, fmt.Sprintf("background-color:#%02x%02x%02x", s.bg.rgb[0], s.bg.rgb[1], s.bg.rgb[2]))
	}
	if len(inline) > 0 {
		dom.SetAttr(span, "style", strings.Join(inline, ";"))
	}
	dom.Append(span, dom.Text(text))
	return span
}
