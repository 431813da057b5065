package format

import (
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/net/html"

	"pkt.systems/consolefold/internal/dom"
)

// PlainRenderer inserts line content as a single text node with escape
// sequences removed.
type PlainRenderer struct{}

// NewPlainRenderer returns a colourless line renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// FormatLine returns the stripped content as one text node.
func (p *PlainRenderer) FormatLine(content string) []*html.Node {
	content = ansi.Strip(content)
	if content == "" {
		return nil
	}
	return []*html.Node{dom.Text(content)}
}
