package core

import (
	"pkt.systems/consolefold/internal/console"
	"pkt.systems/consolefold/internal/format"
	"pkt.systems/consolefold/schema"
)

// Renderer builds the formatters a pane's transformer uses. Each pane gets
// its own instances, so implementations may return stateful formatters.
type Renderer interface {
	LineFormatter() console.LineFormatter
	CommandFormatter() console.CommandFormatter
}

type renderer struct {
	ansi  bool
	lexer string
}

// NewRenderer returns the ANSI and chroma backed renderer configured by cfg.
func NewRenderer(cfg schema.ServiceConfig) Renderer {
	return renderer{ansi: !cfg.DisableANSI, lexer: cfg.CommandLexer}
}

func (r renderer) LineFormatter() console.LineFormatter {
	if r.ansi {
		return format.NewANSIRenderer()
	}
	return format.NewPlainRenderer()
}

func (r renderer) CommandFormatter() console.CommandFormatter {
	return format.NewCommandHighlighter(r.lexer)
}
