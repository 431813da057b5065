package format

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pkt.systems/consolefold/internal/dom"
)

const (
	defaultCommandLexer = "bash"
	// CommandClassPrefix prefixes chroma's short token classes (e.g. "chroma-nb").
	CommandClassPrefix = "chroma-"
)

// CommandHighlighter tokenises task commands into classed spans.
type CommandHighlighter struct {
	lexer chroma.Lexer
}

// NewCommandHighlighter resolves lexerName, falling back to bash and then
// to chroma's plain-text lexer.
func NewCommandHighlighter(lexerName string) *CommandHighlighter {
	if strings.TrimSpace(lexerName) == "" {
		lexerName = defaultCommandLexer
	}
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Get(defaultCommandLexer)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return &CommandHighlighter{lexer: chroma.Coalesce(lexer)}
}

// FormatCommand returns the command as token spans. The text of the result
// always equals command; on any lexer mismatch it degrades to a text node.
func (h *CommandHighlighter) FormatCommand(command string) []*html.Node {
	if command == "" {
		return nil
	}
	plain := []*html.Node{dom.Text(command)}
	if h == nil || h.lexer == nil {
		return plain
	}
	it, err := h.lexer.Tokenise(nil, command)
	if err != nil {
		return plain
	}
	tokens := it.Tokens()
	if !strings.HasSuffix(command, "\n") && len(tokens) > 0 {
		last := &tokens[len(tokens)-1]
		last.Value = strings.TrimSuffix(last.Value, "\n")
	}

	var (
		out  []*html.Node
		seen strings.Builder
	)
	for _, tok := range tokens {
		if tok.Value == "" {
			continue
		}
		seen.WriteString(tok.Value)
		class := chroma.StandardTypes[tok.Type]
		if class == "" {
			out = append(out, dom.Text(tok.Value))
			continue
		}
		span := dom.Element(atom.Span, CommandClassPrefix+class)
		dom.Append(span, dom.Text(tok.Value))
		out = append(out, span)
	}
	if seen.String() != command {
		return plain
	}
	return out
}
