// Package logsource retrieves raw console lines and feeds them to a pane.
package logsource

import (
	"context"
	"strings"
)

// Sink receives ordered batches of raw lines and the completion signal.
type Sink interface {
	Transform(ctx context.Context, lines []string) error
	Complete(ctx context.Context) error
}

// Source retrieves lines until the job output is complete or ctx ends.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// splitLines splits a newline separated body. Only an empty body has no
// lines; one trailing newline terminates the last line, so "\n" is a single
// blank line.
func splitLines(body string) []string {
	if body == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(body, "\n"), "\n")
}
