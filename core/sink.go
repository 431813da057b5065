package core

import (
	"context"

	"pkt.systems/consolefold/schema"
)

// PaneWriter feeds one pane from a retrieval source.
type PaneWriter struct {
	service Service
	id      schema.PaneID
}

// NewPaneWriter binds a writer to a pane.
func NewPaneWriter(service Service, id schema.PaneID) *PaneWriter {
	return &PaneWriter{service: service, id: id}
}

// PaneID returns the target pane.
func (w *PaneWriter) PaneID() schema.PaneID {
	return w.id
}

// Transform submits one batch of raw lines.
func (w *PaneWriter) Transform(ctx context.Context, lines []string) error {
	return w.service.AppendLines(ctx, schema.AppendLinesRequest{PaneID: w.id, Lines: lines})
}

// Complete signals that the source has no more lines.
func (w *PaneWriter) Complete(ctx context.Context) error {
	return w.service.CompletePane(ctx, schema.CompletePaneRequest{PaneID: w.id})
}
