package core

import (
	"context"

	"pkt.systems/consolefold/internal/console"
	"pkt.systems/consolefold/schema"
)

// Service is the transport-agnostic API for managing console panes.
type Service interface {
	CreatePane(ctx context.Context, req schema.CreatePaneRequest) (schema.PaneSnapshot, error)
	ClosePane(ctx context.Context, id schema.PaneID) error
	ListPanes(ctx context.Context) (schema.ListPanesResponse, error)
	GetPane(ctx context.Context, id schema.PaneID) (schema.PaneSnapshot, error)
	AppendLines(ctx context.Context, req schema.AppendLinesRequest) error
	SetVisibility(ctx context.Context, req schema.SetVisibilityRequest) error
	CompletePane(ctx context.Context, req schema.CompletePaneRequest) error
	ToggleSection(ctx context.Context, req schema.ToggleSectionRequest) (schema.ToggleSectionResponse, error)
	RenderPane(ctx context.Context, id schema.PaneID) ([]byte, error)
	SnapshotPane(ctx context.Context, id schema.PaneID) ([]console.SectionSnapshot, error)
	GetLines(ctx context.Context, req schema.GetLinesRequest) (schema.GetLinesResponse, error)
	Close()
}
