package schema

// CreatePaneRequest creates a console pane.
type CreatePaneRequest struct {
	ID      PaneID `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
}

// AppendLinesRequest submits one ordered batch of raw console lines.
type AppendLinesRequest struct {
	PaneID PaneID   `json:"pane_id"`
	Lines  []string `json:"lines"`
}

// SetVisibilityRequest shows or hides a pane.
type SetVisibilityRequest struct {
	PaneID  PaneID `json:"pane_id"`
	Visible bool   `json:"visible"`
}

// CompletePaneRequest signals that a pane's job output is fully retrieved.
type CompletePaneRequest struct {
	PaneID PaneID `json:"pane_id"`
}

// ToggleSectionRequest folds or unfolds one section.
type ToggleSectionRequest struct {
	PaneID  PaneID `json:"pane_id"`
	Section int    `json:"section"`
}

// ToggleSectionResponse reports the section state after a toggle.
type ToggleSectionResponse struct {
	Expanded bool `json:"expanded"`
}

// ListPanesResponse lists panes in creation order.
type ListPanesResponse struct {
	Panes []PaneSnapshot `json:"panes"`
}

// GetLinesRequest reads raw lines starting at an absolute line number.
type GetLinesRequest struct {
	PaneID PaneID `json:"pane_id"`
	From   int    `json:"from"`
	Limit  int    `json:"limit,omitempty"`
}

// GetLinesResponse returns raw lines and the next line number to request.
type GetLinesResponse struct {
	PaneID    PaneID   `json:"pane_id"`
	From      int      `json:"from"`
	Next      int      `json:"next"`
	Lines     []string `json:"lines"`
	Completed bool     `json:"completed"`
}
