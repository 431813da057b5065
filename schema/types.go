package schema

import "time"

// PaneID identifies one console pane, usually one job run.
type PaneID string

// PaneSnapshot describes a pane for listings.
type PaneSnapshot struct {
	ID        PaneID    `json:"id"`
	Title     string    `json:"title"`
	Visible   bool      `json:"visible"`
	Completed bool      `json:"completed"`
	Lines     int       `json:"lines"`
	Pending   int       `json:"pending"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultFrameInterval approximates a display refresh when no host repaint signal exists.
const DefaultFrameInterval = 16 * time.Millisecond

// DefaultInboxDepth bounds queued pane operations before senders block.
const DefaultInboxDepth = 64
