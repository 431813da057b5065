package schema

import "time"

// PaneEventType identifies a pane lifecycle event.
type PaneEventType string

const (
	// PaneEventCreated is emitted once a pane accepts input.
	PaneEventCreated PaneEventType = "created"
	// PaneEventFlush is emitted after buffered nodes reach the live tree.
	PaneEventFlush PaneEventType = "flush"
	// PaneEventVisibility is emitted when a pane is shown or hidden.
	PaneEventVisibility PaneEventType = "visibility"
	// PaneEventToggle is emitted when a section is folded or unfolded.
	PaneEventToggle PaneEventType = "toggle"
	// PaneEventComplete is emitted once the job output is fully retrieved.
	PaneEventComplete PaneEventType = "complete"
	// PaneEventClosed is emitted when a pane stops.
	PaneEventClosed PaneEventType = "closed"
)

// PaneEvent is delivered to event sinks on the pane goroutine.
type PaneEvent struct {
	Type      PaneEventType `json:"type"`
	PaneID    PaneID        `json:"pane_id"`
	Seq       uint64        `json:"seq,omitempty"`
	Lines     int           `json:"lines,omitempty"`
	Sections  int           `json:"sections,omitempty"`
	Visible   bool          `json:"visible,omitempty"`
	Section   int           `json:"section,omitempty"`
	Expanded  bool          `json:"expanded,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
