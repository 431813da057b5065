package core

import "pkt.systems/consolefold/schema"

// EventSink receives pane events from the core service. Calls are made on
// pane goroutines and must not block.
type EventSink interface {
	OnPaneEvent(event schema.PaneEvent)
}
