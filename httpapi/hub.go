package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/consolefold/internal/logx"
	"pkt.systems/consolefold/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64        `json:"seq"`
	Type      string        `json:"type"`
	PaneID    schema.PaneID `json:"pane_id"`
	Lines     int           `json:"lines,omitempty"`
	Sections  int           `json:"sections,omitempty"`
	Visible   bool          `json:"visible,omitempty"`
	Section   int           `json:"section,omitempty"`
	Expanded  bool          `json:"expanded,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Hub broadcasts events per pane.
type Hub struct {
	mu          sync.Mutex
	panes       map[schema.PaneID]*paneHub
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		panes:       make(map[schema.PaneID]*paneHub),
		historySize: historySize,
	}
}

// OnPaneEvent implements core.EventSink.
func (h *Hub) OnPaneEvent(event schema.PaneEvent) {
	log := logx.WithPane(context.Background(), event.PaneID)
	log.Trace("hub pane event", "type", event.Type, "lines", event.Lines)
	h.publish(event.PaneID, StreamEvent{
		Type:      string(event.Type),
		PaneID:    event.PaneID,
		Lines:     event.Lines,
		Sections:  event.Sections,
		Visible:   event.Visible,
		Section:   event.Section,
		Expanded:  event.Expanded,
		Timestamp: event.Timestamp,
	})
	if event.Type == schema.PaneEventClosed {
		h.forget(event.PaneID)
	}
}

// Subscribe registers a subscriber for a pane.
func (h *Hub) Subscribe(paneID schema.PaneID) (<-chan StreamEvent, func(), uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ph := h.getOrCreatePaneHubLocked(paneID)
	ch := make(chan StreamEvent, 256)
	ph.subs[ch] = struct{}{}
	seq := ph.seq
	log := logx.WithPane(context.Background(), paneID)
	log.Info("hub subscribe", "subs", len(ph.subs), "history", len(ph.history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := ph.subs[ch]; ok {
				delete(ph.subs, ch)
				close(ch)
			}
			remaining := len(ph.subs)
			// Entries without history or subscribers carry nothing to replay;
			// this also covers streams that subscribed after the pane closed.
			if remaining == 0 && len(ph.history) == 0 && h.panes[paneID] == ph {
				delete(h.panes, paneID)
			}
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(paneID schema.PaneID, after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	ph := h.panes[paneID]
	if ph == nil {
		return nil
	}
	events := make([]StreamEvent, 0, len(ph.history))
	for _, event := range ph.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	logx.WithPane(context.Background(), paneID).Debug("hub replay", "after", after, "count", len(events))
	return events
}

func (h *Hub) publish(paneID schema.PaneID, event StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ph := h.getOrCreatePaneHubLocked(paneID)
	ph.seq++
	event.Seq = ph.seq
	ph.history = append(ph.history, event)
	if len(ph.history) > h.historySize {
		ph.history = ph.history[len(ph.history)-h.historySize:]
	}

	dropped := 0
	for sub := range ph.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logx.WithPane(context.Background(), paneID).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

// forget closes the subscribers of a closed pane and drops its history.
func (h *Hub) forget(paneID schema.PaneID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ph := h.panes[paneID]
	if ph == nil {
		return
	}
	for sub := range ph.subs {
		delete(ph.subs, sub)
		close(sub)
	}
	delete(h.panes, paneID)
}

func (h *Hub) getOrCreatePaneHubLocked(paneID schema.PaneID) *paneHub {
	ph := h.panes[paneID]
	if ph == nil {
		ph = &paneHub{
			subs: make(map[chan StreamEvent]struct{}),
		}
		h.panes[paneID] = ph
	}
	return ph
}

type paneHub struct {
	seq     uint64
	history []StreamEvent
	subs    map[chan StreamEvent]struct{}
}
