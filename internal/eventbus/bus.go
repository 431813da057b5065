package eventbus

import (
	"context"
	"sync"

	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

// AllPanes subscribes to events of every pane.
const AllPanes schema.PaneID = ""

// Bus fanouts pane events to per-pane subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.PaneID]map[chan schema.PaneEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.PaneID]map[chan schema.PaneEvent]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the pane (or AllPanes) and returns a
// channel + cancel.
func (b *Bus) Subscribe(paneID schema.PaneID) (<-chan schema.PaneEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.PaneEvent, b.depth)
	b.mu.Lock()
	paneSubs := b.subs[paneID]
	if paneSubs == nil {
		paneSubs = make(map[chan schema.PaneEvent]struct{})
		b.subs[paneID] = paneSubs
	}
	paneSubs[ch] = struct{}{}
	count := len(paneSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("pane", paneID).Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[paneID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, paneID)
				}
			}
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.With("pane", paneID).Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnPaneEvent implements core.EventSink.
func (b *Bus) OnPaneEvent(event schema.PaneEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := make([]chan schema.PaneEvent, 0, len(b.subs[event.PaneID])+len(b.subs[AllPanes]))
	for sub := range b.subs[event.PaneID] {
		subs = append(subs, sub)
	}
	if event.PaneID != AllPanes {
		for sub := range b.subs[AllPanes] {
			subs = append(subs, sub)
		}
	}
	// Sends happen under the lock so a concurrent cancel cannot close a
	// channel mid-send; every send is non-blocking.
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 && b.log != nil {
		b.log.With("pane", event.PaneID).Trace("eventbus dropped", "count", dropped, "type", event.Type)
	}
}
