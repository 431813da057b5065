package consolefold

import (
	"pkt.systems/consolefold/core"
	"pkt.systems/consolefold/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnPaneEvent(event schema.PaneEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnPaneEvent(event)
	}
}
