package core

import (
	"bytes"
	"context"
	"time"

	"golang.org/x/net/html/atom"

	"pkt.systems/consolefold/internal/console"
	"pkt.systems/consolefold/internal/dom"
	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

// pane owns one transformer and the goroutine that drives it. Everything
// below the inbox is touched only by that goroutine.
type pane struct {
	ID        schema.PaneID
	Title     string
	CreatedAt time.Time

	inbox   chan func()
	stopped chan struct{}
	cancel  context.CancelFunc
	sink    EventSink
	log     pslog.Logger

	tr      *console.Transformer
	frames  *console.FrameScheduler
	visible bool
	backlog *buffer
}

type paneOptions struct {
	ID       schema.PaneID
	Title    string
	Visible  bool
	Config   schema.ServiceConfig
	Renderer Renderer
	Sink     EventSink
	Logger   pslog.Logger
}

func newPane(opts paneOptions) *pane {
	p := &pane{
		ID:        opts.ID,
		Title:     opts.Title,
		CreatedAt: time.Now().UTC(),
		inbox:     make(chan func(), opts.Config.InboxDepth),
		stopped:   make(chan struct{}),
		sink:      opts.Sink,
		log:       opts.Logger,
		frames:    &console.FrameScheduler{},
		visible:   opts.Visible,
		backlog:   newBufferWithMaxLines(opts.Config.BacklogLines),
	}
	p.tr = console.New(dom.Element(atom.Div), console.Options{
		Formatter: opts.Renderer.LineFormatter(),
		Commands:  opts.Renderer.CommandFormatter(),
		Scheduler: p.frames,
		Visible:   func() bool { return p.visible },
		OnFlush: func(f console.Flush) {
			p.emit(schema.PaneEvent{Type: schema.PaneEventFlush, Lines: f.Lines, Sections: f.NewSections})
		},
		OnComplete: func() {
			p.emit(schema.PaneEvent{Type: schema.PaneEventComplete})
		},
	})
	return p
}

func (p *pane) start(ctx context.Context, interval time.Duration) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx, interval)
}

func (p *pane) run(ctx context.Context, interval time.Duration) {
	defer close(p.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.emit(schema.PaneEvent{Type: schema.PaneEventCreated, Visible: p.visible})
	for {
		select {
		case <-ctx.Done():
			p.frames.Frame()
			p.emit(schema.PaneEvent{Type: schema.PaneEventClosed})
			p.log.Debug("pane loop stopped")
			return
		case op := <-p.inbox:
			op()
		case <-ticker.C:
			p.frames.Frame()
		}
	}
}

// stop cancels the loop and waits for it to exit.
func (p *pane) stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.stopped
}

// post queues fn on the pane goroutine without waiting for it to run.
func (p *pane) post(ctx context.Context, fn func()) error {
	select {
	case <-p.stopped:
		return schema.ErrPaneClosed
	default:
	}
	select {
	case p.inbox <- fn:
		return nil
	case <-p.stopped:
		return schema.ErrPaneClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn on the pane goroutine and waits for it to finish.
func (p *pane) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := p.post(ctx, func() {
		fn()
		close(done)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-p.stopped:
		return schema.ErrPaneClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pane) emit(event schema.PaneEvent) {
	if p.sink == nil {
		return
	}
	event.PaneID = p.ID
	event.Timestamp = time.Now().UTC()
	p.sink.OnPaneEvent(event)
}

// The methods below run on the pane goroutine.

func (p *pane) appendLines(lines []string) {
	p.backlog.Append(lines...)
	p.tr.Transform(lines)
	p.log.Trace("pane batch", "lines", len(lines), "pending", p.tr.Pending())
}

func (p *pane) setVisible(visible bool) {
	if p.visible == visible {
		return
	}
	p.visible = visible
	// A completed pane receives no further batches, so nothing else would
	// drain what was queued while it was hidden.
	if visible && p.tr.Completed() {
		p.tr.Drain()
	}
	p.emit(schema.PaneEvent{Type: schema.PaneEventVisibility, Visible: visible})
}

func (p *pane) complete() {
	if p.visible {
		p.tr.Drain()
	}
	p.tr.Complete()
}

func (p *pane) toggle(section int) (bool, bool) {
	p.frames.Frame()
	expanded, ok := p.tr.Toggle(console.SectionID(section))
	if ok {
		p.emit(schema.PaneEvent{Type: schema.PaneEventToggle, Section: section, Expanded: expanded})
	}
	return expanded, ok
}

func (p *pane) render() ([]byte, error) {
	p.frames.Frame()
	var buf bytes.Buffer
	if err := p.tr.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *pane) sections() []console.SectionSnapshot {
	p.frames.Frame()
	return p.tr.Snapshot()
}

func (p *pane) snapshot() schema.PaneSnapshot {
	return schema.PaneSnapshot{
		ID:        p.ID,
		Title:     p.Title,
		Visible:   p.visible,
		Completed: p.tr.Completed(),
		Lines:     p.backlog.Total(),
		Pending:   p.tr.Pending(),
		CreatedAt: p.CreatedAt,
	}
}
