// Package console folds prefixed build console output into a tree of
// collapsible sections.
//
// A Transformer owns one pane's render tree. Batches of raw lines are
// classified, routed to sections and rendered off-tree; the new nodes are
// merged into the live tree in one scheduled flush per batch. While the pane
// is hidden, batches wait in a FIFO that drains on the next visible
// Transform. A Transformer is not safe for concurrent use.
package console

import (
	"io"

	"golang.org/x/net/html"

	"pkt.systems/consolefold/internal/dom"
)

// Flush describes one merge of a batch into the live tree.
type Flush struct {
	Lines       int
	NewSections int
	Updated     []SectionID
}

// Options configures a Transformer.
type Options struct {
	// Formatter renders non-blank line content. Plain text when nil.
	Formatter LineFormatter
	// Commands renders task commands. Plain text when nil.
	Commands CommandFormatter
	// Scheduler runs flushes. Immediate when nil.
	Scheduler Scheduler
	// Visible reports pane visibility. Always visible when nil.
	Visible func() bool
	// OnFlush is called after each flush has been applied to the live tree.
	OnFlush func(Flush)
	// OnComplete is called once, after the loading affordance is removed.
	OnComplete func()
}

type mode uint8

const (
	modeActive mode = iota
	modeDeferred
)

// Transformer turns batches of console lines into a live section tree.
type Transformer struct {
	root      *html.Node
	writer    *lineWriter
	scheduler Scheduler
	visible   func() bool
	onFlush   func(Flush)
	onDone    func()

	sections *sectionTable
	views    map[SectionID]*sectionView
	cursor   *cursor

	mode      mode
	deferred  []func()
	completed bool
}

// New returns a Transformer rendering into root.
func New(root *html.Node, opts Options) *Transformer {
	if opts.Scheduler == nil {
		opts.Scheduler = Immediate{}
	}
	t := &Transformer{
		root:      root,
		writer:    newLineWriter(opts.Formatter, opts.Commands),
		scheduler: opts.Scheduler,
		visible:   opts.Visible,
		onFlush:   opts.OnFlush,
		onDone:    opts.OnComplete,
		sections:  &sectionTable{},
		views:     make(map[SectionID]*sectionView),
	}
	t.cursor = newCursor(t.sections, t.views)
	dom.AddClass(root, classConsole, classLoading)
	t.deriveMode()
	return t
}

// Root returns the live container.
func (t *Transformer) Root() *html.Node {
	return t.root
}

// Transform processes one batch of raw lines. Empty batches are ignored.
// While the pane is hidden the batch is queued; otherwise queued batches run
// first, in arrival order.
func (t *Transformer) Transform(lines []string) {
	if len(lines) == 0 {
		return
	}
	t.deriveMode()
	if t.mode == modeDeferred {
		batch := append([]string(nil), lines...)
		t.deferred = append(t.deferred, func() { t.processBatch(batch) })
		return
	}
	t.Drain()
	t.processBatch(lines)
}

// Drain runs every queued batch regardless of visibility and returns how
// many ran.
func (t *Transformer) Drain() int {
	ran := 0
	for len(t.deferred) > 0 {
		op := t.deferred[0]
		t.deferred[0] = nil
		t.deferred = t.deferred[1:]
		op()
		ran++
	}
	t.deferred = nil
	return ran
}

// Pending returns the number of queued batches.
func (t *Transformer) Pending() int {
	return len(t.deferred)
}

// Deferred reports whether the last derived mode queues batches.
func (t *Transformer) Deferred() bool {
	return t.mode == modeDeferred
}

func (t *Transformer) deriveMode() {
	if t.visible == nil || t.visible() {
		t.mode = modeActive
		return
	}
	t.mode = modeDeferred
}

func (t *Transformer) processBatch(lines []string) {
	for _, raw := range lines {
		t.step(Classify(raw))
		t.cursor.lines++
	}
	t.flush()
}

func (t *Transformer) step(l LogLine) {
	c := t.cursor
	s := c.section()
	switch {
	case !s.Assigned():
		ann := t.writeHeader(s, l)
		if IsEndBoundary(l.Code) {
			t.close(s, l.Code, ann)
		}
	case IsEndBoundary(l.Code):
		t.close(s, l.Code, t.writeBody(s, l))
	case s.Type.Accepts(l.Code) && !IsSectionStart(l.Code):
		t.writeBody(s, l)
	default:
		s.Open = false
		c.touch(s.ID)
		t.writeHeader(c.fresh(), l)
	}
}

// writeHeader assigns s when needed and writes l as its header line.
func (t *Transformer) writeHeader(s *Section, l LogLine) Annotations {
	v := t.views[s.ID]
	if v == nil {
		v = t.cursor.assign(s, l.Code)
	}
	node, ann := t.writer.write(l)
	dom.Append(v.header, node)
	s.HasHeader = true
	if IsErrorCode(l.Code) {
		s.HasError = true
	}
	t.cursor.touch(s.ID)
	return ann
}

func (t *Transformer) writeBody(s *Section, l LogLine) Annotations {
	node, ann := t.writer.write(l)
	dom.Append(t.cursor.bodyTarget(s), node)
	s.BodyLines++
	if s.BodyLines >= 2 {
		s.Multiline = true
	}
	if IsErrorCode(l.Code) {
		s.HasError = true
	}
	t.cursor.touch(s.ID)
	return ann
}

// close ends s on an end boundary and opens a fresh continuation section.
func (t *Transformer) close(s *Section, code Code, ann Annotations) {
	s.Open = false
	s.Status = StatusOf(code)
	s.Annotations = ann
	t.cursor.touch(s.ID)
	t.cursor.fresh()
}

// flush schedules the merge of this batch's fragments and resets the cursor
// onto fresh ones.
func (t *Transformer) flush() {
	c := t.cursor
	queue, residual, parent := c.queue, c.residual, c.cont.parent
	stats := Flush{Lines: c.lines, NewSections: c.created, Updated: c.dirty}
	t.scheduler.Schedule(func() {
		if parent != nil {
			dom.MoveChildren(parent, residual)
		}
		dom.MoveChildren(t.root, queue)
		for _, id := range stats.Updated {
			if v := t.views[id]; v != nil {
				v.sync(t.sections.get(id))
			}
		}
		if t.onFlush != nil {
			t.onFlush(stats)
		}
	})
	c.rebase()
	t.deriveMode()
}

// Complete removes the loading affordance. Only the first call has an effect.
func (t *Transformer) Complete() {
	if t.completed {
		return
	}
	t.completed = true
	t.scheduler.Schedule(func() {
		dom.RemoveClass(t.root, classLoading)
		if t.onDone != nil {
			t.onDone()
		}
	})
}

// Completed reports whether Complete has been called.
func (t *Transformer) Completed() bool {
	return t.completed
}

// Toggle flips the expanded state of a multiline section and returns the
// new state. ok is false for unknown or single-line sections.
func (t *Transformer) Toggle(id SectionID) (expanded bool, ok bool) {
	s := t.sections.get(id)
	v := t.views[id]
	if s == nil || v == nil || !s.Multiline {
		return false, false
	}
	v.expanded = !v.expanded
	v.applyClasses(s)
	return v.expanded, true
}

// Section returns a copy of the parsing state of id.
func (t *Transformer) Section(id SectionID) (Section, bool) {
	s := t.sections.get(id)
	if s == nil {
		return Section{}, false
	}
	return *s, true
}

// Render writes the live tree as HTML.
func (t *Transformer) Render(w io.Writer) error {
	return dom.Render(w, t.root)
}
