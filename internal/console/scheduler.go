package console

// Scheduler defers tree mutations to the host's next repaint opportunity.
type Scheduler interface {
	Schedule(fn func())
}

// Immediate runs scheduled callbacks synchronously.
type Immediate struct{}

// Schedule runs fn now.
func (Immediate) Schedule(fn func()) { fn() }

// FrameScheduler coalesces callbacks until the host calls Frame. It is not
// safe for concurrent use; the goroutine that owns the transformer drives it.
type FrameScheduler struct {
	pending []func()
}

// Schedule queues fn for the next frame.
func (f *FrameScheduler) Schedule(fn func()) {
	f.pending = append(f.pending, fn)
}

// Pending returns the number of queued callbacks.
func (f *FrameScheduler) Pending() int {
	return len(f.pending)
}

// Frame runs the queued callbacks in order and returns how many ran.
// Callbacks scheduled while a frame runs wait for the next one.
func (f *FrameScheduler) Frame() int {
	batch := f.pending
	f.pending = nil
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}
