package core

import "pkt.systems/consolefold/schema"

// bufferView is a slice of the backlog addressed by absolute line number.
type bufferView struct {
	Lines []string
	From  int
	Next  int
}

const defaultMaxLines = schema.DefaultBacklogLines

// buffer keeps the most recent raw lines of a pane. Line numbers are
// absolute: trimming old lines advances base instead of renumbering.
type buffer struct {
	lines    []string
	base     int
	maxLines int
}

// Append adds lines to the buffer, dropping the oldest beyond maxLines.
func (b *buffer) Append(lines ...string) {
	if len(lines) == 0 {
		return
	}
	b.lines = append(b.lines, lines...)
	maxLines := b.maxLines
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	if len(b.lines) > maxLines {
		trim := len(b.lines) - maxLines
		b.lines = append([]string(nil), b.lines[trim:]...)
		b.base += trim
	}
}

// Total returns the number of lines ever appended.
func (b *buffer) Total() int {
	return b.base + len(b.lines)
}

// Snapshot returns up to limit lines starting at absolute line from. Lines
// that were trimmed are skipped; limit <= 0 means no limit.
func (b *buffer) Snapshot(from, limit int) bufferView {
	if from < b.base {
		from = b.base
	}
	total := b.Total()
	if from > total {
		from = total
	}
	end := total
	if limit > 0 && from+limit < end {
		end = from + limit
	}
	lines := make([]string, end-from)
	copy(lines, b.lines[from-b.base:end-b.base])
	return bufferView{Lines: lines, From: from, Next: end}
}

// newBuffer returns a buffer with default limits applied.
func newBuffer() *buffer {
	return &buffer{maxLines: defaultMaxLines}
}

func newBufferWithMaxLines(maxLines int) *buffer {
	buf := newBuffer()
	if maxLines > 0 {
		buf.maxLines = maxLines
	}
	return buf
}
