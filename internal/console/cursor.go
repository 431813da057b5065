package console

import (
	"golang.org/x/net/html"

	"pkt.systems/consolefold/internal/dom"
)

// continuation is the handle a batch resumes from: the section left open by
// the previous batch and the live container its further body lines belong
// to. parent is nil when the section has no render view yet.
type continuation struct {
	parent  *html.Node
	section SectionID
}

// cursor is the write head of one pane. New sections are appended to the
// queue fragment; body lines of the carried section go to the residual
// fragment until the flush merges them into cont.parent.
type cursor struct {
	sections *sectionTable
	views    map[SectionID]*sectionView

	current  SectionID
	cont     continuation
	queue    *html.Node
	residual *html.Node

	dirty   []SectionID
	isDirty map[SectionID]bool
	created int
	lines   int
}

func newCursor(sections *sectionTable, views map[SectionID]*sectionView) *cursor {
	c := &cursor{sections: sections, views: views}
	c.current = sections.create().ID
	c.rebase()
	return c
}

// rebase points the cursor at fresh off-tree fragments while keeping the
// open section.
func (c *cursor) rebase() {
	c.queue = dom.Fragment()
	c.residual = dom.Fragment()
	c.dirty = nil
	c.isDirty = make(map[SectionID]bool)
	c.created = 0
	c.lines = 0
	c.cont = continuation{section: c.current}
	if v := c.views[c.current]; v != nil {
		c.cont.parent = v.body
	}
}

func (c *cursor) section() *Section {
	return c.sections.get(c.current)
}

// fresh opens an unassigned continuation section.
func (c *cursor) fresh() *Section {
	s := c.sections.create()
	c.current = s.ID
	return s
}

// assign types s from code and creates its view in the queue fragment.
func (c *cursor) assign(s *Section, code Code) *sectionView {
	s.Type = TypeOf(code)
	v := newSectionView(s)
	c.views[s.ID] = v
	dom.Append(c.queue, v.el)
	c.created++
	c.touch(s.ID)
	return v
}

// bodyTarget returns where body lines of s are appended in this batch.
func (c *cursor) bodyTarget(s *Section) *html.Node {
	if s.ID == c.cont.section && c.cont.parent != nil {
		return c.residual
	}
	return c.views[s.ID].body
}

func (c *cursor) touch(id SectionID) {
	if c.isDirty[id] {
		return
	}
	c.isDirty[id] = true
	c.dirty = append(c.dirty, id)
}
