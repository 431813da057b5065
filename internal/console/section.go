package console

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pkt.systems/consolefold/internal/dom"
)

// SectionID indexes a section in its transformer's arena. IDs start at 1.
type SectionID int

// Annotations are the structured fields parsed from a status line.
type Annotations struct {
	DurationMS *int64
	ExitCode   *int
}

// Empty reports whether no annotation is present.
func (a Annotations) Empty() bool {
	return a.DurationMS == nil && a.ExitCode == nil
}

// Section is one foldable run of console lines. It carries parsing state
// only; its render nodes live in the transformer's view table.
type Section struct {
	ID          SectionID
	Type        SectionType
	Open        bool
	Multiline   bool
	HasError    bool
	HasHeader   bool
	BodyLines   int
	Status      Status
	Annotations Annotations
}

// Assigned reports whether the section has received its first line.
func (s *Section) Assigned() bool {
	return s.Type != ""
}

type sectionTable struct {
	sections []*Section
}

func (t *sectionTable) create() *Section {
	s := &Section{ID: SectionID(len(t.sections) + 1), Open: true}
	t.sections = append(t.sections, s)
	return s
}

func (t *sectionTable) get(id SectionID) *Section {
	if id < 1 || int(id) > len(t.sections) {
		return nil
	}
	return t.sections[id-1]
}

// Section CSS classes.
const (
	classConsole   = "log-fs-console"
	classLoading   = "log-fs-loading"
	classSection   = "log-fs-section"
	classHeader    = "log-fs-header"
	classBody      = "log-fs-body"
	classToggle    = "log-fs-toggle"
	classOpen      = "log-fs-open"
	classMultiline = "log-fs-multiline"
	classExpanded  = "log-fs-expanded"
	classError     = "log-fs-error"
	classTypeBase  = "log-fs-type-"
	classStatBase  = "log-fs-status-"
)

// sectionView holds the render nodes of one assigned section and what has
// already been reflected into them.
type sectionView struct {
	el     *html.Node
	header *html.Node
	body   *html.Node

	expanded bool
	toggle   bool
	closed   bool
}

func newSectionView(s *Section) *sectionView {
	v := &sectionView{
		el:     dom.Element(atom.Div),
		header: dom.Element(atom.Div, classHeader),
		body:   dom.Element(atom.Div, classBody),
	}
	v.applyClasses(s)
	dom.SetAttr(v.el, "data-section", strconv.Itoa(int(s.ID)))
	dom.Append(v.el, v.header, v.body)
	return v
}

// sync reflects the section's state into its nodes. It is safe to run any
// number of times; one-shot transitions are guarded by the view flags.
func (v *sectionView) sync(s *Section) {
	if s.Multiline && !v.toggle {
		v.toggle = true
		v.expanded = true
		dom.Prepend(v.header, dom.Element(atom.Span, classToggle))
	}
	if !s.Open && !v.closed {
		v.closed = true
		if !s.HasError {
			v.expanded = false
		}
		markWithAnnotations(v.header, s.Annotations)
	}
	v.applyClasses(s)
}

// applyClasses rewrites the class list in a fixed order so the markup does
// not depend on how lines were batched.
func (v *sectionView) applyClasses(s *Section) {
	classes := []string{classSection, classTypeBase + string(s.Type)}
	if s.Status != StatusNone {
		classes = append(classes, classStatBase+string(s.Status))
	}
	if s.Open {
		classes = append(classes, classOpen)
	}
	if s.Multiline {
		classes = append(classes, classMultiline)
	}
	if v.expanded {
		classes = append(classes, classExpanded)
	}
	if s.HasError {
		classes = append(classes, classError)
	}
	dom.SetAttr(v.el, "class", strings.Join(classes, " "))
}
