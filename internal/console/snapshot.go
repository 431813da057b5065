package console

import (
	"strconv"

	"golang.org/x/net/html"

	"pkt.systems/consolefold/internal/dom"
)

// LineSnapshot is a rendered line read back from the live tree.
type LineSnapshot struct {
	Code      Code
	Timestamp string
	Text      string
	Badges    []string
}

// SectionSnapshot is a flushed section read back from the live tree.
type SectionSnapshot struct {
	Section
	Expanded bool
	Header   LineSnapshot
	Body     []LineSnapshot
}

// Snapshot returns the sections currently in the live tree, in order.
// Lines still waiting for a flush or in the deferred queue are not included.
func (t *Transformer) Snapshot() []SectionSnapshot {
	var out []SectionSnapshot
	for _, el := range dom.ChildrenWithClass(t.root, classSection) {
		raw, _ := dom.Attr(el, "data-section")
		id, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		s := t.sections.get(SectionID(id))
		v := t.views[SectionID(id)]
		if s == nil || v == nil {
			continue
		}
		sv := SectionSnapshot{Section: *s, Expanded: dom.HasClass(el, classExpanded)}
		if lines := dom.ChildrenWithClass(v.header, classLine); len(lines) > 0 {
			sv.Header = readLine(lines[0])
		}
		// Section annotations sit on the header itself, beside the line.
		for _, b := range dom.ChildrenWithClass(v.header, classBadge) {
			sv.Header.Badges = append(sv.Header.Badges, dom.TextContent(b))
		}
		for _, line := range dom.ChildrenWithClass(v.body, classLine) {
			sv.Body = append(sv.Body, readLine(line))
		}
		out = append(out, sv)
	}
	return out
}

// Text returns the content of every flushed line in document order.
func (t *Transformer) Text() []string {
	var out []string
	for _, sv := range t.Snapshot() {
		if sv.HasHeader {
			out = append(out, sv.Header.Text)
		}
		for _, l := range sv.Body {
			out = append(out, l.Text)
		}
	}
	return out
}

func readLine(n *html.Node) LineSnapshot {
	lv := LineSnapshot{Text: lineText(n)}
	if code, ok := dom.Attr(n, "data-code"); ok {
		lv.Code = Code(code)
	}
	if ts := dom.FirstWithClass(n, classTimestamp); ts != nil {
		lv.Timestamp = dom.TextContent(ts)
	}
	for _, b := range dom.ChildrenWithClass(n, classBadge) {
		lv.Badges = append(lv.Badges, dom.TextContent(b))
	}
	return lv
}
