// Package dom builds and edits detached HTML render trees.
//
// Nodes are plain golang.org/x/net/html nodes. A fragment is a document node
// used as an off-tree container: its children are moved into a live parent,
// the fragment itself is never inserted.
package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element returns a detached element with the given classes.
func Element(a atom.Atom, classes ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	AddClass(n, classes...)
	return n
}

// Text returns a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Fragment returns an empty off-tree container.
func Fragment() *html.Node {
	return &html.Node{Type: html.DocumentNode}
}

// Append adds children to parent in order. Children that already have a
// parent are detached first.
func Append(parent *html.Node, children ...*html.Node) {
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.Parent != nil {
			child.Parent.RemoveChild(child)
		}
		parent.AppendChild(child)
	}
}

// Prepend inserts child as the first child of parent.
func Prepend(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.InsertBefore(child, parent.FirstChild)
}

// MoveChildren moves every child of src to the end of dst and returns how
// many were moved. src is left empty.
func MoveChildren(dst, src *html.Node) int {
	if dst == nil || src == nil {
		return 0
	}
	moved := 0
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		dst.AppendChild(c)
		moved++
		c = next
	}
	return moved
}

// Len returns the number of direct children.
func Len(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets key to val on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	val, _ := Attr(n, "class")
	return strings.Fields(val)
}

// HasClass reports whether n carries class name.
func HasClass(n *html.Node, name string) bool {
	for _, c := range Classes(n) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends the missing names to the class list of n.
func AddClass(n *html.Node, names ...string) {
	if len(names) == 0 {
		return
	}
	current := Classes(n)
	changed := false
	for _, name := range names {
		if name == "" || contains(current, name) {
			continue
		}
		current = append(current, name)
		changed = true
	}
	if changed {
		SetAttr(n, "class", strings.Join(current, " "))
	}
}

// RemoveClass drops names from the class list of n.
func RemoveClass(n *html.Node, names ...string) {
	current := Classes(n)
	out := current[:0]
	for _, c := range current {
		if contains(names, c) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(out, " "))
}

// ToggleClass flips name on n and reports whether it is now present.
func ToggleClass(n *html.Node, name string) bool {
	if HasClass(n, name) {
		RemoveClass(n, name)
		return false
	}
	AddClass(n, name)
	return true
}

// FirstWithClass returns the first descendant of n (depth first) carrying name.
func FirstWithClass(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if HasClass(c, name) {
			return c
		}
		if found := FirstWithClass(c, name); found != nil {
			return found
		}
	}
	return nil
}

// ChildrenWithClass returns the direct element children of n carrying name.
func ChildrenWithClass(n *html.Node, name string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && HasClass(c, name) {
			out = append(out, c)
		}
	}
	return out
}

// TextContent concatenates every text node below n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	writeText(&b, n)
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// Render writes n as HTML.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// String renders n as HTML, returning an empty string on failure.
func String(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
