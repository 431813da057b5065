package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html/atom"
)

func TestClassManipulation(t *testing.T) {
	n := Element(atom.Div, "a", "b")
	AddClass(n, "b", "c")
	if got := strings.Join(Classes(n), " "); got != "a b c" {
		t.Fatalf("unexpected classes %q", got)
	}
	RemoveClass(n, "a")
	if HasClass(n, "a") || !HasClass(n, "c") {
		t.Fatalf("unexpected classes after remove: %v", Classes(n))
	}
	if ToggleClass(n, "c") {
		t.Fatalf("expected toggle to remove c")
	}
	if !ToggleClass(n, "c") {
		t.Fatalf("expected toggle to add c")
	}
	RemoveClass(n, "b", "c")
	if _, ok := Attr(n, "class"); ok {
		t.Fatalf("expected class attribute to be dropped when empty")
	}
}

func TestMoveChildrenEmptiesFragment(t *testing.T) {
	live := Element(atom.Div)
	Append(live, Text("x"))
	frag := Fragment()
	Append(frag, Element(atom.Span), Text("y"))
	if moved := MoveChildren(live, frag); moved != 2 {
		t.Fatalf("expected 2 moved, got %d", moved)
	}
	if Len(frag) != 0 {
		t.Fatalf("expected fragment to be empty")
	}
	if Len(live) != 3 {
		t.Fatalf("expected 3 children, got %d", Len(live))
	}
	if got := TextContent(live); got != "xy" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestAppendDetachesFromPreviousParent(t *testing.T) {
	a := Element(atom.Div)
	b := Element(atom.Div)
	child := Text("moved")
	Append(a, child)
	Append(b, child)
	if Len(a) != 0 || Len(b) != 1 {
		t.Fatalf("expected child to move, got a=%d b=%d", Len(a), Len(b))
	}
}

func TestPrependAndRender(t *testing.T) {
	n := Element(atom.Div, "header")
	Append(n, Text("body"))
	Prepend(n, Element(atom.Span, "toggle"))
	SetAttr(n, "data-section", "1")
	got := String(n)
	want := `<div class="header" data-section="1"><span class="toggle"></span>body</div>`
	if got != want {
		t.Fatalf("unexpected html\n got: %s\nwant: %s", got, want)
	}
}

func TestFirstWithClassSearchesDepthFirst(t *testing.T) {
	root := Element(atom.Div)
	outer := Element(atom.Div, "outer")
	inner := Element(atom.Span, "target")
	Append(outer, inner)
	Append(root, outer, Element(atom.Span, "target"))
	if got := FirstWithClass(root, "target"); got != inner {
		t.Fatalf("expected nested target first")
	}
	if got := len(ChildrenWithClass(root, "target")); got != 1 {
		t.Fatalf("expected one direct target child, got %d", got)
	}
}
