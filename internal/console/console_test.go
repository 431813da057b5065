package console

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/net/html/atom"

	"pkt.systems/consolefold/internal/dom"
	"pkt.systems/consolefold/internal/format"
)

func newTestTransformer(opts Options) *Transformer {
	return New(dom.Element(atom.Div), opts)
}

func contents(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, raw := range lines {
		out = append(out, Classify(raw).Content)
	}
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		raw  string
		want LogLine
	}{
		{"##|00:00:01.000 Start", LogLine{Code: CodeInfo, Timestamp: "00:00:01.000", Content: "Start"}},
		{"&1|12:34:56.789 ", LogLine{Code: CodeOut, Timestamp: "12:34:56.789", Content: ""}},
		{"zz|00:00:01.000 odd prefix", LogLine{Code: "zz", Timestamp: "00:00:01.000", Content: "odd prefix"}},
		{"00:00:01.000 legacy", LogLine{Timestamp: "00:00:01.000", Content: "legacy"}},
		{"no timestamp at all", LogLine{Content: "no timestamp at all"}},
		{"a|b|00:00:01.000 x", LogLine{Content: "a|b|00:00:01.000 x"}},
		{"##|0:00:01.000 short", LogLine{Content: "##|0:00:01.000 short"}},
		{"&2|00:00:01.000 crlf\r", LogLine{Code: CodeErr, Timestamp: "00:00:01.000", Content: "crlf"}},
		{"", LogLine{}},
	}
	for _, tc := range cases {
		if got := Classify(tc.raw); got != tc.want {
			t.Fatalf("Classify(%q) = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
}

func TestTypeOfAndFamilies(t *testing.T) {
	if TypeOf("zz") != TypeInfo || TypeOf(CodeNone) != TypeInfo {
		t.Fatalf("unknown codes must classify as info")
	}
	if !TypeCancel.Accepts(CodeOut) || !TypeTask.Accepts(CodeErr) {
		t.Fatalf("output codes belong to task and cancel families")
	}
	if TypeTask.Accepts(CodeCancelTaskStart) {
		t.Fatalf("task family must not accept cancel task start")
	}
	if !TypeInfo.Accepts("zz") || !TypeInfo.Accepts(CodeNone) {
		t.Fatalf("info family must accept unknown and legacy lines")
	}
}

func TestScenarioTaskWithOutput(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"##|00:00:01.000 Start",
		"!!|00:00:02.000 [go] Task: ls",
		"&1|00:00:02.500 a.txt",
		"&1|00:00:02.600 b.txt",
		"?0|00:00:03.000 [go] Task status: passed (500 ms) (exit code: 0)",
	})
	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(snap))
	}

	info := snap[0]
	if info.Type != TypeInfo || info.Open || info.Multiline || info.Header.Text != "Start" || len(info.Body) != 0 {
		t.Fatalf("unexpected info section %+v", info)
	}
	if info.Header.Timestamp != "00:00:01.000" {
		t.Fatalf("unexpected header timestamp %q", info.Header.Timestamp)
	}

	task := snap[1]
	if task.Type != TypeTask || task.Open || !task.Multiline || task.HasError {
		t.Fatalf("unexpected task section %+v", task.Section)
	}
	if task.Status != StatusPassed {
		t.Fatalf("expected passed status, got %q", task.Status)
	}
	if task.Header.Text != "[go] Task: ls" {
		t.Fatalf("unexpected task header %q", task.Header.Text)
	}
	if len(task.Body) != 3 || task.Body[0].Text != "a.txt" || task.Body[1].Text != "b.txt" {
		t.Fatalf("unexpected task body %+v", task.Body)
	}
	if got := task.Body[2].Badges; !reflect.DeepEqual(got, []string{"took: 500ms", "exited: 0"}) {
		t.Fatalf("unexpected status badges %v", got)
	}
	if task.Annotations.DurationMS == nil || *task.Annotations.DurationMS != 500 {
		t.Fatalf("expected duration annotation")
	}
	if task.Annotations.ExitCode == nil || *task.Annotations.ExitCode != 0 {
		t.Fatalf("expected exit code annotation")
	}
	if task.Expanded {
		t.Fatalf("passed multiline section should collapse on close")
	}
	if got := task.Header.Badges; !reflect.DeepEqual(got, []string{"took: 500ms", "exited: 0"}) {
		t.Fatalf("expected annotation badges on the header, got %v", got)
	}
	if len(info.Header.Badges) != 0 {
		t.Fatalf("unannotated section must carry no header badges, got %v", info.Header.Badges)
	}

	html := dom.String(tr.Root())
	for _, want := range []string{
		`<code class="log-fs-command">ls</code>`,
		`class="log-fs-toggle"`,
		`log-fs-section log-fs-type-task`,
		`log-fs-status-passed`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in %s", want, html)
		}
	}
	if strings.Count(html, "took: 500ms") != 2 {
		t.Fatalf("expected duration badge on status line and header: %s", html)
	}
	if strings.Contains(html, "log-fs-error") || strings.Contains(html, "log-fs-open") {
		t.Fatalf("unexpected open or error class: %s", html)
	}
}

func TestScenarioCancelTaskCutsOver(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"!!|00:00:01.000 [go] Task: a",
		"!x|00:00:02.000 [go] On Cancel Task: b",
		"&1|00:00:02.100 cancelling",
		"x0|00:00:03.000 [go] On Cancel Task status: passed",
	})
	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(snap))
	}
	if snap[0].Type != TypeTask || snap[0].Open || snap[0].Status != StatusNone {
		t.Fatalf("task section should close without status: %+v", snap[0].Section)
	}
	if snap[1].Type != TypeCancel || snap[1].Open || snap[1].Status != StatusPassed {
		t.Fatalf("unexpected cancel section %+v", snap[1].Section)
	}
	if snap[1].Header.Text != "[go] On Cancel Task: b" {
		t.Fatalf("unexpected cancel header %q", snap[1].Header.Text)
	}
	if len(snap[1].Body[1].Badges) != 0 {
		t.Fatalf("status without duration or exit code must not carry badges")
	}
}

func TestSecondTaskStartCutsOver(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"!!|00:00:01.000 [go] Task: one",
		"!!|00:00:02.000 [go] Task: two",
	})
	snap := tr.Snapshot()
	if len(snap) != 2 || snap[0].Open || !snap[1].Open {
		t.Fatalf("expected two task sections, second open: %+v", snap)
	}
}

func TestFamilyClosure(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"##|00:00:01.000 a",
		"00:00:01.100 legacy b",
		"zz|00:00:01.200 c",
		"pr|00:00:02.000 prep",
		"pe|00:00:02.100 prep failed",
	})
	snap := tr.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(snap))
	}
	if snap[0].Type != TypeInfo || len(snap[0].Body) != 2 || snap[0].Open {
		t.Fatalf("unexpected info section %+v", snap[0])
	}
	if snap[1].Type != TypePrep || !snap[1].Open || len(snap[1].Body) != 1 {
		t.Fatalf("unexpected prep section %+v", snap[1])
	}
	if snap[1].HasError {
		t.Fatalf("prep error lines are not error codes")
	}
}

func TestExplicitBoundariesClose(t *testing.T) {
	for _, code := range []Code{CodePass, CodeFail, CodeCancelled, CodeJobPass, CodeJobFail, CodeCancelTaskPass, CodeCancelTaskFail} {
		t.Run(code.Name(), func(t *testing.T) {
			tr := newTestTransformer(Options{})
			tr.Transform([]string{
				"##|00:00:01.000 before",
				string(code) + "|00:00:02.000 done",
				"##|00:00:03.000 after",
			})
			snap := tr.Snapshot()
			if len(snap) != 2 {
				t.Fatalf("expected 2 sections, got %d", len(snap))
			}
			first := snap[0]
			if first.Open || first.Status != StatusOf(code) || first.HasError != IsErrorCode(code) {
				t.Fatalf("unexpected closed section %+v", first.Section)
			}
			if len(first.Body) != 1 || first.Body[0].Text != "done" {
				t.Fatalf("boundary line should be written to the body: %+v", first.Body)
			}
			if snap[1].Header.Text != "after" || !snap[1].Open {
				t.Fatalf("expected a new open section after the boundary: %+v", snap[1])
			}
		})
	}
}

func TestBoundaryAsFirstLineBecomesHeader(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{"j1|00:00:01.000 [go] Current job status: failed"})
	snap := tr.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 section, got %d", len(snap))
	}
	s := snap[0]
	if s.Type != TypeResult || s.Open || !s.HasError || s.Status != StatusFailed || len(s.Body) != 0 {
		t.Fatalf("unexpected result section %+v", s)
	}
	if !strings.Contains(dom.String(tr.Root()), "log-fs-error") {
		t.Fatalf("expected error class")
	}
}

func TestPublishErrorMarksSection(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"ar|00:00:01.000 uploading",
		"ae|00:00:02.000 upload failed",
	})
	snap := tr.Snapshot()
	if len(snap) != 1 || !snap[0].HasError || !snap[0].Open {
		t.Fatalf("unexpected publish section %+v", snap)
	}
}

func TestMultilineRequiresTwoBodyLines(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"!!|00:00:01.000 [go] Task: one",
		"&1|00:00:01.100 only",
		"?0|00:00:02.000 [go] Task status: passed",
	})
	if s := tr.Snapshot()[0]; !s.Multiline {
		t.Fatalf("output plus status is two body lines")
	}

	tr = newTestTransformer(Options{})
	tr.Transform([]string{
		"!!|00:00:01.000 [go] Task: one",
		"?0|00:00:02.000 [go] Task status: passed",
	})
	s := tr.Snapshot()[0]
	if s.Multiline || s.BodyLines != 1 {
		t.Fatalf("single body line must not be multiline: %+v", s.Section)
	}
	if strings.Contains(dom.String(tr.Root()), "log-fs-toggle") {
		t.Fatalf("single-line section must not get a toggle")
	}
}

func TestTotalCoverage(t *testing.T) {
	lines := []string{
		"plain legacy",
		"00:00:00.500 legacy with time",
		"##|00:00:01.000 Start",
		"##|00:00:01.001 ",
		"pr|00:00:01.100 prep <b>&amp;",
		"!!|00:00:02.000 [go] Task: echo \"hi\" | grep h",
		"&1|00:00:02.100 hi",
		"&2|00:00:02.200 warn",
		"",
		"?1|00:00:03.000 [go] Task status: failed (12 ms) (exit code: 1)",
		"!x|00:00:03.100 [go] On Cancel Task: cleanup",
		"x1|00:00:03.200 [go] On Cancel Task status: failed",
		"ar|00:00:04.000 publishing",
		"j1|00:00:05.000 [go] Current job status: failed",
		"ex|00:00:05.100 done",
		"zz|00:00:05.200 trailer",
	}
	want := contents(lines)

	for size := 1; size <= len(lines); size++ {
		t.Run(fmt.Sprintf("batch-%d", size), func(t *testing.T) {
			tr := newTestTransformer(Options{
				Formatter: format.NewANSIRenderer(),
				Commands:  format.NewCommandHighlighter("bash"),
			})
			for i := 0; i < len(lines); i += size {
				end := min(i+size, len(lines))
				tr.Transform(lines[i:end])
			}
			if got := tr.Text(); !reflect.DeepEqual(got, want) {
				t.Fatalf("text mismatch\n got: %q\nwant: %q", got, want)
			}
		})
	}
}

func TestBatchingDoesNotChangeTree(t *testing.T) {
	lines := []string{
		"##|00:00:01.000 Start",
		"!!|00:00:02.000 [go] Task: make",
		"&1|00:00:02.100 one",
		"&1|00:00:02.200 two",
		"&1|00:00:02.300 three",
		"?0|00:00:03.000 [go] Task status: passed (1500 ms) (exit code: 0)",
		"j0|00:00:04.000 [go] Current job status: passed",
	}
	whole := newTestTransformer(Options{})
	whole.Transform(lines)
	want := dom.String(whole.Root())

	split := newTestTransformer(Options{})
	for _, l := range lines {
		split.Transform([]string{l})
	}
	if got := dom.String(split.Root()); got != want {
		t.Fatalf("tree differs by batching\n got: %s\nwant: %s", got, want)
	}
}

func TestCrossBatchContinuation(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"!!|00:00:01.000 [go] Task: make",
		"&1|00:00:01.100 one",
	})
	first := tr.Snapshot()
	if len(first) != 1 || !first[0].Open {
		t.Fatalf("expected one open section, got %+v", first)
	}
	id := first[0].ID

	tr.Transform([]string{
		"&1|00:00:01.200 two",
		"?1|00:00:02.000 [go] Task status: failed (1200 ms) (exit code: 2)",
	})
	snap := tr.Snapshot()
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("expected the same section to continue, got %+v", snap)
	}
	s := snap[0]
	if s.Open || !s.Multiline || !s.HasError || s.Status != StatusFailed {
		t.Fatalf("unexpected section state %+v", s.Section)
	}
	if len(s.Body) != 3 || s.Body[1].Text != "two" {
		t.Fatalf("unexpected body %+v", s.Body)
	}
	if !s.Expanded {
		t.Fatalf("failed section should stay expanded")
	}
	header := dom.String(tr.views[id].header)
	if !strings.Contains(header, "took: 1.2s") || !strings.Contains(header, "exited: 2") {
		t.Fatalf("expected header badges, got %s", header)
	}
	if n := len(dom.ChildrenWithClass(tr.Root(), classSection)); n != 1 {
		t.Fatalf("expected one section element, got %d", n)
	}
}

func TestEmptyTransformIsNoop(t *testing.T) {
	visible := false
	tr := newTestTransformer(Options{Visible: func() bool { return visible }})
	before := dom.String(tr.Root())
	tr.Transform(nil)
	tr.Transform([]string{})
	if tr.Pending() != 0 {
		t.Fatalf("empty batches must not be queued")
	}
	visible = true
	tr.Transform(nil)
	if got := dom.String(tr.Root()); got != before {
		t.Fatalf("empty batch mutated the tree: %s", got)
	}
}

func TestDeferredOrdering(t *testing.T) {
	batches := [][]string{
		{"##|00:00:01.000 Start", "!!|00:00:02.000 [go] Task: ls"},
		{"&1|00:00:02.500 a.txt", "&1|00:00:02.600 b.txt"},
		{"?0|00:00:03.000 [go] Task status: passed (500 ms) (exit code: 0)", "j0|00:00:04.000 [go] Current job status: passed"},
	}

	sequential := newTestTransformer(Options{})
	for _, b := range batches {
		sequential.Transform(b)
	}
	want := dom.String(sequential.Root())

	visible := false
	deferred := newTestTransformer(Options{Visible: func() bool { return visible }})
	empty := dom.String(deferred.Root())
	for _, b := range batches {
		deferred.Transform(b)
	}
	if deferred.Pending() != 3 {
		t.Fatalf("expected 3 queued batches, got %d", deferred.Pending())
	}
	if got := dom.String(deferred.Root()); got != empty {
		t.Fatalf("hidden pane was mutated: %s", got)
	}

	visible = true
	if dom.String(deferred.Root()) != empty || deferred.Pending() != 3 {
		t.Fatalf("becoming visible must not drain eagerly")
	}
	if ran := deferred.Drain(); ran != 3 {
		t.Fatalf("expected 3 drained batches, got %d", ran)
	}
	if got := dom.String(deferred.Root()); got != want {
		t.Fatalf("deferred tree differs\n got: %s\nwant: %s", got, want)
	}
}

func TestDeferredDrainsBeforeNextBatch(t *testing.T) {
	batches := [][]string{
		{"!!|00:00:01.000 [go] Task: make"},
		{"&1|00:00:01.100 one"},
		{"&1|00:00:01.200 two"},
	}
	next := []string{"?0|00:00:02.000 [go] Task status: passed"}

	sequential := newTestTransformer(Options{})
	for _, b := range append(batches, next) {
		sequential.Transform(b)
	}

	visible := false
	var flushes []int
	deferred := newTestTransformer(Options{
		Visible: func() bool { return visible },
		OnFlush: func(f Flush) { flushes = append(flushes, f.Lines) },
	})
	for _, b := range batches {
		deferred.Transform(b)
	}
	visible = true
	deferred.Transform(next)
	if deferred.Pending() != 0 {
		t.Fatalf("queue should be empty after a visible transform")
	}
	if got, want := dom.String(deferred.Root()), dom.String(sequential.Root()); got != want {
		t.Fatalf("tree differs\n got: %s\nwant: %s", got, want)
	}
	if !reflect.DeepEqual(flushes, []int{1, 1, 1, 1}) {
		t.Fatalf("expected one flush per batch in order, got %v", flushes)
	}
}

func TestFrameSchedulerDefersLiveMutation(t *testing.T) {
	frames := &FrameScheduler{}
	var flushed []Flush
	tr := newTestTransformer(Options{
		Scheduler: frames,
		OnFlush:   func(f Flush) { flushed = append(flushed, f) },
	})
	tr.Transform([]string{"!!|00:00:01.000 [go] Task: make", "&1|00:00:01.100 one"})
	tr.Transform([]string{"&1|00:00:01.200 two"})
	if len(tr.Snapshot()) != 0 {
		t.Fatalf("live tree must not change before a frame")
	}
	if frames.Pending() != 2 {
		t.Fatalf("expected 2 pending flushes, got %d", frames.Pending())
	}
	if ran := frames.Frame(); ran != 2 {
		t.Fatalf("expected 2 callbacks, got %d", ran)
	}
	snap := tr.Snapshot()
	if len(snap) != 1 || len(snap[0].Body) != 2 || snap[0].Body[1].Text != "two" {
		t.Fatalf("unexpected snapshot after frame %+v", snap)
	}
	if len(flushed) != 2 || flushed[0].NewSections != 1 || flushed[1].NewSections != 0 {
		t.Fatalf("unexpected flush stats %+v", flushed)
	}
}

func TestCompleteRunsOnce(t *testing.T) {
	calls := 0
	tr := newTestTransformer(Options{OnComplete: func() { calls++ }})
	if !dom.HasClass(tr.Root(), classLoading) || !dom.HasClass(tr.Root(), classConsole) {
		t.Fatalf("expected console and loading classes on root")
	}
	tr.Complete()
	tr.Complete()
	if calls != 1 || !tr.Completed() {
		t.Fatalf("expected one completion, got %d", calls)
	}
	if dom.HasClass(tr.Root(), classLoading) {
		t.Fatalf("loading class should be removed")
	}
	tr.Transform([]string{"##|00:00:01.000 late"})
	if len(tr.Snapshot()) != 1 {
		t.Fatalf("transform after completion should still apply")
	}
}

func TestCompletedLineDoesNotComplete(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{"ex|00:00:01.000 finished"})
	if tr.Completed() || !dom.HasClass(tr.Root(), classLoading) {
		t.Fatalf("end lines must not drive completion")
	}
	if snap := tr.Snapshot(); len(snap) != 1 || snap[0].Type != TypeEnd {
		t.Fatalf("expected one end section, got %+v", snap)
	}
}

func TestToggle(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{
		"##|00:00:01.000 Start",
		"!!|00:00:02.000 [go] Task: ls",
		"&1|00:00:02.500 a.txt",
		"?0|00:00:03.000 [go] Task status: passed",
	})
	snap := tr.Snapshot()
	task := snap[1]
	if task.Expanded {
		t.Fatalf("expected collapsed task section")
	}
	expanded, ok := tr.Toggle(task.ID)
	if !ok || !expanded {
		t.Fatalf("expected toggle to expand, got expanded=%v ok=%v", expanded, ok)
	}
	if expanded, _ = tr.Toggle(task.ID); expanded {
		t.Fatalf("expected second toggle to collapse")
	}
	if _, ok := tr.Toggle(snap[0].ID); ok {
		t.Fatalf("single-line sections cannot be toggled")
	}
	if _, ok := tr.Toggle(99); ok {
		t.Fatalf("unknown sections cannot be toggled")
	}
	if s, _ := tr.Section(task.ID); s.Status != StatusPassed {
		t.Fatalf("toggle must not affect parsing state")
	}
}

func TestStatusParsingIsPermissive(t *testing.T) {
	cases := []struct {
		content  string
		ok       bool
		duration *int64
		exit     *int
	}{
		{"[go] Task status: passed (500 ms) (exit code: 0)", true, ptr(int64(500)), ptr(0)},
		{"[go] Task status: failed (exit code: -1)", true, nil, ptr(-1)},
		{"[go] Current job status: passed (42 ms)", true, ptr(int64(42)), nil},
		{"[go] Task status: passed (abc ms)", true, nil, nil},
		{"[go] Task status: passed (99999999999999999999 ms)", true, nil, nil},
		{"Cleaning up", false, nil, nil},
	}
	for _, tc := range cases {
		ann, ok := parseStatus(tc.content)
		if ok != tc.ok {
			t.Fatalf("parseStatus(%q) ok=%v", tc.content, ok)
		}
		if !reflect.DeepEqual(ann.DurationMS, tc.duration) || !reflect.DeepEqual(ann.ExitCode, tc.exit) {
			t.Fatalf("parseStatus(%q) = %+v", tc.content, ann)
		}
	}
}

func TestBlankLineRendersNewline(t *testing.T) {
	tr := newTestTransformer(Options{})
	tr.Transform([]string{"##|00:00:01.000 Start", "##|00:00:01.100 "})
	html := dom.String(tr.Root())
	if !strings.Contains(html, `log-fs-blank`) || !strings.Contains(html, "\n</span>") {
		t.Fatalf("expected blank line node, got %s", html)
	}
	if body := tr.Snapshot()[0].Body; len(body) != 1 || body[0].Text != "" {
		t.Fatalf("unexpected blank body %+v", body)
	}
}

func ptr[T any](v T) *T { return &v }
