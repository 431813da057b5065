package consolefold

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/consolefold/internal/logsource"
	"pkt.systems/consolefold/schema"
)

var buildLog = strings.Join([]string{
	"##|00:00:01.000 Start",
	"!!|00:00:02.000 [go] Task: go test ./...",
	"&1|00:00:02.500 ok  pkt.systems/consolefold/core",
	"&1|00:00:02.600 ok  pkt.systems/consolefold/httpapi",
	"?0|00:00:03.000 [go] Task status: passed (1000 ms) (exit code: 0)",
	"x0|00:00:04.000 Job completed",
}, "\n") + "\n"

func newTestServer(t *testing.T, opts ...ServerOption) Server {
	t.Helper()
	srv, err := New(ServerConfig{Service: schema.ServiceConfig{FrameInterval: 5 * time.Millisecond, DefaultVisible: true}}, ServerDeps{}, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func TestServerAttachFeedsPane(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.log")
	if err := os.WriteFile(path, []byte(buildLog), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	srv := newTestServer(t)
	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = srv.Stop(context.Background()) }()

	events, cancel := srv.Subscribe("build")
	defer cancel()

	tailer, err := logsource.NewFileTailer(logsource.TailConfig{Path: path})
	if err != nil {
		t.Fatalf("new tailer: %v", err)
	}
	pane, err := srv.Attach(ctx, schema.CreatePaneRequest{ID: "build"}, tailer)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if pane.Title != path {
		t.Fatalf("expected source name as title, got %q", pane.Title)
	}

	deadline := time.After(5 * time.Second)
	for completed := false; !completed; {
		select {
		case event := <-events:
			completed = event.Type == schema.PaneEventComplete
		case <-deadline:
			t.Fatalf("timed out waiting for completion")
		}
	}
	sections, err := srv.Service().SnapshotPane(ctx, "build")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(sections) != 3 || sections[1].Status != "passed" || len(sections[1].Body) != 3 {
		t.Fatalf("unexpected sections %+v", sections)
	}
}

func TestServerAttachRequiresStart(t *testing.T) {
	srv := newTestServer(t)
	defer func() { _ = srv.Stop(context.Background()) }()
	tailer, _ := logsource.NewFileTailer(logsource.TailConfig{Path: "unused.log"})
	if _, err := srv.Attach(context.Background(), schema.CreatePaneRequest{}, tailer); err == nil {
		t.Fatalf("expected attach before start to fail")
	}
}

func TestServerHTTPHandler(t *testing.T) {
	if newTestServer(t).Handler() != nil {
		t.Fatalf("expected no handler without HTTP")
	}
	srv := newTestServer(t, WithHTTP())
	defer func() { _ = srv.Stop(context.Background()) }()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/panes", "application/json", strings.NewReader(`{"id":"web"}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if _, err := srv.Service().GetPane(context.Background(), "web"); err != nil {
		t.Fatalf("pane created over HTTP not visible to service: %v", err)
	}
}

func TestServerStartTwice(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.Start(ctx); err == nil {
		t.Fatalf("expected second start to fail")
	}
	cancel()
	if err := srv.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
