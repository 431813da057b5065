package schema

import (
	"strings"
	"testing"
)

func TestValidatePaneID(t *testing.T) {
	cases := []struct {
		name  string
		id    PaneID
		valid bool
	}{
		{"simple", "build", true},
		{"uuid", "0b6f7c3e-52b4-4a43-9a3e-2f1c4b6de0a1", true},
		{"mixed", "Job_12.run-3", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"dotdot", "..", false},
		{"slash", "a/b", false},
		{"space", "a b", false},
		{"leading-space", " a", false},
		{"unicode", "Ã¥", false},
		{"too-long", PaneID(strings.Repeat("a", 65)), false},
	}
	for _, tc := range cases {
		err := ValidatePaneID(tc.id)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
	}
}

func TestNormalizeServiceConfig(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.FrameInterval != DefaultFrameInterval || cfg.InboxDepth != DefaultInboxDepth || cfg.BacklogLines != DefaultBacklogLines {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CommandLexer != "bash" {
		t.Fatalf("unexpected lexer %q", cfg.CommandLexer)
	}
	if _, err := NormalizeServiceConfig(ServiceConfig{InboxDepth: -1}); err == nil {
		t.Fatalf("expected error for negative inbox depth")
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := NormalizeTitle("  build #4 ", "p"); got != "build #4" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := NormalizeTitle(" ", "p"); got != "p" {
		t.Fatalf("expected id fallback, got %q", got)
	}
}
