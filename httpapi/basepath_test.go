package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"/":             "",
		"  //  ":        "",
		"consolefold":   "/consolefold",
		"/consolefold":  "/consolefold",
		"/consolefold/": "/consolefold",
		"/ci/console/":  "/ci/console",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildBaseHref(t *testing.T) {
	cases := []struct {
		baseURL  string
		basePath string
		want     string
	}{
		{"", "", ""},
		{"", "/consolefold", "/consolefold/"},
		{"", "consolefold", "/consolefold/"},
		{"https://ci.example.com", "", "https://ci.example.com/"},
		{"https://ci.example.com/", "consolefold", "https://ci.example.com/consolefold/"},
		{"https://ci.example.com/jobs", "/console", "https://ci.example.com/jobs/console/"},
	}
	for _, tc := range cases {
		if got := buildBaseHref(tc.baseURL, tc.basePath); got != tc.want {
			t.Fatalf("buildBaseHref(%q, %q) = %q, want %q", tc.baseURL, tc.basePath, got, tc.want)
		}
	}
}

func TestMountBasePath(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	})
	handler := mountBasePath("/console", inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/console/api/panes", nil))
	if rec.Body.String() != "/api/panes" {
		t.Fatalf("expected stripped path, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/console", nil))
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/console/" {
		t.Fatalf("expected redirect to prefix, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside prefix, got %d", rec.Code)
	}
}
