package httpapi

import (
	"net/http"
	"strings"
)

// normalizeBasePath returns "" for the root or "/prefix" without a trailing slash.
func normalizeBasePath(value string) string {
	path := strings.Trim(strings.TrimSpace(value), "/")
	if path == "" {
		return ""
	}
	return "/" + path
}

// buildBaseHref is injected as <base href> so pages work behind a proxy prefix.
func buildBaseHref(baseURL, basePath string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	joined := base + normalizeBasePath(basePath)
	if joined == "" {
		return ""
	}
	return joined + "/"
}

// mountBasePath serves handler below prefix and redirects the bare prefix.
func mountBasePath(prefix string, handler http.Handler) http.Handler {
	if prefix == "" {
		return handler
	}
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}
