package httpapi

import (
	"net/http"
	"strings"
	"time"

	"pkt.systems/consolefold/internal/logx"
	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

type responseRecorder struct {
	status int
	bytes  int64
	writer http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.writer.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.writer.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *responseRecorder) Flush() {
	if f, ok := r.writer.(http.Flusher); ok {
		f.Flush()
	}
}

type paneLookupFunc func(*http.Request) schema.PaneID

// paneFromPath extracts the pane id from /api/panes/{id}/... and /panes/{id}.
func paneFromPath(r *http.Request) schema.PaneID {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	rest, ok := strings.CutPrefix(path, "/panes/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return schema.PaneID(id)
}

func withRequestLogging(next http.Handler, lookup paneLookupFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		var paneID schema.PaneID
		if lookup != nil {
			paneID = lookup(r)
		}
		if paneID != "" {
			ctx = logx.ContextWithPaneLogger(ctx, logx.WithPane(ctx, paneID), paneID)
			r = r.WithContext(ctx)
		}
		rec := &responseRecorder{writer: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path = path + "?" + r.URL.RawQuery
		}
		logger := pslog.Ctx(ctx).With("remote", clientIP(r))
		if status >= http.StatusInternalServerError {
			logger.Warn("http request", "method", r.Method, "path", path, "status", status, "bytes", rec.bytes, "duration_ms", time.Since(start).Milliseconds())
			return
		}
		logger.Info("http request", "method", r.Method, "path", path, "status", status, "bytes", rec.bytes, "duration_ms", time.Since(start).Milliseconds())
		logger.Debug("http request details", "ua", r.UserAgent())
	})
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
