package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/consolefold/core"
	"pkt.systems/consolefold/internal/logx"
	"pkt.systems/consolefold/schema"
)

const (
	// maxLinesBodySize caps one line ingest request.
	maxLinesBodySize = 8 << 20
	// maxControlBodySize caps pane, visibility and toggle requests.
	maxControlBodySize = 64 << 10
)

var errBodyTooLarge = errors.New("request body too large")

// Server serves the HTTP API and UI.
type Server struct {
	cfg      Config
	service  core.Service
	hub      *Hub
	basePath string
	baseHref string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, service core.Service, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(0)
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
		baseHref: buildBaseHref(cfg.BaseURL, cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /panes/{id}", s.handlePanePage)
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	mux.HandleFunc("GET /api/panes", s.handleListPanes)
	mux.HandleFunc("POST /api/panes", s.handleCreatePane)
	mux.HandleFunc("GET /api/panes/{id}", s.handleGetPane)
	mux.HandleFunc("DELETE /api/panes/{id}", s.handleClosePane)
	mux.HandleFunc("GET /api/panes/{id}/html", s.handlePaneHTML)
	mux.HandleFunc("GET /api/panes/{id}/sections", s.handleSections)
	mux.HandleFunc("GET /api/panes/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /api/panes/{id}/lines", s.handleGetLines)
	mux.HandleFunc("POST /api/panes/{id}/lines", s.handleAppendLines)
	mux.HandleFunc("POST /api/panes/{id}/visibility", s.handleVisibility)
	mux.HandleFunc("POST /api/panes/{id}/complete", s.handleComplete)
	mux.HandleFunc("POST /api/panes/{id}/toggle", s.handleToggle)

	return mountBasePath(s.basePath, withRequestLogging(mux, paneFromPath))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	data = applyBaseHref(data, s.baseHref)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func (s *Server) handlePanePage(w http.ResponseWriter, r *http.Request) {
	id := schema.PaneID(r.PathValue("id"))
	pane, err := s.service.GetPane(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	body, err := s.service.RenderPane(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	data, err := fs.ReadFile(assetsFS, "pane.html")
	if err != nil {
		http.Error(w, "pane page not found", http.StatusInternalServerError)
		return
	}
	data = applyBaseHref(data, s.baseHref)
	data = bytes.ReplaceAll(data, []byte("{{PANE_ID}}"), []byte(html.EscapeString(string(pane.ID))))
	data = bytes.ReplaceAll(data, []byte("{{PANE_TITLE}}"), []byte(html.EscapeString(pane.Title)))
	data = bytes.Replace(data, []byte("{{PANE_HTML}}"), body, 1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func applyBaseHref(data []byte, baseHref string) []byte {
	if baseHref == "" {
		baseHref = "/"
	}
	return bytes.ReplaceAll(data, []byte("{{BASE_HREF}}"), []byte(html.EscapeString(baseHref)))
}

func (s *Server) handleListPanes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.ListPanes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePane(w http.ResponseWriter, r *http.Request) {
	var req schema.CreatePaneRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r.Body, maxControlBodySize, &req); err != nil {
			writeError(w, requestStatus(err), err)
			return
		}
	}
	pane, err := s.service.CreatePane(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pane)
}

func (s *Server) handleGetPane(w http.ResponseWriter, r *http.Request) {
	pane, err := s.service.GetPane(r.Context(), schema.PaneID(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pane)
}

func (s *Server) handleClosePane(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClosePane(r.Context(), schema.PaneID(r.PathValue("id"))); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePaneHTML(w http.ResponseWriter, r *http.Request) {
	body, err := s.service.RenderPane(r.Context(), schema.PaneID(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	sections, err := s.service.SnapshotPane(r.Context(), schema.PaneID(r.PathValue("id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

func (s *Server) handleGetLines(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from := parseInt(query.Get(s.cfg.startParam()), 0)
	req := schema.GetLinesRequest{
		PaneID: schema.PaneID(r.PathValue("id")),
		From:   from,
		Limit:  parseInt(query.Get("limit"), 0),
	}
	resp, err := s.service.GetLines(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(s.cfg.completeHeader(), strconv.FormatBool(resp.Completed))
	w.Header().Set(HeaderNextLine, strconv.Itoa(resp.Next))
	for _, line := range resp.Lines {
		_, _ = io.WriteString(w, line)
		_, _ = io.WriteString(w, "\n")
	}
}

func (s *Server) handleAppendLines(w http.ResponseWriter, r *http.Request) {
	id := schema.PaneID(r.PathValue("id"))
	lines, err := readLines(r)
	if err != nil {
		writeError(w, requestStatus(err), err)
		return
	}
	if err := s.service.AppendLines(r.Context(), schema.AppendLinesRequest{PaneID: id, Lines: lines}); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": len(lines)})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req schema.SetVisibilityRequest
	if err := decodeJSON(r.Body, maxControlBodySize, &req); err != nil {
		writeError(w, requestStatus(err), err)
		return
	}
	req.PaneID = schema.PaneID(r.PathValue("id"))
	if err := s.service.SetVisibility(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	req := schema.CompletePaneRequest{PaneID: schema.PaneID(r.PathValue("id"))}
	if err := s.service.CompletePane(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req schema.ToggleSectionRequest
	if err := decodeJSON(r.Body, maxControlBodySize, &req); err != nil {
		writeError(w, requestStatus(err), err)
		return
	}
	req.PaneID = schema.PaneID(r.PathValue("id"))
	resp, err := s.service.ToggleSection(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	id := schema.PaneID(r.PathValue("id"))
	pane, err := s.service.GetPane(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	log := logx.WithPane(r.Context(), id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe, _ := s.hub.Subscribe(id)
	defer unsubscribe()

	lastID := parseUint(r.Header.Get("Last-Event-ID"))
	replayCount := 0
	if lastID > 0 {
		replay := s.hub.Replay(id, lastID)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, event)
		}
	} else {
		_ = writeSSEvent(w, StreamEvent{
			Type:      "snapshot",
			PaneID:    id,
			Lines:     pane.Lines,
			Visible:   pane.Visible,
			Timestamp: time.Now().UTC(),
		})
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount)
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				log.Info("http stream ended", "reason", "pane closed")
				return
			}
			if event.Seq <= lastID {
				continue
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

// readLines accepts {"lines": [...]} or a newline separated text body. Only
// an empty text body has no lines; "\n" is one blank line.
func readLines(r *http.Request) ([]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req schema.AppendLinesRequest
		if err := decodeJSON(r.Body, maxLinesBodySize, &req); err != nil {
			return nil, err
		}
		return req.Lines, nil
	}
	data, err := readLimited(r.Body, maxLinesBodySize)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), nil
}

// readLimited reads at most limit bytes and fails when the body is longer.
func readLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", errBodyTooLarge, limit)
	}
	return data, nil
}

func requestStatus(err error) int {
	if errors.Is(err, errBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrPaneNotFound), errors.Is(err, schema.ErrSectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrPaneExists):
		return http.StatusConflict
	case errors.Is(err, schema.ErrInvalidPane), errors.Is(err, schema.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrPaneClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, limit int64, target any) error {
	data, err := readLimited(body, limit)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
