package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/consolefold/internal/console"
	"pkt.systems/consolefold/internal/logx"
	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior.
type service struct {
	cfg      schema.ServiceConfig
	renderer Renderer
	sink     EventSink
	logger   pslog.Logger
	base     context.Context
	mu       sync.Mutex
	panes    map[schema.PaneID]*pane
	order    []schema.PaneID
	closed   bool
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	if deps.Renderer == nil {
		deps.Renderer = NewRenderer(cfg)
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &service{
		cfg:      cfg,
		renderer: deps.Renderer,
		sink:     deps.EventSink,
		logger:   logger,
		base:     pslog.ContextWithLogger(context.Background(), logger),
		panes:    make(map[schema.PaneID]*pane),
	}, nil
}

func (s *service) CreatePane(ctx context.Context, req schema.CreatePaneRequest) (schema.PaneSnapshot, error) {
	if ctx == nil {
		return schema.PaneSnapshot{}, errors.New("missing context")
	}
	id := req.ID
	if id == "" {
		id = newPaneID()
	}
	if err := schema.ValidatePaneID(id); err != nil {
		return schema.PaneSnapshot{}, err
	}
	visible := s.cfg.DefaultVisible
	if req.Visible != nil {
		visible = *req.Visible
	}
	log := logx.WithPane(s.base, id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return schema.PaneSnapshot{}, schema.ErrPaneClosed
	}
	if _, exists := s.panes[id]; exists {
		s.mu.Unlock()
		return schema.PaneSnapshot{}, schema.ErrPaneExists
	}
	p := newPane(paneOptions{
		ID:       id,
		Title:    schema.NormalizeTitle(req.Title, id),
		Visible:  visible,
		Config:   s.cfg,
		Renderer: s.renderer,
		Sink:     s.sink,
		Logger:   log,
	})
	s.panes[id] = p
	s.order = append(s.order, id)
	snapshot := p.snapshot()
	p.start(logx.ContextWithPaneLogger(s.base, log, id), s.cfg.FrameInterval)
	s.mu.Unlock()

	log.Info("pane created", "title", p.Title, "visible", visible)
	return snapshot, nil
}

func (s *service) ClosePane(ctx context.Context, id schema.PaneID) error {
	s.mu.Lock()
	p := s.panes[id]
	if p == nil {
		s.mu.Unlock()
		return schema.ErrPaneNotFound
	}
	delete(s.panes, id)
	s.order = removePaneID(s.order, id)
	s.mu.Unlock()

	p.stop()
	logx.WithPane(ctx, id).Info("pane closed")
	return nil
}

func (s *service) ListPanes(ctx context.Context) (schema.ListPanesResponse, error) {
	s.mu.Lock()
	panes := make([]*pane, 0, len(s.order))
	for _, id := range s.order {
		panes = append(panes, s.panes[id])
	}
	s.mu.Unlock()

	resp := schema.ListPanesResponse{Panes: make([]schema.PaneSnapshot, 0, len(panes))}
	for _, p := range panes {
		var snap schema.PaneSnapshot
		err := p.do(ctx, func() { snap = p.snapshot() })
		if errors.Is(err, schema.ErrPaneClosed) {
			continue
		}
		if err != nil {
			return schema.ListPanesResponse{}, err
		}
		resp.Panes = append(resp.Panes, snap)
	}
	return resp, nil
}

func (s *service) GetPane(ctx context.Context, id schema.PaneID) (schema.PaneSnapshot, error) {
	p, err := s.lookup(id)
	if err != nil {
		return schema.PaneSnapshot{}, err
	}
	var snap schema.PaneSnapshot
	if err := p.do(ctx, func() { snap = p.snapshot() }); err != nil {
		return schema.PaneSnapshot{}, err
	}
	return snap, nil
}

func (s *service) AppendLines(ctx context.Context, req schema.AppendLinesRequest) error {
	p, err := s.lookup(req.PaneID)
	if err != nil {
		return err
	}
	if len(req.Lines) == 0 {
		return nil
	}
	lines := append([]string(nil), req.Lines...)
	if err := p.post(ctx, func() { p.appendLines(lines) }); err != nil {
		return fmt.Errorf("append lines: %w", err)
	}
	return nil
}

func (s *service) SetVisibility(ctx context.Context, req schema.SetVisibilityRequest) error {
	p, err := s.lookup(req.PaneID)
	if err != nil {
		return err
	}
	return p.post(ctx, func() { p.setVisible(req.Visible) })
}

func (s *service) CompletePane(ctx context.Context, req schema.CompletePaneRequest) error {
	p, err := s.lookup(req.PaneID)
	if err != nil {
		return err
	}
	if err := p.post(ctx, p.complete); err != nil {
		return err
	}
	logx.WithPane(ctx, req.PaneID).Info("pane complete")
	return nil
}

func (s *service) ToggleSection(ctx context.Context, req schema.ToggleSectionRequest) (schema.ToggleSectionResponse, error) {
	p, err := s.lookup(req.PaneID)
	if err != nil {
		return schema.ToggleSectionResponse{}, err
	}
	var expanded, ok bool
	if err := p.do(ctx, func() { expanded, ok = p.toggle(req.Section) }); err != nil {
		return schema.ToggleSectionResponse{}, err
	}
	if !ok {
		return schema.ToggleSectionResponse{}, schema.ErrSectionNotFound
	}
	logx.WithSection(logx.WithPane(ctx, req.PaneID), req.Section).Debug("section toggled", "expanded", expanded)
	return schema.ToggleSectionResponse{Expanded: expanded}, nil
}

func (s *service) RenderPane(ctx context.Context, id schema.PaneID) ([]byte, error) {
	p, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	var (
		out       []byte
		renderErr error
	)
	if err := p.do(ctx, func() { out, renderErr = p.render() }); err != nil {
		return nil, err
	}
	if renderErr != nil {
		return nil, fmt.Errorf("render pane: %w", renderErr)
	}
	return out, nil
}

func (s *service) SnapshotPane(ctx context.Context, id schema.PaneID) ([]console.SectionSnapshot, error) {
	p, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	var sections []console.SectionSnapshot
	if err := p.do(ctx, func() { sections = p.sections() }); err != nil {
		return nil, err
	}
	return sections, nil
}

func (s *service) GetLines(ctx context.Context, req schema.GetLinesRequest) (schema.GetLinesResponse, error) {
	if req.From < 0 || req.Limit < 0 {
		return schema.GetLinesResponse{}, schema.ErrInvalidRequest
	}
	p, err := s.lookup(req.PaneID)
	if err != nil {
		return schema.GetLinesResponse{}, err
	}
	var resp schema.GetLinesResponse
	if err := p.do(ctx, func() {
		view := p.backlog.Snapshot(req.From, req.Limit)
		resp = schema.GetLinesResponse{
			PaneID:    p.ID,
			From:      view.From,
			Next:      view.Next,
			Lines:     view.Lines,
			Completed: p.tr.Completed() && view.Next == p.backlog.Total(),
		}
	}); err != nil {
		return schema.GetLinesResponse{}, err
	}
	return resp, nil
}

// Close stops every pane. Further creates fail with ErrPaneClosed.
func (s *service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	panes := make([]*pane, 0, len(s.panes))
	for _, id := range s.order {
		panes = append(panes, s.panes[id])
	}
	s.panes = make(map[schema.PaneID]*pane)
	s.order = nil
	s.mu.Unlock()

	for _, p := range panes {
		p.stop()
	}
	s.logger.Info("service closed", "panes", len(panes))
}

func (s *service) lookup(id schema.PaneID) (*pane, error) {
	if err := schema.ValidatePaneID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.panes[id]
	if p == nil {
		return nil, schema.ErrPaneNotFound
	}
	return p, nil
}

func removePaneID(ids []schema.PaneID, id schema.PaneID) []schema.PaneID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
