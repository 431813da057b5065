// Package consolefold composes the pane service with its HTTP surface,
// event fan-out and log sources.
package consolefold

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"pkt.systems/consolefold/core"
	"pkt.systems/consolefold/httpapi"
	"pkt.systems/consolefold/internal/eventbus"
	"pkt.systems/consolefold/internal/logsource"
	"pkt.systems/consolefold/internal/logx"
	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

// Server composes the pane service, HTTP server and attached sources.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	Service() core.Service
	Handler() http.Handler
	Subscribe(paneID schema.PaneID) (<-chan schema.PaneEvent, func())
	Attach(ctx context.Context, req schema.CreatePaneRequest, src logsource.Source) (schema.PaneSnapshot, error)
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service    schema.ServiceConfig
	HTTP       httpapi.Config
	HubHistory int
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
}

// WithHTTP enables the HTTP API/UI server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// New constructs a composable consolefold server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	serviceDeps := deps.ServiceDeps
	bus := eventbus.New(serviceDeps.Logger)
	var hub *httpapi.Hub
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HubHistory)
	}
	sinks := make([]core.EventSink, 0, 3)
	if serviceDeps.EventSink != nil {
		sinks = append(sinks, serviceDeps.EventSink)
	}
	sinks = append(sinks, bus)
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if len(sinks) == 1 {
		serviceDeps.EventSink = sinks[0]
	} else {
		serviceDeps.EventSink = eventFanout{sinks: sinks}
	}

	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		return nil, err
	}
	var httpSrv *httpapi.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, service, hub)
	}
	return &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		bus:     bus,
		httpSrv: httpSrv,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	bus     *eventbus.Bus
	httpSrv *httpapi.Server
	logger  pslog.Logger
	sources sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Service() core.Service {
	return s.service
}

func (s *compositeServer) Handler() http.Handler {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Handler()
}

func (s *compositeServer) Subscribe(paneID schema.PaneID) (<-chan schema.PaneEvent, func()) {
	return s.bus.Subscribe(paneID)
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_url", s.cfg.HTTP.BaseURL,
		"http_base_path", s.cfg.HTTP.BasePath,
		"frame_interval", s.cfg.Service.FrameInterval.String(),
	)
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

// Attach creates a pane and feeds it from src until the source completes,
// fails or the server stops. Source failures are logged, not fatal.
func (s *compositeServer) Attach(ctx context.Context, req schema.CreatePaneRequest, src logsource.Source) (schema.PaneSnapshot, error) {
	s.mu.Lock()
	runCtx := s.ctx
	started := s.started
	s.mu.Unlock()
	if !started {
		return schema.PaneSnapshot{}, errors.New("server not started")
	}
	if src == nil {
		return schema.PaneSnapshot{}, errors.New("source is required")
	}
	if req.Title == "" {
		req.Title = src.Name()
	}
	pane, err := s.service.CreatePane(ctx, req)
	if err != nil {
		return schema.PaneSnapshot{}, err
	}
	log := logx.WithPaneSource(runCtx, pane.ID, src.Name())
	runCtx = logx.ContextWithPaneSourceLogger(runCtx, log, pane.ID, src.Name())
	writer := core.NewPaneWriter(s.service, pane.ID)
	s.sources.Add(1)
	go func() {
		defer s.sources.Done()
		log.Info("source attached")
		err := src.Run(runCtx, writer)
		switch {
		case err == nil:
			log.Info("source finished")
		case errors.Is(err, context.Canceled):
			log.Debug("source stopped")
		default:
			log.Warn("source failed", "err", err)
		}
	}()
	return pane, nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		s.service.Close()
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	done := make(chan struct{})
	go func() {
		s.sources.Wait()
		close(done)
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		s.service.Close()
		return ctx.Err()
	case <-done:
	}
	s.service.Close()
	log.Info("server stopped")
	return nil
}
