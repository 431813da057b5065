package schema

import "time"

// ServiceConfig defines defaults and limits for the pane service.
type ServiceConfig struct {
	// FrameInterval is how often pending flushes are applied to live trees.
	FrameInterval time.Duration
	// InboxDepth bounds queued operations per pane.
	InboxDepth int
	// BacklogLines bounds the raw lines kept per pane for replay.
	BacklogLines int
	// DefaultVisible is used when a create request leaves visibility unset.
	DefaultVisible bool
	// CommandLexer names the chroma lexer used for task commands.
	CommandLexer string
	// DisableANSI renders line content verbatim instead of decoding SGR.
	DisableANSI bool
}

// DefaultBacklogLines is the default per-pane raw line limit.
const DefaultBacklogLines = 20000

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.FrameInterval < 0 || cfg.InboxDepth < 0 || cfg.BacklogLines < 0 {
		return ServiceConfig{}, ErrInvalidRequest
	}
	if cfg.FrameInterval == 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.InboxDepth == 0 {
		cfg.InboxDepth = DefaultInboxDepth
	}
	if cfg.BacklogLines == 0 {
		cfg.BacklogLines = DefaultBacklogLines
	}
	if cfg.CommandLexer == "" {
		cfg.CommandLexer = "bash"
	}
	return cfg, nil
}
