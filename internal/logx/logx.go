package logx

import (
	"context"
	"fmt"
	"strings"

	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	paneKey contextKey = iota
	sourceKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithPane annotates the logger with the pane id if present.
func WithPane(ctx context.Context, paneID schema.PaneID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if paneID != "" {
		if current, ok := ctx.Value(paneKey).(schema.PaneID); ok && current == paneID {
			return log
		}
		log = log.With("pane", paneID)
	}
	return log
}

// WithPaneSource annotates the logger with pane and source identifiers.
func WithPaneSource(ctx context.Context, paneID schema.PaneID, source string) pslog.Logger {
	log := WithPane(ctx, paneID)
	if source != "" {
		if current, ok := ctx.Value(sourceKey).(string); ok && current == source {
			return log
		}
		log = log.With("source", source)
	}
	return log
}

// WithSection annotates the logger with a section id when available.
func WithSection(log pslog.Logger, section int) pslog.Logger {
	if section > 0 {
		log = log.With("section", section)
	}
	return log
}

// ContextWithPane stores the pane marker on the context for log de-duplication.
func ContextWithPane(ctx context.Context, paneID schema.PaneID) context.Context {
	if ctx == nil || paneID == "" {
		return ctx
	}
	return context.WithValue(ctx, paneKey, paneID)
}

// ContextWithSource stores the source marker on the context for log de-duplication.
func ContextWithSource(ctx context.Context, source string) context.Context {
	if ctx == nil || source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// ContextWithPaneLogger attaches the logger and pane marker to the context.
func ContextWithPaneLogger(ctx context.Context, log pslog.Logger, paneID schema.PaneID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithPane(ctx, paneID)
}

// ContextWithPaneSourceLogger attaches the logger and pane/source markers to the context.
func ContextWithPaneSourceLogger(ctx context.Context, log pslog.Logger, paneID schema.PaneID, source string) context.Context {
	ctx = ContextWithPaneLogger(ctx, log, paneID)
	return ContextWithSource(ctx, source)
}

// CopyContextFields copies pane/source markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if pane, ok := src.Value(paneKey).(schema.PaneID); ok && pane != "" {
		dst = ContextWithPane(dst, pane)
	}
	if source, ok := src.Value(sourceKey).(string); ok && source != "" {
		dst = ContextWithSource(dst, source)
	}
	return dst
}

// ParseLevel maps a configured level name onto a pslog level.
func ParseLevel(name string) (pslog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return pslog.TraceLevel, nil
	case "debug":
		return pslog.DebugLevel, nil
	case "", "info":
		return pslog.InfoLevel, nil
	case "warn", "warning":
		return pslog.WarnLevel, nil
	case "error":
		return pslog.ErrorLevel, nil
	default:
		return pslog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}
