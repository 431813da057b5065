package main

import (
	"context"
	"io"
	"strings"
	"time"

	"pkt.systems/consolefold/internal/appconfig"
	"pkt.systems/consolefold/internal/logsource"
	"pkt.systems/consolefold/internal/logx"
	"pkt.systems/pslog"
)

// sourceFor picks an HTTP poller for http(s) URLs and a file tailer for
// anything else, including "-" for stdin.
func sourceFor(arg string, cfg appconfig.SourceConfig) (logsource.Source, error) {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return logsource.NewHTTPPoller(toPollerConfig(arg, cfg))
	}
	return logsource.NewFileTailer(toTailConfig(arg, cfg))
}

// levelLogger builds a console logger honouring logging.level, keeping the
// context logger when the level is unset.
func levelLogger(ctx context.Context, level string, w io.Writer) (pslog.Logger, error) {
	if strings.TrimSpace(level) == "" {
		return pslog.Ctx(ctx), nil
	}
	lvl, err := logx.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return pslog.NewWithOptions(w, pslog.Options{Mode: pslog.ModeConsole, MinLevel: lvl}), nil
}

func millis(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}
