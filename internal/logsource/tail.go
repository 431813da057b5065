package logsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"pkt.systems/consolefold/internal/logx"
)

const defaultBatchLines = 512

// TailConfig configures a FileTailer.
type TailConfig struct {
	Path       string
	Follow     bool
	BatchLines int
}

// FileTailer reads a log file line by line and optionally follows appends.
type FileTailer struct {
	cfg     TailConfig
	partial strings.Builder
}

// NewFileTailer validates cfg.
func NewFileTailer(cfg TailConfig) (*FileTailer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("tail path is required")
	}
	if cfg.Path != "-" {
		abs, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve path: %w", err)
		}
		cfg.Path = abs
	}
	if cfg.BatchLines <= 0 {
		cfg.BatchLines = defaultBatchLines
	}
	return &FileTailer{cfg: cfg}, nil
}

// Name identifies the tailer in logs.
func (t *FileTailer) Name() string {
	return t.cfg.Path
}

// Run feeds the file to sink. Without Follow it completes at EOF; with
// Follow it completes when ctx ends or the file is removed or renamed.
func (t *FileTailer) Run(ctx context.Context, sink Sink) error {
	if t.cfg.Path == "-" {
		return t.runReader(ctx, os.Stdin, sink)
	}
	file, err := os.Open(t.cfg.Path)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer file.Close()
	if !t.cfg.Follow {
		return t.runReader(ctx, file, sink)
	}
	return t.follow(ctx, file, sink)
}

func (t *FileTailer) runReader(ctx context.Context, r io.Reader, sink Sink) error {
	reader := bufio.NewReader(r)
	if err := t.drain(ctx, reader, sink); err != nil {
		return err
	}
	if err := t.flushPartial(ctx, sink); err != nil {
		return err
	}
	return sink.Complete(ctx)
}

func (t *FileTailer) follow(ctx context.Context, file *os.File, sink Sink) error {
	log := logx.Ctx(ctx).With("source", t.Name())
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(t.cfg.Path); err != nil {
		return fmt.Errorf("failed to watch file: %w", err)
	}

	reader := bufio.NewReader(file)
	if err := t.drain(ctx, reader, sink); err != nil {
		return err
	}
	finish := func() error {
		done := context.WithoutCancel(ctx)
		if err := t.flushPartial(done, sink); err != nil {
			return err
		}
		return sink.Complete(done)
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug("tail stopped")
			return finish()
		case event, ok := <-watcher.Events:
			if !ok {
				return finish()
			}
			if event.Op&fsnotify.Write != 0 {
				if err := t.drain(ctx, reader, sink); err != nil {
					return err
				}
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				log.Info("tailed file went away", "op", event.Op.String())
				if err := t.drain(ctx, reader, sink); err != nil {
					return err
				}
				return finish()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return finish()
			}
			log.Warn("file watcher error", "err", err)
		}
	}
}

// drain reads every complete line currently available and sends them in
// batches of at most BatchLines. A trailing partial line is kept until its
// newline arrives.
func (t *FileTailer) drain(ctx context.Context, reader *bufio.Reader, sink Sink) error {
	batch := make([]string, 0, t.cfg.BatchLines)
	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := sink.Transform(ctx, batch); err != nil {
			return fmt.Errorf("transform: %w", err)
		}
		batch = make([]string, 0, t.cfg.BatchLines)
		return nil
	}
	for {
		chunk, err := reader.ReadString('\n')
		if strings.HasSuffix(chunk, "\n") {
			t.partial.WriteString(strings.TrimSuffix(chunk, "\n"))
			batch = append(batch, t.partial.String())
			t.partial.Reset()
			if len(batch) >= t.cfg.BatchLines {
				if err := send(); err != nil {
					return err
				}
			}
		} else {
			t.partial.WriteString(chunk)
		}
		if errors.Is(err, io.EOF) {
			return send()
		}
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
	}
}

func (t *FileTailer) flushPartial(ctx context.Context, sink Sink) error {
	if t.partial.Len() == 0 {
		return nil
	}
	line := t.partial.String()
	t.partial.Reset()
	return sink.Transform(ctx, []string{line})
}
