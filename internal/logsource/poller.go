package logsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"pkt.systems/consolefold/internal/logx"
)

const (
	// DefaultStartParam is the query parameter carrying the next line number.
	DefaultStartParam = "startLineNumber"
	// DefaultCompleteHeader reports whether the job output is fully retrieved.
	DefaultCompleteHeader = "X-Console-Complete"
	// NextLineHeader, when present, overrides the locally counted offset.
	NextLineHeader = "X-Console-Next-Line"

	defaultPollInterval = time.Second
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 5
	defaultRetryBase    = 200 * time.Millisecond
)

// PollerConfig configures an HTTPPoller.
type PollerConfig struct {
	URL            string
	StartParam     string
	CompleteHeader string
	Start          int
	Interval       time.Duration
	Timeout        time.Duration
	MaxRetries     uint64
	RetryBase      time.Duration
	Headers        map[string]string
}

// HTTPPoller polls a console endpoint for new lines starting at an offset.
type HTTPPoller struct {
	cfg    PollerConfig
	client *resty.Client
	next   int
}

// ErrPollRejected is returned when the endpoint answers with a non-retryable status.
var ErrPollRejected = errors.New("console endpoint rejected request")

// NewHTTPPoller validates cfg and builds the HTTP client.
func NewHTTPPoller(cfg PollerConfig) (*HTTPPoller, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("poller url is required")
	}
	if cfg.Start < 0 {
		return nil, fmt.Errorf("poller start must be >= 0 (got %d)", cfg.Start)
	}
	if cfg.StartParam == "" {
		cfg.StartParam = DefaultStartParam
	}
	if cfg.CompleteHeader == "" {
		cfg.CompleteHeader = DefaultCompleteHeader
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "text/plain").
		SetHeaders(cfg.Headers).
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)
	client.AddRetryCondition(retryCondition)
	return &HTTPPoller{cfg: cfg, client: client, next: cfg.Start}, nil
}

// Name identifies the poller in logs.
func (p *HTTPPoller) Name() string {
	return p.cfg.URL
}

// Next returns the next line number that will be requested.
func (p *HTTPPoller) Next() int {
	return p.next
}

// Run polls until the endpoint reports completion, then completes sink.
func (p *HTTPPoller) Run(ctx context.Context, sink Sink) error {
	log := logx.Ctx(ctx).With("source", p.Name())
	for {
		lines, done, err := p.pollWithRetry(ctx)
		if err != nil {
			return err
		}
		if len(lines) > 0 {
			if err := sink.Transform(ctx, lines); err != nil {
				return fmt.Errorf("transform: %w", err)
			}
		}
		log.Trace("poll", "lines", len(lines), "next", p.next, "complete", done)
		if done {
			log.Info("console complete", "lines", p.next)
			return sink.Complete(ctx)
		}
		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *HTTPPoller) pollWithRetry(ctx context.Context) ([]string, bool, error) {
	var (
		lines []string
		done  bool
	)
	backoff := retry.WithMaxRetries(p.cfg.MaxRetries, retry.NewExponential(p.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		lines, done, err = p.poll(ctx)
		if err != nil {
			if errors.Is(err, ErrPollRejected) {
				return err
			}
			logx.Ctx(ctx).Debug("poll failed, retrying", "source", p.Name(), "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("poll %s: %w", p.cfg.URL, err)
	}
	return lines, done, nil
}

func (p *HTTPPoller) poll(ctx context.Context) ([]string, bool, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam(p.cfg.StartParam, strconv.Itoa(p.next)).
		Get(p.cfg.URL)
	if err != nil {
		return nil, false, err
	}
	code := resp.StatusCode()
	if code >= http.StatusInternalServerError || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout {
		return nil, false, fmt.Errorf("status %d", code)
	}
	if code >= http.StatusBadRequest {
		return nil, false, fmt.Errorf("%w: status %d", ErrPollRejected, code)
	}
	lines := splitLines(resp.String())
	next := p.next + len(lines)
	if header := resp.Header().Get(NextLineHeader); header != "" {
		if parsed, err := strconv.Atoi(header); err == nil && parsed >= p.next {
			next = parsed
		}
	}
	p.next = next
	done := strings.EqualFold(strings.TrimSpace(resp.Header().Get(p.cfg.CompleteHeader)), "true")
	return lines, done, nil
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}
