package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kosinter/kosinter/internal/core/engine"
)

// DefaultUserAgent is a desktop browser string; several platforms serve bot
// pages to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

const (
	defaultTimeout      = 8 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultRetryBackoff = 500 * time.Millisecond
)

// Prober performs outbound GET probes.
type Prober struct {
	Client  *http.Client
	Timeout time.Duration

	// UserAgent, when set, replaces the agent a strategy asks for.
	UserAgent    string
	MaxBodyBytes int64

	// Retries is the number of extra attempts after a transport failure.
	// HTTP responses are never retried.
	Retries      int
	RetryBackoff time.Duration

	Limiter *engine.RateLimiter
	Hosts   *HostLimiter
	Logger  *zap.Logger
}

// Fetch issues req and returns the captured response and attempt count.
func (p *Prober) Fetch(ctx context.Context, req Request) (*Response, int, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse probe url: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())

	attempts := 0
	operation := func() (*Response, error) {
		attempts++
		resp, err := p.fetchOnce(ctx, host, req)
		if err != nil && (ctx.Err() != nil || errors.Is(err, engine.ErrRateLimited)) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	if p.Retries <= 0 {
		resp, err := operation()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return resp, attempts, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.retryBackoff()

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(p.Retries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			p.logger().Debug("Retrying probe",
				zap.String("url", req.URL),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	return resp, attempts, err
}

// fetchOnce makes a single attempt. The timeout covers waiting for a host slot
// and for the rate limiter as well as the request itself.
func (p *Prober) fetchOnce(ctx context.Context, host string, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	release, err := p.Hosts.Acquire(ctx, host)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := p.Limiter.Acquire(ctx, host); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if p.UserAgent != "" || httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", p.userAgent())
	}

	resp, err := p.client().Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodyBytes()))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if wait, _ := retryAfterHeader(resp.Header); wait > 0 {
			_ = p.Limiter.Record429(ctx, host, wait)
		}
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   finalURL,
		Header:     resp.Header,
	}, nil
}

func (p *Prober) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return defaultTimeout
}

func (p *Prober) userAgent() string {
	if p.UserAgent != "" {
		return p.UserAgent
	}
	return DefaultUserAgent
}

func (p *Prober) maxBodyBytes() int64 {
	if p.MaxBodyBytes > 0 {
		return p.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

func (p *Prober) retryBackoff() time.Duration {
	if p.RetryBackoff > 0 {
		return p.RetryBackoff
	}
	return defaultRetryBackoff
}

func (p *Prober) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

// HostLimiter caps in-flight requests per remote host.
type HostLimiter struct {
	PerHost int64

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewHostLimiter allows perHost concurrent requests to each host.
func NewHostLimiter(perHost int) *HostLimiter {
	return &HostLimiter{PerHost: int64(perHost)}
}

// Acquire blocks until a slot for host is free. The returned func releases it.
func (h *HostLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	if h == nil || h.PerHost <= 0 {
		return func() {}, nil
	}

	h.mu.Lock()
	if h.sems == nil {
		h.sems = make(map[string]*semaphore.Weighted)
	}
	sem, ok := h.sems[host]
	if !ok {
		sem = semaphore.NewWeighted(h.PerHost)
		h.sems[host] = sem
	}
	h.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

func retryAfterHeader(header http.Header) (time.Duration, map[string]any) {
	if header == nil {
		return 0, nil
	}

	retry := header.Get("Retry-After")
	if retry == "" {
		return 0, nil
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds, map[string]any{"retry_after": retry}
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return time.Until(parsed), map[string]any{"retry_after": retry}
	}

	return 0, map[string]any{"retry_after": retry}
}
