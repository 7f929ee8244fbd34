// Package checker classifies whether a handle exists on a platform.
//
// Each platform family is a Strategy: it describes the single request to make
// and evaluates the captured response without touching the network, so a
// recorded response always yields the same decision.
package checker

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kosinter/kosinter/internal/core"
	"github.com/kosinter/kosinter/internal/core/engine"
	"github.com/kosinter/kosinter/internal/core/registry"
)

// Request describes the probe a strategy wants to make.
type Request struct {
	URL    string
	Header http.Header
}

// Response is the captured outcome of a probe.
type Response struct {
	StatusCode int
	Body       []byte
	FinalURL   string
	Header     http.Header
}

// Decision is a strategy's verdict on a response.
type Decision struct {
	Verdict core.Verdict
	Reason  core.Reason
	Note    string
	Extra   map[string]any
}

// Strategy is the classification procedure for one platform family.
type Strategy interface {
	Family() core.Family
	Request(handle, profileURL string) Request
	Evaluate(handle string, resp *Response) Decision
}

// Fetcher performs a probe. Prober is the network implementation.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, int, error)
}

// Classifier dispatches to a per-platform strategy and never fails: transport
// errors become uncertain results carrying the error text.
type Classifier struct {
	Strategies      map[string]Strategy
	Fallback        Strategy
	Fetcher         Fetcher
	Registry        *registry.Registry
	ValidateHandles bool
	ToolVersion     string
	Clock           func() time.Time
}

// NewClassifier wires the default strategy table to a fetcher.
func NewClassifier(fetcher Fetcher, reg *registry.Registry) *Classifier {
	return &Classifier{
		Strategies: DefaultStrategies(),
		Fallback:   &HeuristicStrategy{},
		Fetcher:    fetcher,
		Registry:   reg,
	}
}

// Classify probes url for handle using the strategy registered for platformID.
func (c *Classifier) Classify(ctx context.Context, platformID, handle, url string) *core.CheckResult {
	if ctx == nil {
		ctx = context.Background()
	}
	requestedAt := c.now()
	strategy := c.strategyFor(platformID)

	if c.ValidateHandles && c.Registry != nil {
		if platform, ok := c.Registry.Get(platformID); ok && !platform.AcceptsHandle(handle) {
			decision := Decision{
				Verdict: core.VerdictNotExists,
				Reason:  core.ReasonHandleRejected,
				Note:    "handle not allowed on " + platform.Name,
			}
			return c.result(platformID, handle, url, strategy.Family(), decision, 0, "", 0, requestedAt)
		}
	}

	req := strategy.Request(handle, url)

	if c.Fetcher == nil {
		decision := Decision{Verdict: core.VerdictUncertain, Reason: core.ReasonTransportError, Note: "no fetcher configured"}
		return c.result(platformID, handle, url, strategy.Family(), decision, 0, req.URL, 0, requestedAt)
	}

	resp, attempts, err := c.Fetcher.Fetch(ctx, req)
	if err != nil {
		decision := Decision{Verdict: core.VerdictUncertain, Reason: core.ReasonTransportError, Note: err.Error()}
		if errors.Is(err, engine.ErrRateLimited) {
			decision.Reason = core.ReasonRateLimited
		}
		return c.result(platformID, handle, url, strategy.Family(), decision, 0, req.URL, attempts, requestedAt)
	}

	decision := strategy.Evaluate(handle, resp)
	if resp.StatusCode == http.StatusTooManyRequests {
		if _, extra := retryAfterHeader(resp.Header); extra != nil {
			decision.Extra = mergeExtra(decision.Extra, extra)
		}
	}
	return c.result(platformID, handle, url, strategy.Family(), decision, resp.StatusCode, req.URL, attempts, requestedAt)
}

func (c *Classifier) strategyFor(platformID string) Strategy {
	if c != nil && c.Strategies != nil {
		if s, ok := c.Strategies[strings.ToLower(strings.TrimSpace(platformID))]; ok && s != nil {
			return s
		}
	}
	if c != nil && c.Fallback != nil {
		return c.Fallback
	}
	return &HeuristicStrategy{}
}

func (c *Classifier) result(platformID, handle, url string, family core.Family, decision Decision, statusCode int, server string, attempts int, requestedAt time.Time) *core.CheckResult {
	return &core.CheckResult{
		Platform:   platformID,
		Handle:     handle,
		URL:        url,
		Verdict:    decision.Verdict,
		Reason:     decision.Reason,
		StatusCode: statusCode,
		Note:       decision.Note,
		ExtraData:  decision.Extra,
		Provenance: core.Provenance{
			CheckID:     uuid.New().String(),
			RequestedAt: requestedAt,
			ResolvedAt:  c.now(),
			Source:      family,
			Server:      server,
			Attempts:    attempts,
			ToolVersion: c.ToolVersion,
		},
	}
}

func (c *Classifier) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

// statusDecision is the shared fallback for responses that carry no marker.
func statusDecision(status int, okReason core.Reason) Decision {
	switch status {
	case http.StatusOK:
		return Decision{Verdict: core.VerdictExists, Reason: okReason}
	case http.StatusNotFound:
		return Decision{Verdict: core.VerdictNotExists, Reason: core.ReasonStatusNotFound}
	default:
		return uncertain(status)
	}
}

func uncertain(status int) Decision {
	reason := core.ReasonUnexpectedStatus
	switch status {
	case http.StatusOK:
		reason = core.ReasonNoMarker
	case http.StatusTooManyRequests:
		reason = core.ReasonRateLimited
	}
	return Decision{Verdict: core.VerdictUncertain, Reason: reason, Note: core.NoteUncertain}
}

func mergeExtra(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
