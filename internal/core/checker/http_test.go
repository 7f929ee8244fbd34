package checker

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kosinter/kosinter/internal/core"
	"github.com/kosinter/kosinter/internal/core/engine"
)

// dropFirst closes the connection without a response for the first n requests.
func dropFirst(t *testing.T, n int32, hits *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= n {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.WriteHeader(status)
	}))
}

func TestProberRetriesTransportErrors(t *testing.T) {
	var hits atomic.Int32
	server := dropFirst(t, 2, &hits, http.StatusOK)
	defer server.Close()

	prober := &Prober{Client: server.Client(), Retries: 2, RetryBackoff: time.Millisecond}
	resp, attempts, err := prober.Fetch(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, attempts)
	require.Equal(t, int32(3), hits.Load())
}

func TestProberGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	server := dropFirst(t, 10, &hits, http.StatusOK)
	defer server.Close()

	prober := &Prober{Client: server.Client(), Retries: 1, RetryBackoff: time.Millisecond}
	_, attempts, err := prober.Fetch(context.Background(), Request{URL: server.URL})
	require.Error(t, err)
	require.Equal(t, 2, attempts)
}

func TestProberDoesNotRetryHTTPResponses(t *testing.T) {
	var hits atomic.Int32
	server := dropFirst(t, 0, &hits, http.StatusServiceUnavailable)
	defer server.Close()

	prober := &Prober{Client: server.Client(), Retries: 3, RetryBackoff: time.Millisecond}
	resp, attempts, err := prober.Fetch(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, 1, attempts)
	require.Equal(t, int32(1), hits.Load())
}

func TestProberTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	prober := &Prober{Client: server.Client(), Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, _, err := prober.Fetch(context.Background(), Request{URL: server.URL})
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestProberCapsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	prober := &Prober{Client: server.Client(), MaxBodyBytes: 100}
	resp, _, err := prober.Fetch(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	require.Len(t, resp.Body, 100)
}

func TestProberSendsHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("Accept-Language", "en-US,en;q=0.9")
	prober := &Prober{Client: server.Client(), UserAgent: "kosinter-test"}
	_, _, err := prober.Fetch(context.Background(), Request{URL: server.URL, Header: header})
	require.NoError(t, err)
	require.Equal(t, "kosinter-test", got.Get("User-Agent"))
	require.Equal(t, "en-US,en;q=0.9", got.Get("Accept-Language"))
}

func TestProberRecords429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	limiter := engine.NewMemoryRateLimiter()
	prober := &Prober{Client: server.Client(), Limiter: limiter}
	resp, _, err := prober.Fetch(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	host, _, err := net.SplitHostPort(strings.TrimPrefix(server.URL, "http://"))
	require.NoError(t, err)
	allowed, wait, err := limiter.Allow(context.Background(), host)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Greater(t, wait, 30*time.Second)
}

func TestRetryAfterBackoffStaysWithinProbeTimeout(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "3600")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := &Prober{
		Client:  server.Client(),
		Timeout: 200 * time.Millisecond,
		Limiter: engine.NewMemoryRateLimiter(),
		Hosts:   NewHostLimiter(1),
	}
	classifier := NewClassifier(prober, nil)

	first := classifier.Classify(context.Background(), "reddit", "alice", server.URL+"/alice")
	require.Equal(t, core.VerdictUncertain, first.Verdict)
	require.Equal(t, core.ReasonRateLimited, first.Reason)

	start := time.Now()
	second := classifier.Classify(context.Background(), "reddit", "bob", server.URL+"/bob")
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, core.VerdictUncertain, second.Verdict)
	require.Equal(t, core.ReasonRateLimited, second.Reason)
	require.Zero(t, second.StatusCode)
	require.Contains(t, second.Note, "rate limited")
	require.Equal(t, int32(1), hits.Load())
}

func TestHostSlotWaitCountsAgainstTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	hosts := NewHostLimiter(1)
	host, _, err := net.SplitHostPort(strings.TrimPrefix(server.URL, "http://"))
	require.NoError(t, err)
	hold, err := hosts.Acquire(context.Background(), host)
	require.NoError(t, err)
	defer hold()

	prober := &Prober{Client: server.Client(), Timeout: 100 * time.Millisecond, Hosts: hosts}
	start := time.Now()
	_, _, err = prober.Fetch(context.Background(), Request{URL: server.URL})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
}

func TestProberInvalidURL(t *testing.T) {
	prober := &Prober{}
	_, attempts, err := prober.Fetch(context.Background(), Request{URL: "http://[::1"})
	require.Error(t, err)
	require.Equal(t, 0, attempts)
}

func TestHostLimiterCapsConcurrency(t *testing.T) {
	limiter := NewHostLimiter(2)

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := limiter.Acquire(context.Background(), "example.com")
			require.NoError(t, err)
			defer release()

			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestHostLimiterSeparatesHosts(t *testing.T) {
	limiter := NewHostLimiter(1)

	releaseA, err := limiter.Acquire(context.Background(), "a.example")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := limiter.Acquire(context.Background(), "b.example")
	require.NoError(t, err)
	releaseB()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limiter.Acquire(ctx, "a.example")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilHostLimiter(t *testing.T) {
	var limiter *HostLimiter
	release, err := limiter.Acquire(context.Background(), "example.com")
	require.NoError(t, err)
	release()
}

func TestRetryAfterHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "12")
	wait, extra := retryAfterHeader(header)
	require.Equal(t, 12*time.Second, wait)
	require.Equal(t, "12", extra["retry_after"])

	wait, extra = retryAfterHeader(http.Header{})
	require.Zero(t, wait)
	require.Nil(t, extra)
}

func TestPageTitle(t *testing.T) {
	require.Equal(t, "Profile", pageTitle([]byte(`<html><head><title> Profile </title></head></html>`)))
	require.Empty(t, pageTitle([]byte(`<html><body>no title</body></html>`)))
	require.Empty(t, pageTitle(nil))
}
