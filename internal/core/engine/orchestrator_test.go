package engine

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kosinter/kosinter/internal/core"
	"github.com/kosinter/kosinter/internal/core/registry"
)

type stubClassifier struct {
	mu   sync.Mutex
	seen []string
}

func (s *stubClassifier) Classify(ctx context.Context, platformID, handle, url string) *core.CheckResult {
	s.mu.Lock()
	s.seen = append(s.seen, platformID+"|"+handle+"|"+url)
	s.mu.Unlock()

	h := fnv.New32a()
	_, _ = h.Write([]byte(platformID + handle))
	verdict := core.Verdict(h.Sum32() % 3)

	return &core.CheckResult{
		Platform: platformID,
		Handle:   handle,
		URL:      url,
		Verdict:  verdict,
	}
}

type nilClassifier struct{}

func (nilClassifier) Classify(ctx context.Context, platformID, handle, url string) *core.CheckResult {
	return nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Platform{
		{ID: "alpha", URLTemplate: "https://alpha.test/{handle}"},
		{ID: "beta", URLTemplate: "https://beta.test/u/{handle}"},
		{ID: "gamma", URLTemplate: "https://gamma.test/@{handle}"},
	})
	require.NoError(t, err)
	return reg
}

func TestOrchestratorCompleteness(t *testing.T) {
	defer goleak.VerifyNone(t)

	classifier := &stubClassifier{}
	orchestrator := &Orchestrator{
		Classifier: classifier,
		Registry:   testRegistry(t),
		Workers:    4,
	}

	table, err := orchestrator.Scan(context.Background(), "john.doe")
	require.NoError(t, err)

	variants := core.Variants("john.doe")
	require.Equal(t, variants, table.Variants)
	require.Equal(t, len(variants)*3, table.Len())
	require.Len(t, classifier.seen, len(variants)*3)

	for _, v := range variants {
		for _, p := range []string{"alpha", "beta", "gamma"} {
			result, ok := table.Get(v, p)
			require.True(t, ok, "missing %s/%s", v, p)
			require.Equal(t, v, result.Handle)
		}
	}

	result, ok := table.Get("john-doe", "gamma")
	require.True(t, ok)
	require.Equal(t, "https://gamma.test/@john-doe", result.URL)
}

func TestOrchestratorConcurrencyDoesNotChangeContent(t *testing.T) {
	defer goleak.VerifyNone(t)

	scan := func(workers int) []*core.CheckResult {
		orchestrator := &Orchestrator{
			Classifier: &stubClassifier{},
			Registry:   testRegistry(t),
			Workers:    workers,
		}
		table, err := orchestrator.Scan(context.Background(), "abcdef")
		require.NoError(t, err)
		return table.Results()
	}

	sequential := scan(1)
	parallel := scan(16)
	if diff := cmp.Diff(sequential, parallel, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("results differ with concurrency (-sequential +parallel):\n%s", diff)
	}
}

func TestOrchestratorNoVariants(t *testing.T) {
	orchestrator := &Orchestrator{
		Classifier: &stubClassifier{},
		Registry:   testRegistry(t),
		NoVariants: true,
	}

	table, err := orchestrator.Scan(context.Background(), " john.doe ")
	require.NoError(t, err)
	require.Equal(t, []string{"john.doe"}, table.Variants)
	require.Equal(t, 3, table.Len())
}

func TestOrchestratorOnResult(t *testing.T) {
	var seen []string
	orchestrator := &Orchestrator{
		Classifier: &stubClassifier{},
		Registry:   testRegistry(t),
		Workers:    3,
		OnResult: func(r *core.CheckResult) {
			seen = append(seen, r.Handle+"/"+r.Platform)
		},
	}

	table, err := orchestrator.Scan(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, seen, table.Len())
	require.ElementsMatch(t, []string{"abc/alpha", "abc/beta", "abc/gamma"}, seen)
}

func TestOrchestratorNilResultIsUncertain(t *testing.T) {
	orchestrator := &Orchestrator{
		Classifier: nilClassifier{},
		Registry:   testRegistry(t),
	}

	table, err := orchestrator.Scan(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, 3, table.Count(core.VerdictUncertain))

	result, ok := table.Get("abc", "beta")
	require.True(t, ok)
	require.Equal(t, "https://beta.test/u/abc", result.URL)
}

func TestOrchestratorEmptyHandle(t *testing.T) {
	orchestrator := &Orchestrator{
		Classifier: &stubClassifier{},
		Registry:   testRegistry(t),
	}

	_, err := orchestrator.Scan(context.Background(), "   ")
	require.True(t, errors.Is(err, ErrEmptyHandle))
}

func TestOrchestratorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orchestrator := &Orchestrator{
		Classifier: &stubClassifier{},
		Registry:   testRegistry(t),
	}

	table, err := orchestrator.Scan(ctx, "abc")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 3, table.Len())
}
