package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kosinter/kosinter/internal/core"
	"github.com/kosinter/kosinter/internal/core/registry"
)

// ErrEmptyHandle is returned when a scan is requested for a blank handle.
var ErrEmptyHandle = errors.New("handle is required")

// DefaultWorkers bounds concurrent probes when Workers is unset.
const DefaultWorkers = 8

// Classifier decides whether a handle exists on a platform.
type Classifier interface {
	Classify(ctx context.Context, platformID, handle, url string) *core.CheckResult
}

// Orchestrator runs the classifier over every (variant, platform) pair.
type Orchestrator struct {
	Classifier Classifier
	Registry   *registry.Registry
	Workers    int
	NoVariants bool

	// OnResult, if set, is called once per result as probes complete.
	// Calls are serialized.
	OnResult func(*core.CheckResult)

	Clock func() time.Time
}

type job struct {
	platform registry.Platform
	handle   string
}

// Scan checks every variant of base on every registered platform.
//
// The returned table always holds one result per pair. A cancelled context
// turns outstanding probes into uncertain results and is reported as the
// error alongside the complete table.
func (o *Orchestrator) Scan(ctx context.Context, base string) (*core.ResultTable, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o == nil || o.Classifier == nil || o.Registry == nil {
		return nil, errors.New("orchestrator is not configured")
	}

	base = strings.TrimSpace(base)
	if base == "" {
		return nil, ErrEmptyHandle
	}

	variants := []string{base}
	if !o.NoVariants {
		variants = core.Variants(base)
	}

	platforms := o.Registry.All()
	table := core.NewResultTable(base, variants, o.Registry.IDs())

	jobs := make([]job, 0, len(variants)*len(platforms))
	for _, variant := range variants {
		for _, platform := range platforms {
			jobs = append(jobs, job{platform: platform, handle: variant})
		}
	}

	var (
		g        errgroup.Group
		notifyMu sync.Mutex
	)
	g.SetLimit(o.workers(len(jobs)))

	for _, j := range jobs {
		g.Go(func() error {
			result := o.run(ctx, j)
			if err := table.Put(result); err != nil {
				return err
			}
			if o.OnResult != nil {
				notifyMu.Lock()
				o.OnResult(result)
				notifyMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return table, err
	}

	return table, ctx.Err()
}

func (o *Orchestrator) run(ctx context.Context, j job) *core.CheckResult {
	url := j.platform.ProfileURL(j.handle)
	result := o.Classifier.Classify(ctx, j.platform.ID, j.handle, url)
	if result == nil {
		now := o.now()
		result = &core.CheckResult{
			Verdict: core.VerdictUncertain,
			Reason:  core.ReasonNoMarker,
			Note:    core.NoteUncertain,
			Provenance: core.Provenance{
				RequestedAt: now,
				ResolvedAt:  now,
				Source:      "orchestrator",
			},
		}
	}

	// The table is keyed by what was asked, not by what the classifier echoed.
	result.Platform = j.platform.ID
	result.Handle = j.handle
	if result.URL == "" {
		result.URL = url
	}
	return result
}

func (o *Orchestrator) workers(jobs int) int {
	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if jobs > 0 && workers > jobs {
		workers = jobs
	}
	return workers
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}
