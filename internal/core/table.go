package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateResult is returned when a (variant, platform) key is written twice.
var ErrDuplicateResult = errors.New("result already recorded")

// ResultTable maps handle variant -> platform id -> check result.
//
// The table is append-only and safe for concurrent writers. Variants and
// Platforms fix the presentation order; content does not depend on the order
// in which results arrive.
type ResultTable struct {
	Base      string
	Variants  []string
	Platforms []string

	mu      sync.RWMutex
	entries map[string]map[string]*CheckResult
}

// NewResultTable creates an empty table for the given scan dimensions.
func NewResultTable(base string, variants, platforms []string) *ResultTable {
	return &ResultTable{
		Base:      base,
		Variants:  append([]string(nil), variants...),
		Platforms: append([]string(nil), platforms...),
		entries:   make(map[string]map[string]*CheckResult, len(variants)),
	}
}

// Put records a result. Existing entries are never overwritten.
func (t *ResultTable) Put(result *CheckResult) error {
	if result == nil {
		return errors.New("nil result")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.entries[result.Handle]
	if !ok {
		row = make(map[string]*CheckResult, len(t.Platforms))
		t.entries[result.Handle] = row
	}
	if _, exists := row[result.Platform]; exists {
		return fmt.Errorf("%s/%s: %w", result.Handle, result.Platform, ErrDuplicateResult)
	}
	row[result.Platform] = result
	return nil
}

// Get returns the result for a pair, if present.
func (t *ResultTable) Get(variant, platform string) (*CheckResult, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result, ok := t.entries[variant][platform]
	return result, ok
}

// Len returns the number of recorded results.
func (t *ResultTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, row := range t.entries {
		count += len(row)
	}
	return count
}

// Row returns the results for one variant in platform order.
func (t *ResultTable) Row(variant string) []*CheckResult {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row := t.entries[variant]
	results := make([]*CheckResult, 0, len(row))
	for _, platform := range t.Platforms {
		if result, ok := row[platform]; ok {
			results = append(results, result)
		}
	}
	return results
}

// Results returns every result, variant-major, in presentation order.
func (t *ResultTable) Results() []*CheckResult {
	results := make([]*CheckResult, 0, t.Len())
	for _, variant := range t.Variants {
		results = append(results, t.Row(variant)...)
	}
	return results
}

// Count returns the number of results with the given verdict.
func (t *ResultTable) Count(verdict Verdict) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, row := range t.entries {
		for _, result := range row {
			if result.Verdict == verdict {
				count++
			}
		}
	}
	return count
}

// MarshalJSON encodes the table with its presentation order.
func (t *ResultTable) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return json.Marshal(struct {
		Base      string                             `json:"base"`
		Variants  []string                           `json:"variants"`
		Platforms []string                           `json:"platforms"`
		Results   map[string]map[string]*CheckResult `json:"results"`
	}{
		Base:      t.Base,
		Variants:  t.Variants,
		Platforms: t.Platforms,
		Results:   t.entries,
	})
}
