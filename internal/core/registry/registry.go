// Package registry holds the fixed table of platforms a handle is scanned on.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

// Placeholder is substituted with the handle in URL templates.
const Placeholder = "{handle}"

// ErrUnknownPlatform is returned when a platform id is not registered.
var ErrUnknownPlatform = errors.New("unknown platform")

//go:embed platforms.yaml
var defaultPlatforms []byte

// Platform is an immutable registry entry.
type Platform struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	URLTemplate   string `yaml:"url_template"`
	HandlePattern string `yaml:"handle_pattern"`

	pattern *regexp2.Regexp
}

// ProfileURL substitutes the handle into the URL template.
func (p Platform) ProfileURL(handle string) string {
	return strings.Replace(p.URLTemplate, Placeholder, url.PathEscape(handle), 1)
}

// AcceptsHandle reports whether the handle satisfies the platform's
// username rules. Platforms without a pattern accept every handle.
func (p Platform) AcceptsHandle(handle string) bool {
	if p.pattern == nil {
		return true
	}
	ok, err := p.pattern.MatchString(handle)
	if err != nil {
		// Match timeouts are not evidence against the handle.
		return true
	}
	return ok
}

// Registry is an ordered, read-only set of platforms.
type Registry struct {
	platforms []Platform
	index     map[string]int
}

type document struct {
	Platforms []Platform `yaml:"platforms"`
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry built from the embedded platform table.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = Parse(defaultPlatforms)
	})
	return defaultRegistry, defaultErr
}

// Parse builds a registry from a YAML document.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse platform table: %w", err)
	}
	return New(doc.Platforms)
}

// New validates platforms and builds a registry preserving their order.
func New(platforms []Platform) (*Registry, error) {
	r := &Registry{
		platforms: make([]Platform, 0, len(platforms)),
		index:     make(map[string]int, len(platforms)),
	}

	for _, p := range platforms {
		p.ID = strings.ToLower(strings.TrimSpace(p.ID))
		if p.ID == "" {
			return nil, errors.New("platform id is required")
		}
		if _, dup := r.index[p.ID]; dup {
			return nil, fmt.Errorf("platform %q: duplicate id", p.ID)
		}
		if n := strings.Count(p.URLTemplate, Placeholder); n != 1 {
			return nil, fmt.Errorf("platform %q: url template must contain one %s placeholder, found %d", p.ID, Placeholder, n)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		if p.HandlePattern != "" {
			re, err := regexp2.Compile(p.HandlePattern, regexp2.None)
			if err != nil {
				return nil, fmt.Errorf("platform %q: handle pattern: %w", p.ID, err)
			}
			re.MatchTimeout = 100 * time.Millisecond
			p.pattern = re
		}

		r.index[p.ID] = len(r.platforms)
		r.platforms = append(r.platforms, p)
	}

	return r, nil
}

// All returns the platforms in definition order.
func (r *Registry) All() []Platform {
	return append([]Platform(nil), r.platforms...)
}

// IDs returns the platform ids in definition order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.platforms))
	for i, p := range r.platforms {
		ids[i] = p.ID
	}
	return ids
}

// Get looks up a platform by id.
func (r *Registry) Get(id string) (Platform, bool) {
	i, ok := r.index[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Platform{}, false
	}
	return r.platforms[i], true
}

// Len returns the number of platforms.
func (r *Registry) Len() int {
	return len(r.platforms)
}

// Select returns a registry restricted to the given ids, keeping definition
// order. An empty selection returns the receiver.
func (r *Registry) Select(ids []string) (*Registry, error) {
	if len(ids) == 0 {
		return r, nil
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			continue
		}
		if _, ok := r.index[key]; !ok {
			return nil, fmt.Errorf("%q: %w", id, ErrUnknownPlatform)
		}
		wanted[key] = struct{}{}
	}

	selected := make([]Platform, 0, len(wanted))
	for _, p := range r.platforms {
		if _, ok := wanted[p.ID]; ok {
			selected = append(selected, p)
		}
	}

	return &Registry{platforms: selected, index: indexOf(selected)}, nil
}

func indexOf(platforms []Platform) map[string]int {
	index := make(map[string]int, len(platforms))
	for i, p := range platforms {
		index[p.ID] = i
	}
	return index
}
