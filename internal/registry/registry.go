// Package registry keeps submitted run configurations for a limited time so
// that a later stream request can resume them.
package registry

import (
	"slices"
	"time"

	"k8s.io/apimachinery/pkg/util/cache"
	"k8s.io/utils/clock"
)

// DefaultRetention is how long a run configuration stays resolvable after it was stored.
const DefaultRetention = time.Hour

// RunConfig is the input configuration of one run.
type RunConfig struct {
	ID        string    `json:"id"`
	UseCaseID string    `json:"useCaseId"`
	Models    []string  `json:"models"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registry maps run ids to their configuration. Entries expire a fixed time
// after insertion whether or not the run has finished. It is safe for
// concurrent use.
type Registry struct {
	entries   *cache.Expiring
	clock     clock.Clock
	retention time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the wall clock, typically with a fake clock in tests.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(r *Registry) {
		r.retention = d
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		clock:     clock.RealClock{},
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.entries = cache.NewExpiringWithClock(r.clock)
	return r
}

// Put stores cfg under cfg.ID, stamping CreatedAt when it is unset, and
// returns the stored configuration.
func (r *Registry) Put(cfg RunConfig) RunConfig {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = r.clock.Now()
	}
	cfg.Models = slices.Clone(cfg.Models)
	r.entries.Set(cfg.ID, cfg, r.retention)
	return cfg
}

// Get returns the configuration stored under id if it has not expired.
func (r *Registry) Get(id string) (RunConfig, bool) {
	v, ok := r.entries.Get(id)
	if !ok {
		return RunConfig{}, false
	}
	cfg := v.(RunConfig)
	cfg.Models = slices.Clone(cfg.Models)
	return cfg, true
}

// Delete removes id from the registry.
func (r *Registry) Delete(id string) {
	r.entries.Delete(id)
}

// Len returns the number of stored entries. Expired entries are counted
// until they are collected on the next Put.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}
