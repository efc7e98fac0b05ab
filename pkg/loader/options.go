package loader

import (
	"math"
	"time"

	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/errors"
)

// Default option values.
const (
	DefaultThreshold          = 0.1
	DefaultPreloadCount       = 8
	DefaultMaxConcurrentLoads = 4
	DefaultMemoryLimitMB      = 50
	DefaultMemoryInterval     = 5 * time.Second
	DefaultRetainSamples      = 10
)

// Options configures a Loader.
type Options struct {
	// LazyLoad gates loading on visibility. False marks every tile visible
	// as soon as it is observed.
	LazyLoad bool `json:"lazy_load" toml:"lazy_load"`

	// Threshold is the visible fraction (0..1) at which a tile counts as
	// intersecting.
	Threshold float64 `json:"threshold" toml:"threshold"`

	// RootMargin grows or shrinks the viewport, CSS shorthand ("100px 0px").
	RootMargin string `json:"root_margin" toml:"root_margin"`

	// PreloadCount is how many tiles PreloadNext inspects past the current
	// index.
	PreloadCount int `json:"preload_count" toml:"preload_count"`

	// MaxConcurrentLoads bounds the loading set.
	MaxConcurrentLoads int `json:"max_concurrent_loads" toml:"max_concurrent_loads"`

	// MemoryLimitMB is the usage budget. Reclamation starts at 80% of it.
	// Zero disables the governor.
	MemoryLimitMB int `json:"memory_limit_mb" toml:"memory_limit_mb"`

	// MemoryInterval is the governor's sampling period.
	MemoryInterval time.Duration `json:"memory_interval" toml:"memory_interval"`

	// VirtualScrolling lets reclamation unobserve tiles that are neither
	// visible nor loading.
	VirtualScrolling bool `json:"virtual_scrolling" toml:"virtual_scrolling"`

	// RetainSamples is how much timing history survives reclamation.
	RetainSamples int `json:"retain_samples" toml:"retain_samples"`

	// SampleWindow is the recorder's rolling window (0 = metrics.DefaultWindow).
	SampleWindow int `json:"sample_window" toml:"sample_window"`
}

// DefaultOptions returns the stock loader options.
func DefaultOptions() Options {
	return Options{
		LazyLoad:           true,
		Threshold:          DefaultThreshold,
		RootMargin:         capability.DefaultRootMargin,
		PreloadCount:       DefaultPreloadCount,
		MaxConcurrentLoads: DefaultMaxConcurrentLoads,
		MemoryLimitMB:      DefaultMemoryLimitMB,
		MemoryInterval:     DefaultMemoryInterval,
		RetainSamples:      DefaultRetainSamples,
	}
}

// Validate reports the first invalid option as an INVALID_CONFIG error.
func (o Options) Validate() error {
	switch {
	case math.IsNaN(o.Threshold) || o.Threshold < 0 || o.Threshold > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "threshold must be within [0, 1], got %v", o.Threshold)
	case o.PreloadCount < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "preload_count must not be negative, got %d", o.PreloadCount)
	case o.MaxConcurrentLoads < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "max_concurrent_loads must be at least 1, got %d", o.MaxConcurrentLoads)
	case o.MemoryLimitMB < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "memory_limit_mb must not be negative, got %d", o.MemoryLimitMB)
	case o.MemoryInterval < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "memory_interval must not be negative, got %v", o.MemoryInterval)
	case o.RetainSamples < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "retain_samples must not be negative, got %d", o.RetainSamples)
	case o.SampleWindow < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "sample_window must not be negative, got %d", o.SampleWindow)
	}
	if _, err := capability.ParseRootMargin(o.RootMargin); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid root_margin %q", o.RootMargin)
	}
	return nil
}

// Limits bound options that come from an untrusted client. A zero field is
// unbounded.
type Limits struct {
	MinMemoryInterval  time.Duration
	MaxPreloadCount    int
	MaxConcurrentLoads int
	MaxRetainSamples   int
	MaxSampleWindow    int
}

// DefaultLimits returns the bounds the HTTP API applies to session options.
func DefaultLimits() Limits {
	return Limits{
		MinMemoryInterval:  100 * time.Millisecond,
		MaxPreloadCount:    64,
		MaxConcurrentLoads: 32,
		MaxRetainSamples:   1000,
		MaxSampleWindow:    10000,
	}
}

// Within reports the first option outside l as an INVALID_CONFIG error. A
// zero MemoryInterval selects the default and is always accepted.
func (o Options) Within(l Limits) error {
	switch {
	case l.MinMemoryInterval > 0 && o.MemoryInterval != 0 && o.MemoryInterval < l.MinMemoryInterval:
		return errors.New(errors.ErrCodeInvalidConfig, "memory_interval must be at least %v, got %v", l.MinMemoryInterval, o.MemoryInterval)
	case l.MaxPreloadCount > 0 && o.PreloadCount > l.MaxPreloadCount:
		return errors.New(errors.ErrCodeInvalidConfig, "preload_count must be at most %d, got %d", l.MaxPreloadCount, o.PreloadCount)
	case l.MaxConcurrentLoads > 0 && o.MaxConcurrentLoads > l.MaxConcurrentLoads:
		return errors.New(errors.ErrCodeInvalidConfig, "max_concurrent_loads must be at most %d, got %d", l.MaxConcurrentLoads, o.MaxConcurrentLoads)
	case l.MaxRetainSamples > 0 && o.RetainSamples > l.MaxRetainSamples:
		return errors.New(errors.ErrCodeInvalidConfig, "retain_samples must be at most %d, got %d", l.MaxRetainSamples, o.RetainSamples)
	case l.MaxSampleWindow > 0 && o.SampleWindow > l.MaxSampleWindow:
		return errors.New(errors.ErrCodeInvalidConfig, "sample_window must be at most %d, got %d", l.MaxSampleWindow, o.SampleWindow)
	}
	return nil
}

// interval returns the sampling period, defaulting a zero value.
func (o Options) interval() time.Duration {
	if o.MemoryInterval <= 0 {
		return DefaultMemoryInterval
	}
	return o.MemoryInterval
}

// Capabilities are the host features a Loader depends on. Nil members mean
// the capability is absent.
type Capabilities struct {
	Intersection capability.IntersectionFactory
	Memory       capability.MemorySampler
}
