// Package observability provides hooks for layout, loader and cache events.
//
// Hooks are plain interfaces with no-op defaults. They are handed to the
// components that emit events (a loader, a pipeline runner) at construction
// time; there is no process-wide registry, so two galleries in one process
// can report to different sinks.
//
// # Usage
//
//	hooks := observability.Hooks{Loader: observability.NewLogHooks(logger)}
//	l := loader.New(opts, caps, loader.WithHooks(hooks.Loader))
//
// Components call hooks to emit events:
//
//	h.OnLoadStart(id)
//	// ... rendering layer fetches the image ...
//	h.OnLoadComplete(id, elapsed)
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from layout computation.
type LayoutHooks interface {
	OnLayoutStart(ctx context.Context, imageCount int, containerWidth float64)
	OnLayoutComplete(ctx context.Context, rowCount int, duration time.Duration, cached bool)
}

// =============================================================================
// Loader Hooks
// =============================================================================

// LoaderHooks receives tile lifecycle events from a progressive loader.
// Hooks run inside the loader's critical section and must not call back
// into the loader.
type LoaderHooks interface {
	// OnVisible records a tile entering the visible set.
	OnVisible(id string)

	// OnLoadStart records a tile admitted to loading. The rendering layer
	// starts its fetch here.
	OnLoadStart(id string)

	// OnLoadComplete records a successful load.
	OnLoadComplete(id string, elapsed time.Duration)

	// OnLoadError records a failed load.
	OnLoadError(id string, elapsed time.Duration)

	// OnReclaim records a memory reclamation pass.
	OnReclaim(evicted int, usedBytes uint64)

	// OnFailOpen records the loader degrading to immediate visibility.
	OnFailOpen(reason string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutStart(context.Context, int, float64)                  {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, int, time.Duration, bool) {}

// NoopLoaderHooks is a no-op implementation of LoaderHooks.
type NoopLoaderHooks struct{}

func (NoopLoaderHooks) OnVisible(string)                     {}
func (NoopLoaderHooks) OnLoadStart(string)                   {}
func (NoopLoaderHooks) OnLoadComplete(string, time.Duration) {}
func (NoopLoaderHooks) OnLoadError(string, time.Duration)    {}
func (NoopLoaderHooks) OnReclaim(int, uint64)                {}
func (NoopLoaderHooks) OnFailOpen(string)                    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Hook Sets
// =============================================================================

// Hooks bundles the hook families for one component tree.
type Hooks struct {
	Layout LayoutHooks
	Loader LoaderHooks
	Cache  CacheHooks
}

// WithDefaults returns a copy with nil members replaced by no-ops.
func (h Hooks) WithDefaults() Hooks {
	if h.Layout == nil {
		h.Layout = NoopLayoutHooks{}
	}
	if h.Loader == nil {
		h.Loader = NoopLoaderHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	return h
}
