package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tiledgallery/pkg/cache"
	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/observability"
	"github.com/matzehuels/tiledgallery/pkg/store"
)

// Runner executes layout requests with caching.
//
// A Runner holds no per-request state; one instance can serve concurrent
// requests as long as its Cache and Source are safe for concurrent use.
type Runner struct {
	Cache       cache.Cache
	Keyer       cache.Keyer
	Source      store.Source
	Base        layout.Config
	Breakpoints layout.Breakpoints
	Hooks       observability.Hooks
	Logger      *log.Logger

	// LayoutTTL overrides cache.TTLLayout when positive.
	LayoutTTL time.Duration
}

// NewRunner creates a runner. Nil arguments fall back to a NullCache, the
// DefaultKeyer and log.Default(); the base config and breakpoints start at
// their defaults. Source may be nil when every request carries its images.
func NewRunner(c cache.Cache, keyer cache.Keyer, src store.Source, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:       c,
		Keyer:       keyer,
		Source:      src,
		Base:        layout.DefaultConfig(),
		Breakpoints: layout.DefaultBreakpoints(),
		Hooks:       observability.Hooks{}.WithDefaults(),
		Logger:      logger,
	}
}

// Layout resolves images and configuration for req and computes the layout.
func (r *Runner) Layout(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hooks := r.Hooks.WithDefaults()

	cfg, breakpoint := r.ResolveConfig(req)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	result := &Result{Config: cfg, Breakpoint: breakpoint}

	imagesStart := time.Now()
	var images []gallery.Image
	if len(req.Images) > 0 {
		var err error
		if images, err = gallery.Normalize(req.Images); err != nil {
			return nil, err
		}
	} else {
		var hit bool
		var err error
		images, hit, err = r.ImagesWithCacheInfo(ctx, req.GalleryID, req.Refresh)
		if err != nil {
			return nil, err
		}
		result.CacheInfo.ImagesHit = hit
	}
	result.Stats.ImagesTime = time.Since(imagesStart)
	result.Stats.ImageCount = len(images)

	hooks.Layout.OnLayoutStart(ctx, len(images), req.ContainerWidth)
	layoutStart := time.Now()
	l, hash, hit, err := r.LayoutWithCacheInfo(ctx, images, req.ContainerWidth, cfg, req.Refresh)
	if err != nil {
		return nil, err
	}
	result.Layout = l
	result.ImagesHash = hash
	result.CacheInfo.LayoutHit = hit
	result.Stats.LayoutTime = time.Since(layoutStart)
	hooks.Layout.OnLayoutComplete(ctx, len(l.Rows), result.Stats.LayoutTime, hit)

	r.Logger.Debug("computed layout",
		"images", len(images),
		"rows", len(l.Rows),
		"breakpoint", breakpoint,
		"cached", hit,
		"duration", result.Stats.LayoutTime)
	return result, nil
}

// ResolveConfig returns the effective configuration for req and the name of
// the breakpoint applied, if any.
func (r *Runner) ResolveConfig(req Request) (layout.Config, string) {
	cfg := r.Base
	if req.Config != nil {
		cfg = *req.Config
	}
	var name string
	if !req.NoResponsive && len(r.Breakpoints) > 0 {
		p := r.Breakpoints.Resolve(req.screenWidth())
		cfg = p.Apply(cfg)
		name = p.Breakpoint
	}
	return req.Overrides.Apply(cfg), name
}

// ImagesWithCacheInfo loads a gallery from the source, caching the records.
func (r *Runner) ImagesWithCacheInfo(ctx context.Context, galleryID string, refresh bool) ([]gallery.Image, bool, error) {
	if r.Source == nil {
		return nil, false, errors.New(errors.ErrCodeUnsupported, "no image source configured")
	}
	hooks := r.Hooks.WithDefaults()
	key := r.Keyer.ImagesKey(r.Source.Name(), galleryID)

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var images []gallery.Image
			if err := json.Unmarshal(data, &images); err == nil {
				hooks.Cache.OnCacheHit(ctx, "images")
				return images, true, nil
			}
		}
		hooks.Cache.OnCacheMiss(ctx, "images")
	}

	images, err := r.Source.Images(ctx, galleryID)
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(images); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLImages); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "err", err)
		} else {
			hooks.Cache.OnCacheSet(ctx, "images", len(data))
		}
	}
	return images, false, nil
}

// LayoutWithCacheInfo computes a layout, consulting the cache first. It
// returns the layout, the hash of the images and whether it was a cache hit.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, images []gallery.Image, containerWidth float64, cfg layout.Config, refresh bool) (layout.Layout, string, bool, error) {
	hooks := r.Hooks.WithDefaults()
	hash, err := cache.HashJSON(images)
	if err != nil {
		return layout.Layout{}, "", false, errors.Wrap(errors.ErrCodeInternal, err, "hash images")
	}
	key := r.Keyer.LayoutKey(hash, cache.LayoutKeyOpts{ContainerWidth: containerWidth, Config: cfg})

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if cached, err := layout.Unmarshal(data); err == nil {
				hooks.Cache.OnCacheHit(ctx, "layout")
				return cached, hash, true, nil
			}
		}
		hooks.Cache.OnCacheMiss(ctx, "layout")
	}

	l := layout.Calculate(images, containerWidth, cfg)

	ttl := cache.TTLLayout
	if r.LayoutTTL > 0 {
		ttl = r.LayoutTTL
	}
	if data, err := layout.Marshal(l); err == nil {
		if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "err", err)
		} else {
			hooks.Cache.OnCacheSet(ctx, "layout", len(data))
		}
	}
	return l, hash, false, nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
