// Package pipeline turns gallery requests into layouts.
//
// A request names its images (inline, or a gallery id resolved through a
// [store.Source]) and the container and screen widths. The [Runner]
// resolves the effective layout configuration:
//
//	base config ← breakpoint for ScreenWidth ← request overrides
//
// then computes the layout, consulting its cache first. Both the CLI and
// the HTTP API go through a Runner.
package pipeline

import (
	"time"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
	"github.com/matzehuels/tiledgallery/pkg/layout"
)

// Request describes one layout computation.
type Request struct {
	// GalleryID names a gallery in the runner's source. Ignored when
	// Images is set.
	GalleryID string `json:"gallery_id,omitempty"`

	// Images are laid out directly when non-empty.
	Images []gallery.Image `json:"images,omitempty"`

	// ContainerWidth is the width available to the gallery in pixels.
	ContainerWidth float64 `json:"container_width"`

	// ScreenWidth selects the breakpoint. Zero uses ContainerWidth.
	ScreenWidth float64 `json:"screen_width,omitempty"`

	// Config replaces the runner's base configuration when set.
	Config *layout.Config `json:"config,omitempty"`

	// Overrides are applied after the breakpoint.
	Overrides layout.Partial `json:"overrides,omitempty"`

	// NoResponsive skips breakpoint resolution.
	NoResponsive bool `json:"no_responsive,omitempty"`

	// Refresh bypasses cached values.
	Refresh bool `json:"refresh,omitempty"`
}

// Validate checks the request shape. An unusable container width is not an
// error: it yields an empty layout.
func (r Request) Validate() error {
	if len(r.Images) == 0 && r.GalleryID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "request needs images or a gallery id")
	}
	if r.ScreenWidth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "screen width must not be negative, got %v", r.ScreenWidth)
	}
	if len(r.Images) > 0 {
		return gallery.Validate(r.Images)
	}
	return errors.ValidateID("gallery", r.GalleryID)
}

// screenWidth returns the width used for breakpoint resolution.
func (r Request) screenWidth() float64 {
	if r.ScreenWidth > 0 {
		return r.ScreenWidth
	}
	return r.ContainerWidth
}

// Result is a computed layout with provenance.
type Result struct {
	Layout     layout.Layout `json:"layout"`
	Config     layout.Config `json:"config"`
	Breakpoint string        `json:"breakpoint,omitempty"`
	ImagesHash string        `json:"images_hash"`
	CacheInfo  CacheInfo     `json:"cache"`
	Stats      Stats         `json:"stats"`
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	ImagesHit bool `json:"images_hit"`
	LayoutHit bool `json:"layout_hit"`
}

// Stats reports stage timings.
type Stats struct {
	ImagesTime time.Duration `json:"images_ns"`
	LayoutTime time.Duration `json:"layout_ns"`
	ImageCount int           `json:"image_count"`
}
