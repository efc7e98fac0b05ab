// Package store supplies gallery image records.
//
// A [Source] returns the validated images of one gallery. Three sources are
// provided: [MemorySource] for tests and embedding, [FileSource] for a
// directory of manifest files, and [MongoSource] for a MongoDB collection.
//
// Every source validates records with [gallery.Normalize] before returning
// them, and reports unknown galleries with a NOT_FOUND error.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

// Source loads the images of a gallery.
type Source interface {
	// Images returns the gallery's images sorted by Order.
	Images(ctx context.Context, galleryID string) ([]gallery.Image, error)

	// Name identifies the source in cache keys and logs.
	Name() string
}

// notFound builds the error every source returns for unknown galleries.
func notFound(galleryID string) error {
	return errors.New(errors.ErrCodeNotFound, "gallery %q not found", galleryID)
}

// finish validates and orders images for return.
func finish(images []gallery.Image) ([]gallery.Image, error) {
	out, err := gallery.Normalize(images)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b gallery.Image) int { return a.Order - b.Order })
	return out, nil
}

// MemorySource serves galleries held in memory.
type MemorySource struct {
	mu        sync.RWMutex
	galleries map[string][]gallery.Image
}

// NewMemorySource creates an empty memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{galleries: make(map[string][]gallery.Image)}
}

// Put stores images under galleryID after validating them.
func (s *MemorySource) Put(galleryID string, images []gallery.Image) error {
	if err := errors.ValidateID("gallery", galleryID); err != nil {
		return err
	}
	if err := gallery.Validate(images); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.galleries[galleryID] = slices.Clone(images)
	return nil
}

// Delete removes a gallery.
func (s *MemorySource) Delete(galleryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.galleries, galleryID)
}

// Images implements Source.
func (s *MemorySource) Images(_ context.Context, galleryID string) ([]gallery.Image, error) {
	s.mu.RLock()
	images, ok := s.galleries[galleryID]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(galleryID)
	}
	return finish(images)
}

// Name implements Source.
func (s *MemorySource) Name() string { return "memory" }

var _ Source = (*MemorySource)(nil)
