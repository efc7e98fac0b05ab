package cache

// ScopedKeyer prefixes every key of an inner Keyer, isolating tenants or
// deployments that share one backend.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner uses the
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey implements Keyer.
func (k *ScopedKeyer) LayoutKey(imagesHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(imagesHash, opts)
}

// ImagesKey implements Keyer.
func (k *ScopedKeyer) ImagesKey(source, galleryID string) string {
	return k.prefix + k.inner.ImagesKey(source, galleryID)
}
