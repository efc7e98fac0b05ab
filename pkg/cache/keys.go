package cache

import "github.com/matzehuels/tiledgallery/pkg/layout"

// Keyer generates cache keys.
type Keyer interface {
	// LayoutKey identifies a layout of the images hashed as imagesHash.
	LayoutKey(imagesHash string, opts LayoutKeyOpts) string

	// ImagesKey identifies the image records of a gallery in a source.
	ImagesKey(source, galleryID string) string
}

// LayoutKeyOpts are the inputs besides the images that shape a layout.
type LayoutKeyOpts struct {
	ContainerWidth float64
	Config         layout.Config
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(imagesHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", imagesHash, opts.ContainerWidth, opts.Config)
}

// ImagesKey implements Keyer.
func (DefaultKeyer) ImagesKey(source, galleryID string) string {
	return "images:" + source + ":" + galleryID
}
