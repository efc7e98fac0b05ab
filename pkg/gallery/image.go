package gallery

import (
	"github.com/matzehuels/tiledgallery/pkg/errors"
)

// Kind discriminates the media payload of an Image.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Image is one media record to be placed in the gallery.
type Image struct {
	ID       string `json:"id" toml:"id" bson:"id"`
	Kind     Kind   `json:"kind,omitempty" toml:"kind" bson:"kind,omitempty"`
	Src      string `json:"src,omitempty" toml:"src" bson:"src,omitempty"`
	Alt      string `json:"alt,omitempty" toml:"alt" bson:"alt,omitempty"`
	Width    int    `json:"width,omitempty" toml:"width" bson:"width,omitempty"`
	Height   int    `json:"height,omitempty" toml:"height" bson:"height,omitempty"`
	Order    int    `json:"order" toml:"order" bson:"order"`
	Priority bool   `json:"priority,omitempty" toml:"priority" bson:"priority,omitempty"`
	Group    string `json:"group,omitempty" toml:"group" bson:"group,omitempty"`

	Photo *PhotoMeta `json:"photo,omitempty" toml:"photo" bson:"photo,omitempty"`
	Video *VideoMeta `json:"video,omitempty" toml:"video" bson:"video,omitempty"`
}

// PhotoMeta holds photo-only fields.
type PhotoMeta struct {
	Caption string `json:"caption,omitempty" toml:"caption" bson:"caption,omitempty"`
}

// VideoMeta holds video-only fields.
type VideoMeta struct {
	Poster   string  `json:"poster,omitempty" toml:"poster" bson:"poster,omitempty"`
	Duration float64 `json:"duration,omitempty" toml:"duration" bson:"duration,omitempty"` // seconds
	Autoplay bool    `json:"autoplay,omitempty" toml:"autoplay" bson:"autoplay,omitempty"`
}

// IsVideo reports whether the image is a video tile.
func (img Image) IsVideo() bool { return img.Kind == KindVideo }

// HasDimensions reports whether both width and height are known.
func (img Image) HasDimensions() bool { return img.Width > 0 && img.Height > 0 }

// AspectRatio returns width/height, or 1 when either dimension is missing.
func (img Image) AspectRatio() float64 {
	if !img.HasDimensions() {
		return 1
	}
	return float64(img.Width) / float64(img.Height)
}

// Validate checks a single record. An empty Kind is accepted and treated as
// a photo; use [Normalize] to make that explicit.
func (img Image) Validate() error {
	if err := errors.ValidateID("image", img.ID); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidImage, err, "image %q", img.ID)
	}
	if img.Width < 0 || img.Height < 0 {
		return errors.New(errors.ErrCodeInvalidImage, "image %q has negative dimensions %dx%d", img.ID, img.Width, img.Height)
	}

	switch img.Kind {
	case "", KindPhoto:
		if img.Video != nil {
			return errors.New(errors.ErrCodeInvalidImage, "photo %q carries video metadata", img.ID)
		}
	case KindVideo:
		if img.Photo != nil {
			return errors.New(errors.ErrCodeInvalidImage, "video %q carries photo metadata", img.ID)
		}
		if img.Video != nil && img.Video.Duration < 0 {
			return errors.New(errors.ErrCodeInvalidImage, "video %q has negative duration", img.ID)
		}
	default:
		return errors.New(errors.ErrCodeInvalidImage, "image %q has unknown kind %q", img.ID, img.Kind)
	}
	return nil
}

// Validate checks every record and rejects duplicate IDs.
func Validate(images []Image) error {
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		if err := img.Validate(); err != nil {
			return err
		}
		if _, dup := seen[img.ID]; dup {
			return errors.New(errors.ErrCodeInvalidImage, "duplicate image id %q", img.ID)
		}
		seen[img.ID] = struct{}{}
	}
	return nil
}

// Normalize validates images and returns a copy with an explicit Kind on
// every record.
func Normalize(images []Image) ([]Image, error) {
	if err := Validate(images); err != nil {
		return nil, err
	}
	out := make([]Image, len(images))
	for i, img := range images {
		if img.Kind == "" {
			img.Kind = KindPhoto
		}
		out[i] = img
	}
	return out, nil
}

// IDs returns the image IDs in slice order.
func IDs(images []Image) []string {
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}
