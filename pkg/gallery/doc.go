// Package gallery defines the image records that feed the tiled layout.
//
// An [Image] is a discriminated union: check [Image.Kind] to know which
// payload is populated.
//
//	Photo ("photo"):
//	  - Photo: optional caption
//
//	Video ("video"):
//	  - Video: poster frame, duration, autoplay
//
// Records are validated once at ingestion with [Validate]; downstream code
// (layout, loader) can then rely on unique non-empty IDs and non-negative
// dimensions. Width and Height are optional. An image without both reports an
// aspect ratio of 1 (square) from [Image.AspectRatio].
package gallery
