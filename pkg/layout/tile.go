package layout

import (
	"time"

	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

// Tile is one positioned cell. Coordinates are pixels relative to the
// container's top-left corner.
type Tile struct {
	ID               string        `json:"id"`
	Image            gallery.Image `json:"image"`
	Row              int           `json:"row"`
	Column           int           `json:"column"`
	X                float64       `json:"x"`
	Y                float64       `json:"y"`
	Width            float64       `json:"width"`
	Height           float64       `json:"height"`
	AspectRatio      float64       `json:"aspect_ratio"`
	AnimationDelayMs int64         `json:"animation_delay_ms"`
	Style            Style         `json:"style"`
}

// Style is what the rendering layer applies to the tile's host element.
//
// AspectRatio is the image's ratio when PreserveAspectRatio is set and the
// cell has that ratio. Otherwise, including rows whose clamped height was
// stretched to the full width, it is the cell's width/height, so it always
// agrees with WidthPercent and HeightPx.
type Style struct {
	WidthPercent float64 `json:"width_percent"` // of the row's available width
	HeightPx     float64 `json:"height_px"`
	AspectRatio  float64 `json:"aspect_ratio"`
}

// Right returns the tile's right edge.
func (t Tile) Right() float64 { return t.X + t.Width }

// Bottom returns the tile's bottom edge.
func (t Tile) Bottom() float64 { return t.Y + t.Height }

// CenterX returns the horizontal center point of the tile.
func (t Tile) CenterX() float64 { return t.X + t.Width/2 }

// CenterY returns the vertical center point of the tile.
func (t Tile) CenterY() float64 { return t.Y + t.Height/2 }

// AnimationDelay returns the entrance animation delay as a duration.
func (t Tile) AnimationDelay() time.Duration {
	return time.Duration(t.AnimationDelayMs) * time.Millisecond
}

// Row is a horizontal group of tiles sharing one height.
type Row struct {
	Index          int     `json:"index"`
	Tiles          []Tile  `json:"tiles"`
	TargetHeight   float64 `json:"target_height"`
	Height         float64 `json:"height"`
	AspectRatioSum float64 `json:"aspect_ratio_sum"`
	TotalWidth     float64 `json:"total_width"` // tiles plus inner gaps
	AvailableWidth float64 `json:"available_width"`
	Complete       bool    `json:"complete"` // false only for a trailing partial row
}

// Layout is the result of [Calculate].
type Layout struct {
	Rows           []Row    `json:"rows"`
	Tiles          []Tile   `json:"tiles"`
	TotalHeight    float64  `json:"total_height"`
	ContainerWidth float64  `json:"container_width"`
	Config         Config   `json:"config"`
	Metadata       Metadata `json:"metadata"`
}

// Metadata summarizes a layout computation.
type Metadata struct {
	ImageCount         int           `json:"image_count"`
	AverageAspectRatio float64       `json:"average_aspect_ratio"`
	RowCount           int           `json:"row_count"`
	ComputeTime        time.Duration `json:"compute_time_ns"`
}

// IsEmpty reports whether the layout has no tiles.
func (l Layout) IsEmpty() bool { return len(l.Tiles) == 0 }

// TileIDs returns tile IDs in layout order (row by row, left to right).
func (l Layout) TileIDs() []string {
	ids := make([]string, len(l.Tiles))
	for i, t := range l.Tiles {
		ids[i] = t.ID
	}
	return ids
}

// Box returns the tile's geometry, letting tiles serve directly as
// intersection targets.
func (t Tile) Box() (x, y, width, height float64) {
	return t.X, t.Y, t.Width, t.Height
}
