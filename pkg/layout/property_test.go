//go:build property

package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

// imagesFromDims pairs consecutive values into width/height; zeros exercise
// the missing-dimension default.
func imagesFromDims(dims []int) []gallery.Image {
	images := make([]gallery.Image, len(dims))
	for i := range dims {
		images[i] = gallery.Image{
			ID:     fmt.Sprintf("img-%d", i),
			Width:  dims[i],
			Height: dims[(i+1)%len(dims)],
			Order:  (i * 7) % 5,
		}
	}
	return images
}

func TestLayoutProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every image maps to exactly one tile", prop.ForAll(
		func(dims []int, width int, columns int) bool {
			cfg := DefaultConfig()
			cfg.Columns = columns
			images := imagesFromDims(dims)
			l := Calculate(images, float64(width), cfg)

			seen := make(map[string]int, len(l.Tiles))
			for _, row := range l.Rows {
				for _, tile := range row.Tiles {
					seen[tile.ID]++
				}
			}
			if len(seen) != len(images) || len(l.Tiles) != len(images) {
				return false
			}
			for _, n := range seen {
				if n != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5000)),
		gen.IntRange(1, 3000),
		gen.IntRange(1, 8),
	))

	properties.Property("row heights stay within bounds", prop.ForAll(
		func(dims []int, width int, target int) bool {
			cfg := DefaultConfig()
			cfg.TargetRowHeight = float64(target)
			cfg.MaxRowHeight = float64(target) * 1.4
			l := Calculate(imagesFromDims(dims), float64(width), cfg)

			for _, row := range l.Rows {
				if row.Height < cfg.MinRowHeight()-1e-9 || row.Height > cfg.MaxRowHeight+1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5000)),
		gen.IntRange(1, 3000),
		gen.IntRange(50, 600),
	))

	properties.Property("complete rows span the container", prop.ForAll(
		func(dims []int, width int, gap int) bool {
			cfg := DefaultConfig()
			cfg.Gap = float64(gap)
			l := Calculate(imagesFromDims(dims), float64(width), cfg)

			for i, row := range l.Rows {
				if i == len(l.Rows)-1 {
					break
				}
				sum := cfg.Gap * float64(len(row.Tiles)-1)
				for _, tile := range row.Tiles {
					sum += tile.Width
				}
				if math.Abs(sum-float64(width)) > 1e-6*float64(width) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5000)),
		gen.IntRange(1, 3000),
		gen.IntRange(0, 24),
	))

	properties.Property("layouts are deterministic", prop.ForAll(
		func(dims []int, width int) bool {
			images := imagesFromDims(dims)
			a := Calculate(images, float64(width), DefaultConfig())
			b := Calculate(images, float64(width), DefaultConfig())
			if len(a.Tiles) != len(b.Tiles) || a.TotalHeight != b.TotalHeight {
				return false
			}
			for i := range a.Tiles {
				if a.Tiles[i].ID != b.Tiles[i].ID || a.Tiles[i].Width != b.Tiles[i].Width || a.Tiles[i].Y != b.Tiles[i].Y {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5000)),
		gen.IntRange(1, 3000),
	))

	properties.TestingRun(t)
}
