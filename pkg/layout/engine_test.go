package layout

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

const tolerance = 1e-6

func squares(n int) []gallery.Image {
	images := make([]gallery.Image, n)
	for i := range images {
		images[i] = gallery.Image{ID: fmt.Sprintf("img-%d", i), Width: 500, Height: 500, Order: i}
	}
	return images
}

// checkInvariants asserts coverage and the row width/height bounds.
func checkInvariants(t *testing.T, l Layout, images []gallery.Image, cfg Config) {
	t.Helper()

	if len(l.Tiles) != len(images) {
		t.Fatalf("len(Tiles) = %d, want %d", len(l.Tiles), len(images))
	}
	seen := make(map[string]int)
	for _, row := range l.Rows {
		for _, tile := range row.Tiles {
			seen[tile.ID]++
		}
	}
	for _, img := range images {
		if seen[img.ID] != 1 {
			t.Errorf("image %s appears %d times, want 1", img.ID, seen[img.ID])
		}
	}

	for i, row := range l.Rows {
		if row.Height < cfg.MinRowHeight()-tolerance || row.Height > cfg.MaxRowHeight+tolerance {
			t.Errorf("row %d height = %v, want within [%v, %v]", i, row.Height, cfg.MinRowHeight(), cfg.MaxRowHeight)
		}
		if i == len(l.Rows)-1 {
			continue
		}
		var sum float64
		for _, tile := range row.Tiles {
			sum += tile.Width
		}
		sum += cfg.Gap * float64(len(row.Tiles)-1)
		if math.Abs(sum-l.ContainerWidth) > tolerance*l.ContainerWidth {
			t.Errorf("row %d width = %v, want %v", i, sum, l.ContainerWidth)
		}
	}
}

func TestCalculateSingleRow(t *testing.T) {
	images := []gallery.Image{
		{ID: "a", Width: 800, Height: 600, Order: 0},
		{ID: "b", Width: 600, Height: 800, Order: 1},
		{ID: "c", Width: 1000, Height: 500, Order: 2},
	}
	cfg := DefaultConfig()

	l := Calculate(images, 1200, cfg)

	if len(l.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1", len(l.Rows))
	}
	row := l.Rows[0]
	if len(row.Tiles) != 3 {
		t.Fatalf("len(Rows[0].Tiles) = %d, want 3", len(row.Tiles))
	}
	if row.Height < 210 || row.Height > 400 {
		t.Errorf("row height = %v, want within [210, 400]", row.Height)
	}
	wantSum := 800.0/600.0 + 0.75 + 2.0
	if math.Abs(row.AspectRatioSum-wantSum) > tolerance {
		t.Errorf("AspectRatioSum = %v, want %v", row.AspectRatioSum, wantSum)
	}
	if math.Abs(row.TotalWidth-1200) > tolerance {
		t.Errorf("TotalWidth = %v, want 1200", row.TotalWidth)
	}
	if !row.Complete {
		t.Error("row closed by the fill rule should be complete")
	}
	checkInvariants(t, l, images, cfg)
}

func TestCalculateEmpty(t *testing.T) {
	tests := []struct {
		name   string
		images []gallery.Image
		width  float64
		cfg    Config
	}{
		{"no images", nil, 1200, DefaultConfig()},
		{"zero width", squares(3), 0, DefaultConfig()},
		{"negative width", squares(3), -100, DefaultConfig()},
		{"NaN width", squares(3), math.NaN(), DefaultConfig()},
		{"invalid config", squares(3), 1200, Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Calculate(tt.images, tt.width, tt.cfg)
			if len(l.Rows) != 0 || len(l.Tiles) != 0 || l.TotalHeight != 0 {
				t.Errorf("Calculate() = %d rows, %d tiles, height %v; want empty", len(l.Rows), len(l.Tiles), l.TotalHeight)
			}
			if l.Rows == nil || l.Tiles == nil {
				t.Error("empty layout should carry non-nil slices")
			}
		})
	}
}

func TestCalculateDeterministic(t *testing.T) {
	images := []gallery.Image{
		{ID: "a", Width: 1920, Height: 1080, Order: 3},
		{ID: "b", Width: 1080, Height: 1920, Order: 1},
		{ID: "c", Order: 2},
		{ID: "d", Width: 4000, Height: 1000, Order: 0},
		{ID: "e", Width: 640, Height: 480, Order: 1},
		{ID: "f", Width: 300, Height: 900, Order: 5},
	}

	first := Calculate(images, 1024, DefaultConfig())
	second := Calculate(images, 1024, DefaultConfig())

	opts := cmpopts.IgnoreFields(Metadata{}, "ComputeTime")
	if diff := cmp.Diff(first, second, opts); diff != "" {
		t.Errorf("Calculate() not deterministic (-first +second):\n%s", diff)
	}
}

func TestCalculateSortsByOrder(t *testing.T) {
	images := []gallery.Image{
		{ID: "third", Order: 2},
		{ID: "first", Order: 0},
		{ID: "second-a", Order: 1},
		{ID: "second-b", Order: 1},
	}

	l := Calculate(images, 4000, DefaultConfig())

	want := []string{"first", "second-a", "second-b", "third"}
	if diff := cmp.Diff(want, l.TileIDs()); diff != "" {
		t.Errorf("TileIDs() mismatch (-want +got):\n%s", diff)
	}
	// Delay follows the caller's slice position, not the sorted position.
	if l.Tiles[0].AnimationDelayMs != 50 {
		t.Errorf("Tiles[0].AnimationDelayMs = %d, want 50", l.Tiles[0].AnimationDelayMs)
	}
}

func TestCalculateColumnsCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Columns = 2
	images := squares(6)

	l := Calculate(images, 1200, cfg)

	if len(l.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(l.Rows))
	}
	for i, row := range l.Rows {
		if len(row.Tiles) != 2 {
			t.Errorf("row %d has %d tiles, want 2", i, len(row.Tiles))
		}
		// 1192/2 = 596 is clamped to 400; tiles are widened to fill the row.
		if row.Height != cfg.MaxRowHeight {
			t.Errorf("row %d height = %v, want %v", i, row.Height, cfg.MaxRowHeight)
		}
		if math.Abs(row.Tiles[0].Width-596) > tolerance {
			t.Errorf("row %d tile width = %v, want 596", i, row.Tiles[0].Width)
		}
	}
	checkInvariants(t, l, images, cfg)
}

func TestCalculateTrailingRow(t *testing.T) {
	cfg := DefaultConfig()
	images := squares(5)

	l := Calculate(images, 1200, cfg)

	if len(l.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(l.Rows))
	}
	if got := len(l.Rows[0].Tiles); got != 4 {
		t.Errorf("first row has %d tiles, want 4", got)
	}
	last := l.Rows[1]
	if last.Complete {
		t.Error("trailing row should not be complete")
	}
	if last.Height != cfg.MaxRowHeight {
		t.Errorf("trailing row height = %v, want %v", last.Height, cfg.MaxRowHeight)
	}
	if last.Tiles[0].Width != cfg.MaxRowHeight {
		t.Errorf("trailing tile width = %v, want natural width %v", last.Tiles[0].Width, cfg.MaxRowHeight)
	}
	checkInvariants(t, l, images, cfg)
}

func TestCalculatePanoramaClamped(t *testing.T) {
	cfg := DefaultConfig()
	images := []gallery.Image{
		{ID: "pano", Width: 10000, Height: 1000, Order: 0},
		{ID: "b", Width: 500, Height: 500, Order: 1},
	}

	l := Calculate(images, 1200, cfg)

	first := l.Rows[0]
	if len(first.Tiles) != 1 {
		t.Fatalf("panorama should close its own row, got %d tiles", len(first.Tiles))
	}
	if first.Height != cfg.MinRowHeight() {
		t.Errorf("panorama row height = %v, want %v", first.Height, cfg.MinRowHeight())
	}
	if math.Abs(first.Tiles[0].Width-1200) > tolerance {
		t.Errorf("panorama width = %v, want 1200", first.Tiles[0].Width)
	}
	checkInvariants(t, l, images, cfg)
}

func TestCalculateGapExhaustion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetRowHeight = 1
	images := squares(4)

	l := Calculate(images, 20, cfg)

	if got := len(l.Rows[0].Tiles); got != 3 {
		t.Fatalf("first row has %d tiles, want 3", got)
	}
	for _, row := range l.Rows {
		if row.AvailableWidth <= 0 {
			t.Errorf("row %d available width = %v, want positive", row.Index, row.AvailableWidth)
		}
	}
	checkInvariants(t, l, images, cfg)
}

func TestCalculateMissingDimensions(t *testing.T) {
	images := []gallery.Image{{ID: "a"}, {ID: "b", Width: 100}}

	l := Calculate(images, 1200, DefaultConfig())

	for _, tile := range l.Tiles {
		if tile.AspectRatio != 1 {
			t.Errorf("tile %s AspectRatio = %v, want 1", tile.ID, tile.AspectRatio)
		}
	}
}

func TestCalculatePositions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Columns = 2
	l := Calculate(squares(4), 1200, cfg)

	second := l.Rows[0].Tiles[1]
	if math.Abs(second.X-(l.Rows[0].Tiles[0].Width+cfg.Gap)) > tolerance {
		t.Errorf("second tile X = %v, want first width + gap", second.X)
	}
	next := l.Rows[1].Tiles[0]
	if want := l.Rows[0].Height + cfg.Gap; next.Y != want {
		t.Errorf("row 1 Y = %v, want %v", next.Y, want)
	}
	if want := l.Rows[0].Height + cfg.Gap + l.Rows[1].Height; l.TotalHeight != want {
		t.Errorf("TotalHeight = %v, want %v", l.TotalHeight, want)
	}
}

func TestCalculateStyle(t *testing.T) {
	images := []gallery.Image{
		{ID: "a", Width: 800, Height: 600},
		{ID: "b", Width: 600, Height: 800, Order: 1},
		{ID: "c", Width: 1000, Height: 500, Order: 2},
	}

	t.Run("percentages span the row", func(t *testing.T) {
		l := Calculate(images, 1200, DefaultConfig())
		var pct float64
		for _, tile := range l.Rows[0].Tiles {
			pct += tile.Style.WidthPercent
			if tile.Style.HeightPx != l.Rows[0].Height {
				t.Errorf("tile %s HeightPx = %v, want %v", tile.ID, tile.Style.HeightPx, l.Rows[0].Height)
			}
		}
		if math.Abs(pct-100) > tolerance {
			t.Errorf("sum of WidthPercent = %v, want 100", pct)
		}
	})

	t.Run("image aspect ratio when preserving", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PreserveAspectRatio = true
		l := Calculate(images, 1200, cfg)
		for _, tile := range l.Rows[0].Tiles {
			if math.Abs(tile.Style.AspectRatio-tile.AspectRatio) > tolerance {
				t.Errorf("tile %s Style.AspectRatio = %v, want image ratio %v", tile.ID, tile.Style.AspectRatio, tile.AspectRatio)
			}
		}
	})

	t.Run("stretched row reports its cell ratio", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PreserveAspectRatio = true
		pano := []gallery.Image{
			{ID: "pano", Width: 10000, Height: 1000},
			{ID: "b", Width: 500, Height: 500, Order: 1},
		}
		l := Calculate(pano, 1200, cfg)
		row := l.Rows[0]
		tile := row.Tiles[0]
		box := tile.Style.WidthPercent / 100 * row.AvailableWidth / tile.Style.HeightPx
		if math.Abs(tile.Style.AspectRatio-box) > tolerance {
			t.Errorf("Style.AspectRatio = %v, want the box ratio %v", tile.Style.AspectRatio, box)
		}
		if math.Abs(tile.Style.AspectRatio-tile.AspectRatio) < tolerance {
			t.Errorf("Style.AspectRatio = %v, should differ from the stretched image ratio", tile.Style.AspectRatio)
		}
	})

	t.Run("cell aspect ratio when not preserving", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PreserveAspectRatio = false
		cfg.Columns = 1
		l := Calculate(images[:1], 1200, cfg)
		tile := l.Tiles[0]
		if want := tile.Width / tile.Height; tile.Style.AspectRatio != want {
			t.Errorf("Style.AspectRatio = %v, want %v", tile.Style.AspectRatio, want)
		}
	})
}

func TestCalculateMetadata(t *testing.T) {
	l := Calculate(squares(5), 1200, DefaultConfig())

	if l.Metadata.ImageCount != 5 {
		t.Errorf("ImageCount = %d, want 5", l.Metadata.ImageCount)
	}
	if l.Metadata.RowCount != len(l.Rows) {
		t.Errorf("RowCount = %d, want %d", l.Metadata.RowCount, len(l.Rows))
	}
	if l.Metadata.AverageAspectRatio != 1 {
		t.Errorf("AverageAspectRatio = %v, want 1", l.Metadata.AverageAspectRatio)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero target", func(c *Config) { c.TargetRowHeight = 0 }, true},
		{"negative gap", func(c *Config) { c.Gap = -1 }, true},
		{"zero columns", func(c *Config) { c.Columns = 0 }, true},
		{"fill ratio above one", func(c *Config) { c.RowFillRatio = 1.5 }, true},
		{"max below min", func(c *Config) { c.MaxRowHeight = 100 }, true},
		{"infinite max", func(c *Config) { c.MaxRowHeight = math.Inf(1) }, true},
		{"zero gap", func(c *Config) { c.Gap = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
			}
		})
	}
}
