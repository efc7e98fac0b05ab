// Package layout packs gallery images into justified rows.
//
// # Overview
//
// [Calculate] takes images, a container width and a [Config] and returns a
// [Layout]: rows of positioned tiles ready for a rendering layer. It is a pure
// function. Identical inputs produce identical geometry, so layouts can be
// cached by content hash and compared in snapshot tests.
//
// # Row Packing
//
// Images are sorted by their Order field and accumulated into a pending row.
// After each addition the row is closed when either
//
//   - it holds [Config.Columns] images, or
//   - its ideal width (sum of aspect ratios × TargetRowHeight) reaches
//     [Config.RowFillRatio] of the width available to the row
//     (container width minus the gaps between its tiles).
//
// RowFillRatio trades packing density against distortion. Lower values close
// rows earlier: rows get taller and tiles are cropped more. Higher values add
// more images per row, producing shorter rows and more whitespace when the
// height clamp kicks in.
//
// # Row Height
//
// A closed row gets the height that makes its tiles exactly fill the
// available width, clamped into [TargetRowHeight×MinRowHeightRatio,
// MaxRowHeight]. Clamping keeps a single panorama or a run of portraits from
// producing a degenerate row. When the clamp changes the height, the tile
// widths are rescaled to fill the row again; the trailing partial row is left
// at its natural width.
//
// # Usage
//
//	l := layout.Calculate(images, 1200, layout.DefaultConfig())
//	for _, row := range l.Rows {
//	    for _, t := range row.Tiles {
//	        fmt.Println(t.ID, t.X, t.Y, t.Width, t.Height)
//	    }
//	}
//
// Use [ResponsiveConfig] (or a configured [Breakpoints]) to derive columns,
// gap and row height from the viewport width:
//
//	cfg := layout.ResponsiveConfig(screenWidth).Apply(layout.DefaultConfig())
//
// Missing image dimensions default the aspect ratio to 1 (square).
package layout
