package layout

import (
	"math"

	"github.com/matzehuels/tiledgallery/pkg/errors"
)

// Default configuration values.
const (
	DefaultTargetRowHeight   = 300.0
	DefaultMaxRowHeight      = 400.0
	DefaultGap               = 8.0
	DefaultColumns           = 5
	DefaultRowFillRatio      = 0.8
	DefaultMinRowHeightRatio = 0.7
)

// Config controls row packing.
type Config struct {
	TargetRowHeight     float64 `json:"target_row_height" toml:"target_row_height"`
	MaxRowHeight        float64 `json:"max_row_height" toml:"max_row_height"`
	Gap                 float64 `json:"gap" toml:"gap"`
	Columns             int     `json:"columns" toml:"columns"` // max tiles per row
	PreserveAspectRatio bool    `json:"preserve_aspect_ratio" toml:"preserve_aspect_ratio"`

	// RowFillRatio is the fraction of a row's available width its ideal
	// width must reach before the row is closed.
	RowFillRatio float64 `json:"row_fill_ratio" toml:"row_fill_ratio"`

	// MinRowHeightRatio bounds row height from below as a fraction of
	// TargetRowHeight.
	MinRowHeightRatio float64 `json:"min_row_height_ratio" toml:"min_row_height_ratio"`
}

// DefaultConfig returns the wide-screen defaults.
func DefaultConfig() Config {
	return Config{
		TargetRowHeight:     DefaultTargetRowHeight,
		MaxRowHeight:        DefaultMaxRowHeight,
		Gap:                 DefaultGap,
		Columns:             DefaultColumns,
		PreserveAspectRatio: true,
		RowFillRatio:        DefaultRowFillRatio,
		MinRowHeightRatio:   DefaultMinRowHeightRatio,
	}
}

// MinRowHeight returns the lower bound for row heights.
func (c Config) MinRowHeight() float64 {
	return c.TargetRowHeight * c.MinRowHeightRatio
}

// Validate reports malformed configurations with an INVALID_CONFIG error.
// [Calculate] returns an empty layout for any config that fails here.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"target_row_height", c.TargetRowHeight},
		{"max_row_height", c.MaxRowHeight},
		{"gap", c.Gap},
		{"row_fill_ratio", c.RowFillRatio},
		{"min_row_height_ratio", c.MinRowHeightRatio},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must be finite", f.name)
		}
	}

	switch {
	case c.TargetRowHeight <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "target_row_height must be positive, got %v", c.TargetRowHeight)
	case c.Gap < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "gap cannot be negative, got %v", c.Gap)
	case c.Columns < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "columns must be at least 1, got %d", c.Columns)
	case c.RowFillRatio <= 0 || c.RowFillRatio > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "row_fill_ratio must be in (0, 1], got %v", c.RowFillRatio)
	case c.MinRowHeightRatio <= 0 || c.MinRowHeightRatio > 1:
		return errors.New(errors.ErrCodeInvalidConfig, "min_row_height_ratio must be in (0, 1], got %v", c.MinRowHeightRatio)
	case c.MaxRowHeight < c.MinRowHeight():
		return errors.New(errors.ErrCodeInvalidConfig,
			"max_row_height %v is below the minimum row height %v", c.MaxRowHeight, c.MinRowHeight())
	}
	return nil
}
