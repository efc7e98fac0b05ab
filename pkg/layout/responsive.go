package layout

import (
	"sort"

	"github.com/matzehuels/tiledgallery/pkg/errors"
)

// Breakpoint maps screens narrower than MaxWidth to layout defaults.
// A MaxWidth of 0 marks the catch-all breakpoint.
type Breakpoint struct {
	Name            string  `json:"name" toml:"name"`
	MaxWidth        float64 `json:"max_width" toml:"max_width"`
	Columns         int     `json:"columns" toml:"columns"`
	TargetRowHeight float64 `json:"target_row_height" toml:"target_row_height"`

	// Gap is optional so that an explicit 0 removes the gutter.
	Gap *float64 `json:"gap,omitempty" toml:"gap"`
}

// Breakpoints is an ordered set of screen-width breakpoints.
type Breakpoints []Breakpoint

// DefaultBreakpoints returns the compact/medium/wide defaults.
func DefaultBreakpoints() Breakpoints {
	return Breakpoints{
		{Name: "compact", MaxWidth: 768, Columns: 3, Gap: Px(4), TargetRowHeight: 200},
		{Name: "medium", MaxWidth: 1024, Columns: 4, Gap: Px(6), TargetRowHeight: 250},
		{Name: "wide", Columns: DefaultColumns, Gap: Px(DefaultGap), TargetRowHeight: DefaultTargetRowHeight},
	}
}

// Partial is the subset of [Config] that depends on the screen width.
// Zero fields and a nil Gap are left untouched by [Partial.Apply]; a Gap
// pointing at 0 is applied.
type Partial struct {
	Breakpoint      string   `json:"breakpoint"`
	Columns         int      `json:"columns"`
	Gap             *float64 `json:"gap,omitempty"`
	TargetRowHeight float64  `json:"target_row_height"`
}

// Px returns a pointer to v, for the optional pixel fields of [Partial]
// and [Breakpoint].
func Px(v float64) *float64 { return &v }

// ResponsiveConfig resolves screenWidth against [DefaultBreakpoints].
func ResponsiveConfig(screenWidth float64) Partial {
	return DefaultBreakpoints().Resolve(screenWidth)
}

// Resolve returns the values of the narrowest breakpoint whose MaxWidth
// exceeds screenWidth, falling back to the catch-all breakpoint. An empty
// set resolves to the zero Partial.
func (bs Breakpoints) Resolve(screenWidth float64) Partial {
	sorted := make(Breakpoints, len(bs))
	copy(sorted, bs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].MaxWidth, sorted[j].MaxWidth
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})

	for _, bp := range sorted {
		if bp.MaxWidth == 0 || screenWidth < bp.MaxWidth {
			return bp.partial()
		}
	}
	if len(sorted) > 0 {
		return sorted[len(sorted)-1].partial()
	}
	return Partial{}
}

func (bp Breakpoint) partial() Partial {
	return Partial{
		Breakpoint:      bp.Name,
		Columns:         bp.Columns,
		Gap:             bp.Gap,
		TargetRowHeight: bp.TargetRowHeight,
	}
}

// Validate checks that breakpoints are usable.
func (bs Breakpoints) Validate() error {
	catchAll := 0
	seen := make(map[float64]string, len(bs))
	for _, bp := range bs {
		if bp.Name == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "breakpoint name cannot be empty")
		}
		if bp.MaxWidth < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "breakpoint %q has negative max_width", bp.Name)
		}
		if bp.Columns < 0 || (bp.Gap != nil && *bp.Gap < 0) || bp.TargetRowHeight < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "breakpoint %q has negative values", bp.Name)
		}
		if bp.MaxWidth == 0 {
			catchAll++
		}
		if other, dup := seen[bp.MaxWidth]; dup {
			return errors.New(errors.ErrCodeInvalidConfig, "breakpoints %q and %q share max_width %v", other, bp.Name, bp.MaxWidth)
		}
		seen[bp.MaxWidth] = bp.Name
	}
	if catchAll > 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "at most one breakpoint may omit max_width")
	}
	return nil
}

// Apply overlays the set fields of p onto c.
func (p Partial) Apply(c Config) Config {
	if p.Columns > 0 {
		c.Columns = p.Columns
	}
	if p.Gap != nil && *p.Gap >= 0 {
		c.Gap = *p.Gap
	}
	if p.TargetRowHeight > 0 {
		c.TargetRowHeight = p.TargetRowHeight
	}
	return c
}
