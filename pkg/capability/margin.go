package capability

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultRootMargin matches the loader's default rootMargin option.
const DefaultRootMargin = "100px 0px"

// Length is a CSS length restricted to px and %.
type Length struct {
	Value   float64
	Percent bool
}

// Resolve converts the length to pixels against a reference size.
func (l Length) Resolve(ref float64) float64 {
	if l.Percent {
		return l.Value / 100 * ref
	}
	return l.Value
}

// Margin grows (or, when negative, shrinks) the root box before
// intersection is computed.
type Margin struct {
	Top, Right, Bottom, Left Length
}

// ParseRootMargin parses the CSS margin shorthand: one to four lengths in px
// or %, e.g. "100px 0px" or "10% 0px -50px". A bare "0" is allowed.
func ParseRootMargin(s string) (Margin, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 4 {
		return Margin{}, fmt.Errorf("root margin %q: want 1 to 4 lengths", s)
	}

	lengths := make([]Length, len(fields))
	for i, f := range fields {
		l, err := parseLength(f)
		if err != nil {
			return Margin{}, fmt.Errorf("root margin %q: %w", s, err)
		}
		lengths[i] = l
	}

	switch len(lengths) {
	case 1:
		return Margin{lengths[0], lengths[0], lengths[0], lengths[0]}, nil
	case 2:
		return Margin{lengths[0], lengths[1], lengths[0], lengths[1]}, nil
	case 3:
		return Margin{lengths[0], lengths[1], lengths[2], lengths[1]}, nil
	default:
		return Margin{lengths[0], lengths[1], lengths[2], lengths[3]}, nil
	}
}

// MustParseRootMargin is like ParseRootMargin but panics on error.
func MustParseRootMargin(s string) Margin {
	m, err := ParseRootMargin(s)
	if err != nil {
		panic(err)
	}
	return m
}

func parseLength(s string) (Length, error) {
	var (
		num     string
		percent bool
	)
	switch {
	case strings.HasSuffix(s, "px"):
		num = strings.TrimSuffix(s, "px")
	case strings.HasSuffix(s, "%"):
		num, percent = strings.TrimSuffix(s, "%"), true
	case s == "0":
		return Length{}, nil
	default:
		return Length{}, fmt.Errorf("length %q must use px or %%", s)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("length %q: %w", s, err)
	}
	return Length{Value: v, Percent: percent}, nil
}
