package capability

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Rect is an axis-aligned box in container coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

// Boxed is implemented by targets that know their own geometry, such as
// layout tiles.
type Boxed interface {
	Box() (x, y, width, height float64)
}

func rectOf(target any) (Rect, error) {
	switch t := target.(type) {
	case Rect:
		return t, nil
	case *Rect:
		return *t, nil
	case Boxed:
		x, y, w, h := t.Box()
		return Rect{X: x, Y: y, Width: w, Height: h}, nil
	default:
		return Rect{}, fmt.Errorf("viewport: unsupported target type %T", target)
	}
}

// Viewport is a headless IntersectionObserver over a vertically scrolling
// root of fixed size. Entries are delivered from ScrollTo and Flush, never
// from inside Observe, so callers may observe while holding their own locks.
type Viewport struct {
	mu       sync.Mutex
	width    float64
	height   float64
	scrollY  float64
	opts     IntersectionOptions
	callback func([]Entry)
	targets  map[string]Rect
	inside   map[string]bool
}

// NewViewport creates a viewport of the given size scrolled to the top.
func NewViewport(width, height float64) *Viewport {
	return &Viewport{
		width:   width,
		height:  height,
		targets: make(map[string]Rect),
		inside:  make(map[string]bool),
	}
}

// Factory binds the viewport to callback. It implements IntersectionFactory.
func (v *Viewport) Factory(opts IntersectionOptions, callback func([]Entry)) (IntersectionObserver, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts = opts
	v.callback = callback
	return v, nil
}

// Observe implements IntersectionObserver. target must be a Rect or Boxed.
func (v *Viewport) Observe(id string, target any) error {
	r, err := rectOf(target)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.targets[id] = r
	delete(v.inside, id)
	return nil
}

// Unobserve implements IntersectionObserver.
func (v *Viewport) Unobserve(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.targets, id)
	delete(v.inside, id)
}

// Disconnect implements IntersectionObserver.
func (v *Viewport) Disconnect() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.targets)
	clear(v.inside)
}

// ScrollY returns the current scroll offset.
func (v *Viewport) ScrollY() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollY
}

// ScrollTo moves the viewport and delivers entries for every target whose
// intersection state changed.
func (v *Viewport) ScrollTo(y float64) {
	v.mu.Lock()
	v.scrollY = math.Max(0, y)
	v.mu.Unlock()
	v.Flush()
}

// Flush delivers entries for targets whose state changed since the last
// delivery, including newly observed targets.
func (v *Viewport) Flush() {
	v.mu.Lock()
	root := v.root()
	ids := make([]string, 0, len(v.targets))
	for id := range v.targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var entries []Entry
	for _, id := range ids {
		ratio := intersectionRatio(root, v.targets[id])
		hit := ratio > 0 && ratio >= v.opts.Threshold
		if prev, seen := v.inside[id]; seen && prev == hit {
			continue
		}
		v.inside[id] = hit
		entries = append(entries, Entry{ID: id, Intersecting: hit, Ratio: ratio})
	}
	cb := v.callback
	v.mu.Unlock()

	if len(entries) > 0 && cb != nil {
		cb(entries)
	}
}

// root returns the margin-adjusted root box. Percent margins resolve against
// the root's width (left/right) and height (top/bottom).
func (v *Viewport) root() Rect {
	m := v.opts.RootMargin
	top := m.Top.Resolve(v.height)
	bottom := m.Bottom.Resolve(v.height)
	left := m.Left.Resolve(v.width)
	right := m.Right.Resolve(v.width)
	return Rect{
		X:      -left,
		Y:      v.scrollY - top,
		Width:  v.width + left + right,
		Height: v.height + top + bottom,
	}
}

// intersectionRatio returns the fraction of target inside root. Zero-area
// targets count as fully visible when their origin lies inside root.
func intersectionRatio(root, target Rect) float64 {
	x0 := math.Max(root.X, target.X)
	y0 := math.Max(root.Y, target.Y)
	x1 := math.Min(root.X+root.Width, target.X+target.Width)
	y1 := math.Min(root.Y+root.Height, target.Y+target.Height)

	area := target.Width * target.Height
	if area <= 0 {
		if target.X >= root.X && target.X <= root.X+root.Width &&
			target.Y >= root.Y && target.Y <= root.Y+root.Height {
			return 1
		}
		return 0
	}
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	return (x1 - x0) * (y1 - y0) / area
}
