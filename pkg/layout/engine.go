package layout

import (
	"math"
	"sort"
	"time"

	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

const eps = 1e-9

const (
	animationStepMs     = 50
	maxAnimationDelayMs = 1000
)

// entry is an image together with its position in the caller's slice.
type entry struct {
	img   gallery.Image
	index int
	ar    float64
}

// Calculate packs images into justified rows for a container of the given
// width. An empty image list, a non-positive width or an invalid config
// yields an empty layout.
func Calculate(images []gallery.Image, containerWidth float64, cfg Config) Layout {
	start := time.Now()

	if len(images) == 0 || !(containerWidth > 0) || math.IsInf(containerWidth, 0) || cfg.Validate() != nil {
		return emptyLayout(containerWidth, cfg)
	}

	b := &rowBuilder{cfg: cfg, width: containerWidth}
	for _, e := range sortByOrder(images) {
		// Another gap would leave nothing for the tiles themselves.
		if len(b.pending) > 0 && b.available(len(b.pending)+1) <= eps {
			b.finalize(true)
		}
		b.pending = append(b.pending, e)
		if b.shouldFinalize() {
			b.finalize(true)
		}
	}
	if len(b.pending) > 0 {
		b.finalize(false)
	}

	l := Layout{
		Rows:           b.rows,
		Tiles:          b.tiles,
		ContainerWidth: containerWidth,
		Config:         cfg,
	}
	if len(b.rows) > 0 {
		l.TotalHeight = b.y - cfg.Gap
	}

	var arSum float64
	for _, t := range l.Tiles {
		arSum += t.Image.AspectRatio()
	}
	l.Metadata = Metadata{
		ImageCount:         len(l.Tiles),
		AverageAspectRatio: arSum / float64(len(l.Tiles)),
		RowCount:           len(l.Rows),
		ComputeTime:        time.Since(start),
	}
	return l
}

func emptyLayout(containerWidth float64, cfg Config) Layout {
	return Layout{
		Rows:           []Row{},
		Tiles:          []Tile{},
		ContainerWidth: containerWidth,
		Config:         cfg,
	}
}

// sortByOrder returns images sorted by Order, ties broken by input position.
func sortByOrder(images []gallery.Image) []entry {
	entries := make([]entry, len(images))
	for i, img := range images {
		entries[i] = entry{img: img, index: i, ar: img.AspectRatio()}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].img.Order < entries[j].img.Order
	})
	return entries
}

type rowBuilder struct {
	cfg     Config
	width   float64
	pending []entry
	rows    []Row
	tiles   []Tile
	y       float64
}

// available returns the width left for n tiles once gaps are removed.
func (b *rowBuilder) available(n int) float64 {
	return b.width - b.cfg.Gap*float64(n-1)
}

func (b *rowBuilder) aspectSum() float64 {
	var sum float64
	for _, e := range b.pending {
		sum += e.ar
	}
	return sum
}

func (b *rowBuilder) shouldFinalize() bool {
	n := len(b.pending)
	if n >= b.cfg.Columns {
		return true
	}
	avail := b.available(n)
	if avail <= eps {
		return true
	}
	ideal := b.aspectSum() * b.cfg.TargetRowHeight
	return ideal >= b.cfg.RowFillRatio*avail
}

// finalize closes the pending row. Complete rows are rescaled so their tiles
// and gaps span exactly the available width.
func (b *rowBuilder) finalize(complete bool) {
	n := len(b.pending)
	avail := b.available(n)
	sum := b.aspectSum()
	height := clamp(avail/sum, b.cfg.MinRowHeight(), b.cfg.MaxRowHeight)

	widths := make([]float64, n)
	var total float64
	for i, e := range b.pending {
		widths[i] = e.ar * height
		total += widths[i]
	}
	stretched := complete && total > eps && math.Abs(total-avail) > eps
	if stretched {
		scale := avail / total
		total = 0
		for i := range widths {
			widths[i] *= scale
			total += widths[i]
		}
	}

	row := Row{
		Index:          len(b.rows),
		Tiles:          make([]Tile, 0, n),
		TargetHeight:   b.cfg.TargetRowHeight,
		Height:         height,
		AspectRatioSum: sum,
		TotalWidth:     total + b.cfg.Gap*float64(n-1),
		AvailableWidth: avail,
		Complete:       complete,
	}

	x := 0.0
	for i, e := range b.pending {
		t := Tile{
			ID:               e.img.ID,
			Image:            e.img,
			Row:              row.Index,
			Column:           i,
			X:                x,
			Y:                b.y,
			Width:            widths[i],
			Height:           height,
			AspectRatio:      e.ar,
			AnimationDelayMs: animationDelay(e.index),
			Style:            b.style(widths[i], height, avail, e.ar, stretched),
		}
		row.Tiles = append(row.Tiles, t)
		b.tiles = append(b.tiles, t)
		x += widths[i] + b.cfg.Gap
	}

	b.rows = append(b.rows, row)
	b.y += height + b.cfg.Gap
	b.pending = b.pending[:0]
}

// style describes a tile box. A stretched row no longer has its images'
// proportions, so its tiles report the cell ratio like unpreserved ones.
func (b *rowBuilder) style(width, height, avail, ar float64, stretched bool) Style {
	s := Style{
		WidthPercent: width / avail * 100,
		HeightPx:     height,
		AspectRatio:  ar,
	}
	if !b.cfg.PreserveAspectRatio || stretched {
		s.AspectRatio = width / height
	}
	return s
}

func animationDelay(index int) int64 {
	return int64(min(index*animationStepMs, maxAnimationDelayMs))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
