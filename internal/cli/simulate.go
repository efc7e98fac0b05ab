package cli

import (
	"context"
	"fmt"
	"maps"
	"math/rand"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/loader"
	"github.com/matzehuels/tiledgallery/pkg/metrics"
	"github.com/matzehuels/tiledgallery/pkg/pipeline"
	"github.com/matzehuels/tiledgallery/pkg/store"
)

// simOptions drive a headless scroll through a gallery. All times are
// virtual; a simulation runs as fast as the loader allows.
type simOptions struct {
	width          float64
	viewportHeight float64
	scrollStep     float64       // pixels per tick
	tick           time.Duration // virtual time per step
	latency        time.Duration // mean load time
	jitter         time.Duration // uniform spread around latency
	failRate       float64
	seed           int64
	maxTicks       int
}

func defaultSimOptions() simOptions {
	return simOptions{
		width:          1200,
		viewportHeight: 800,
		scrollStep:     120,
		tick:           100 * time.Millisecond,
		latency:        400 * time.Millisecond,
		jitter:         300 * time.Millisecond,
		seed:           1,
		maxTicks:       100000,
	}
}

// simReport summarizes a simulation.
type simReport struct {
	Layout      layout.Layout
	Metrics     metrics.Snapshot
	Status      loader.Status
	Ticks       int
	Elapsed     time.Duration
	PeakLoading int
	PeakMemory  uint64
	Reclaims    int
	Evicted     int
}

// decodedBytes is the memory a loaded tile occupies at display size.
func decodedBytes(t layout.Tile) uint64 {
	return uint64(t.Width) * uint64(t.Height) * 4
}

type inflight struct {
	doneAt time.Time
	fail   bool
}

// simulation is a stepped scroll through a layout. The batch simulate
// command drives it with a fixed scroll speed; the interactive view
// scrolls it from key presses. Not safe for concurrent use.
type simulation struct {
	so     simOptions
	lay    layout.Layout
	loader *loader.Loader
	vp     *capability.Viewport
	mem    *capability.StaticSampler
	rng    *rand.Rand

	start, clock time.Time
	tiles        map[string]layout.Tile
	pending      map[string]inflight
	resident     map[string]uint64
	evicted      map[string]bool
	used         uint64

	y, maxScroll float64
	rep          simReport
}

// newSimulation lays out images and observes every tile at scroll 0.
func newSimulation(images []gallery.Image, cfg layout.Config, opts loader.Options, so simOptions, logger *log.Logger) (*simulation, error) {
	lay := layout.Calculate(images, so.width, cfg)
	start := time.Unix(0, 0)
	s := &simulation{
		so:        so,
		lay:       lay,
		vp:        capability.NewViewport(so.width, so.viewportHeight),
		mem:       capability.NewStaticSampler(0),
		rng:       rand.New(rand.NewSource(so.seed)),
		start:     start,
		clock:     start,
		tiles:     make(map[string]layout.Tile, len(lay.Tiles)),
		pending:   make(map[string]inflight),
		resident:  make(map[string]uint64),
		evicted:   make(map[string]bool),
		maxScroll: max(0, lay.TotalHeight-so.viewportHeight),
		rep:       simReport{Layout: lay},
	}

	l, err := loader.New(opts, loader.Capabilities{Intersection: s.vp.Factory, Memory: s.mem},
		loader.WithLogger(logger), loader.WithClock(func() time.Time { return s.clock }))
	if err != nil {
		return nil, err
	}
	s.loader = l

	for _, t := range lay.Tiles {
		s.tiles[t.ID] = t
	}
	l.SetTiles(lay.Tiles)
	for _, t := range lay.Tiles {
		l.Observe(t.ID, t)
	}
	s.vp.Flush()
	return s, nil
}

// settle runs the renderer and the governor for the current instant:
// due loads finish, newly admitted tiles start fetching, and memory is
// checked.
func (s *simulation) settle() {
	for _, id := range slices.Sorted(maps.Keys(s.pending)) {
		f := s.pending[id]
		if s.clock.Before(f.doneAt) {
			continue
		}
		delete(s.pending, id)
		if f.fail {
			s.loader.HandleError(id)
			continue
		}
		s.loader.HandleLoad(id)
		b := decodedBytes(s.tiles[id])
		s.resident[id] = b
		s.used += b
	}

	loading := s.loader.Loading()
	for _, id := range loading {
		if _, ok := s.pending[id]; ok {
			continue
		}
		d := s.so.latency
		if s.so.jitter > 0 {
			d += time.Duration(s.rng.Int63n(int64(2*s.so.jitter))) - s.so.jitter
		}
		s.pending[id] = inflight{doneAt: s.clock.Add(max(d, s.so.tick)), fail: s.rng.Float64() < s.so.failRate}
	}
	s.rep.PeakLoading = max(s.rep.PeakLoading, len(loading))

	s.mem.Set(s.used)
	s.rep.PeakMemory = max(s.rep.PeakMemory, s.used)
	if res, ok := s.loader.CheckMemory(); ok {
		s.rep.Reclaims++
		s.rep.Evicted += len(res.Evicted)
		for _, id := range res.Evicted {
			s.evicted[id] = true
			s.used -= s.resident[id]
			delete(s.resident, id)
		}
	}
}

// idle reports whether no load is in flight or admitted.
func (s *simulation) idle() bool {
	return len(s.pending) == 0 && len(s.loader.Loading()) == 0
}

// atBottom reports whether the viewport reached the end of the gallery.
func (s *simulation) atBottom() bool { return s.y >= s.maxScroll }

// scrollTo moves the viewport, clamped to the gallery. Evicted tiles
// within two screens are observed again, and the loader preloads past
// the last tile starting inside the viewport.
func (s *simulation) scrollTo(y float64) {
	s.y = min(max(y, 0), s.maxScroll)
	for _, id := range slices.Sorted(maps.Keys(s.evicted)) {
		if t := s.tiles[id]; t.Y < s.y+2*s.so.viewportHeight {
			delete(s.evicted, id)
			s.loader.Observe(id, t)
		}
	}
	s.vp.ScrollTo(s.y)

	if current := s.current(); current >= 0 {
		s.loader.PreloadNext(current, len(s.lay.Tiles))
	}
}

// current returns the index of the last tile starting above the bottom
// edge of the viewport, or -1.
func (s *simulation) current() int {
	current := -1
	for i, t := range s.lay.Tiles {
		if t.Y < s.y+s.so.viewportHeight {
			current = i
		}
	}
	return current
}

// advance moves the virtual clock one tick forward.
func (s *simulation) advance() {
	s.clock = s.clock.Add(s.so.tick)
	s.rep.Ticks++
}

// report returns the simulation summary so far.
func (s *simulation) report() simReport {
	rep := s.rep
	rep.Elapsed = s.clock.Sub(s.start)
	rep.Metrics = s.loader.PerformanceMetrics()
	rep.Status = s.loader.Status()
	return rep
}

func (s *simulation) close() { s.loader.Close() }

// simulate scrolls a viewport from top to bottom over the layout of
// images, completing loads with a synthetic renderer, until nothing is
// left to load.
func simulate(ctx context.Context, images []gallery.Image, cfg layout.Config, opts loader.Options, so simOptions, logger *log.Logger) (simReport, error) {
	s, err := newSimulation(images, cfg, opts, so, logger)
	if err != nil {
		return simReport{}, err
	}
	defer s.close()

	for s.rep.Ticks < so.maxTicks {
		if err := ctx.Err(); err != nil {
			return s.report(), err
		}
		s.settle()
		if s.atBottom() && s.idle() {
			break
		}
		s.scrollTo(s.y + so.scrollStep)
		s.advance()
	}
	return s.report(), nil
}

// simulateCommand creates the simulate command.
func (c *CLI) simulateCommand() *cobra.Command {
	so := defaultSimOptions()
	var (
		screen      float64
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "simulate [manifest]",
		Short: "Simulate progressive loading while scrolling a gallery",
		Long: `Simulate progressive loading while scrolling a gallery.

A headless viewport scrolls from the top of the gallery to the bottom.
Tiles entering the viewport (grown by the loader's root margin) become
visible; a synthetic renderer completes each admitted load after a random
latency and fails a fraction of them. Loaded tiles occupy width×height×4
bytes, which feeds the memory governor.

With --interactive the viewport follows the keyboard instead: the clock
advances one tick per --tick of wall time and the screen shows every row's
tile states as they change.

Loader settings come from the [loader] section of --config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := newPrinter(cmd.OutOrStdout())

			m, err := store.ReadManifest(args[0])
			if err != nil {
				return fmt.Errorf("load manifest %s: %w", args[0], err)
			}
			if err := gallery.Validate(m.Images); err != nil {
				return err
			}

			r := pipeline.NewRunner(nil, nil, nil, c.Logger)
			r.Base = c.Config.Layout
			r.Breakpoints = c.Config.Breakpoints
			cfg, breakpoint := r.ResolveConfig(pipeline.Request{ContainerWidth: so.width, ScreenWidth: screen})

			if interactive {
				rep, err := runInteractive(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), m.Images, cfg, c.Config.Loader, so)
				if err != nil {
					return err
				}
				printSimReport(out, rep, breakpoint)
				return nil
			}

			spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Simulating...")
			spinner.Start()
			prog := newProgress(loggerFromContext(ctx))
			rep, err := simulate(ctx, m.Images, cfg, c.Config.Loader, so, c.Logger)
			spinner.Stop()
			if err != nil {
				return err
			}
			prog.done("simulation finished", "ticks", rep.Ticks)

			printSimReport(out, rep, breakpoint)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&so.width, "width", "w", so.width, "container width in pixels")
	cmd.Flags().Float64Var(&screen, "screen", 0, "screen width for breakpoint resolution (default: --width)")
	cmd.Flags().Float64Var(&so.viewportHeight, "height", so.viewportHeight, "viewport height in pixels")
	cmd.Flags().Float64Var(&so.scrollStep, "scroll", so.scrollStep, "pixels scrolled per tick")
	cmd.Flags().DurationVar(&so.tick, "tick", so.tick, "virtual time per tick")
	cmd.Flags().DurationVar(&so.latency, "latency", so.latency, "mean load latency")
	cmd.Flags().DurationVar(&so.jitter, "jitter", so.jitter, "latency spread (uniform ±)")
	cmd.Flags().Float64Var(&so.failRate, "fail-rate", 0, "fraction of loads that fail (0..1)")
	cmd.Flags().Int64Var(&so.seed, "seed", so.seed, "random seed")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "scroll with the keyboard and watch tiles load")

	return cmd
}

func printSimReport(out printer, rep simReport, breakpoint string) {
	out.success("Simulated %d tiles in %s of scrolling", len(rep.Layout.Tiles), rep.Elapsed)
	out.stats(rep.Layout, false)
	if breakpoint != "" {
		out.detail("breakpoint %s", breakpoint)
	}
	if rep.Status.FailOpen {
		out.warning("Visibility tracking unavailable (%s): every tile loaded eagerly", rep.Status.FailReason)
	}
	out.newline()
	out.line(metricsTable(rep.Metrics))
	out.keyValue("peak loading", fmt.Sprint(rep.PeakLoading))
	out.keyValue("peak memory", bytesString(rep.PeakMemory))
	out.keyValue("reclaims", fmt.Sprintf("%d (%d tiles evicted)", rep.Reclaims, rep.Evicted))
	if n := len(rep.Status.Errored); n > 0 {
		out.warning("%d tiles failed to load", n)
	}
}
