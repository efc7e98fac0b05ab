package loader

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/observability"
)

// eventHooks records loader events.
type eventHooks struct {
	observability.NoopLoaderHooks
	mu       sync.Mutex
	starts   []string
	failOpen []string
	reclaims chan int
}

func (h *eventHooks) OnLoadStart(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts = append(h.starts, id)
}

func (h *eventHooks) OnFailOpen(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failOpen = append(h.failOpen, reason)
}

func (h *eventHooks) OnReclaim(evicted int, _ uint64) {
	if h.reclaims == nil {
		return
	}
	select {
	case h.reclaims <- evicted:
	default:
	}
}

func newSpyLoader(t *testing.T, opts Options, extra ...Option) (*Loader, *spyObserver) {
	t.Helper()
	spy := &spyObserver{}
	l, err := New(opts, Capabilities{Intersection: spy.Factory}, extra...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(l.Close)
	return l, spy
}

func TestLoaderConcurrencyBound(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxConcurrentLoads = 2
	l, spy := newSpyLoader(t, opts)

	tiles := ids("t", 5)
	for _, id := range tiles {
		l.Observe(id, nil)
	}
	spy.show(tiles...)

	st := l.Status()
	if len(st.Loading) != 2 || len(st.Queued) != 3 {
		t.Fatalf("loading/queued = %d/%d, want 2/3", len(st.Loading), len(st.Queued))
	}

	l.HandleLoad(st.Loading[0])
	if got := len(l.Loading()); got != 2 {
		t.Errorf("loading after one completion = %d, want 2", got)
	}
	if got := l.State(tiles[2]); got != StateLoading {
		t.Errorf("State(%s) = %v, want loading", tiles[2], got)
	}
}

func TestLoaderClearMemoryEvictsOnlyNonVisible(t *testing.T) {
	opts := DefaultOptions()
	opts.VirtualScrolling = true
	l, spy := newSpyLoader(t, opts)

	tiles := ids("t", 10)
	for _, id := range tiles {
		l.Observe(id, nil)
	}
	spy.show(tiles[0], tiles[1])

	res := l.ClearMemory()

	got := spy.Unobserved()
	slices.Sort(got)
	if diff := cmp.Diff(tiles[2:], got); diff != "" {
		t.Errorf("unobserved mismatch (-want +got):\n%s", diff)
	}
	if len(res.Evicted) != 8 {
		t.Errorf("Evicted = %d ids, want 8", len(res.Evicted))
	}
	for _, id := range tiles[:2] {
		if l.State(id) != StateLoading {
			t.Errorf("visible tile %s state = %v, want loading", id, l.State(id))
		}
	}
}

func TestLoaderFailOpen(t *testing.T) {
	tests := []struct {
		name string
		opts func(*Options)
		caps Capabilities
	}{
		{"lazy load disabled", func(o *Options) { o.LazyLoad = false }, Capabilities{Intersection: (&spyObserver{}).Factory}},
		{"nil factory", nil, Capabilities{}},
		{"unavailable factory", nil, Capabilities{Intersection: capability.Unavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			hooks := &eventHooks{}
			l, err := New(opts, tt.caps, WithHooks(hooks))
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			defer l.Close()

			tiles := ids("t", 6)
			for _, id := range tiles {
				l.Observe(id, nil)
			}

			st := l.Status()
			if !st.FailOpen {
				t.Error("Status().FailOpen = false")
			}
			if diff := cmp.Diff(tiles, st.Visible); diff != "" {
				t.Errorf("visible mismatch (-want +got):\n%s", diff)
			}
			if len(st.Loading) != opts.MaxConcurrentLoads {
				t.Errorf("loading = %d, want %d", len(st.Loading), opts.MaxConcurrentLoads)
			}
			if len(hooks.failOpen) != 1 {
				t.Errorf("OnFailOpen called %d times, want 1", len(hooks.failOpen))
			}
		})
	}
}

func TestLoaderFailOpenAtRuntime(t *testing.T) {
	spy := &spyObserver{}
	l, err := New(DefaultOptions(), Capabilities{Intersection: spy.Factory})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Observe("a", nil)
	if l.IsVisible("a") {
		t.Fatal("a should wait for intersection")
	}

	spy.mu.Lock()
	spy.rejectAll = true
	spy.mu.Unlock()
	l.Observe("b", nil)

	for _, id := range []string{"a", "b"} {
		if !l.IsVisible(id) {
			t.Errorf("%s not visible after runtime fail-open", id)
		}
	}
}

func TestLoaderIdempotent(t *testing.T) {
	l, spy := newSpyLoader(t, DefaultOptions())

	l.Observe("a", nil)
	l.Observe("a", nil)
	spy.show("a", "a")
	spy.show("a")

	if got := l.Loading(); !cmp.Equal(got, []string{"a"}) {
		t.Fatalf("Loading() = %v, want [a]", got)
	}

	l.HandleLoad("a")
	l.HandleLoad("a")
	l.HandleError("a")
	l.HandleLoad("ghost")

	m := l.PerformanceMetrics()
	if m.TotalLoads != 1 || m.TotalErrors != 0 {
		t.Errorf("totals = %d/%d, want 1/0", m.TotalLoads, m.TotalErrors)
	}
	if m.Loaded != 1 || m.Tracked != 1 {
		t.Errorf("counts = %+v", m.Counts)
	}
}

func TestLoaderRetryAfterError(t *testing.T) {
	clock := newFakeClock()
	l, spy := newSpyLoader(t, DefaultOptions(), WithClock(clock.Now))

	l.Observe("a", nil)
	spy.show("a")
	clock.Advance(200 * time.Millisecond)
	l.HandleError("a")

	if l.State("a") != StateError {
		t.Fatalf("State() = %v, want error", l.State("a"))
	}

	clock.Advance(time.Second)
	l.Observe("a", nil)
	if l.State("a") != StateLoading {
		t.Fatalf("State() after retry = %v, want loading", l.State("a"))
	}

	clock.Advance(50 * time.Millisecond)
	l.HandleLoad("a")

	m := l.PerformanceMetrics()
	wantDurations := []time.Duration{200 * time.Millisecond, 50 * time.Millisecond}
	var got []time.Duration
	for _, s := range m.Recent {
		got = append(got, s.Duration)
	}
	if diff := cmp.Diff(wantDurations, got); diff != "" {
		t.Errorf("durations mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderUnobserveLoading(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxConcurrentLoads = 1
	l, spy := newSpyLoader(t, opts)

	l.Observe("a", nil)
	l.Observe("b", nil)
	spy.show("a", "b")

	l.Unobserve("a")
	if got := l.Loading(); !cmp.Equal(got, []string{"b"}) {
		t.Errorf("Loading() = %v, want [b]", got)
	}

	// A late completion for the dropped tile is ignored.
	l.HandleLoad("a")
	if m := l.PerformanceMetrics(); m.TotalLoads != 0 {
		t.Errorf("TotalLoads = %d, want 0", m.TotalLoads)
	}
}

func TestLoaderPreloadNext(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxConcurrentLoads = 3
	opts.PreloadCount = 4
	l, spy := newSpyLoader(t, opts)

	images := make([]gallery.Image, 8)
	for i, id := range ids("t", 8) {
		images[i] = gallery.Image{ID: id, Width: 400, Height: 300, Order: i}
		l.Observe(id, nil)
	}
	lay := layout.Calculate(images, 1200, layout.DefaultConfig())
	l.SetTiles(lay.Tiles)

	spy.show("ta")
	started := l.PreloadNext(0, len(images))
	if diff := cmp.Diff([]string{"tb", "tc"}, started); diff != "" {
		t.Errorf("PreloadNext() mismatch (-want +got):\n%s", diff)
	}
	if !l.IsVisible("tb") {
		t.Error("preloaded tile should be marked visible")
	}
	if l.IsVisible("td") {
		t.Error("tile beyond free slots should not be marked visible")
	}
	if got := l.PreloadNext(0, len(images)); len(got) != 0 {
		t.Errorf("PreloadNext() with no free slots = %v", got)
	}
}

func TestLoaderPriorityFirst(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxConcurrentLoads = 1
	l, spy := newSpyLoader(t, opts)

	l.SetTiles([]layout.Tile{
		{ID: "a", Image: gallery.Image{ID: "a"}},
		{ID: "b", Image: gallery.Image{ID: "b", Priority: true}},
	})
	l.Observe("a", nil)
	l.Observe("b", nil)
	spy.show("a", "b")

	if got := l.Loading(); !cmp.Equal(got, []string{"b"}) {
		t.Errorf("Loading() = %v, want [b]", got)
	}
}

func TestLoaderPassesObserverOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Threshold = 0.25
	opts.RootMargin = "50px"
	_, spy := newSpyLoader(t, opts)

	if spy.opts.Threshold != 0.25 {
		t.Errorf("Threshold = %v, want 0.25", spy.opts.Threshold)
	}
	if got := spy.opts.RootMargin.Top.Value; got != 50 {
		t.Errorf("RootMargin.Top = %v, want 50", got)
	}
}

func TestNewInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Options)
	}{
		{"threshold", func(o *Options) { o.Threshold = 2 }},
		{"slots", func(o *Options) { o.MaxConcurrentLoads = 0 }},
		{"preload", func(o *Options) { o.PreloadCount = -1 }},
		{"margin", func(o *Options) { o.RootMargin = "ten pixels" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mod(&opts)
			_, err := New(opts, Capabilities{})
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("New() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestOptionsWithin(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Options)
		ok   bool
	}{
		{"defaults", func(o *Options) {}, true},
		{"zero interval means default", func(o *Options) { o.MemoryInterval = 0 }, true},
		{"interval", func(o *Options) { o.MemoryInterval = time.Nanosecond }, false},
		{"preload", func(o *Options) { o.PreloadCount = 1 << 20 }, false},
		{"slots", func(o *Options) { o.MaxConcurrentLoads = 1 << 20 }, false},
		{"retain", func(o *Options) { o.RetainSamples = 1 << 20 }, false},
		{"window", func(o *Options) { o.SampleWindow = 2_000_000_000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mod(&opts)
			err := opts.Within(DefaultLimits())
			if tt.ok && err != nil {
				t.Errorf("Within() error = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Within() error = %v, want INVALID_CONFIG", err)
			}
		})
	}

	opts := DefaultOptions()
	opts.MemoryInterval = time.Nanosecond
	if err := opts.Within(Limits{}); err != nil {
		t.Errorf("zero Limits should not bound anything, got %v", err)
	}
}

func TestLoaderClosed(t *testing.T) {
	l, spy := newSpyLoader(t, DefaultOptions())
	l.Observe("a", nil)
	l.Close()
	l.Close()

	spy.show("a")
	l.Observe("b", nil)
	if got := l.Loading(); len(got) != 0 {
		t.Errorf("Loading() after Close = %v", got)
	}
	if spy.disconnect != 1 {
		t.Errorf("Disconnect called %d times, want 1", spy.disconnect)
	}
}

func TestRunReclaimsUnderPressure(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := DefaultOptions()
	opts.MemoryInterval = time.Millisecond
	opts.VirtualScrolling = true
	hooks := &eventHooks{reclaims: make(chan int, 1)}
	spy := &spyObserver{}
	sampler := capability.NewStaticSampler(49 << 20)

	l, err := New(opts, Capabilities{Intersection: spy.Factory, Memory: sampler}, WithHooks(hooks))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	l.Observe("hidden", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case evicted := <-hooks.reclaims:
		if evicted != 1 {
			t.Errorf("evicted = %d, want 1", evicted)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("governor never reclaimed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRunStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := DefaultOptions()
	opts.MemoryInterval = time.Millisecond
	l, err := New(opts, Capabilities{Memory: capability.NewStaticSampler(0)})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	l.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after Close")
	}
}

func TestRunInert(t *testing.T) {
	l, err := New(DefaultOptions(), Capabilities{})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestCheckMemory(t *testing.T) {
	opts := DefaultOptions()
	opts.VirtualScrolling = true
	sampler := capability.NewStaticSampler(10 << 20)
	spy := &spyObserver{}
	l, err := New(opts, Capabilities{Intersection: spy.Factory, Memory: sampler})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	l.Observe("shown", nil)
	l.Observe("hidden", nil)
	spy.show("shown")

	if res, reclaimed := l.CheckMemory(); reclaimed || res.UsedBytes != 10<<20 {
		t.Errorf("CheckMemory() below threshold = %+v, %v", res, reclaimed)
	}

	sampler.Set(40 << 20) // exactly 80% of 50MB
	res, reclaimed := l.CheckMemory()
	if !reclaimed {
		t.Fatal("CheckMemory() at threshold did not reclaim")
	}
	if diff := cmp.Diff([]string{"hidden"}, res.Evicted); diff != "" {
		t.Errorf("Evicted mismatch (-want +got):\n%s", diff)
	}
	if l.State("shown") != StateLoading {
		t.Errorf("visible tile state = %v, want loading", l.State("shown"))
	}
}
