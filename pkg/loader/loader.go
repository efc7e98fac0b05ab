package loader

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/metrics"
	"github.com/matzehuels/tiledgallery/pkg/observability"
)

// Loader is one gallery's progressive loading state. Create one per gallery
// instance with New; there is no shared default.
type Loader struct {
	mu sync.Mutex

	opts     Options
	tracker  *Tracker
	coord    *Coordinator
	governor *Governor
	recorder *metrics.Recorder

	hooks  observability.LoaderHooks
	logger *log.Logger
	now    func() time.Time

	closed bool
	done   chan struct{}
}

// Option customizes a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Nil keeps log.Default().
func WithLogger(l *log.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithHooks sets the event hooks. Nil keeps the no-op hooks.
func WithHooks(h observability.LoaderHooks) Option {
	return func(ld *Loader) {
		if h != nil {
			ld.hooks = h
		}
	}
}

// WithClock replaces time.Now for load timing.
func WithClock(now func() time.Time) Option {
	return func(ld *Loader) {
		if now != nil {
			ld.now = now
		}
	}
}

// New creates a loader. Capabilities are resolved once here: a nil or
// unavailable intersection factory, or LazyLoad=false, puts the loader in
// fail-open mode. New fails only on invalid options.
func New(opts Options, caps Capabilities, options ...Option) (*Loader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	l := &Loader{
		opts:     opts,
		coord:    NewCoordinator(opts.MaxConcurrentLoads),
		governor: NewGovernor(caps.Memory, opts),
		recorder: metrics.NewRecorder(opts.SampleWindow),
		hooks:    observability.NoopLoaderHooks{},
		logger:   log.Default(),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, o := range options {
		o(l)
	}

	// The observer may deliver entries from another goroutine as soon as
	// it exists.
	l.mu.Lock()
	defer l.mu.Unlock()
	observer, reason := l.connect(caps.Intersection)
	l.tracker = NewTracker(observer, l.now)
	if reason != "" {
		l.tracker.FailOpen(reason)
		l.reportFailOpen(reason)
	}
	return l, nil
}

// connect creates the intersection observer, or returns why it could not.
func (l *Loader) connect(factory capability.IntersectionFactory) (capability.IntersectionObserver, string) {
	if !l.opts.LazyLoad {
		return nil, "lazy loading disabled"
	}
	if factory == nil {
		return nil, "no intersection capability"
	}
	margin, _ := capability.ParseRootMargin(l.opts.RootMargin) // validated in New
	observer, err := factory(capability.IntersectionOptions{
		RootMargin: margin,
		Threshold:  l.opts.Threshold,
	}, l.onIntersect)
	if err != nil {
		return nil, err.Error()
	}
	if observer == nil {
		return nil, "no intersection capability"
	}
	return observer, ""
}

func (l *Loader) reportFailOpen(reason string) {
	l.logger.Info("visibility tracking unavailable, treating all tiles as visible", "reason", reason)
	l.hooks.OnFailOpen(reason)
}

// Options returns the options the loader was created with.
func (l *Loader) Options() Options { return l.opts }

// Observe registers a tile and its host target. Observing a tile in the
// error state queues it again.
func (l *Loader) Observe(id string, target any) {
	if id == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	retry := l.coord.State(id) == StateError
	l.coord.Track(id)

	wasOpen := l.tracker.FailedOpen()
	added := l.tracker.Observe(id, target)
	if !wasOpen && l.tracker.FailedOpen() {
		l.reportFailOpen(l.tracker.FailReason())
	}
	if retry {
		l.tracker.Restamp(id)
		l.logger.Debug("retrying tile", "id", id)
	}
	l.markVisible(added)
	l.pump()
}

// Unobserve stops tracking a tile. A tile that is loading is not aborted;
// its slot is freed and a late completion is ignored.
func (l *Loader) Unobserve(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.tracker.Unobserve(id)
	if l.coord.Untrack(id) == StateLoading {
		l.pump()
	}
}

// SetTiles declares the tile order for PreloadNext and which tiles have
// priority.
func (l *Loader) SetTiles(tiles []layout.Tile) {
	ids := make([]string, len(tiles))
	var priority []string
	for i, t := range tiles {
		ids[i] = t.ID
		if t.Image.Priority {
			priority = append(priority, t.ID)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.coord.SetOrder(ids, priority)
	l.pump()
}

// onIntersect is the intersection observer callback.
func (l *Loader) onIntersect(entries []capability.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.markVisible(l.tracker.Apply(entries))
	l.pump()
}

// PreloadNext looks at up to PreloadCount tiles after currentIndex and
// starts loading as many queued ones as there are free slots, marking them
// visible. It returns the ids it started.
func (l *Loader) PreloadNext(currentIndex, totalItems int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}

	ids := l.coord.Lookahead(currentIndex, totalItems, l.opts.PreloadCount)
	ids = ids[:min(len(ids), l.coord.Free())]
	for _, id := range ids {
		if l.tracker.MarkVisible(id) {
			l.hooks.OnVisible(id)
		}
	}
	started := l.coord.AdmitIDs(ids)
	l.started(started)
	if len(started) > 0 {
		l.logger.Debug("preloading", "from", currentIndex, "tiles", len(started))
	}
	return started
}

// HandleLoad records a successful load. Untracked or finished ids are
// ignored.
func (l *Loader) HandleLoad(id string) {
	l.finish(id, true)
}

// HandleError records a failed load. The tile stays in the error state until
// it is observed again.
func (l *Loader) HandleError(id string) {
	l.finish(id, false)
}

func (l *Loader) finish(id string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || !l.coord.Finish(id, ok) {
		return
	}

	var elapsed time.Duration
	if since, visible := l.tracker.VisibleSince(id); visible {
		elapsed = l.now().Sub(since)
	}
	l.recorder.Record(id, elapsed, !ok)
	if ok {
		l.hooks.OnLoadComplete(id, elapsed)
	} else {
		l.hooks.OnLoadError(id, elapsed)
	}
	l.pump()
}

// ClearMemory runs a reclamation pass regardless of memory usage.
func (l *Loader) ClearMemory() Reclamation {
	used, _ := l.governor.sampler.Sample()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reclaim(used)
}

func (l *Loader) reclaim(used uint64) Reclamation {
	res := l.governor.Reclaim(l.tracker, l.coord, l.recorder)
	res.UsedBytes = used
	l.logger.Debug("reclaimed", "trimmed", res.Trimmed, "evicted", len(res.Evicted), "used_bytes", used)
	l.hooks.OnReclaim(len(res.Evicted), used)
	return res
}

// Run samples memory every MemoryInterval and reclaims under pressure. It
// returns nil when ctx is done or the loader is closed, and immediately if
// the host cannot sample memory.
func (l *Loader) Run(ctx context.Context) error {
	if !l.governor.Enabled() {
		l.logger.Info("memory sampling unavailable, governor inert")
		return nil
	}
	ticker := time.NewTicker(l.opts.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case <-ticker.C:
			l.CheckMemory()
		}
	}
}

// CheckMemory samples memory once and reclaims if usage crossed the
// threshold. Run calls it every MemoryInterval; hosts that drive their own
// clock may call it directly.
func (l *Loader) CheckMemory() (Reclamation, bool) {
	used, over := l.governor.Check()
	if !over {
		return Reclamation{UsedBytes: used}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Reclamation{UsedBytes: used}, false
	}
	l.logger.Debug("memory threshold crossed", "used_bytes", used, "limit_mb", l.opts.MemoryLimitMB)
	return l.reclaim(used), true
}

// PerformanceMetrics returns load timings and current counts.
func (l *Loader) PerformanceMetrics() metrics.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recorder.Snapshot(l.counts())
}

func (l *Loader) counts() metrics.Counts {
	return metrics.Counts{
		Tracked: l.tracker.Len(),
		Visible: l.tracker.VisibleCount(),
		Queued:  l.coord.Count(StateQueued),
		Loading: l.coord.Count(StateLoading),
		Loaded:  l.coord.Count(StateLoaded),
		Errored: l.coord.Count(StateError),
	}
}

// State returns the state of one tile.
func (l *Loader) State(id string) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coord.State(id)
}

// Loading returns the ids currently loading, in admission order.
func (l *Loader) Loading() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coord.Loading()
}

// IsVisible reports whether id is in the visible set.
func (l *Loader) IsVisible(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tracker.IsVisible(id)
}

// Status is a full view of a loader's sets.
type Status struct {
	FailOpen   bool     `json:"fail_open"`
	FailReason string   `json:"fail_reason,omitempty"`
	Tracked    []string `json:"tracked"`
	Visible    []string `json:"visible"`
	Queued     []string `json:"queued"`
	Loading    []string `json:"loading"`
	Loaded     []string `json:"loaded"`
	Errored    []string `json:"errored"`
}

// Status returns the loader's sets.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		FailOpen:   l.tracker.FailedOpen(),
		FailReason: l.tracker.FailReason(),
		Tracked:    nonNil(l.tracker.IDs()),
		Visible:    nonNil(l.tracker.Visible()),
		Queued:     nonNil(l.coord.Queued()),
		Loading:    nonNil(l.coord.Loading()),
		Loaded:     nonNil(l.coord.InState(StateLoaded)),
		Errored:    nonNil(l.coord.InState(StateError)),
	}
}

// Close disconnects the observer and stops Run. Later calls are no-ops.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.tracker.Close()
	close(l.done)
}

// markVisible publishes newly visible ids.
func (l *Loader) markVisible(ids []string) {
	for _, id := range ids {
		l.hooks.OnVisible(id)
	}
}

// pump admits visible queued tiles into free slots.
func (l *Loader) pump() {
	l.started(l.coord.Admit(l.tracker.IsVisible))
}

func (l *Loader) started(ids []string) {
	for _, id := range ids {
		l.hooks.OnLoadStart(id)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
