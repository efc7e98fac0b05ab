package capability

import "sync"

// Manual is an IntersectionObserver driven by explicit reports. Hosts that
// compute visibility elsewhere (a browser client talking to the API, a test)
// push entries with Report; only observed ids are forwarded.
//
//	m := capability.NewManual()
//	l, err := loader.New(opts, loader.Capabilities{Intersection: m.Factory})
//	m.Report("img-1", "img-2")
type Manual struct {
	mu       sync.Mutex
	callback func([]Entry)
	targets  map[string]any
}

// NewManual creates an unbound manual observer.
func NewManual() *Manual {
	return &Manual{targets: make(map[string]any)}
}

// Factory binds the observer to callback. It implements IntersectionFactory.
func (m *Manual) Factory(_ IntersectionOptions, callback func([]Entry)) (IntersectionObserver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = callback
	return m, nil
}

// Observe implements IntersectionObserver.
func (m *Manual) Observe(id string, target any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[id] = target
	return nil
}

// Unobserve implements IntersectionObserver.
func (m *Manual) Unobserve(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.targets, id)
}

// Disconnect implements IntersectionObserver.
func (m *Manual) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.targets)
}

// Observed reports whether id is currently watched.
func (m *Manual) Observed(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.targets[id]
	return ok
}

// Report delivers intersecting entries for the given ids. Ids that are not
// observed are dropped. The callback runs on the caller's goroutine.
func (m *Manual) Report(ids ...string) {
	m.mu.Lock()
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.targets[id]; ok {
			entries = append(entries, Entry{ID: id, Intersecting: true, Ratio: 1})
		}
	}
	cb := m.callback
	m.mu.Unlock()

	if len(entries) > 0 && cb != nil {
		cb(entries)
	}
}
