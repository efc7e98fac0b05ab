package loader

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/tiledgallery/pkg/capability"
)

// spyObserver records observer calls and exposes the loader's callback.
type spyObserver struct {
	mu         sync.Mutex
	callback   func([]capability.Entry)
	opts       capability.IntersectionOptions
	observed   []string
	unobserved []string
	rejectAll  bool
	disconnect int
}

func (s *spyObserver) Factory(opts capability.IntersectionOptions, cb func([]capability.Entry)) (capability.IntersectionObserver, error) {
	s.opts = opts
	s.callback = cb
	return s, nil
}

func (s *spyObserver) Observe(id string, _ any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectAll {
		return errors.New("unsupported target")
	}
	s.observed = append(s.observed, id)
	return nil
}

func (s *spyObserver) Unobserve(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unobserved = append(s.unobserved, id)
}

func (s *spyObserver) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect++
}

func (s *spyObserver) Unobserved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.unobserved)
}

// show delivers intersecting entries for ids.
func (s *spyObserver) show(ids ...string) {
	entries := make([]capability.Entry, len(ids))
	for i, id := range ids {
		entries[i] = capability.Entry{ID: id, Intersecting: true, Ratio: 1}
	}
	s.callback(entries)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i))
	}
	return out
}
