package loader

import (
	"fmt"
	"slices"
	"time"

	"github.com/matzehuels/tiledgallery/pkg/capability"
)

// Tracker maintains the visible set.
//
// Ids join the visible set when the observer reports them intersecting, or
// unconditionally in fail-open mode. Additions are monotonic: leaving the
// viewport does not remove an id. Only Unobserve does.
type Tracker struct {
	observer capability.IntersectionObserver
	reason   string // non-empty once failed open

	targets map[string]any
	ids     []string // registration order
	visible map[string]time.Time
	now     func() time.Time
}

// NewTracker creates a tracker backed by observer. A nil observer starts the
// tracker in fail-open mode. A nil now uses time.Now.
func NewTracker(observer capability.IntersectionObserver, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		observer: observer,
		targets:  make(map[string]any),
		visible:  make(map[string]time.Time),
		now:      now,
	}
	if observer == nil {
		t.reason = "no intersection observer"
	}
	return t
}

// Observe registers id with its host target and returns the ids that became
// visible as a result. Observing a tracked id again replaces its target.
//
// If the observer rejects the target the tracker fails open.
func (t *Tracker) Observe(id string, target any) []string {
	if _, ok := t.targets[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.targets[id] = target

	if t.FailedOpen() {
		return t.Reconcile()
	}
	if err := t.observer.Observe(id, target); err != nil {
		return t.FailOpen(fmt.Sprintf("observer rejected %q: %v", id, err))
	}
	return nil
}

// Unobserve deregisters id and drops it from the visible set. It reports
// whether id was tracked.
func (t *Tracker) Unobserve(id string) bool {
	if _, ok := t.targets[id]; !ok {
		return false
	}
	delete(t.targets, id)
	delete(t.visible, id)
	t.ids = remove(t.ids, id)
	if !t.FailedOpen() {
		t.observer.Unobserve(id)
	}
	return true
}

// Apply processes observer entries and returns the ids that became visible.
// Non-intersecting entries and untracked ids are ignored.
func (t *Tracker) Apply(entries []capability.Entry) []string {
	var added []string
	for _, e := range entries {
		if !e.Intersecting {
			continue
		}
		if t.MarkVisible(e.ID) {
			added = append(added, e.ID)
		}
	}
	return added
}

// MarkVisible adds a tracked id to the visible set and reports whether it
// was newly added.
func (t *Tracker) MarkVisible(id string) bool {
	if _, ok := t.targets[id]; !ok {
		return false
	}
	if _, ok := t.visible[id]; ok {
		return false
	}
	t.visible[id] = t.now()
	return true
}

// Restamp resets the visibility timestamp of a visible id, so that the next
// load is timed from now.
func (t *Tracker) Restamp(id string) {
	if _, ok := t.visible[id]; ok {
		t.visible[id] = t.now()
	}
}

// FailOpen switches to fail-open mode, disconnecting the observer, and
// returns the ids made visible by reconciliation. Calling it again only
// reconciles.
func (t *Tracker) FailOpen(reason string) []string {
	if !t.FailedOpen() {
		t.reason = reason
		if t.observer != nil {
			t.observer.Disconnect()
		}
	}
	return t.Reconcile()
}

// Reconcile marks every tracked id visible when in fail-open mode and
// returns the newly visible ids in registration order.
func (t *Tracker) Reconcile() []string {
	if !t.FailedOpen() {
		return nil
	}
	var added []string
	for _, id := range t.ids {
		if t.MarkVisible(id) {
			added = append(added, id)
		}
	}
	return added
}

// FailedOpen reports whether the tracker treats every id as visible.
func (t *Tracker) FailedOpen() bool { return t.reason != "" }

// FailReason returns why the tracker failed open, or "".
func (t *Tracker) FailReason() string { return t.reason }

// Tracked reports whether id is registered.
func (t *Tracker) Tracked(id string) bool {
	_, ok := t.targets[id]
	return ok
}

// IsVisible reports whether id is in the visible set.
func (t *Tracker) IsVisible(id string) bool {
	_, ok := t.visible[id]
	return ok
}

// VisibleSince returns when id became visible.
func (t *Tracker) VisibleSince(id string) (time.Time, bool) {
	ts, ok := t.visible[id]
	return ts, ok
}

// IDs returns the tracked ids in registration order.
func (t *Tracker) IDs() []string { return slices.Clone(t.ids) }

// Visible returns the visible ids in registration order.
func (t *Tracker) Visible() []string {
	out := make([]string, 0, len(t.visible))
	for _, id := range t.ids {
		if _, ok := t.visible[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of tracked ids.
func (t *Tracker) Len() int { return len(t.ids) }

// VisibleCount returns the size of the visible set.
func (t *Tracker) VisibleCount() int { return len(t.visible) }

// Close disconnects the observer.
func (t *Tracker) Close() {
	if t.observer != nil && !t.FailedOpen() {
		t.observer.Disconnect()
	}
}

func remove(s []string, id string) []string {
	if i := slices.Index(s, id); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
