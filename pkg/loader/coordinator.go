package loader

import "slices"

// Coordinator runs the per-tile load state machine.
//
//	queued → loading → loaded | error
//
// A queued id is admitted to loading only when the caller reports it visible
// and fewer than MaxConcurrentLoads ids are loading. Priority ids are
// admitted before others; otherwise admission follows arrival order.
type Coordinator struct {
	maxLoads int

	states   map[string]State
	arrival  []string // every tracked id, in tracking order
	queue    []string // queued ids, in arrival order
	loading  []string // in admission order
	order    []string // tile order used for lookahead
	priority map[string]bool
}

// NewCoordinator creates a coordinator allowing maxConcurrentLoads
// simultaneous loads (at least one).
func NewCoordinator(maxConcurrentLoads int) *Coordinator {
	return &Coordinator{
		maxLoads: max(1, maxConcurrentLoads),
		states:   make(map[string]State),
		priority: make(map[string]bool),
	}
}

// SetOrder sets the tile order used by Lookahead and the set of priority
// ids.
func (c *Coordinator) SetOrder(ids []string, priority []string) {
	c.order = slices.Clone(ids)
	clear(c.priority)
	for _, id := range priority {
		c.priority[id] = true
	}
}

// Track starts tracking id in the queued state. An errored id is queued
// again, which is how callers retry. Track reports whether id was queued.
func (c *Coordinator) Track(id string) bool {
	switch c.states[id] {
	case StateUnknown:
		c.arrival = append(c.arrival, id)
	case StateError:
	default:
		return false
	}
	c.states[id] = StateQueued
	c.queue = append(c.queue, id)
	return true
}

// Untrack forgets id and returns its previous state. A loading id frees its
// slot; its eventual completion is ignored.
func (c *Coordinator) Untrack(id string) State {
	prev := c.states[id]
	if prev == StateUnknown {
		return prev
	}
	delete(c.states, id)
	c.arrival = remove(c.arrival, id)
	c.queue = remove(c.queue, id)
	c.loading = remove(c.loading, id)
	return prev
}

// Admit moves visible queued ids to loading while slots are free and
// returns them in admission order.
func (c *Coordinator) Admit(visible func(id string) bool) []string {
	free := c.Free()
	if free == 0 || len(c.queue) == 0 {
		return nil
	}
	var started []string
	for _, prio := range []bool{true, false} {
		for _, id := range c.queue {
			if free == 0 {
				break
			}
			if c.priority[id] != prio || !visible(id) {
				continue
			}
			started = append(started, id)
			free--
		}
	}
	for _, id := range started {
		c.start(id)
	}
	return started
}

// AdmitIDs moves the given queued ids to loading while slots are free,
// without a visibility check, and returns the ids admitted.
func (c *Coordinator) AdmitIDs(ids []string) []string {
	var started []string
	for _, id := range ids {
		if c.Free() == 0 {
			break
		}
		if c.states[id] != StateQueued {
			continue
		}
		c.start(id)
		started = append(started, id)
	}
	return started
}

func (c *Coordinator) start(id string) {
	c.states[id] = StateLoading
	c.queue = remove(c.queue, id)
	c.loading = append(c.loading, id)
}

// Finish records the outcome of a load and reports whether a transition
// happened. Untracked and already finished ids are ignored, which makes
// repeated completions harmless.
func (c *Coordinator) Finish(id string, ok bool) bool {
	switch c.states[id] {
	case StateQueued:
		c.queue = remove(c.queue, id)
	case StateLoading:
		c.loading = remove(c.loading, id)
	default:
		return false
	}
	if ok {
		c.states[id] = StateLoaded
	} else {
		c.states[id] = StateError
	}
	return true
}

// Lookahead returns the queued ids among the count tiles after current, in
// tile order, bounded by total. Without a tile order it uses arrival order.
func (c *Coordinator) Lookahead(current, total, count int) []string {
	order := c.order
	if len(order) == 0 {
		order = c.arrival
	}
	start := max(current+1, 0)
	stop := min(current+1+count, total, len(order))

	var out []string
	for i := start; i < stop; i++ {
		if id := order[i]; c.states[id] == StateQueued {
			out = append(out, id)
		}
	}
	return out
}

// State returns the state of id.
func (c *Coordinator) State(id string) State { return c.states[id] }

// Free returns the number of free loading slots.
func (c *Coordinator) Free() int { return max(0, c.maxLoads-len(c.loading)) }

// MaxLoads returns the concurrency bound.
func (c *Coordinator) MaxLoads() int { return c.maxLoads }

// Loading returns the loading ids in admission order.
func (c *Coordinator) Loading() []string { return slices.Clone(c.loading) }

// Queued returns the queued ids in arrival order.
func (c *Coordinator) Queued() []string { return slices.Clone(c.queue) }

// InState returns the ids in state s, in arrival order.
func (c *Coordinator) InState(s State) []string {
	var out []string
	for _, id := range c.arrival {
		if c.states[id] == s {
			out = append(out, id)
		}
	}
	return out
}

// Count returns how many ids are in state s.
func (c *Coordinator) Count(s State) int {
	n := 0
	for _, st := range c.states {
		if st == s {
			n++
		}
	}
	return n
}
