package loader

import (
	"github.com/matzehuels/tiledgallery/pkg/capability"
	"github.com/matzehuels/tiledgallery/pkg/metrics"
)

// ReclaimRatio is the fraction of the memory limit at which reclamation
// starts.
const ReclaimRatio = 0.8

// Reclamation describes one reclamation pass.
type Reclamation struct {
	UsedBytes uint64   `json:"used_bytes"`
	Trimmed   int      `json:"trimmed"`
	Evicted   []string `json:"evicted"`
}

// Governor watches memory usage and decides when to reclaim.
type Governor struct {
	sampler capability.MemorySampler
	limit   uint64 // bytes
	retain  int
	virtual bool
}

// NewGovernor creates a governor. A nil sampler makes it inert.
func NewGovernor(sampler capability.MemorySampler, opts Options) *Governor {
	if sampler == nil {
		sampler = capability.NoMemory{}
	}
	return &Governor{
		sampler: sampler,
		limit:   uint64(opts.MemoryLimitMB) << 20,
		retain:  opts.RetainSamples,
		virtual: opts.VirtualScrolling,
	}
}

// Enabled reports whether the governor can ever trigger.
func (g *Governor) Enabled() bool {
	return g.limit > 0 && capability.Available(g.sampler)
}

// Check samples usage and reports whether it crossed the reclaim threshold.
func (g *Governor) Check() (used uint64, over bool) {
	used, ok := g.sampler.Sample()
	if !ok || g.limit == 0 {
		return used, false
	}
	return used, float64(used) >= ReclaimRatio*float64(g.limit)
}

// Reclaim trims the recorder to the retained history and, with virtual
// scrolling, unobserves every tracked id that is neither visible nor
// loading.
func (g *Governor) Reclaim(t *Tracker, c *Coordinator, r *metrics.Recorder) Reclamation {
	res := Reclamation{Trimmed: r.Trim(g.retain), Evicted: []string{}}
	if !g.virtual {
		return res
	}
	for _, id := range t.IDs() {
		if t.IsVisible(id) || c.State(id) == StateLoading {
			continue
		}
		t.Unobserve(id)
		c.Untrack(id)
		res.Evicted = append(res.Evicted, id)
	}
	return res
}
