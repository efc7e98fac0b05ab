// Package metrics aggregates tile load timings for a progressive loader.
//
// A [Recorder] keeps a rolling window of the most recent load durations and
// lifetime totals. It is read-only with respect to scheduling: nothing in the
// loader consults it to decide what to load next.
//
// Recorder is not safe for concurrent use; the loader serializes access.
package metrics

import (
	"math"
	"slices"
	"time"
)

// DefaultWindow is the number of recent samples a Recorder retains.
const DefaultWindow = 50

// Sample is one measured load, from visibility to completion.
type Sample struct {
	ID       string        `json:"id"`
	Duration time.Duration `json:"duration_ns"`
	Failed   bool          `json:"failed,omitempty"`
}

// Counts is a point-in-time view of the loader's sets.
type Counts struct {
	Tracked int `json:"tracked"`
	Visible int `json:"visible"`
	Queued  int `json:"queued"`
	Loading int `json:"loading"`
	Loaded  int `json:"loaded"`
	Errored int `json:"errored"`
}

// Snapshot is an aggregate view of recorded loads.
type Snapshot struct {
	Counts

	// Lifetime totals, unaffected by Trim.
	TotalLoads  int `json:"total_loads"`
	TotalErrors int `json:"total_errors"`

	// Statistics over the retained window.
	Samples int           `json:"samples"`
	Min     time.Duration `json:"min_ns"`
	Avg     time.Duration `json:"avg_ns"`
	Max     time.Duration `json:"max_ns"`
	P95     time.Duration `json:"p95_ns"`

	Recent []Sample `json:"recent"`
}

// SuccessRate returns the fraction of finished loads that succeeded, or 1
// when nothing has finished yet.
func (s Snapshot) SuccessRate() float64 {
	total := s.TotalLoads + s.TotalErrors
	if total == 0 {
		return 1
	}
	return float64(s.TotalLoads) / float64(total)
}

// Recorder keeps the most recent load samples.
type Recorder struct {
	window      int
	samples     []Sample
	totalLoads  int
	totalErrors int
}

// NewRecorder creates a recorder retaining at most window samples.
// A non-positive window uses DefaultWindow.
func NewRecorder(window int) *Recorder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Recorder{window: window}
}

// Window returns the retention limit.
func (r *Recorder) Window() int { return r.window }

// Len returns the number of retained samples.
func (r *Recorder) Len() int { return len(r.samples) }

// Record appends a sample, dropping the oldest when the window is full.
// Negative durations are recorded as zero.
func (r *Recorder) Record(id string, d time.Duration, failed bool) {
	if d < 0 {
		d = 0
	}
	if failed {
		r.totalErrors++
	} else {
		r.totalLoads++
	}
	r.samples = append(r.samples, Sample{ID: id, Duration: d, Failed: failed})
	if over := len(r.samples) - r.window; over > 0 {
		r.samples = slices.Delete(r.samples, 0, over)
	}
}

// Trim keeps only the n most recent samples and returns how many were
// dropped.
func (r *Recorder) Trim(n int) int {
	if n < 0 {
		n = 0
	}
	over := len(r.samples) - n
	if over <= 0 {
		return 0
	}
	r.samples = slices.Clone(r.samples[over:])
	return over
}

// Reset drops all samples and totals.
func (r *Recorder) Reset() {
	r.samples = nil
	r.totalLoads = 0
	r.totalErrors = 0
}

// Snapshot aggregates the retained samples together with counts supplied by
// the caller.
func (r *Recorder) Snapshot(c Counts) Snapshot {
	s := Snapshot{
		Counts:      c,
		TotalLoads:  r.totalLoads,
		TotalErrors: r.totalErrors,
		Samples:     len(r.samples),
		Recent:      slices.Clone(r.samples),
	}
	if s.Recent == nil {
		s.Recent = []Sample{}
	}
	if len(r.samples) == 0 {
		return s
	}

	durations := make([]time.Duration, len(r.samples))
	var sum time.Duration
	for i, smp := range r.samples {
		durations[i] = smp.Duration
		sum += smp.Duration
	}
	slices.Sort(durations)

	s.Min = durations[0]
	s.Max = durations[len(durations)-1]
	s.Avg = sum / time.Duration(len(durations))
	s.P95 = percentile(durations, 0.95)
	return s
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted))))
	rank = max(1, min(rank, len(sorted)))
	return sorted[rank-1]
}
