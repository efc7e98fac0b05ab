package capability

import (
	"runtime"
	"sync/atomic"
)

// MemorySampler reports approximate resource usage in bytes. ok is false
// when the host cannot provide a sample.
type MemorySampler interface {
	Sample() (used uint64, ok bool)
}

// NoMemory is the sampler for hosts without usage reporting.
type NoMemory struct{}

// Sample implements MemorySampler.
func (NoMemory) Sample() (uint64, bool) { return 0, false }

// RuntimeSampler reports heap bytes in use by the Go runtime.
type RuntimeSampler struct{}

// Sample implements MemorySampler.
func (RuntimeSampler) Sample() (uint64, bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapInuse, true
}

// StaticSampler reports a fixed usage that can be changed with Set. Useful
// in tests and for hosts that push usage from elsewhere.
type StaticSampler struct {
	used atomic.Uint64
}

// NewStaticSampler creates a sampler reporting used bytes.
func NewStaticSampler(used uint64) *StaticSampler {
	s := &StaticSampler{}
	s.used.Store(used)
	return s
}

// Set changes the reported usage.
func (s *StaticSampler) Set(used uint64) { s.used.Store(used) }

// Sample implements MemorySampler.
func (s *StaticSampler) Sample() (uint64, bool) { return s.used.Load(), true }

// Available reports whether s can produce samples at all.
func Available(s MemorySampler) bool {
	if s == nil {
		return false
	}
	_, ok := s.Sample()
	return ok
}
