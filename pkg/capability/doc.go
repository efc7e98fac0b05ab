// Package capability abstracts the host facilities the progressive loader
// depends on: viewport intersection and resource-usage sampling.
//
// Each capability is chosen once, when a loader is constructed. Missing
// capabilities have explicit no-op implementations instead of ad-hoc feature
// checks in the loader:
//
//   - [Unavailable] is an [IntersectionFactory] that always reports
//     [ErrUnavailable]; the loader then fails open and marks every tile visible.
//   - [NoMemory] is a [MemorySampler] that never yields a sample; the memory
//     governor stays inert.
//
// Real implementations:
//
//   - [Manual]: intersection events pushed by the host (an HTTP client, a test).
//   - [Viewport]: a headless observer that intersects tile rectangles with a
//     scrollable viewport, honoring rootMargin and threshold.
//   - [RuntimeSampler]: Go heap usage from the runtime.
package capability
