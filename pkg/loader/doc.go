// Package loader coordinates progressive loading of gallery tiles.
//
// A [Loader] owns four cooperating parts:
//
//   - [Tracker] keeps the visible set, fed by a host intersection observer.
//   - [Coordinator] runs the per-tile state machine
//     queued → loading → loaded | error, bounded by MaxConcurrentLoads.
//   - [Governor] samples memory usage and reclaims tracking state under
//     pressure.
//   - a [metrics.Recorder] measures visibility-to-completion time.
//
// The loader never fetches media. The rendering layer learns which tiles to
// fetch from [Loader.Loading] or the OnLoadStart hook, and reports back with
// [Loader.HandleLoad] and [Loader.HandleError].
//
// # Capabilities
//
// Intersection and memory sampling are injected through [Capabilities] once,
// at construction. A missing intersection capability, or LazyLoad=false,
// puts the tracker in fail-open mode: every registered tile is visible
// immediately, so a gallery never renders blank. A missing memory sampler
// leaves the governor inert.
//
// # Concurrency
//
// Tracker, Coordinator and Governor are not safe for concurrent use. Loader
// serializes every entry point (API calls, intersection callbacks, the
// governor timer) behind one mutex, and all methods are idempotent under
// any interleaving of those callbacks.
package loader
