// Package pkg provides the libraries behind tiledgallery: a justified tile
// layout engine for image galleries and a progressive loader that decides
// which tiles to fetch as they scroll into view.
//
// # Overview
//
// The pkg directory is organized into three areas:
//
//  1. Core - the layout engine and the loader ([layout], [loader], [metrics])
//  2. Data - image records and where they come from ([gallery], [store])
//  3. Plumbing - caching, configuration and serving ([cache], [config],
//     [pipeline], [session], [api])
//
// # Architecture
//
// The typical data flow:
//
//	Manifest / MongoDB / inline JSON
//	         ↓
//	    [store] package (load and validate image records)
//	         ↓
//	    [pipeline] package (resolve config, cache, compute)
//	         ↓
//	    [layout] package (rows and tiles)
//	         ↓
//	    [loader] package (visibility, admission, memory)
//
// # Quick Start
//
// Lay out a gallery and drive its loader by hand:
//
//	import (
//	    "github.com/matzehuels/tiledgallery/pkg/capability"
//	    "github.com/matzehuels/tiledgallery/pkg/layout"
//	    "github.com/matzehuels/tiledgallery/pkg/loader"
//	)
//
//	// 1. Compute a layout for a 1200px container
//	l := layout.Calculate(images, 1200, layout.DefaultConfig())
//
//	// 2. Create a loader; the host reports intersections itself
//	obs := capability.NewManual()
//	ld, _ := loader.New(loader.DefaultOptions(), loader.Capabilities{
//	    Intersection: obs.Factory,
//	})
//	ld.SetTiles(l.Tiles)
//	for _, t := range l.Tiles {
//	    ld.Observe(t.ID, t)
//	}
//
//	// 3. Report what the user sees, fetch what is loading
//	obs.Report(l.Tiles[0].ID)
//	for _, id := range ld.Loading() {
//	    go fetch(id, ld.HandleLoad, ld.HandleError)
//	}
//
// # Main Packages
//
// [layout] - Greedy row packing, responsive breakpoints and layout JSON.
//
// [loader] - Visibility tracking, load admission under a concurrency bound,
// preloading ahead of the scroll position and memory reclamation. One
// [loader.Loader] per gallery view; all callbacks are serialized.
//
// [capability] - Host capabilities the loader depends on: intersection
// observers (manual, geometric viewport, unavailable) and memory samplers.
//
// [metrics] - Rolling load-time statistics.
//
// [gallery] - Image records, the photo/video payload union and validation.
//
// [store] - Image sources: in-memory, manifest directory (with file
// watching) and MongoDB.
//
// [cache] - Layout and record caching with file, Redis and null backends.
//
// [pipeline] - Config resolution plus cached layout computation, shared by
// the CLI and the HTTP API.
//
// [session] - Server-side loader sessions with expiry.
//
// [api] - HTTP API over the pipeline and loader sessions.
//
// [config] - TOML configuration for every component.
//
// [observability] - Hook interfaces for layout, loader and cache events.
//
// [errors] - Coded errors shared across packages.
package pkg
