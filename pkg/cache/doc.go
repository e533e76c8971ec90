// Package cache provides a bounded, thread-safe LRU cache.
//
// The service layer uses it to keep resolved term names in memory so
// repeated name lookups do not hit the row store. Hit and miss counts can
// be mirrored into the shared Prometheus metrics via WithMetrics.
package cache
