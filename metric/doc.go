// Package metric provides Prometheus-based metrics collection and the HTTP
// endpoint for monitoring the knowledge core.
//
// The package follows a three-layer design:
//
//  1. Core metrics: platform-level metrics registered automatically
//     (Metrics type) covering the write path, the change log, the closure
//     engine, the store boundary and the term cache.
//  2. Registrar: extensible registration for component-specific metrics
//     (Registrar interface).
//  3. HTTP server: Prometheus scrape endpoint with a health check
//     (Server type).
//
// Basic usage:
//
//	registry := metric.NewRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//
//	m := registry.CoreMetrics()
//	m.RecordSave("words", "updated", elapsed)
//	m.RecordTraversal("are", 3)
//
// All core metrics use the namespace "zukunft" with a subsystem per
// concern, e.g. zukunft_save_outcomes_total{table="words",outcome="forked"}.
package metric
