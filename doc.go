// Package zukunft is the knowledge core behind zukunft.com: a shared store
// of words, triples, formulas and values where every user works in a
// personal sandbox layered over the common standard rows.
//
// # Data model
//
// Every named object has one standard row that all users share, and each
// user may carry a sparse override row holding only the fields they changed.
// Loading an object merges the two: a set override field wins, an unset one
// inherits the standard value. Saving decides between updating the shared
// row (the owner, while nobody else has diverged) and writing the user's
// override (everyone else).
//
// Words and formulas share the term id space through an interleaved codec;
// triples and verbs occupy its negative half. Words and triples together
// form the phrase space the graph engine traverses.
//
// # Packages
//
//   - term: id codecs, kinds and verb definitions
//   - sandbox: the overlay data model and the save rules
//   - changelog: the append-only change trail with its NATS changefeed
//   - closure: phrase graph traversal (is-a, is-part-of, can-contain)
//   - registry: the constructed-once code tables (verbs, levels)
//   - storage: the row store boundary with sqlite and in-memory backends
//   - service: the assembled core with lifecycle, metrics and caching
//   - config: YAML configuration with environment overrides
//   - metric: Prometheus metrics and the scrape endpoint
//   - errors: classified errors shared by all packages
//
// The cmd/zukunftd binary wires a complete instance from a config file.
package zukunft
