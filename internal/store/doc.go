// Package store defines the contract between the packaging subsystem and
// the target content store: a narrow keyed byte store with a persisted
// registry of installed records and a reference-counted gate around its
// background dependent-file recomputation.
//
// Two implementations live in subpackages: fsstore persists buckets and the
// registry under a data directory, memstore keeps everything in memory for
// tests and dry runs.
package store
