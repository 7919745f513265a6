// Package fsstore implements store.Store on the local filesystem.
//
// Payload bytes live in append-only per-bucket data files addressed by
// (offset, length); an extracted per-path view is refreshed on every write
// with a checksummed atomic apply, and the registry persists as JSON in the
// same data directory.
package fsstore
