// Package memstore provides an in-memory store.Store implementation with
// failure injection hooks, used by tests and dry runs.
package memstore
