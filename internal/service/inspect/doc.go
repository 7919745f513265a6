// Package inspect prints human-readable summaries of package archives
// without touching any content store.
package inspect
