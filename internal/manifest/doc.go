// Package manifest defines the mod package manifest model and its codec.
//
// Three format generations exist, newest to oldest: wizard (paged option
// groups), simple (a flat mod list), and legacy (line-delimited entries).
// Decoding attempts shapes in that explicit order; encoding always targets
// the generation implied by which variant of Manifest is populated, and
// legacy text is a read-only compatibility path.
package manifest
