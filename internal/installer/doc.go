// Package installer applies batches of package entries into a content
// store: entries are deduplicated by destination path, payload bytes are
// fetched from the archive's blob member, and results are recorded in the
// store registry in a single save.
package installer
