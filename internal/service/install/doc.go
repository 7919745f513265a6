// Package install applies package archives to the configured content
// store: it guards against concurrent batches with a marker file, checks
// the package's framework requirement, and hands the flattened entry list
// to the installer.
package install
