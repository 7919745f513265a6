// Package pack builds package archives from YAML build plans: wizard
// packages from payload files on disk, simple packages from byte ranges of
// the configured content store.
package pack
