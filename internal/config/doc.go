// Package config defines settings used by the modpack binaries and provides
// helpers to load, validate and save them in YAML format.
//
// The Config type holds the content store data directory and build output
// defaults shared between the pack and install commands.
package config
