package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/xivkit/modpack/internal/manifest"
)

// Record is one installed payload's registry entry. Its ID is stable across
// re-installs of the same destination path; overwriting a path updates the
// existing record rather than minting a new identity.
type Record struct {
	// ID is the record's stable identity.
	ID uuid.UUID `json:"id"`
	// Path is the destination key the record owns.
	Path string `json:"path"`
	// Name and Category are the display strings of the last write.
	Name     string `json:"name"`
	Category string `json:"category"`
	// Bucket is the physical store partition holding the payload.
	Bucket uint32 `json:"bucket"`
	// Offset is the payload's current byte offset inside the bucket.
	Offset int64 `json:"offset"`
	// Size is the payload length in bytes.
	Size int64 `json:"size"`
	// SourceTag names what produced the last write.
	SourceTag string `json:"sourceTag"`
	// Kind is the payload classification of the last write.
	Kind Kind `json:"kind"`
	// InstalledAt is the time of the last write.
	InstalledAt time.Time `json:"installedAt"`
}

// NewRecord mints a record with a fresh identity for a destination path.
func NewRecord(destination string) *Record {
	return &Record{
		ID:   uuid.New(),
		Path: destination,
	}
}

// Registry is the store's persisted list of installed records plus the
// provenance of every applied package. Installers load it once at batch
// start and save it at most once at batch end.
type Registry struct {
	Records  []*Record             `json:"records"`
	Packages []manifest.Provenance `json:"packages"`
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// FindByPath returns the record owning the destination path, or nil.
func (r *Registry) FindByPath(destination string) *Record {
	for _, record := range r.Records {
		if record.Path == destination {
			return record
		}
	}

	return nil
}

// Add appends a record to the registry.
func (r *Registry) Add(record *Record) {
	r.Records = append(r.Records, record)
}

// HasPackage reports whether a package with the given name was already
// applied. Matching is by name only, regardless of version.
func (r *Registry) HasPackage(name string) bool {
	for _, p := range r.Packages {
		if p.Name == name {
			return true
		}
	}

	return false
}

// AddPackage appends a package provenance record.
func (r *Registry) AddPackage(p manifest.Provenance) {
	r.Packages = append(r.Packages, p)
}
