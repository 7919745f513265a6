package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/xivkit/modpack/internal/manifest"
)

var (
	// ErrNotFound is returned when a byte range or registry resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedKind is returned when a store cannot write the payload
	// kind at all. Installers treat it as fatal for the rest of a batch,
	// unlike ordinary write failures which are recoverable per entry.
	ErrUnsupportedKind = errors.New("unsupported payload kind")
)

// Kind classifies a payload for the store's benefit.
// The numeric values are part of the store's on-disk vocabulary.
type Kind int

const (
	// KindStandard covers payloads with no special handling.
	KindStandard Kind = 2
	// KindModel covers model payloads (.mdl).
	KindModel Kind = 3
	// KindTexture covers texture payloads (.tex).
	KindTexture Kind = 4
)

// KindForPath classifies a payload kind from the destination path's extension.
func KindForPath(destination string) Kind {
	switch strings.ToLower(path.Ext(destination)) {
	case ".tex":
		return KindTexture
	case ".mdl":
		return KindModel
	default:
		return KindStandard
	}
}

// WriteRequest carries one payload into the store's sole mutation entry point.
type WriteRequest struct {
	// Data is the raw payload.
	Data []byte
	// Existing, when non-nil, is the registry record already owning the
	// destination path. The store associates the new bytes with it,
	// preserving its identity; when nil a brand-new record is created.
	Existing *Record
	// Path is the destination key, unique within a bucket.
	Path string
	// Category and Name are opaque display strings.
	Category string
	Name     string
	// Bucket selects the physical store partition.
	Bucket uint32
	// SourceTag names what produced this write (a package name, usually).
	SourceTag string
	// Kind is the payload classification derived from the destination path.
	Kind Kind
	// Provenance, when non-nil, records the originating package.
	Provenance *manifest.Provenance
}

// WriteResult reports where a payload landed.
type WriteResult struct {
	// Record is the registry record now owning the destination path.
	// New when WriteRequest.Existing was nil, otherwise the same record updated.
	Record *Record
	// Offset is the payload's byte offset inside its bucket.
	Offset int64
}

// WriteError wraps a store write failure with its placement context.
type WriteError struct {
	Path   string
	Bucket uint32
	Err    error
}

// Error renders the failure with its destination context.
func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s (bucket %d): %v", e.Path, e.Bucket, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is inspection.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store is the narrow contract the packaging subsystem holds against the
// target content store. Implementations serialize their own internal
// mutations; callers only coordinate through the recompute gate.
type Store interface {
	// ReadBytes fetches one payload byte range, or ErrNotFound when the
	// range does not exist. Used by the simple build path only.
	ReadBytes(ctx context.Context, bucket uint32, offset int64, length int) ([]byte, error)

	// Write applies one payload. Failures are typed: ErrUnsupportedKind
	// (wrapped) when the kind cannot be handled at all, any other error
	// for ordinary store-level trouble.
	Write(ctx context.Context, req *WriteRequest) (*WriteResult, error)

	// LoadRegistry reads the persisted registry. A store with no registry
	// yet returns an empty one, not an error.
	LoadRegistry(ctx context.Context) (*Registry, error)

	// SaveRegistry persists the registry. Installers call it at most once per batch.
	SaveRegistry(ctx context.Context, reg *Registry) error

	// RecomputeGate returns the store's background-recomputation gate.
	RecomputeGate() *RecomputeGate
}
