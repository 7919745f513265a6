package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xivkit/modpack/internal/store"
)

// Store is an in-memory content store used by tests and dry runs. The
// registry round-trips through JSON on load/save so callers observe the
// same value-copy semantics as the filesystem store.
type Store struct {
	mu       sync.Mutex
	buckets  map[uint32][]byte
	payloads map[string][]byte
	registry []byte
	gate     store.RecomputeGate

	writeErr error
	pathErrs map[string]error
	rejected map[store.Kind]struct{}
	now      func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		buckets:  make(map[uint32][]byte),
		payloads: make(map[string][]byte),
		pathErrs: make(map[string]error),
		rejected: make(map[store.Kind]struct{}),
		now:      time.Now,
	}
}

// Seed appends data to a bucket and returns its offset, for tests that
// need pre-existing source payloads.
func (s *Store) Seed(bucket uint32, data []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := int64(len(s.buckets[bucket]))
	s.buckets[bucket] = append(s.buckets[bucket], data...)

	return offset
}

// Payload returns the bytes last written to a destination path.
func (s *Store) Payload(destination string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.payloads[destination]

	return data, ok
}

// FailWrites makes every subsequent Write fail with the given error.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeErr = err
}

// FailPathWrite makes writes to one destination path fail with the given error.
func (s *Store) FailPathWrite(destination string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pathErrs[destination] = err
}

// RejectKind makes the store treat a payload kind as unsupported.
func (s *Store) RejectKind(kind store.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejected[kind] = struct{}{}
}

// ReadBytes fetches one payload byte range from a bucket.
func (s *Store) ReadBytes(_ context.Context, bucket uint32, offset int64, length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.buckets[bucket]
	if !ok || offset < 0 || offset+int64(length) > int64(len(data)) {
		return nil, store.ErrNotFound
	}

	out := make([]byte, length)
	copy(out, data[offset:offset+int64(length)])

	return out, nil
}

// Write applies one payload, honoring any configured failure injection.
func (s *Store) Write(_ context.Context, req *store.WriteRequest) (*store.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injectedFailure(req); err != nil {
		return nil, err
	}

	offset := int64(len(s.buckets[req.Bucket]))
	s.buckets[req.Bucket] = append(s.buckets[req.Bucket], req.Data...)
	s.payloads[req.Path] = append([]byte(nil), req.Data...)

	record := req.Existing
	if record == nil {
		record = store.NewRecord(req.Path)
	}

	record.Name = req.Name
	record.Category = req.Category
	record.Bucket = req.Bucket
	record.Offset = offset
	record.Size = int64(len(req.Data))
	record.SourceTag = req.SourceTag
	record.Kind = req.Kind
	record.InstalledAt = s.now()

	return &store.WriteResult{Record: record, Offset: offset}, nil
}

// injectedFailure returns the configured failure for this request, if any.
// Callers hold the mutex.
func (s *Store) injectedFailure(req *store.WriteRequest) error {
	if _, bad := s.rejected[req.Kind]; bad || req.Kind < store.KindStandard || req.Kind > store.KindTexture {
		return &store.WriteError{
			Path:   req.Path,
			Bucket: req.Bucket,
			Err:    fmt.Errorf("kind %d: %w", req.Kind, store.ErrUnsupportedKind),
		}
	}

	if err, ok := s.pathErrs[req.Path]; ok {
		return &store.WriteError{Path: req.Path, Bucket: req.Bucket, Err: err}
	}

	if s.writeErr != nil {
		return &store.WriteError{Path: req.Path, Bucket: req.Bucket, Err: s.writeErr}
	}

	return nil
}

// LoadRegistry returns a copy of the persisted registry, empty when none was saved.
func (s *Store) LoadRegistry(_ context.Context) (*store.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry == nil {
		return store.NewRegistry(), nil
	}

	var reg store.Registry
	if err := json.Unmarshal(s.registry, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	return &reg, nil
}

// SaveRegistry persists the registry.
func (s *Store) SaveRegistry(_ context.Context, reg *store.Registry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry = data

	return nil
}

// RecomputeGate returns the store's recomputation gate.
func (s *Store) RecomputeGate() *store.RecomputeGate {
	return &s.gate
}
