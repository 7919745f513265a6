package fsstore

import (
	"bytes"
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/xivkit/modpack/internal/store"

	// Ensure SHA512 available for payload checksum verification.
	_ "crypto/sha512"
)

const (
	// RegistryFilename is the persisted registry inside the data directory.
	RegistryFilename = "modpack-registry.json"

	// payloadDirName holds the extracted per-path view of installed payloads.
	payloadDirName = "files"

	// checksumFunction verifies payload bytes during the atomic apply.
	checksumFunction crypto.Hash = crypto.SHA512

	// bucketFileMode and payloadFileMode are the permissions for store artifacts.
	bucketFileMode  os.FileMode = 0o644
	payloadFileMode os.FileMode = 0o644

	// registryFileMode restricts the registry like any other settings file.
	registryFileMode os.FileMode = 0o600
)

// Store persists payloads under a data directory. Each bucket is one
// append-only data file addressed by (offset, length); every write also
// maintains an extracted per-path file view applied atomically with
// checksum verification. The registry is a JSON file next to the buckets.
type Store struct {
	root string
	gate store.RecomputeGate

	// mu serializes bucket appends and registry file access.
	mu sync.Mutex
}

// New creates a store rooted at the provided data directory.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, payloadDirName), 0o755); err != nil {
		return nil, fmt.Errorf("prepare data directory: %w", err)
	}

	return &Store{root: filepath.Clean(root)}, nil
}

// Root returns the data directory this store persists under.
func (s *Store) Root() string {
	return s.root
}

// bucketPath returns the data file backing one bucket.
func (s *Store) bucketPath(bucket uint32) string {
	return filepath.Join(s.root, fmt.Sprintf("%06x.dat", bucket))
}

// payloadPath returns the extracted view location of a destination path.
func (s *Store) payloadPath(destination string) string {
	return filepath.Join(s.root, payloadDirName, filepath.FromSlash(destination))
}

// ReadBytes fetches one payload byte range from a bucket data file.
func (s *Store) ReadBytes(_ context.Context, bucket uint32, offset int64, length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.bucketPath(bucket))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}

		return nil, fmt.Errorf("open bucket %d: %w", bucket, err)
	}

	defer func() {
		_ = f.Close()
	}()

	data := make([]byte, length)
	if _, err = f.ReadAt(data, offset); err != nil {
		// A short range means the payload is gone, not an I/O problem.
		if errors.Is(err, io.EOF) {
			return nil, store.ErrNotFound
		}

		return nil, fmt.Errorf("read bucket %d at %d: %w", bucket, offset, err)
	}

	return data, nil
}

// Write applies one payload: append to the bucket data file, then refresh
// the extracted per-path view atomically, then update the registry record.
func (s *Store) Write(_ context.Context, req *store.WriteRequest) (*store.WriteResult, error) {
	if req.Kind < store.KindStandard || req.Kind > store.KindTexture {
		return nil, &store.WriteError{
			Path:   req.Path,
			Bucket: req.Bucket,
			Err:    fmt.Errorf("kind %d: %w", req.Kind, store.ErrUnsupportedKind),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset, err := s.appendToBucket(req.Bucket, req.Data)
	if err != nil {
		return nil, &store.WriteError{Path: req.Path, Bucket: req.Bucket, Err: err}
	}

	if err = s.applyPayloadFile(req.Path, req.Data); err != nil {
		return nil, &store.WriteError{Path: req.Path, Bucket: req.Bucket, Err: err}
	}

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
	record.InstalledAt = time.Now()

	return &store.WriteResult{Record: record, Offset: offset}, nil
}

// appendToBucket appends data to the bucket file and returns the write offset.
// Callers hold the mutex.
func (s *Store) appendToBucket(bucket uint32, data []byte) (int64, error) {
	f, err := os.OpenFile(s.bucketPath(bucket), os.O_CREATE|os.O_WRONLY|os.O_APPEND, bucketFileMode)
	if err != nil {
		return 0, fmt.Errorf("open bucket %d: %w", bucket, err)
	}

	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat bucket %d: %w", bucket, err)
	}

	offset := info.Size()
	if _, err = f.Write(data); err != nil {
		return 0, fmt.Errorf("append to bucket %d: %w", bucket, err)
	}

	return offset, nil
}

// applyPayloadFile refreshes the extracted view of one destination path
// using a checksummed atomic apply. Callers hold the mutex.
func (s *Store) applyPayloadFile(destination string, data []byte) error {
	target := s.payloadPath(destination)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare payload directory: %w", err)
	}

	if _, err := os.Stat(target); err != nil && errors.Is(err, os.ErrNotExist) {
		f, createErr := os.Create(target)
		if createErr != nil {
			return fmt.Errorf("create payload: %w", createErr)
		}

		_ = f.Close()
	}

	if !checksumFunction.Available() {
		return errors.New("checksum function unavailable")
	}

	hasher := checksumFunction.New()
	_, _ = hasher.Write(data)

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: payloadFileMode,
		Checksum:   hasher.Sum(nil),
		Hash:       checksumFunction,
	}
	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply payload: %w", err)
	}

	// Apply keeps the replaced file around; the bucket is the fallback here.
	oldFile := target + ".old"
	if _, err := os.Stat(oldFile); err == nil {
		_ = os.Remove(oldFile)
	}

	return nil
}

// LoadRegistry reads the registry file, returning an empty registry when
// none exists yet.
func (s *Store) LoadRegistry(_ context.Context) (*store.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := os.ReadFile(filepath.Join(s.root, RegistryFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store.NewRegistry(), nil
		}

		return nil, fmt.Errorf("read registry: %w", err)
	}

	var reg store.Registry
	if err = json.Unmarshal(contents, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	return &reg, nil
}

// SaveRegistry persists the registry file.
func (s *Store) SaveRegistry(_ context.Context, reg *store.Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = os.WriteFile(filepath.Join(s.root, RegistryFilename), data, registryFileMode); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}

	return nil
}

// RecomputeGate returns the store's recomputation gate.
func (s *Store) RecomputeGate() *store.RecomputeGate {
	return &s.gate
}
