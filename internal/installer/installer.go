package installer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xivkit/modpack/internal/container"
	"github.com/xivkit/modpack/internal/logger"
	"github.com/xivkit/modpack/internal/manifest"
	"github.com/xivkit/modpack/internal/store"
)

// ProgressFunc reports install progress after every attempted entry.
// Best-effort: a nil func is simply not called.
type ProgressFunc func(processed, total int, message string)

// Request describes one install batch.
type Request struct {
	// Archive is the package file whose blob member supplies payload bytes.
	Archive string
	// Entries are the placements to apply, in the caller's intended order.
	Entries []manifest.Entry
	// Store is the target content store.
	Store store.Store
	// Progress receives per-attempt notifications.
	Progress ProgressFunc
}

// Result reports what the batch did. Processed counts attempts, not
// successes; the error report is the caller-displayable aggregation of
// every per-entry failure.
type Result struct {
	Processed   int
	ErrorReport string
}

// fallbackSourceTag marks writes whose entry carries no provenance.
const fallbackSourceTag = "modpack"

// Install applies a batch of entries from an archive into the target store.
//
// Entries are deduplicated by destination path keeping the last occurrence
// (later entries are the caller's final selection when a path appears in
// several wizard options). The store's background recomputation is
// suspended for the whole batch and resumed on every exit path. Per-entry
// write failures are recorded and the loop continues; an unsupported
// payload kind stops the remainder of the batch. The registry is loaded
// once up front and persisted at most once at the end.
func Install(ctx context.Context, req *Request) (*Result, error) {
	survivors := dedupeLastWins(req.Entries)

	logger.InfoKV(ctx, "Starting install batch",
		"archive", req.Archive, "entries", len(req.Entries), "after_dedup", len(survivors))

	resume := req.Store.RecomputeGate().Suspend()
	defer resume()

	reg, err := req.Store.LoadRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	blob, err := container.OpenBlob(req.Archive)
	if err != nil {
		return nil, fmt.Errorf("open blob member: %w", err)
	}

	defer func() {
		_ = blob.Close()
	}()

	var (
		report    strings.Builder
		processed int
	)

	for i := range survivors {
		entry := &survivors[i]

		applyErr := applyEntry(ctx, req.Store, reg, blob, entry)

		// Attempts are counted whether or not they succeed.
		processed++
		reportProgress(req.Progress, processed, len(survivors), "")

		if applyErr == nil {
			continue
		}

		appendErrorBlock(&report, entry, applyErr)

		if errors.Is(applyErr, store.ErrUnsupportedKind) {
			logger.WarnKV(ctx, "Payload kind unsupported, stopping batch",
				"path", entry.Path, "processed", processed)

			break
		}

		logger.WarnKV(ctx, "Entry failed, continuing batch",
			"path", entry.Path, "error", applyErr)
	}

	if len(survivors) > 0 {
		if p := survivors[0].Provenance; p != nil && !reg.HasPackage(p.Name) {
			reg.AddPackage(*p)
		}

		if err = req.Store.SaveRegistry(ctx, reg); err != nil {
			return nil, fmt.Errorf("save registry: %w", err)
		}
	}

	logger.InfoKV(ctx, "Install batch finished",
		"processed", processed, "failed", strings.Count(report.String(), "\n\n"))

	return &Result{Processed: processed, ErrorReport: report.String()}, nil
}

// applyEntry reads one payload from the blob and writes it into the store,
// reusing the registry record already owning the destination path when
// there is one.
func applyEntry(
	ctx context.Context,
	st store.Store,
	reg *store.Registry,
	blob *container.Blob,
	entry *manifest.Entry,
) error {
	// Manifests are untrusted input; a negative size or offset would
	// otherwise panic the whole batch instead of failing one entry.
	if entry.Size < 0 || entry.Offset < 0 {
		return fmt.Errorf("entry declares invalid placement (offset %d, size %d)", entry.Offset, entry.Size)
	}

	data := make([]byte, entry.Size)
	if _, err := blob.ReadAt(data, entry.Offset); err != nil {
		return fmt.Errorf("read blob at %d: %w", entry.Offset, err)
	}

	existing := reg.FindByPath(entry.Path)

	result, err := st.Write(ctx, &store.WriteRequest{
		Data:       data,
		Existing:   existing,
		Path:       entry.Path,
		Category:   entry.Category,
		Name:       entry.Name,
		Bucket:     entry.Bucket,
		SourceTag:  sourceTag(entry),
		Kind:       store.KindForPath(entry.Path),
		Provenance: entry.Provenance,
	})
	if err != nil {
		return err
	}

	if existing == nil {
		reg.Add(result.Record)
	}

	return nil
}

// dedupeLastWins keeps only the last occurrence of every destination path,
// returning survivors in their original relative order.
func dedupeLastWins(entries []manifest.Entry) []manifest.Entry {
	seen := make(map[string]struct{}, len(entries))
	survivors := make([]manifest.Entry, 0, len(entries))

	for i := len(entries) - 1; i >= 0; i-- {
		if _, dup := seen[entries[i].Path]; dup {
			continue
		}

		seen[entries[i].Path] = struct{}{}
		survivors = append(survivors, entries[i])
	}

	slices.Reverse(survivors)

	return survivors
}

// appendErrorBlock adds one formatted failure to the running error report.
func appendErrorBlock(report *strings.Builder, entry *manifest.Entry, err error) {
	fmt.Fprintf(report, "Unable to install %s\n\tPath: %s\n\tOffset: %d\n\tError: %v\n\n",
		entry.Name, entry.Path, entry.Offset, err)
}

// sourceTag names what produced a write: the originating package when known.
func sourceTag(entry *manifest.Entry) string {
	if entry.Provenance != nil && entry.Provenance.Name != "" {
		return entry.Provenance.Name
	}

	return fallbackSourceTag
}

// reportProgress fires a progress notification if a listener is attached.
func reportProgress(fn ProgressFunc, processed, total int, message string) {
	if fn != nil {
		fn(processed, total, message)
	}
}
