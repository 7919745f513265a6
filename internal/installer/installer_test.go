package installer

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xivkit/modpack/internal/container"
	"github.com/xivkit/modpack/internal/manifest"
	"github.com/xivkit/modpack/internal/store"
	"github.com/xivkit/modpack/internal/store/memstore"
)

// writeBatchArchive lays out the given payloads back to back in a blob
// member and returns the archive path plus one entry per payload.
func writeBatchArchive(t *testing.T, payloads map[string][]byte, order []string) (string, []manifest.Entry) {
	t.Helper()

	var (
		blob    []byte
		entries []manifest.Entry
	)

	for _, path := range order {
		data := payloads[path]
		entries = append(entries, manifest.Entry{
			Name:     filepath.Base(path),
			Category: "Body",
			Path:     path,
			Size:     int64(len(data)),
			Offset:   int64(len(blob)),
			Bucket:   4,
		})
		blob = append(blob, data...)
	}

	archive := filepath.Join(t.TempDir(), "batch.ttmp2")

	f, err := os.Create(archive)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	w, err := zw.Create(container.ManifestMemberName)
	require.NoError(t, err)

	text, err := manifest.Encode(&manifest.Manifest{Name: "Batch", SimpleEntries: entries})
	require.NoError(t, err)

	_, err = w.Write([]byte(text))
	require.NoError(t, err)

	w, err = zw.Create(container.BlobMemberName)
	require.NoError(t, err)

	_, err = w.Write(blob)
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return archive, entries
}

// TestInstall_LastOccurrenceWins checks that a repeated destination path
// keeps only the later payload and that survivors stay in order.
func TestInstall_LastOccurrenceWins(t *testing.T) {
	t.Parallel()

	archive, entries := writeBatchArchive(t,
		map[string][]byte{
			"chara/first.tex":  []byte("OLD!"),
			"chara/other.mdl":  []byte("other"),
			"chara/first2.tex": []byte("NEW!"),
		},
		[]string{"chara/first.tex", "chara/other.mdl", "chara/first2.tex"})

	// Make the third entry target the same path as the first.
	entries[2].Path = entries[0].Path

	st := memstore.New()

	var seen []int

	result, err := Install(context.Background(), &Request{
		Archive: archive,
		Entries: entries,
		Store:   st,
		Progress: func(processed, total int, _ string) {
			require.Equal(t, 2, total)
			seen = append(seen, processed)
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Empty(t, result.ErrorReport)
	require.Equal(t, []int{1, 2}, seen)

	data, ok := st.Payload("chara/first.tex")
	require.True(t, ok)
	require.Equal(t, []byte("NEW!"), data)

	reg, err := st.LoadRegistry(context.Background())
	require.NoError(t, err)
	require.Len(t, reg.Records, 2)
}

// TestInstall_UnsupportedKindStopsBatch verifies the fatal/recoverable
// split: a plain write failure is reported and skipped, an unsupported
// payload kind ends the batch before later entries run.
func TestInstall_UnsupportedKindStopsBatch(t *testing.T) {
	t.Parallel()

	archive, entries := writeBatchArchive(t,
		map[string][]byte{
			"chara/a.tex": []byte("aaaa"),
			"chara/b.mdl": []byte("bbbb"),
			"chara/c.tex": []byte("cccc"),
		},
		[]string{"chara/a.tex", "chara/b.mdl", "chara/c.tex"})

	st := memstore.New()
	st.FailPathWrite("chara/a.tex", errors.New("bucket full"))
	st.RejectKind(store.KindModel)

	result, err := Install(context.Background(), &Request{
		Archive: archive,
		Entries: entries,
		Store:   st,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Contains(t, result.ErrorReport, "chara/a.tex")
	require.Contains(t, result.ErrorReport, "bucket full")
	require.Contains(t, result.ErrorReport, "chara/b.mdl")

	_, ok := st.Payload("chara/c.tex")
	require.False(t, ok)

	require.False(t, st.RecomputeGate().Suspended())
}

// TestInstall_ResumesAfterTotalFailure makes every write fail and checks
// the gate still ends up resumed with all attempts counted.
func TestInstall_ResumesAfterTotalFailure(t *testing.T) {
	t.Parallel()

	archive, entries := writeBatchArchive(t,
		map[string][]byte{
			"chara/a.tex": []byte("aaaa"),
			"chara/b.tex": []byte("bbbb"),
		},
		[]string{"chara/a.tex", "chara/b.tex"})

	st := memstore.New()
	st.FailWrites(errors.New("disk on fire"))

	result, err := Install(context.Background(), &Request{
		Archive: archive,
		Entries: entries,
		Store:   st,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Contains(t, result.ErrorReport, "disk on fire")
	require.False(t, st.RecomputeGate().Suspended())
}

// TestInstall_RecordsProvenanceOnce appends the originating package on the
// first install only.
func TestInstall_RecordsProvenanceOnce(t *testing.T) {
	t.Parallel()

	archive, entries := writeBatchArchive(t,
		map[string][]byte{"chara/a.tex": []byte("aaaa")},
		[]string{"chara/a.tex"})

	entries[0].Provenance = &manifest.Provenance{Name: "Glow Pack", Author: "N", Version: "1.0"}

	st := memstore.New()

	for i := 0; i < 2; i++ {
		_, err := Install(context.Background(), &Request{
			Archive: archive,
			Entries: entries,
			Store:   st,
		})
		require.NoError(t, err)
	}

	reg, err := st.LoadRegistry(context.Background())
	require.NoError(t, err)
	require.Len(t, reg.Packages, 1)
	require.Equal(t, "Glow Pack", reg.Packages[0].Name)
}

// TestInstall_ReinstallKeepsRecordIdentity rewrites an existing path and
// expects the same registry record to be updated, not a second one added.
func TestInstall_ReinstallKeepsRecordIdentity(t *testing.T) {
	t.Parallel()

	archive, entries := writeBatchArchive(t,
		map[string][]byte{"chara/a.tex": []byte("aaaa")},
		[]string{"chara/a.tex"})

	st := memstore.New()
	ctx := context.Background()

	_, err := Install(ctx, &Request{Archive: archive, Entries: entries, Store: st})
	require.NoError(t, err)

	before, err := st.LoadRegistry(ctx)
	require.NoError(t, err)
	require.Len(t, before.Records, 1)

	_, err = Install(ctx, &Request{Archive: archive, Entries: entries, Store: st})
	require.NoError(t, err)

	after, err := st.LoadRegistry(ctx)
	require.NoError(t, err)
	require.Len(t, after.Records, 1)
	require.Equal(t, before.Records[0].ID, after.Records[0].ID)
}

// TestInstall_EmptyBatchTouchesNothing leaves the registry unsaved.
func TestInstall_EmptyBatchTouchesNothing(t *testing.T) {
	t.Parallel()

	archive, _ := writeBatchArchive(t,
		map[string][]byte{"chara/a.tex": []byte("aaaa")},
		[]string{"chara/a.tex"})

	st := memstore.New()

	result, err := Install(context.Background(), &Request{Archive: archive, Store: st})
	require.NoError(t, err)
	require.Zero(t, result.Processed)
	require.Empty(t, result.ErrorReport)
}

// TestInstall_NegativeEntrySizeIsRecoverable feeds a corrupt entry with a
// negative size alongside a good one; the bad entry must land in the error
// report while the rest of the batch still installs.
func TestInstall_NegativeEntrySizeIsRecoverable(t *testing.T) {
	t.Parallel()

	archive, entries := writeBatchArchive(t,
		map[string][]byte{
			"chara/bad.tex":  []byte("bad!"),
			"chara/good.tex": []byte("good"),
		},
		[]string{"chara/bad.tex", "chara/good.tex"})

	entries[0].Size = -1
	entries[0].Offset = -8

	st := memstore.New()

	result, err := Install(context.Background(), &Request{
		Archive: archive,
		Entries: entries,
		Store:   st,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Contains(t, result.ErrorReport, "chara/bad.tex")
	require.Contains(t, result.ErrorReport, "invalid placement")

	data, ok := st.Payload("chara/good.tex")
	require.True(t, ok)
	require.Equal(t, []byte("good"), data)
}
