package container

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xivkit/modpack/internal/manifest"
)

// writeArchive creates an archive with the given manifest text and blob bytes,
// bypassing the builder, for reader-only scenarios.
func writeArchive(t *testing.T, manifestText string, blob []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "handmade.ttmp2")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	w, err := zw.Create(ManifestMemberName)
	require.NoError(t, err)

	_, err = w.Write([]byte(manifestText))
	require.NoError(t, err)

	w, err = zw.Create(BlobMemberName)
	require.NoError(t, err)

	_, err = w.Write(blob)
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

// TestReadLegacy_SkipsVersionLine exercises the sniffed legacy listing.
func TestReadLegacy_SkipsVersionLine(t *testing.T) {
	t.Parallel()

	text := "modpack version 1.0\n" +
		`{"name":"Old","category":"Body","fullPath":"chara/a.tex","modSize":4,"modOffset":0,"datFile":4}`
	path := writeArchive(t, text, []byte("abcd"))

	entries, err := ReadLegacy(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Old", entries[0].Name)
}

// TestReadLegacy_UnreadableYieldsNil ensures a bad line yields nil, not an error.
func TestReadLegacy_UnreadableYieldsNil(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, "version\nnot an entry", nil)

	entries, err := ReadLegacy(path)
	require.NoError(t, err)
	require.Nil(t, entries)
}

// TestVersion_ReadsOnlyTheTag checks the cheap version probe on a simple manifest.
func TestVersion_ReadsOnlyTheTag(t *testing.T) {
	t.Parallel()

	text, err := manifest.Encode(&manifest.Manifest{
		Name: "Tagged",
		SimpleEntries: []manifest.Entry{
			{Name: "A", Category: "Body", Path: "chara/a.tex", Size: 4, Bucket: 4},
		},
	})
	require.NoError(t, err)

	path := writeArchive(t, text, []byte("abcd"))

	tag, err := Version(path)
	require.NoError(t, err)
	require.Equal(t, manifest.SimpleFormatVersion, tag)
}

// TestOpenBlob_RandomAccess verifies size and ReadAt over the extracted member,
// and that Close removes the scratch file.
func TestOpenBlob_RandomAccess(t *testing.T) {
	t.Parallel()

	path := writeArchive(t, `{"formatVersion":"1.3s","name":"x"}`, []byte("0123456789"))

	blob, err := OpenBlob(path)
	require.NoError(t, err)
	require.Equal(t, int64(10), blob.Size())

	buf := make([]byte, 4)
	_, err = blob.ReadAt(buf, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("3456"), buf)

	require.NoError(t, blob.Close())
}

// TestReadManifestAndImages_MissingManifestMember surfaces a clear error.
func TestReadManifestAndImages_MissingManifestMember(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.ttmp2")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = ReadManifestAndImages(path)
	require.Error(t, err)
}

// TestReadManifest_SkipsImageMembers decodes metadata from an archive whose
// image member is not valid image data; the manifest-only reader must not
// care while the full reader fails on it.
func TestReadManifest_SkipsImageMembers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "badimage.ttmp2")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	w, err := zw.Create(ManifestMemberName)
	require.NoError(t, err)

	_, err = w.Write([]byte(`{"formatVersion":"1.3s","name":"Bad Preview","simpleModsList":[{"name":"A","fullPath":"chara/a.tex","modSize":4,"datFile":4}]}`))
	require.NoError(t, err)

	w, err = zw.Create("images/broken.png")
	require.NoError(t, err)

	_, err = w.Write([]byte("not a png"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	m, generation, err := ReadManifest(path)
	require.NoError(t, err)
	require.Equal(t, "Bad Preview", m.Name)
	require.Equal(t, manifest.GenerationSimple, generation)

	_, err = ReadManifestAndImages(path)
	require.Error(t, err)
}
