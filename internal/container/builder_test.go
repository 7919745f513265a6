package container

import (
	"archive/zip"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xivkit/modpack/internal/manifest"
	"github.com/xivkit/modpack/internal/store"
	"github.com/xivkit/modpack/internal/store/memstore"
)

// writeTestPNG writes a tiny valid PNG file for image staging tests.
func writeTestPNG(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, f.Close())
}

// wizardRequest builds a two-page request with one preview image.
func wizardRequest(t *testing.T, outputDir string) *WizardRequest {
	t.Helper()

	imageFile := filepath.Join(t.TempDir(), "preview.png")
	writeTestPNG(t, imageFile)

	return &WizardRequest{
		Meta: manifest.Manifest{
			Name:    "Aureate Set",
			Author:  "maru",
			Version: "2.1.0",
		},
		OutputDir: outputDir,
		Pages: []WizardPage{
			{
				Groups: []WizardGroup{
					{
						Name:          "Body",
						SelectionType: manifest.SelectionSingle,
						Options: []WizardOption{
							{
								Name:      "Variant A",
								ImageFile: imageFile,
								Payloads: []WizardPayload{
									{
										Name:     "Top A",
										Category: "Body",
										Path:     "chara/equipment/e0001/top.mdl",
										Bucket:   4,
										Data:     []byte("model bytes A"),
									},
								},
							},
						},
					},
				},
			},
			{
				Groups: []WizardGroup{
					{
						Name:          "Textures",
						SelectionType: manifest.SelectionMultiple,
						Options: []WizardOption{
							{
								Name: "Diffuse",
								Payloads: []WizardPayload{
									{
										Name:     "Diffuse",
										Category: "Body",
										Path:     "chara/equipment/e0001/diffuse.tex",
										Bucket:   4,
										Data:     []byte("texture bytes that are longer"),
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

// TestBuildWizard_ArchiveShape verifies members, offsets, image renaming and
// per-page progress of a wizard build.
func TestBuildWizard_ArchiveShape(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()
	req := wizardRequest(t, outputDir)

	var pagesReported []int

	req.Progress = func(done, total int) {
		require.Equal(t, 2, total)
		pagesReported = append(pagesReported, done)
	}

	result, err := BuildWizard(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outputDir, "Aureate Set.ttmp2"), result.Path)
	require.Equal(t, 2, result.Pages)
	require.Equal(t, 2, result.Entries)
	require.Equal(t, []int{1, 2}, pagesReported)

	zr, err := zip.OpenReader(result.Path)
	require.NoError(t, err)

	defer func() {
		_ = zr.Close()
	}()

	names := make([]string, 0, len(zr.File))
	for _, member := range zr.File {
		names = append(names, member.Name)
	}

	require.Contains(t, names, ManifestMemberName)
	require.Contains(t, names, BlobMemberName)

	contents, err := ReadManifestAndImages(result.Path)
	require.NoError(t, err)
	require.Equal(t, manifest.GenerationWizard, contents.Generation)

	entries := contents.Manifest.FlattenEntries()
	require.Len(t, entries, 2)

	// Sequential writes: first entry at zero, second right after it, both
	// inside the blob.
	blob, err := OpenBlob(result.Path)
	require.NoError(t, err)

	defer func() {
		_ = blob.Close()
	}()

	require.Zero(t, entries[0].Offset)
	require.Equal(t, entries[0].Size, entries[1].Offset)
	require.LessOrEqual(t, entries[1].Offset+entries[1].Size, blob.Size())

	// The image member carries a generated name, not the packager's filename.
	option := contents.Manifest.Pages[0].Groups[0].Options[0]
	require.NotEmpty(t, option.ImagePath)
	require.NotContains(t, option.ImagePath, "preview")
	require.True(t, strings.HasPrefix(option.ImagePath, "images/"))
	require.Contains(t, contents.Images, option.ImagePath)
}

// TestBuildSimple_FetchesFromStore verifies payloads are pulled by byte range
// and entries carry provenance.
func TestBuildSimple_FetchesFromStore(t *testing.T) {
	t.Parallel()

	src := memstore.New()
	offsetA := src.Seed(4, []byte("aaaa"))
	offsetB := src.Seed(4, []byte("bbbbbb"))

	var progressed int

	result, err := BuildSimple(context.Background(), &SimpleRequest{
		Meta: manifest.Manifest{
			Name:    "Harvested",
			Author:  "maru",
			Version: "1.0.0",
		},
		Store:     src,
		OutputDir: t.TempDir(),
		Refs: []SourceRef{
			{Name: "A", Category: "Body", Path: "chara/a.tex", Bucket: 4, Offset: offsetA, Length: 4},
			{Name: "B", Category: "Body", Path: "chara/b.tex", Bucket: 4, Offset: offsetB, Length: 6},
		},
		Progress: func(done, total int, message string) {
			progressed++
			require.Equal(t, 2, total)
			require.NotEmpty(t, message)
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Entries)
	require.Equal(t, 2, progressed)

	contents, err := ReadManifestAndImages(result.Path)
	require.NoError(t, err)
	require.Equal(t, manifest.GenerationSimple, contents.Generation)
	require.Len(t, contents.Manifest.SimpleEntries, 2)
	require.NotNil(t, contents.Manifest.SimpleEntries[0].Provenance)
	require.Equal(t, "Harvested", contents.Manifest.SimpleEntries[0].Provenance.Name)

	blob, err := OpenBlob(result.Path)
	require.NoError(t, err)

	defer func() {
		_ = blob.Close()
	}()

	data := make([]byte, 6)
	_, err = blob.ReadAt(data, contents.Manifest.SimpleEntries[1].Offset)
	require.NoError(t, err)
	require.Equal(t, []byte("bbbbbb"), data)
}

// TestBuildSimple_MissingPayloadFailsWholeBuild ensures a vanished source
// payload is fatal and releases staging scratch space.
func TestBuildSimple_MissingPayloadFailsWholeBuild(t *testing.T) {
	scratch := t.TempDir()
	t.Setenv("TMPDIR", scratch)

	src := memstore.New()
	src.Seed(4, []byte("only four"))

	_, err := BuildSimple(context.Background(), &SimpleRequest{
		Meta:      manifest.Manifest{Name: "Broken"},
		Store:     src,
		OutputDir: t.TempDir(),
		Refs: []SourceRef{
			{Name: "Gone", Path: "chara/gone.tex", Bucket: 4, Offset: 512, Length: 64},
		},
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	// No staging directory survives the failed build.
	leftovers, err := filepath.Glob(filepath.Join(scratch, "modpack-build-*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

// TestBuildWizard_CollisionPicksNextName runs two identical builds and expects
// the second to land on the (1) suffix.
func TestBuildWizard_CollisionPicksNextName(t *testing.T) {
	t.Parallel()

	outputDir := t.TempDir()

	first, err := BuildWizard(context.Background(), wizardRequest(t, outputDir))
	require.NoError(t, err)

	second, err := BuildWizard(context.Background(), wizardRequest(t, outputDir))
	require.NoError(t, err)
	require.NotEqual(t, first.Path, second.Path)
	require.Equal(t, filepath.Join(outputDir, "Aureate Set(1).ttmp2"), second.Path)
}

// TestBuildWizard_UppercaseImageExtension stages a preview whose file has an
// uppercase extension and expects the archive member to be readable again:
// the member name is lowercased and the reader returns the decoded image
// under the manifest's ImagePath.
func TestBuildWizard_UppercaseImageExtension(t *testing.T) {
	t.Parallel()

	imageFile := filepath.Join(t.TempDir(), "Preview.PNG")
	writeTestPNG(t, imageFile)

	req := wizardRequest(t, t.TempDir())
	req.Pages[0].Groups[0].Options[0].ImageFile = imageFile

	result, err := BuildWizard(context.Background(), req)
	require.NoError(t, err)

	contents, err := ReadManifestAndImages(result.Path)
	require.NoError(t, err)

	imagePath := contents.Manifest.Pages[0].Groups[0].Options[0].ImagePath
	require.True(t, strings.HasSuffix(imagePath, ".png"), "member %q keeps a lowercase extension", imagePath)
	require.Contains(t, contents.Images, imagePath)
}
