package container

import (
	"archive/zip"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"strings"

	"github.com/xivkit/modpack/internal/manifest"

	// Preview images are PNG or JPEG; register both decoders.
	_ "image/jpeg"
	_ "image/png"
)

// Contents is what inspecting an archive yields. The blob member is never
// loaded here; payload access goes through OpenBlob so reading metadata
// stays cheap regardless of package size.
type Contents struct {
	// Manifest is the decoded package manifest.
	Manifest *manifest.Manifest
	// Generation is the manifest format generation the text decoded as.
	Generation manifest.Generation
	// Images maps archive member names to their decoded preview images.
	Images map[string]image.Image
}

// ReadManifest opens an archive and decodes only its manifest member,
// leaving image members untouched. Install-side callers that never show
// previews use this to keep metadata reads cheap.
func ReadManifest(archivePath string) (*manifest.Manifest, manifest.Generation, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = zr.Close()
	}()

	text, err := manifestText(&zr.Reader)
	if err != nil {
		return nil, 0, err
	}

	m, generation, err := manifest.Decode(text)
	if err != nil {
		return nil, 0, fmt.Errorf("decode manifest: %w", err)
	}

	return m, generation, nil
}

// ReadManifestAndImages opens an archive, decodes its manifest member via
// the manifest codec, and decodes every image member.
func ReadManifestAndImages(archivePath string) (*Contents, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = zr.Close()
	}()

	text, err := manifestText(&zr.Reader)
	if err != nil {
		return nil, err
	}

	m, generation, err := manifest.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	images, err := decodeImages(&zr.Reader)
	if err != nil {
		return nil, err
	}

	return &Contents{Manifest: m, Generation: generation, Images: images}, nil
}

// ReadLegacy applies the legacy line-splitting rule directly against the
// manifest member's text. A sniffed text that fails line decoding yields a
// nil slice and no error; callers must treat nil as "unreadable package".
func ReadLegacy(archivePath string) ([]manifest.Entry, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = zr.Close()
	}()

	text, err := manifestText(&zr.Reader)
	if err != nil {
		return nil, err
	}

	return manifest.DecodeLegacy(text), nil
}

// Version reads only the archive's manifest version tag.
func Version(archivePath string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = zr.Close()
	}()

	text, err := manifestText(&zr.Reader)
	if err != nil {
		return "", err
	}

	return manifest.VersionOf(text), nil
}

// Blob is a random-access handle over an archive's blob member. The member
// is extracted to a scratch file on open; Close removes it.
type Blob struct {
	file *os.File
	size int64
}

// OpenBlob extracts the archive's blob member into a scratch file and
// returns a random-access handle over it.
func OpenBlob(archivePath string) (*Blob, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = zr.Close()
	}()

	member := findMember(&zr.Reader, BlobExtension)
	if member == nil {
		return nil, errNoBlobMember
	}

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %s: %w", member.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	scratch, err := os.CreateTemp("", "modpack-blob-")
	if err != nil {
		return nil, fmt.Errorf("create blob scratch file: %w", err)
	}

	size, err := io.Copy(scratch, rc)
	if err != nil {
		_ = scratch.Close()
		_ = os.Remove(scratch.Name())

		return nil, fmt.Errorf("extract blob member: %w", err)
	}

	return &Blob{file: scratch, size: size}, nil
}

// ReadAt implements io.ReaderAt over the blob bytes.
func (b *Blob) ReadAt(p []byte, off int64) (int, error) {
	return b.file.ReadAt(p, off)
}

// Size returns the blob length in bytes.
func (b *Blob) Size() int64 {
	return b.size
}

// Close releases the handle and removes the scratch file.
func (b *Blob) Close() error {
	err := b.file.Close()
	if removeErr := os.Remove(b.file.Name()); err == nil {
		err = removeErr
	}

	return err
}

// manifestText locates the manifest member and reads it as text.
func manifestText(r *zip.Reader) (string, error) {
	member := findMember(r, ManifestExtension)
	if member == nil {
		return "", errNoManifestMember
	}

	return readMemberText(member)
}

// decodeImages decodes every image member of the archive, keyed by member name.
func decodeImages(r *zip.Reader) (map[string]image.Image, error) {
	images := make(map[string]image.Image)

	for _, member := range r.File {
		if !isImageMember(member.Name) {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("open image %s: %w", member.Name, err)
		}

		img, _, err := image.Decode(rc)

		_ = rc.Close()

		if err != nil {
			return nil, fmt.Errorf("decode image %s: %w", member.Name, err)
		}

		images[member.Name] = img
	}

	return images, nil
}

// isImageMember reports whether a member name looks like a preview image.
// Extension matching is case-insensitive; staging lowercases member names,
// but archives from other producers may not.
func isImageMember(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
