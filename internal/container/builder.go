package container

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/xivkit/modpack/internal/logger"
	"github.com/xivkit/modpack/internal/manifest"
	"github.com/xivkit/modpack/internal/store"
)

// PageProgressFunc reports wizard build progress once per completed page.
// Reporting is best-effort; a nil func is simply not called.
type PageProgressFunc func(pagesDone, pagesTotal int)

// EntryProgressFunc reports per-entry progress with an optional message.
type EntryProgressFunc func(done, total int, message string)

// WizardPayload is one caller-supplied payload placed by a wizard option.
type WizardPayload struct {
	// Name and Category are opaque display strings.
	Name     string
	Category string
	// Path is the destination key of the payload.
	Path string
	// Bucket is the destination store partition.
	Bucket uint32
	// IsDefault marks the payload as the store's pre-modification fallback.
	IsDefault bool
	// Data is the raw payload.
	Data []byte
}

// WizardOption is one selectable choice offered by a group.
type WizardOption struct {
	Name        string
	Description string
	// ImageFile is the packager's preview image on disk. The archive member
	// gets a fresh randomized name; the original filename never leaks into
	// the package.
	ImageFile string
	IsChecked bool
	Payloads  []WizardPayload
}

// WizardGroup is a named set of options with a selection constraint.
type WizardGroup struct {
	Name          string
	SelectionType manifest.SelectionType
	Options       []WizardOption
}

// WizardPage is one page of options in build order.
type WizardPage struct {
	Groups []WizardGroup
}

// WizardRequest describes a wizard build.
type WizardRequest struct {
	// Meta supplies package-level metadata; its entry variants are ignored.
	Meta manifest.Manifest
	// Pages hold the payloads in traversal order.
	Pages []WizardPage
	// OutputDir receives the archive; OutputName defaults to Meta.Name.
	OutputDir  string
	OutputName string
	// Overwrite replaces an existing archive instead of numbering the new one.
	Overwrite bool
	// Progress is called once per completed page.
	Progress PageProgressFunc
}

// SourceRef names a payload to fetch from the target content store.
type SourceRef struct {
	Name     string
	Category string
	// Path is the destination key the payload will install under.
	Path string
	// Bucket, Offset and Length address the source bytes inside the store.
	Bucket    uint32
	Offset    int64
	Length    int
	IsDefault bool
}

// SimpleRequest describes a simple (flat list) build. Payload bytes are not
// supplied inline; they are fetched from Store by byte range.
type SimpleRequest struct {
	Meta       manifest.Manifest
	Refs       []SourceRef
	Store      store.Store
	OutputDir  string
	OutputName string
	Overwrite  bool
	// Progress is called once per completed entry.
	Progress EntryProgressFunc
}

// BuildResult reports where the archive landed and what it holds.
type BuildResult struct {
	// Path is the final archive location after collision resolution.
	Path string
	// Pages is the page count (zero for simple builds).
	Pages int
	// Entries is the total payload count.
	Entries int
}

// BuildWizard assembles a wizard-generation archive from caller-supplied
// payload bytes. Payloads are appended to the blob in traversal order, each
// entry recording the blob position before its write, so entries never
// overlap and every (offset, offset+length) range lies within the blob.
func BuildWizard(ctx context.Context, req *WizardRequest) (*BuildResult, error) {
	st, err := newStaging()
	if err != nil {
		return nil, err
	}

	// Staging never survives the call, success or failure.
	defer st.cleanup(ctx)

	m := req.Meta
	m.SimpleEntries = nil
	m.Pages = make([]manifest.Page, 0, len(req.Pages))

	entries := 0

	for i, page := range req.Pages {
		outPage := manifest.Page{Index: i + 1}

		for _, group := range page.Groups {
			outGroup, n, groupErr := st.stageGroup(&group)
			if groupErr != nil {
				return nil, groupErr
			}

			entries += n
			outPage.Groups = append(outPage.Groups, *outGroup)
		}

		m.Pages = append(m.Pages, outPage)
		reportPages(req.Progress, i+1, len(req.Pages))
	}

	return st.finalize(ctx, &m, req.OutputDir, outputName(req.OutputName, m.Name), req.Overwrite, len(req.Pages), entries)
}

// BuildSimple assembles a simple-generation archive from payloads fetched
// out of the target content store. Any payload that cannot be fetched fails
// the whole build; staging is still released.
func BuildSimple(ctx context.Context, req *SimpleRequest) (*BuildResult, error) {
	st, err := newStaging()
	if err != nil {
		return nil, err
	}

	defer st.cleanup(ctx)

	m := req.Meta
	m.Pages = nil
	m.SimpleEntries = make([]manifest.Entry, 0, len(req.Refs))

	provenance := req.Meta.ProvenanceOf()

	for i, ref := range req.Refs {
		data, readErr := req.Store.ReadBytes(ctx, ref.Bucket, ref.Offset, ref.Length)
		if readErr != nil {
			// The payload disappeared between selection and build time.
			return nil, fmt.Errorf("fetch payload %s (bucket %d, offset %d): %w",
				ref.Path, ref.Bucket, ref.Offset, readErr)
		}

		offset, appendErr := st.appendPayload(data)
		if appendErr != nil {
			return nil, appendErr
		}

		m.SimpleEntries = append(m.SimpleEntries, manifest.Entry{
			Name:       ref.Name,
			Category:   ref.Category,
			Path:       ref.Path,
			Size:       int64(len(data)),
			Offset:     offset,
			Bucket:     ref.Bucket,
			IsDefault:  ref.IsDefault,
			Provenance: provenance,
		})

		reportEntries(req.Progress, i+1, len(req.Refs), ref.Path)
	}

	return st.finalize(ctx, &m, req.OutputDir, outputName(req.OutputName, m.Name), req.Overwrite, 0, len(req.Refs))
}

// stagedImage pairs an archive member name with its staged source file.
type stagedImage struct {
	member string
	path   string
}

// staging owns the blob-in-progress and image copies of one build call.
type staging struct {
	dir     string
	blob    *os.File
	written int64
	images  []stagedImage
}

// newStaging creates the scratch directory and the blob-in-progress file.
func newStaging() (*staging, error) {
	dir, err := os.MkdirTemp("", "modpack-build-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	blob, err := os.Create(filepath.Join(dir, BlobMemberName))
	if err != nil {
		_ = os.RemoveAll(dir)

		return nil, fmt.Errorf("create blob staging file: %w", err)
	}

	return &staging{dir: dir, blob: blob}, nil
}

// appendPayload writes one payload to the blob and returns the offset the
// writer held before the write.
func (st *staging) appendPayload(data []byte) (int64, error) {
	offset := st.written

	n, err := st.blob.Write(data)
	if err != nil {
		return 0, fmt.Errorf("append payload to blob: %w", err)
	}

	st.written += int64(n)

	return offset, nil
}

// stageGroup stages one group's options, appending payloads and images,
// and returns the manifest group plus the number of entries emitted.
func (st *staging) stageGroup(group *WizardGroup) (*manifest.Group, int, error) {
	outGroup := &manifest.Group{
		Name:          group.Name,
		SelectionType: group.SelectionType,
	}

	entries := 0

	for _, option := range group.Options {
		outOption := manifest.Option{
			Name:          option.Name,
			Description:   option.Description,
			IsChecked:     option.IsChecked,
			GroupName:     group.Name,
			SelectionType: group.SelectionType,
		}

		if option.ImageFile != "" {
			member, err := st.stageImage(option.ImageFile)
			if err != nil {
				return nil, 0, err
			}

			outOption.ImagePath = member
		}

		for _, payload := range option.Payloads {
			offset, err := st.appendPayload(payload.Data)
			if err != nil {
				return nil, 0, err
			}

			outOption.Entries = append(outOption.Entries, manifest.Entry{
				Name:      payload.Name,
				Category:  payload.Category,
				Path:      payload.Path,
				Size:      int64(len(payload.Data)),
				Offset:    offset,
				Bucket:    payload.Bucket,
				IsDefault: payload.IsDefault,
			})
			entries++
		}

		outGroup.Options = append(outGroup.Options, outOption)
	}

	return outGroup, entries, nil
}

// stageImage copies a preview image into staging under a fresh randomized
// member name and returns that name.
func (st *staging) stageImage(source string) (string, error) {
	// Member extensions are normalized to lowercase so readers recognize
	// the image regardless of the source file's casing.
	member := imageMemberDir + "/" + uuid.New().String() + strings.ToLower(filepath.Ext(source))
	staged := filepath.Join(st.dir, uuid.New().String())

	if err := copyFile(source, staged); err != nil {
		return "", fmt.Errorf("stage image %s: %w", source, err)
	}

	st.images = append(st.images, stagedImage{member: member, path: staged})

	return member, nil
}

// finalize encodes the manifest, resolves the output path, and packs the
// staged members into the archive.
func (st *staging) finalize(
	ctx context.Context,
	m *manifest.Manifest,
	dir, name string,
	overwrite bool,
	pages, entries int,
) (*BuildResult, error) {
	text, err := manifest.Encode(m)
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(st.dir, ManifestMemberName)
	if err = os.WriteFile(manifestPath, []byte(text), 0o600); err != nil {
		return nil, fmt.Errorf("write manifest staging file: %w", err)
	}

	if err = st.blob.Close(); err != nil {
		return nil, fmt.Errorf("close blob staging file: %w", err)
	}

	outputPath, err := ResolveOutputPath(dir, name, overwrite)
	if err != nil {
		return nil, err
	}

	if err = st.pack(outputPath, manifestPath); err != nil {
		// Never leave a partial archive behind.
		_ = os.Remove(outputPath)

		return nil, err
	}

	logger.InfoKV(ctx, "Built package archive",
		"path", outputPath, "pages", pages, "entries", entries)

	return &BuildResult{Path: outputPath, Pages: pages, Entries: entries}, nil
}

// pack writes the final zip archive from the staged member files.
func (st *staging) pack(outputPath, manifestPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)

	packErr := addMember(zw, ManifestMemberName, manifestPath)
	if packErr == nil {
		packErr = addMember(zw, BlobMemberName, st.blob.Name())
	}

	for _, img := range st.images {
		if packErr != nil {
			break
		}

		packErr = addMember(zw, img.member, img.path)
	}

	if err = zw.Close(); err != nil && packErr == nil {
		packErr = fmt.Errorf("finish archive: %w", err)
	}

	if err = out.Close(); err != nil && packErr == nil {
		packErr = fmt.Errorf("close archive: %w", err)
	}

	return packErr
}

// cleanup removes every staging artifact. Runs on success and failure alike.
func (st *staging) cleanup(ctx context.Context) {
	_ = st.blob.Close()

	if err := os.RemoveAll(st.dir); err != nil {
		logger.WarnKV(ctx, "Unable to remove staging directory", "path", st.dir, "error", err)
	}
}

// addMember copies one staged file into the archive under the member name.
func addMember(zw *zip.Writer, member, source string) error {
	w, err := zw.Create(member)
	if err != nil {
		return fmt.Errorf("create member %s: %w", member, err)
	}

	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open staged %s: %w", source, err)
	}

	defer func() {
		_ = f.Close()
	}()

	if _, err = io.Copy(w, f); err != nil {
		return fmt.Errorf("copy member %s: %w", member, err)
	}

	return nil
}

// copyFile copies source to destination, creating or truncating it.
func copyFile(source, destination string) error {
	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(destination)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// outputName falls back to the package display name.
func outputName(explicit, packageName string) string {
	if explicit != "" {
		return explicit
	}

	return packageName
}

// reportPages fires a page progress notification if a listener is attached.
func reportPages(fn PageProgressFunc, done, total int) {
	if fn != nil {
		fn(done, total)
	}
}

// reportEntries fires an entry progress notification if a listener is attached.
func reportEntries(fn EntryProgressFunc, done, total int, message string) {
	if fn != nil {
		fn(done, total, message)
	}
}
