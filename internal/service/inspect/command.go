package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/xivkit/modpack/internal/container"
	"github.com/xivkit/modpack/internal/logger"
	"github.com/xivkit/modpack/internal/manifest"
)

// Options contains inputs for the inspect entry point.
type Options struct {
	// ArchivePath is the package file to inspect.
	ArchivePath string
	// VersionOnly prints just the format tag and stops.
	VersionOnly bool
	// Legacy applies the line-delimited legacy listing instead of the
	// manifest decoder.
	Legacy bool
	// Output receives the report (defaults to stdout).
	Output io.Writer
}

// Run prints a human-readable summary of one package archive.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "modpack-inspect")

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	logger.DebugKV(ctx, "Inspecting package", "path", opts.ArchivePath)

	switch {
	case opts.VersionOnly:
		return printVersion(out, opts.ArchivePath)
	case opts.Legacy:
		return printLegacy(out, opts.ArchivePath)
	default:
		return printSummary(out, opts.ArchivePath)
	}
}

// printVersion emits the cheap format-tag probe.
func printVersion(out io.Writer, archivePath string) error {
	tag, err := container.Version(archivePath)
	if err != nil {
		return err
	}

	if tag == "" {
		tag = "(none)"
	}

	fmt.Fprintln(out, tag)

	return nil
}

// printLegacy lists entries via the forgiving legacy reader. An unreadable
// listing is reported as empty, matching the reader's contract.
func printLegacy(out io.Writer, archivePath string) error {
	entries, err := container.ReadLegacy(archivePath)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Legacy entries: %d\n", len(entries))

	for _, entry := range entries {
		fmt.Fprintf(out, "  %s -> %s (bucket %d, %d bytes)\n",
			entry.Name, entry.Path, entry.Bucket, entry.Size)
	}

	return nil
}

// printSummary decodes the manifest and reports shape, counts and members.
func printSummary(out io.Writer, archivePath string) error {
	contents, err := container.ReadManifestAndImages(archivePath)
	if err != nil {
		return err
	}

	m := contents.Manifest

	fmt.Fprintf(out, "Name:        %s\n", m.Name)
	fmt.Fprintf(out, "Author:      %s\n", orDash(m.Author))
	fmt.Fprintf(out, "Version:     %s\n", orDash(m.Version))
	fmt.Fprintf(out, "Generation:  %s\n", contents.Generation)

	if m.URL != "" {
		fmt.Fprintf(out, "URL:         %s\n", m.URL)
	}

	if m.MinimumFrameworkVersion != "" {
		fmt.Fprintf(out, "Requires:    %s\n", m.MinimumFrameworkVersion)
	}

	if m.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", strings.TrimSpace(m.Description))
	}

	printShape(out, m)

	if len(contents.Images) > 0 {
		names := make([]string, 0, len(contents.Images))
		for name := range contents.Images {
			names = append(names, name)
		}

		sort.Strings(names)

		fmt.Fprintf(out, "Images:      %d (%s)\n", len(names), strings.Join(names, ", "))
	}

	return nil
}

// printShape reports page/group/option counts for wizard manifests and the
// flat entry count otherwise.
func printShape(out io.Writer, m *manifest.Manifest) {
	if len(m.Pages) == 0 {
		fmt.Fprintf(out, "Entries:     %d\n", m.EntryCount())
		return
	}

	var groups, options int

	for _, page := range m.Pages {
		groups += len(page.Groups)
		for _, group := range page.Groups {
			options += len(group.Options)
		}
	}

	fmt.Fprintf(out, "Pages:       %d\n", len(m.Pages))
	fmt.Fprintf(out, "Groups:      %d\n", groups)
	fmt.Fprintf(out, "Options:     %d\n", options)
	fmt.Fprintf(out, "Entries:     %d\n", m.EntryCount())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
