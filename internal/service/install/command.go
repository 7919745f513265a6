package install

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xivkit/modpack/internal/config"
	"github.com/xivkit/modpack/internal/container"
	"github.com/xivkit/modpack/internal/installer"
	"github.com/xivkit/modpack/internal/logger"
	"github.com/xivkit/modpack/internal/manifest"
	"github.com/xivkit/modpack/internal/store/fsstore"
)

var (
	errInstallRunning = errors.New("an install is running now")
	errPackageTooNew  = errors.New("package requires a newer framework version")
	errNoEntries      = errors.New("package holds no installable entries")
)

// Options contains inputs for the install entry point.
type Options struct {
	// ConfigPath is an optional path to the settings file (defaults to modpack-settings.yaml).
	ConfigPath string
	// ArchivePath is the package file to install.
	ArchivePath string
}

// Run installs one package archive into the configured content store.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "modpack-install")

	if IsInstallRunningNow(ctx) {
		return errInstallRunning
	}

	if err := writeMarker(); err != nil {
		return fmt.Errorf("write install marker: %w", err)
	}

	defer removeMarker()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	st, err := fsstore.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}

	// Manifest-only read: previews are never shown here, and an
	// incompatible package must be refused before paying for image decode.
	m, generation, err := container.ReadManifest(opts.ArchivePath)
	if err != nil {
		return fmt.Errorf("read package: %w", err)
	}

	if err = checkCompatibility(m); err != nil {
		return err
	}

	entries := stampProvenance(m, m.FlattenEntries())
	if len(entries) == 0 {
		return errNoEntries
	}

	logger.InfoKV(ctx, "Installing package",
		"package", m.Name, "generation", generation.String(), "entries", len(entries))

	result, err := installer.Install(ctx, &installer.Request{
		Archive: opts.ArchivePath,
		Entries: entries,
		Store:   st,
		Progress: func(processed, total int, _ string) {
			logger.DebugKV(ctx, "Entry processed", "done", processed, "total", total)
		},
	})
	if err != nil {
		return fmt.Errorf("install %s: %w", m.Name, err)
	}

	if result.ErrorReport != "" {
		logger.WarnKV(ctx, "Package installed with errors",
			"package", m.Name, "processed", result.Processed)
		logger.Warn(ctx, result.ErrorReport)

		return nil
	}

	logger.InfoKV(ctx, "Package installed",
		"package", m.Name, "processed", result.Processed)

	return nil
}

// checkCompatibility refuses packages that declare a minimum framework
// version newer than this build understands.
func checkCompatibility(m *manifest.Manifest) error {
	if m.MinimumFrameworkVersion == "" {
		return nil
	}

	if compareVersions(m.MinimumFrameworkVersion, manifest.FrameworkVersion) > 0 {
		return fmt.Errorf("%s needs %s, this build speaks %s: %w",
			m.Name, m.MinimumFrameworkVersion, manifest.FrameworkVersion, errPackageTooNew)
	}

	return nil
}

// stampProvenance fills each entry's missing provenance with the package's
// own, so installed records and the registry's package list name their source.
func stampProvenance(m *manifest.Manifest, entries []manifest.Entry) []manifest.Entry {
	if m.Name == "" {
		return entries
	}

	provenance := m.ProvenanceOf()

	for i := range entries {
		if entries[i].Provenance == nil {
			entries[i].Provenance = provenance
		}
	}

	return entries
}

// compareVersions compares dotted numeric version strings segment by
// segment. Missing segments count as zero; non-numeric segments compare
// lexically.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := segment(as, i), segment(bs, i)

		an, aok := parseSegment(av)
		bn, bok := parseSegment(bv)

		switch {
		case aok && bok && an != bn:
			if an < bn {
				return -1
			}

			return 1
		case (!aok || !bok) && av != bv:
			return strings.Compare(av, bv)
		}
	}

	return 0
}

func segment(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}

	return "0"
}

func parseSegment(s string) (int, bool) {
	n, err := strconv.Atoi(s)

	return n, err == nil
}
