package pack

import (
	"context"
	"fmt"

	"github.com/xivkit/modpack/internal/config"
	"github.com/xivkit/modpack/internal/container"
	"github.com/xivkit/modpack/internal/logger"
	"github.com/xivkit/modpack/internal/store/fsstore"
)

// Options contains inputs for the pack entry point.
type Options struct {
	// ConfigPath is an optional path to the settings file (defaults to modpack-settings.yaml).
	ConfigPath string
	// PlanPath is the YAML build plan describing the package.
	PlanPath string
	// OutputName overrides both the plan's and the package's archive filename.
	OutputName string
}

// Run executes one package build described by a plan file.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "modpack-pack")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	plan, err := LoadPlan(opts.PlanPath)
	if err != nil {
		return err
	}

	outputName := plan.OutputName
	if opts.OutputName != "" {
		outputName = opts.OutputName
	}

	logger.InfoKV(ctx, "Building package",
		"plan", opts.PlanPath, "package", plan.Name, "wizard", plan.IsWizard())

	var result *container.BuildResult
	if plan.IsWizard() {
		result, err = buildWizard(ctx, cfg, plan, outputName)
	} else {
		result, err = buildSimple(ctx, cfg, plan, outputName)
	}

	if err != nil {
		return fmt.Errorf("build %s: %w", plan.Name, err)
	}

	logger.InfoKV(ctx, "Package built",
		"path", result.Path, "pages", result.Pages, "entries", result.Entries)

	return nil
}

// buildWizard assembles a wizard package from payload files on disk.
func buildWizard(ctx context.Context, cfg *config.Config, plan *Plan, outputName string) (*container.BuildResult, error) {
	pages, err := plan.wizardPages()
	if err != nil {
		return nil, err
	}

	return container.BuildWizard(ctx, &container.WizardRequest{
		Meta:       plan.meta(),
		Pages:      pages,
		OutputDir:  cfg.OutputDir,
		OutputName: outputName,
		Overwrite:  cfg.Overwrite,
		Progress: func(pagesDone, pagesTotal int) {
			logger.DebugKV(ctx, "Page staged", "done", pagesDone, "total", pagesTotal)
		},
	})
}

// buildSimple assembles a simple package by fetching byte ranges from the
// configured content store.
func buildSimple(ctx context.Context, cfg *config.Config, plan *Plan, outputName string) (*container.BuildResult, error) {
	st, err := fsstore.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}

	return container.BuildSimple(ctx, &container.SimpleRequest{
		Meta:       plan.meta(),
		Refs:       plan.sourceRefs(),
		Store:      st,
		OutputDir:  cfg.OutputDir,
		OutputName: outputName,
		Overwrite:  cfg.Overwrite,
		Progress: func(done, total int, message string) {
			logger.DebugKV(ctx, "Entry packed", "done", done, "total", total, "entry", message)
		},
	})
}
