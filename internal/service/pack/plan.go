package pack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xivkit/modpack/internal/container"
	"github.com/xivkit/modpack/internal/manifest"
)

var (
	errPlanHasBothShapes = errors.New("build plan declares both pages and entries")
	errPlanIsEmpty       = errors.New("build plan declares neither pages nor entries")
	errPlanNeedsName     = errors.New("build plan must name the package")
)

// Plan is the YAML document describing one package build. Exactly one of
// Pages and Entries must be present: pages produce a wizard package from
// payload files on disk, entries produce a simple package from byte ranges
// of the configured content store.
type Plan struct {
	Name                    string `yaml:"name"`
	Author                  string `yaml:"author"`
	Version                 string `yaml:"version"`
	Description             string `yaml:"description,omitempty"`
	URL                     string `yaml:"url,omitempty"`
	MinimumFrameworkVersion string `yaml:"minimum_framework_version,omitempty"`
	// OutputName overrides the archive filename (extension added automatically).
	OutputName string `yaml:"output_name,omitempty"`

	Pages   []PlanPage  `yaml:"pages,omitempty"`
	Entries []PlanEntry `yaml:"entries,omitempty"`

	// dir is where the plan file lives; relative payload and image paths
	// are resolved against it.
	dir string
}

// PlanPage is one wizard page of the plan.
type PlanPage struct {
	Groups []PlanGroup `yaml:"groups"`
}

// PlanGroup is a named option group with its selection constraint.
type PlanGroup struct {
	Name          string       `yaml:"name"`
	SelectionType string       `yaml:"selection_type,omitempty"`
	Options       []PlanOption `yaml:"options"`
}

// PlanOption is one selectable choice and the payload files it places.
type PlanOption struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Image       string        `yaml:"image,omitempty"`
	Checked     bool          `yaml:"checked,omitempty"`
	Payloads    []PlanPayload `yaml:"payloads"`
}

// PlanPayload is one payload file and its destination.
type PlanPayload struct {
	File      string `yaml:"file"`
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Path      string `yaml:"path"`
	Bucket    uint32 `yaml:"bucket"`
	IsDefault bool   `yaml:"default,omitempty"`
}

// PlanEntry is one store byte range for a simple build.
type PlanEntry struct {
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Path      string `yaml:"path"`
	Bucket    uint32 `yaml:"bucket"`
	Offset    int64  `yaml:"offset"`
	Length    int    `yaml:"length"`
	IsDefault bool   `yaml:"default,omitempty"`
}

// LoadPlan reads and validates a build plan document.
func LoadPlan(path string) (*Plan, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read build plan: %w", err)
	}

	var plan Plan
	if err = yaml.Unmarshal(contents, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal build plan: %w", err)
	}

	plan.dir = filepath.Dir(path)

	if err = plan.validate(); err != nil {
		return nil, err
	}

	return &plan, nil
}

// validate enforces the one-shape rule and required metadata.
func (p *Plan) validate() error {
	if p.Name == "" {
		return errPlanNeedsName
	}

	switch {
	case len(p.Pages) > 0 && len(p.Entries) > 0:
		return errPlanHasBothShapes
	case len(p.Pages) == 0 && len(p.Entries) == 0:
		return errPlanIsEmpty
	}

	return nil
}

// IsWizard reports whether the plan builds a wizard package.
func (p *Plan) IsWizard() bool {
	return len(p.Pages) > 0
}

// meta assembles the package-level manifest metadata.
func (p *Plan) meta() manifest.Manifest {
	return manifest.Manifest{
		Name:                    p.Name,
		Author:                  p.Author,
		Version:                 p.Version,
		Description:             p.Description,
		URL:                     p.URL,
		MinimumFrameworkVersion: p.MinimumFrameworkVersion,
	}
}

// resolve turns a plan-relative path into an absolute one.
func (p *Plan) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(p.dir, path)
}

// wizardPages loads every payload file and maps the plan onto build pages.
func (p *Plan) wizardPages() ([]container.WizardPage, error) {
	pages := make([]container.WizardPage, 0, len(p.Pages))

	for _, planPage := range p.Pages {
		page := container.WizardPage{
			Groups: make([]container.WizardGroup, 0, len(planPage.Groups)),
		}

		for _, planGroup := range planPage.Groups {
			group := container.WizardGroup{
				Name:          planGroup.Name,
				SelectionType: selectionType(planGroup.SelectionType),
				Options:       make([]container.WizardOption, 0, len(planGroup.Options)),
			}

			for _, planOption := range planGroup.Options {
				option, err := p.wizardOption(&planOption)
				if err != nil {
					return nil, err
				}

				group.Options = append(group.Options, *option)
			}

			page.Groups = append(page.Groups, group)
		}

		pages = append(pages, page)
	}

	return pages, nil
}

// wizardOption loads one option's payload files from disk.
func (p *Plan) wizardOption(planOption *PlanOption) (*container.WizardOption, error) {
	option := &container.WizardOption{
		Name:        planOption.Name,
		Description: planOption.Description,
		ImageFile:   p.resolve(planOption.Image),
		IsChecked:   planOption.Checked,
		Payloads:    make([]container.WizardPayload, 0, len(planOption.Payloads)),
	}

	for _, planPayload := range planOption.Payloads {
		data, err := os.ReadFile(filepath.Clean(p.resolve(planPayload.File)))
		if err != nil {
			return nil, fmt.Errorf("read payload %s: %w", planPayload.File, err)
		}

		option.Payloads = append(option.Payloads, container.WizardPayload{
			Name:      planPayload.Name,
			Category:  planPayload.Category,
			Path:      planPayload.Path,
			Bucket:    planPayload.Bucket,
			IsDefault: planPayload.IsDefault,
			Data:      data,
		})
	}

	return option, nil
}

// sourceRefs maps the plan's simple entries onto store byte ranges.
func (p *Plan) sourceRefs() []container.SourceRef {
	refs := make([]container.SourceRef, 0, len(p.Entries))

	for _, entry := range p.Entries {
		refs = append(refs, container.SourceRef{
			Name:      entry.Name,
			Category:  entry.Category,
			Path:      entry.Path,
			Bucket:    entry.Bucket,
			Offset:    entry.Offset,
			Length:    entry.Length,
			IsDefault: entry.IsDefault,
		})
	}

	return refs
}

// selectionType defaults missing constraints to single-choice.
func selectionType(s string) manifest.SelectionType {
	if s == string(manifest.SelectionMultiple) {
		return manifest.SelectionMultiple
	}

	return manifest.SelectionSingle
}
