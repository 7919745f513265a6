package manifest

// FrameworkVersion is the framework compatibility tag of this build.
// Packages whose MinimumFrameworkVersion is newer than this are refused at install time.
const FrameworkVersion = "1.3"

const (
	// SimpleFormatVersion tags manifests holding a flat mod list.
	SimpleFormatVersion = "1.3s"
	// WizardFormatVersion tags manifests holding paged option groups.
	WizardFormatVersion = "1.3w"

	// simpleSuffix and wizardSuffix discriminate the format generation
	// when only the version tag is available.
	simpleSuffix = "s"
	wizardSuffix = "w"
)

// Generation identifies which of the three manifest formats a text decoded as.
type Generation int

const (
	// GenerationLegacy is the oldest line-delimited format. Read-only:
	// the encoder never produces it.
	GenerationLegacy Generation = iota
	// GenerationSimple is a flat JSON list of entries.
	GenerationSimple
	// GenerationWizard is the paged, grouped JSON format.
	GenerationWizard
)

// String returns a human-readable generation name for logs.
func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationSimple:
		return "simple"
	case GenerationWizard:
		return "wizard"
	default:
		return "unknown"
	}
}

// SelectionType constrains how a group's options may be chosen.
// It is carried as data only; selection UI is out of scope.
type SelectionType string

const (
	// SelectionSingle allows exactly one option of the group.
	SelectionSingle SelectionType = "single"
	// SelectionMultiple allows any subset of the group's options.
	SelectionMultiple SelectionType = "multiple"
)

// Manifest is the package-level metadata of one mod package.
// Exactly one of SimpleEntries or Pages is populated for encoding;
// legacy texts decode into SimpleEntries with GenerationLegacy reported.
type Manifest struct {
	// FormatVersion is the format generation tag ("1.3s", "1.3w").
	// Set by Encode; legacy texts carry none.
	FormatVersion string `json:"formatVersion,omitempty"`
	// Name is the display name of the package.
	Name string `json:"name"`
	// Author is the package author's display name.
	Author string `json:"author,omitempty"`
	// Version is the semantic version of the package itself.
	Version string `json:"version,omitempty"`
	// Description is free-form text shown to the user.
	Description string `json:"description,omitempty"`
	// URL points to the package's home page.
	URL string `json:"url,omitempty"`
	// MinimumFrameworkVersion is the oldest framework tag able to install this package.
	MinimumFrameworkVersion string `json:"minimumFrameworkVersion,omitempty"`

	// SimpleEntries is the flat mod list of a simple-generation package.
	SimpleEntries []Entry `json:"simpleModsList,omitempty"`
	// Pages is the page tree of a wizard-generation package.
	Pages []Page `json:"modPackPages,omitempty"`
}

// Page is one page of a wizard-generation package.
type Page struct {
	// Index is the 1-based page number.
	Index int `json:"pageIndex"`
	// Groups are the option groups shown on this page.
	Groups []Group `json:"modGroups"`
}

// Group is a named set of options with a selection constraint.
type Group struct {
	// Name is the group's display name.
	Name string `json:"groupName"`
	// SelectionType constrains how the group's options may be chosen.
	SelectionType SelectionType `json:"selectionType"`
	// Options are the choices offered by this group.
	Options []Option `json:"optionList"`
}

// Option is one selectable choice within a group.
type Option struct {
	// Name is the option's display name.
	Name string `json:"name"`
	// Description is free-form text shown next to the option.
	Description string `json:"description,omitempty"`
	// ImagePath names the preview image member inside the archive.
	// It is a builder-generated filename, never the packager's original one.
	ImagePath string `json:"imagePath,omitempty"`
	// IsChecked marks the option as pre-selected.
	IsChecked bool `json:"isChecked,omitempty"`
	// GroupName and SelectionType duplicate the owning group's metadata
	// so a flattened option remains self-describing.
	GroupName     string        `json:"groupName,omitempty"`
	SelectionType SelectionType `json:"selectionType,omitempty"`
	// Entries are the payload placements installed when this option is chosen.
	Entries []Entry `json:"modsJsons"`
}

// Entry is one payload's placement record.
type Entry struct {
	// Name is the logical display name of the payload.
	Name string `json:"name"`
	// Category is the display category label.
	Category string `json:"category"`
	// Path is the destination key under which the payload is installed,
	// unique within a target store bucket.
	Path string `json:"fullPath"`
	// Size is the payload length in bytes.
	Size int64 `json:"modSize"`
	// Offset is the payload's byte offset into the package blob.
	Offset int64 `json:"modOffset"`
	// Bucket discriminates which physical store partition the payload belongs to.
	Bucket uint32 `json:"datFile"`
	// IsDefault marks the entry as the store's pre-modification fallback.
	IsDefault bool `json:"isDefault,omitempty"`
	// Provenance records which package produced this entry. Populated for
	// simple-generation and installed entries, absent for in-progress
	// wizard entries.
	Provenance *Provenance `json:"modPack,omitempty"`
}

// Provenance is a back-reference to the package an entry came from.
type Provenance struct {
	Name    string `json:"name"`
	Author  string `json:"author,omitempty"`
	Version string `json:"version,omitempty"`
	URL     string `json:"url,omitempty"`
}

// EntryCount returns the number of entries across whichever variant is populated.
func (m *Manifest) EntryCount() int {
	if len(m.SimpleEntries) > 0 {
		return len(m.SimpleEntries)
	}

	total := 0

	for _, page := range m.Pages {
		for _, group := range page.Groups {
			for _, option := range group.Options {
				total += len(option.Entries)
			}
		}
	}

	return total
}

// FlattenEntries returns all entries of the manifest in traversal order.
// For wizard manifests that is page, group, option, entry order; installing
// the flattened sequence lets the installer's last-occurrence deduplication
// resolve path collisions between options.
func (m *Manifest) FlattenEntries() []Entry {
	if len(m.SimpleEntries) > 0 {
		return append([]Entry(nil), m.SimpleEntries...)
	}

	entries := make([]Entry, 0, m.EntryCount())

	for _, page := range m.Pages {
		for _, group := range page.Groups {
			for _, option := range group.Options {
				entries = append(entries, option.Entries...)
			}
		}
	}

	return entries
}

// ProvenanceOf returns the provenance record describing this manifest.
func (m *Manifest) ProvenanceOf() *Provenance {
	return &Provenance{
		Name:    m.Name,
		Author:  m.Author,
		Version: m.Version,
		URL:     m.URL,
	}
}
