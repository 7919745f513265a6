package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFormat is returned when a manifest text matches none of the
	// three known generations.
	ErrUnknownFormat = errors.New("manifest text matches no known format")
	// errNoVariant is returned when a manifest to encode populates neither variant.
	errNoVariant = errors.New("manifest has neither simple entries nor pages")
	// errBothVariants is returned when a manifest to encode populates both variants.
	errBothVariants = errors.New("manifest populates both simple entries and pages")
)

// legacyVersionToken is the substring that marks a legacy manifest's
// optional standalone first line as a version token rather than an entry.
const legacyVersionToken = "version"

// Encode renders the manifest as UTF-8 text. The format generation is
// implied by which variant is populated; the encoder stamps the matching
// FormatVersion tag. Legacy text is never produced.
func Encode(m *Manifest) (string, error) {
	switch {
	case len(m.SimpleEntries) > 0 && len(m.Pages) > 0:
		return "", errBothVariants
	case len(m.SimpleEntries) == 0 && len(m.Pages) == 0:
		return "", errNoVariant
	}

	// Stamp the tag on a shallow copy so callers' values stay untouched.
	out := *m
	if len(out.Pages) > 0 {
		out.FormatVersion = WizardFormatVersion
	} else {
		out.FormatVersion = SimpleFormatVersion
	}

	data, err := json.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	return string(data), nil
}

// Decode parses manifest text of any generation. Attempts are ordered and
// explicit: wizard shape first, then simple shape, then the legacy
// line-delimited fallback. A text matching none of the three yields
// ErrUnknownFormat.
func Decode(text string) (*Manifest, Generation, error) {
	var m Manifest
	if err := json.Unmarshal([]byte(text), &m); err == nil {
		switch {
		case strings.HasSuffix(m.FormatVersion, wizardSuffix) || len(m.Pages) > 0:
			return &m, GenerationWizard, nil
		case strings.HasSuffix(m.FormatVersion, simpleSuffix) || len(m.SimpleEntries) > 0:
			return &m, GenerationSimple, nil
		}
		// A JSON value that shapes as neither variant may still be a
		// single-line legacy manifest; fall through to the line decoder.
	}

	entries := DecodeLegacy(text)
	if entries == nil {
		return nil, GenerationLegacy, ErrUnknownFormat
	}

	return &Manifest{SimpleEntries: entries}, GenerationLegacy, nil
}

// DecodeLegacy applies the legacy line-splitting rule: an optional first
// line containing "version" is discarded, every remaining non-empty line
// decodes as one independent Entry. Any line that fails to parse makes the
// whole result nil. Callers must treat nil as "unreadable package", not as
// an empty one.
func DecodeLegacy(text string) []Entry {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) > 0 && strings.Contains(lines[0], legacyVersionToken) {
		lines = lines[1:]
	}

	entries := make([]Entry, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil
		}

		entries = append(entries, entry)
	}

	return entries
}

// VersionOf returns the manifest's format version tag without decoding the
// full structure. JSON generations carry the tag in a single field; for
// legacy text the optional standalone first-line token is returned. An
// unreadable text yields the empty string.
func VersionOf(text string) string {
	var probe struct {
		FormatVersion string `json:"formatVersion"`
	}

	if err := json.Unmarshal([]byte(text), &probe); err == nil && probe.FormatVersion != "" {
		return probe.FormatVersion
	}

	firstLine, _, _ := strings.Cut(text, "\n")

	firstLine = strings.TrimSpace(firstLine)
	if strings.Contains(firstLine, legacyVersionToken) {
		return firstLine
	}

	return ""
}
