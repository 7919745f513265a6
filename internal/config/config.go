package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds paths and defaults shared by the modpack binaries.
type Config struct {
	// DataDir is the root of the target content store (bucket files and registry).
	DataDir string `yaml:"data_dir"`
	// OutputDir is where built package archives are written.
	OutputDir string `yaml:"output_dir"`
	// LogLevel controls logging verbosity (debug, info, warn, error, fatal).
	LogLevel string `yaml:"log_level"`
	// Overwrite makes builds replace an existing archive with the same name
	// instead of picking a numbered one.
	Overwrite bool `yaml:"overwrite"`
}

const (
	// DefaultConfigFilename is the default filename for modpack settings.
	DefaultConfigFilename = "modpack-settings.yaml"

	// DefaultLogLevel is applied when the settings file names no level.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDataDirRequired is returned when the content store root is missing.
	errDataDirRequired = errors.New("data directory must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.DataDir == "" {
		return errDataDirRequired
	}

	// Default to the current directory for build output.
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}
