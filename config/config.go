package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/flatfs/internal/util"
	"gopkg.in/yaml.v3"
)

// Config contains runtime configuration values for the flat filesystem.
type Config struct {
	MountOptions
	LogLvl util.LogLevel

	MaxEntries   int    // Maximum number of entries in the store (Default 100)
	MaxEntrySize int    // Per-entry byte capacity (Default 1KB)
	MaxNameLen   int    // Longest accepted entry name (Default 255)
	FileMode     uint32 // Permission bits reported for entries (Default 0644)
	DirMode      uint32 // Permission bits reported for the root (Default 0755)

	// NOTE: Low-level FUSE config:

	MaxWrite     int     // Maximum write size per FUSE request (Default 128KB)
	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass the page cache (Default true)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	FsName     *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name       *string `yaml:"name,omitempty" json:"name,omitempty"`
	Debug      *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	AllowOther *bool   `yaml:"allow_other,omitempty" json:"allow_other,omitempty"`
	// DirectMount needs root; see [MountOptions]
	DirectMount *bool `yaml:"direct_mount,omitempty" json:"direct_mount,omitempty"`
	// LogLvl is a CLI style verbosity between 1 (error) and 5 (trace)
	LogLvl       *int     `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	MaxEntries   *int     `yaml:"max_entries,omitempty" json:"max_entries,omitempty"`
	MaxEntrySize *int     `yaml:"max_entry_size,omitempty" json:"max_entry_size,omitempty"`
	MaxNameLen   *int     `yaml:"max_name_len,omitempty" json:"max_name_len,omitempty"`
	FileMode     *uint32  `yaml:"file_mode,omitempty" json:"file_mode,omitempty"`
	DirMode      *uint32  `yaml:"dir_mode,omitempty" json:"dir_mode,omitempty"`
	MaxWrite     *int     `yaml:"max_write,omitempty" json:"max_write,omitempty"`
	AttrTimeout  *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	DirectIO     *bool    `yaml:"direct_io,omitempty" json:"direct_io,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:       DefaultLogLvl,
		MaxEntries:   DefaultMaxEntries,
		MaxEntrySize: DefaultMaxEntrySize,
		MaxNameLen:   DefaultMaxNameLen,
		FileMode:     DefaultFileMode,
		DirMode:      DefaultDirMode,
		MaxWrite:     DefaultMaxWrite,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
		DirectIO:     DefaultDirectIO,
	}
}

// NewConfig returns the defaults with override applied. A nil override
// yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.AllowOther != nil {
		c.AllowOther = *override.AllowOther
	}
	if override.DirectMount != nil {
		c.DirectMount = *override.DirectMount
	}
	if override.LogLvl != nil {
		c.LogLvl = util.LevelFromVerbosity(*override.LogLvl)
	}
	if override.MaxEntries != nil {
		c.MaxEntries = *override.MaxEntries
	}
	if override.MaxEntrySize != nil {
		c.MaxEntrySize = *override.MaxEntrySize
	}
	if override.MaxNameLen != nil {
		c.MaxNameLen = *override.MaxNameLen
	}
	if override.FileMode != nil {
		c.FileMode = *override.FileMode
	}
	if override.DirMode != nil {
		c.DirMode = *override.DirMode
	}
	if override.MaxWrite != nil {
		c.MaxWrite = *override.MaxWrite
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.DirectIO != nil {
		c.DirectIO = *override.DirectIO
	}
}

// Validate reports every field that cannot be served.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("max_entries must be positive, got %d", c.MaxEntries))
	}
	if c.MaxEntrySize <= 0 {
		errs = append(errs, fmt.Errorf("max_entry_size must be positive, got %d", c.MaxEntrySize))
	}
	if c.MaxNameLen <= 0 || c.MaxNameLen > DefaultMaxNameLen {
		errs = append(errs, fmt.Errorf("max_name_len must be in [1, %d], got %d", DefaultMaxNameLen, c.MaxNameLen))
	}
	if c.FileMode&^0o777 != 0 {
		errs = append(errs, fmt.Errorf("file_mode has non-permission bits: %o", c.FileMode))
	}
	if c.DirMode&^0o777 != 0 {
		errs = append(errs, fmt.Errorf("dir_mode has non-permission bits: %o", c.DirMode))
	}
	if c.MaxWrite < 0 {
		errs = append(errs, fmt.Errorf("max_write must not be negative, got %d", c.MaxWrite))
	}
	return errors.Join(errs...)
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
