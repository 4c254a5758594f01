package config

import (
	"fmt"
	"strings"
	"time"

	"masterimage/internal/image"
)

const (
	DefaultMissingImageMessage = "is required"
	DefaultInvalidImageMessage = "was not a readable image"
	DefaultJPGQuality          = 85
	DefaultFetchTimeout        = 10 * time.Second
	DefaultMaxSourceBytes      = 10 * 1024 * 1024
)

type Config struct {
	TempDir   string        `yaml:"temp_dir"`
	DBPath    string        `yaml:"db_path"`
	Workers   int           `yaml:"workers"`
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	Storage   StorageConfig `yaml:"storage"`
}

// Columns tells the orchestrator which record columns exist. The caller
// knows its own schema, so nothing is probed at runtime.
type Columns struct {
	Width    bool `yaml:"width"`
	Height   bool `yaml:"height"`
	Filename bool `yaml:"filename"`
	Blob     bool `yaml:"blob"`
}

// StorageConfig is shared by every record of one type and must not be
// mutated once Validate has passed.
type StorageConfig struct {
	BasePath            string        `yaml:"base_path"`
	Directory           string        `yaml:"directory"`
	UseDateDirectories  bool          `yaml:"use_date_directories"`
	StorageFormat       image.Format  `yaml:"storage_format"`
	RequireImage        bool          `yaml:"require_image"`
	MissingImageMessage string        `yaml:"missing_image_message"`
	InvalidImageMessage string        `yaml:"invalid_image_message"`
	JPGQuality          int           `yaml:"jpg_quality"`
	DefaultImagePath    string        `yaml:"default_image_path"`
	Preprocess          []image.Op    `yaml:"preprocess"`
	Columns             Columns       `yaml:"columns"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout"`
	MaxSourceBytes      int64         `yaml:"max_source_bytes"`
}

func Default() *Config {
	st := DefaultStorage()
	st.Directory = "./images"
	return &Config{
		TempDir:   "./temp",
		DBPath:    "./masterimage.db",
		Workers:   4,
		LogLevel:  "info",
		LogFormat: "console",
		Storage:   st,
	}
}

func DefaultStorage() StorageConfig {
	return StorageConfig{
		UseDateDirectories:  true,
		StorageFormat:       image.FormatPNG,
		RequireImage:        true,
		MissingImageMessage: DefaultMissingImageMessage,
		InvalidImageMessage: DefaultInvalidImageMessage,
		JPGQuality:          DefaultJPGQuality,
		FetchTimeout:        DefaultFetchTimeout,
		MaxSourceBytes:      DefaultMaxSourceBytes,
	}
}

// ConfigError is a setup-time failure; it is never downgraded.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Normalize fills zero values that have a non-zero default.
func (c *StorageConfig) Normalize() {
	c.StorageFormat = image.Format(strings.ToLower(strings.TrimSpace(string(c.StorageFormat))))
	if c.StorageFormat == "" {
		c.StorageFormat = image.FormatPNG
	}
	if c.StorageFormat == "jpeg" {
		c.StorageFormat = image.FormatJPG
	}
	if c.MissingImageMessage == "" {
		c.MissingImageMessage = DefaultMissingImageMessage
	}
	if c.InvalidImageMessage == "" {
		c.InvalidImageMessage = DefaultInvalidImageMessage
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MaxSourceBytes <= 0 {
		c.MaxSourceBytes = DefaultMaxSourceBytes
	}
}

func (c *StorageConfig) Validate() error {
	if !c.Columns.Blob && strings.TrimSpace(c.Directory) == "" {
		return &ConfigError{Field: "directory", Reason: "required for filesystem storage"}
	}
	switch c.StorageFormat {
	case image.FormatPNG, image.FormatJPG:
	default:
		return &ConfigError{Field: "storage_format", Reason: fmt.Sprintf("unsupported format %q", c.StorageFormat)}
	}
	if c.JPGQuality < 0 || c.JPGQuality > 100 {
		return &ConfigError{Field: "jpg_quality", Reason: fmt.Sprintf("%d is outside 0..100", c.JPGQuality)}
	}
	for i, op := range c.Preprocess {
		if err := op.Validate(); err != nil {
			return &ConfigError{Field: fmt.Sprintf("preprocess[%d]", i), Reason: err.Error()}
		}
	}
	return nil
}

// FilesystemBacked reports whether images live on disk rather than in the record.
func (c *StorageConfig) FilesystemBacked() bool {
	return !c.Columns.Blob
}
