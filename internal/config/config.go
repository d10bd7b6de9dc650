// Package config handles loopline configuration loading and validation.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/tOgg1/loopline/internal/models"
)

// Config is the root configuration structure for loopline.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Fields holds the limits used by the default field validator.
	Fields FieldLimits `yaml:"fields" mapstructure:"fields"`

	// Validation holds collection health thresholds.
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`

	// Resolver selects which repair phases run by default.
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
}

// GlobalConfig contains global loopline settings.
type GlobalConfig struct {
	// DataDir is where loopline stores its data (default: ~/.local/share/loopline).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/loopline).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database.
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// FieldLimits bounds free-form loop fields.
type FieldLimits struct {
	NameMaxLength int     `yaml:"name_max_length" mapstructure:"name_max_length"`
	MinSpeed      float64 `yaml:"min_speed" mapstructure:"min_speed"`
	MaxSpeed      float64 `yaml:"max_speed" mapstructure:"max_speed"`
}

// ValidationConfig contains thresholds for warnings and suggestions.
type ValidationConfig struct {
	// LongLoopRatio warns when one loop covers more than this share of the timeline.
	LongLoopRatio float64 `yaml:"long_loop_ratio" mapstructure:"long_loop_ratio"`

	// OvercommitRatio suggests cleanup when total loop time exceeds this share of the timeline.
	OvercommitRatio float64 `yaml:"overcommit_ratio" mapstructure:"overcommit_ratio"`

	// MaxActiveLoops suggests deactivating loops above this count.
	MaxActiveLoops int `yaml:"max_active_loops" mapstructure:"max_active_loops"`
}

// ResolverConfig toggles the resolver phases.
type ResolverConfig struct {
	RemoveInvalid       bool `yaml:"remove_invalid" mapstructure:"remove_invalid"`
	TrimToVideoDuration bool `yaml:"trim_to_video_duration" mapstructure:"trim_to_video_duration"`
	RenameDuplicates    bool `yaml:"rename_duplicates" mapstructure:"rename_duplicates"`
	AdjustOverlaps      bool `yaml:"adjust_overlaps" mapstructure:"adjust_overlaps"`
}

// DefaultFieldLimits returns the stock field limits.
func DefaultFieldLimits() FieldLimits {
	return FieldLimits{
		NameMaxLength: 100,
		MinSpeed:      0.25,
		MaxSpeed:      4.0,
	}
}

// DefaultValidationConfig returns the stock health thresholds.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		LongLoopRatio:   0.8,
		OvercommitRatio: 1.5,
		MaxActiveLoops:  5,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "loopline"),
			ConfigDir: filepath.Join(homeDir, ".config", "loopline"),
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/loopline.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Fields:     DefaultFieldLimits(),
		Validation: DefaultValidationConfig(),
		Resolver: ResolverConfig{
			RemoveInvalid:       true,
			TrimToVideoDuration: true,
			RenameDuplicates:    true,
			AdjustOverlaps:      true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validation := &models.ValidationErrors{}

	if c.Database.BusyTimeoutMs < 0 {
		validation.AddMessage("database.busy_timeout_ms", "must not be negative")
	}
	if c.Fields.NameMaxLength < 1 {
		validation.AddMessage("fields.name_max_length", "must be at least 1")
	}
	if !(c.Fields.MinSpeed > 0) || math.IsInf(c.Fields.MinSpeed, 0) {
		validation.AddMessage("fields.min_speed", "must be a positive number")
	}
	if !(c.Fields.MaxSpeed >= c.Fields.MinSpeed) || math.IsInf(c.Fields.MaxSpeed, 0) {
		validation.AddMessage("fields.max_speed", "must be a finite number not below min_speed")
	}
	if !(c.Validation.LongLoopRatio > 0 && c.Validation.LongLoopRatio <= 1) {
		validation.AddMessage("validation.long_loop_ratio", "must be in (0, 1]")
	}
	if !(c.Validation.OvercommitRatio > 0) {
		validation.AddMessage("validation.overcommit_ratio", "must be positive")
	}
	if c.Validation.MaxActiveLoops < 0 {
		validation.AddMessage("validation.max_active_loops", "must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		validation.AddMessage("logging.format", fmt.Sprintf("unknown format %q (want console or json)", c.Logging.Format))
	}

	return validation.Err()
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "loopline.db")
}
