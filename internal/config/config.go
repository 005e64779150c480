// Package config provides configuration management for waypost itself.
package config

import "time"

// Config is the root configuration structure for the tool.
type Config struct {
	Manifest  ManifestConfig  `mapstructure:"manifest"`
	Functions FunctionsConfig `mapstructure:"functions"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// ManifestConfig locates the deploy manifest.
type ManifestConfig struct {
	// Path to the deploy manifest file
	Path string `mapstructure:"path"`
}

// FunctionsConfig holds function resolution settings.
type FunctionsConfig struct {
	// TargetPrefix is the internal path prefix rewrite targets use to
	// address functions
	TargetPrefix string `mapstructure:"target_prefix"`
}

// DatabaseConfig holds deployment history store settings.
type DatabaseConfig struct {
	// Path to the SQLite database file
	Path string `mapstructure:"path"`

	// Busy timeout passed to SQLite
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format"`
}

// WatchConfig holds watch-mode settings for validate --watch.
type WatchConfig struct {
	// Debounce duration for coalescing file change events
	Debounce time.Duration `mapstructure:"debounce"`

	// Glob patterns restricting which changed files trigger
	// re-validation (empty matches everything)
	Patterns []string `mapstructure:"patterns"`
}
