package config

import "time"

// Default configuration values.
const (
	DefaultManifestPath = "netlify.toml"
	DefaultTargetPrefix = "/.netlify/functions/"
	DefaultDBPath       = ".waypost/deployments.db"
	DefaultBusyTimeout  = 5 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultDebounce     = 100 * time.Millisecond
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Manifest: ManifestConfig{
			Path: DefaultManifestPath,
		},
		Functions: FunctionsConfig{
			TargetPrefix: DefaultTargetPrefix,
		},
		Database: DatabaseConfig{
			Path:        DefaultDBPath,
			BusyTimeout: DefaultBusyTimeout,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
	}
}
