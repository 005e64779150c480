package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNotFound indicates no config file was found.
	ErrConfigNotFound = errors.New("config file not found")
)

// LoadOptions control configuration loading.
type LoadOptions struct {
	// ConfigFile is an explicit config file path. When empty the standard
	// search paths are used.
	ConfigFile string
	// EnvPrefix overrides the environment variable prefix (WAYPOST).
	EnvPrefix string
}

// Load reads configuration from file and environment. A missing config
// file is not an error: defaults apply.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setViperDefaults(v, Default())

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "WAYPOST"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("waypost")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/waypost")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("manifest.path", cfg.Manifest.Path)
	v.SetDefault("functions.target_prefix", cfg.Functions.TargetPrefix)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.busy_timeout", cfg.Database.BusyTimeout)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("watch.debounce", cfg.Watch.Debounce)
	v.SetDefault("watch.patterns", cfg.Watch.Patterns)
}
