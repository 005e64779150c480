// Package cli implements the waypost command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/waypost/internal/config"
)

var (
	cfgFile      string
	manifestPath string
	verbose      bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "waypost",
	Short: "Deploy manifest and rewrite-rule toolkit",
	Long: `Waypost parses, validates, and queries serverless deploy manifests:
build settings, a functions directory, and the redirect rules that map
public paths onto deployed functions.

Validate a manifest against its functions directory:
  waypost validate

Ask the router what it would do with a request:
  waypost match /api/calculate --method POST`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return loadConfig()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./waypost.yaml)")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "deploy manifest path (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func loadConfig() error {
	c, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return err
	}
	if manifestPath != "" {
		c.Manifest.Path = manifestPath
	}
	cfg = c

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil && !verbose {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

// setupLogging configures zerolog before the config file is read, so early
// failures are still readable.
func setupLogging() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("waypost version %s", "0.1.0-dev")
}
