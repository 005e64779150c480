package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/waypost/internal/deploy"
)

var validateWatch bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the deploy manifest",
	Long: `Validate runs the same checks the platform runs at deploy time:
the manifest must parse, its redirect rules must be well-formed, the
functions directory must exist, and every rule targeting the functions
prefix must resolve to a deployed function.

With --watch, validation re-runs whenever the manifest or a function
file changes.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVarP(&validateWatch, "watch", "w", false, "re-validate on file changes")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	svc := deploy.NewService(nil, cfg.Manifest.Path, cfg.Functions.TargetPrefix)

	if !validateWatch {
		return validateOnce(cmd, svc)
	}

	// First run reports immediately; later runs are triggered by changes.
	if err := validateOnce(cmd, svc); err != nil {
		log.Error().Err(err).Msg("Validation failed")
	}

	watcher, err := newManifestWatcher(func(path string) {
		log.Info().Str("path", path).Msg("Change detected, re-validating")
		if err := validateOnce(cmd, svc); err != nil {
			log.Error().Err(err).Msg("Validation failed")
		}
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	watcher.Start(ctx)

	log.Info().Str("manifest", cfg.Manifest.Path).Msg("Watching for changes (ctrl-c to stop)")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

func validateOnce(cmd *cobra.Command, svc *deploy.Service) error {
	report, _, err := svc.Check()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}

	if !report.Valid {
		return fmt.Errorf("%d error(s) found in %s", len(report.Errors), cfg.Manifest.Path)
	}

	fmt.Fprintf(out, "%s is valid: %d redirect rule(s), %d function(s)\n",
		cfg.Manifest.Path, report.Rules, report.Functions)
	return nil
}
