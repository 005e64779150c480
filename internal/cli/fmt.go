package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/watzon/waypost/internal/manifest"
)

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt",
	Short: "Canonicalize the deploy manifest",
	Long: `Fmt parses the manifest and re-serializes it in canonical form:
defaults applied, methods upper-cased, paths normalized. The result
declares the same rule set as the input.`,
	RunE: runFmt,
}

func init() {
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "rewrite the manifest file in place")
	rootCmd.AddCommand(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(cfg.Manifest.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", manifest.ErrManifestNotFound, cfg.Manifest.Path)
		}
		return err
	}

	formatted, err := manifest.Format(data)
	if err != nil {
		return err
	}

	if fmtWrite {
		if err := os.WriteFile(cfg.Manifest.Path, formatted, 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}
		return nil
	}

	_, err = cmd.OutOrStdout().Write(formatted)
	return err
}
