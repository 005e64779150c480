package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List deployable functions",
	Long: `Functions scans the manifest's functions directory and lists what
would be deployed, with runtime and interpreter version hints from the
build environment.`,
	RunE: runFunctions,
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}

func runFunctions(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	registry, err := discoverFunctions(m)
	if err != nil {
		return err
	}
	if registry == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "manifest declares no functions directory")
		return nil
	}

	fns := registry.List()
	if len(fns) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no functions found in %s\n", registry.Dir())
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUNTIME\tVERSION\tENTRY")
	for _, fn := range fns {
		version := fn.VersionHint
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fn.Name, fn.Runtime, version, fn.Path)
	}
	return w.Flush()
}
