package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the manifest's redirect rules",
	RunE:  runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	if len(m.Redirects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no redirect rules")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO\tSTATUS\tKIND\tFORCE\tMETHODS")

	for i := range m.Redirects {
		r := &m.Redirects[i]

		kind := "redirect"
		switch {
		case r.IsRewrite():
			kind = "rewrite"
		case r.Status >= 400:
			kind = "custom"
		}

		methods := "*"
		if len(r.Methods) > 0 {
			methods = strings.Join(r.Methods, ",")
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\t%s\n",
			r.From, r.To, r.Status, kind, r.Force, methods)
	}

	return w.Flush()
}
