package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watzon/waypost/internal/functions"
	"github.com/watzon/waypost/internal/rewrite"
)

var (
	matchMethod string
	matchStatic bool
)

var matchCmd = &cobra.Command{
	Use:   "match <path>",
	Short: "Evaluate a request path against the redirect rules",
	Long: `Match reports what the routing layer would do with a request:
rewrite (proxy) it to an internal target, redirect the client, or let it
fall through to default platform behavior.

Examples:
  waypost match /api/calculate --method POST
  waypost match /api/status
  waypost match /assets/logo.png --static`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVarP(&matchMethod, "method", "X", "GET", "HTTP method of the request")
	matchCmd.Flags().BoolVar(&matchStatic, "static", false, "assume a static asset exists at the path")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	rules, err := rewrite.CompileRules(m.Redirects)
	if err != nil {
		return err
	}

	decision, ok := rules.Match(rewrite.Request{
		Path:           args[0],
		Method:         matchMethod,
		HasStaticAsset: matchStatic,
	})

	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintf(out, "%s %s: no rule matches (falls through to platform default)\n", matchMethod, args[0])
		return nil
	}

	switch decision.Type {
	case rewrite.DecisionRewrite:
		fmt.Fprintf(out, "%s %s: rewrite to %s (status %d, client URL preserved)\n",
			matchMethod, args[0], decision.Location, decision.Status)
	case rewrite.DecisionRedirect:
		fmt.Fprintf(out, "%s %s: redirect to %s (status %d)\n",
			matchMethod, args[0], decision.Location, decision.Status)
	default:
		fmt.Fprintf(out, "%s %s: serve %s with status %d\n",
			matchMethod, args[0], decision.Location, decision.Status)
	}

	// When the target addresses a function, say which one.
	if registry, err := discoverFunctions(m); err == nil && registry != nil {
		resolver := functions.NewResolver(registry, cfg.Functions.TargetPrefix)
		if fn, ok := resolver.Resolve(decision.Location); ok {
			fmt.Fprintf(out, "target function: %s (%s", fn.Name, fn.Runtime)
			if fn.VersionHint != "" {
				fmt.Fprintf(out, " %s", fn.VersionHint)
			}
			fmt.Fprintln(out, ")")
		}
	}

	return nil
}
