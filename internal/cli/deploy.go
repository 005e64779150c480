package cli

import (
	"database/sql"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/watzon/waypost/internal/database"
	"github.com/watzon/waypost/internal/deploy"
)

const hashDisplayLen = 12

var (
	deployDesc   string
	deployForce  bool
	historyLimit int
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Manage local deployment records",
	Long: `Deploy snapshots the manifest and its functions into the local
deployment history. Records are immutable; a redeploy replaces the
active record wholesale.`,
}

var deployRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Validate and record the current manifest as a deployment",
	RunE:  runDeployRecord,
}

var deployHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show deployment history",
	RunE:  runDeployHistory,
}

var deployRollbackCmd = &cobra.Command{
	Use:   "rollback <version>",
	Short: "Restore a previous deployment's manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeployRollback,
}

func init() {
	deployRecordCmd.Flags().StringVar(&deployDesc, "description", "", "deployment description")
	deployRecordCmd.Flags().BoolVar(&deployForce, "force", false, "record even when validation fails")
	deployHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to show")

	deployCmd.AddCommand(deployRecordCmd, deployHistoryCmd, deployRollbackCmd)
	rootCmd.AddCommand(deployCmd)
}

func openDeployService() (*deploy.Service, *sql.DB, error) {
	db, err := database.Open(database.Options{
		Path:          cfg.Database.Path,
		BusyTimeoutMs: int(cfg.Database.BusyTimeout / time.Millisecond),
	})
	if err != nil {
		return nil, nil, err
	}

	svc := deploy.NewService(db, cfg.Manifest.Path, cfg.Functions.TargetPrefix)
	if err := svc.Init(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}

func runDeployRecord(cmd *cobra.Command, args []string) error {
	svc, db, err := openDeployService()
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := svc.Record(deployDesc, deployForce)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recorded deployment %s (manifest %s)\n",
		d.Version, shortHash(d.ManifestHash))
	return nil
}

func runDeployHistory(cmd *cobra.Command, args []string) error {
	svc, db, err := openDeployService()
	if err != nil {
		return err
	}
	defer db.Close()

	deployments, err := svc.Store().List(historyLimit)
	if err != nil {
		return err
	}
	if len(deployments) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no deployments recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tDEPLOYED\tMANIFEST\tDESCRIPTION")
	for _, d := range deployments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.Version, d.Status,
			d.DeployedAt.Format("2006-01-02 15:04:05"),
			shortHash(d.ManifestHash), d.Description)
	}
	return w.Flush()
}

func runDeployRollback(cmd *cobra.Command, args []string) error {
	svc, db, err := openDeployService()
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := svc.Rollback(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "rolled back to %s; manifest restored to %s\n",
		d.Version, cfg.Manifest.Path)
	return nil
}

func shortHash(h string) string {
	if len(h) > hashDisplayLen {
		return h[:hashDisplayLen]
	}
	return h
}
