package cli

import (
	"github.com/spf13/cobra"

	logx "github.com/contract-guardian/server/pkg/logger"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		invoicesPath string
		failFast     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one audit cycle over the invoice batch",
		Long: `Ingest the contracts (unless a persistent collection already holds them),
then audit every invoice in order and print its report and email draft.

Without --invoices the two built-in sample invoices are audited.

Examples:
  guardian run
  guardian run --invoices data/transactions/invoices.csv --fail-fast`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("invoices") {
				cfg.Batch.InvoicesPath = invoicesPath
			}
			if cmd.Flags().Changed("fail-fast") {
				cfg.Batch.FailFast = failFast
			}

			ctx := cmd.Context()
			svc, err := newServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					logx.Warn().Err(err).Msg("closing services")
				}
			}()

			_, err = runAudit(ctx, cfg, svc, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&invoicesPath, "invoices", "", "CSV file of invoices (default: built-in samples)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "abort the batch on the first failed invoice")
	return cmd
}
