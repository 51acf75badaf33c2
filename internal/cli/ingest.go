package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	logx "github.com/contract-guardian/server/pkg/logger"
)

func newIngestCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the contract knowledge collection",
		Long: `Load the contracts at CONTRACT_PATH, split them into chunks, embed every chunk
and replace the configured knowledge collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
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

			n, err := ingestContracts(ctx, cfg, svc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base: %d chunks in %s (%s)\n", n, cfg.Knowledge.Collection, cfg.Knowledge.Backend)
			return nil
		},
	}
}
