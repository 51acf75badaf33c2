package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logx "github.com/contract-guardian/server/pkg/logger"
)

type rootOptions struct {
	envFile string
	cfg     *AppConfig
}

// NewRootCmd builds the guardian command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "guardian",
		Short: "Contract Guardian - audits invoices against contract terms",
		Long: `Contract Guardian retrieves the contract clauses relevant to each invoice,
asks a language model whether the invoice complies, and drafts an email to the vendor.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(opts.envFile)
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{
				Environment: cfg.Env(),
				Level:       cfg.LogLevel,
				Output:      cmd.ErrOrStderr(),
			})
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newIngestCmd(opts))
	return cmd
}

// Execute runs the root command with SIGINT/SIGTERM wired to cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
