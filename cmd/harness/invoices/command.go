// Package invoices implements the bulk invoice creation command.
package invoices

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/invoicegen"
	"github.com/probstack/btcpay-harness/internal/monitoring"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/utils/config"
)

func Command() *cobra.Command {
	opts := runconfig.DefaultInvoiceOptions()
	var testOnly bool

	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Create invoices in bulk against a BTCPay store",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.LoadEnv(cmd)
			if err != nil {
				return err
			}

			resolved, err := runconfig.ResolveInvoices(env.File, opts)
			if err != nil {
				return err
			}

			if testOnly {
				g, err := newGenerator(env, resolved)
				if err != nil {
					return err
				}

				return g.TestConnection()
			}

			ctx, stop := cmdutil.SignalContext(cmd.Context())
			defer stop()

			return Run(ctx, env, resolved)
		},
	}

	cmd.Flags().StringVar(&opts.APIKey, "api-key", opts.APIKey, "BTCPay API key")
	cmd.Flags().StringVar(&opts.StoreID, "store-id", opts.StoreID, "BTCPay store id")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", opts.BaseURL, "BTCPay server base URL")
	cmd.Flags().IntVar(&opts.Count, "count", opts.Count, "number of invoices to create")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "invoices created per batch")
	cmd.Flags().Float64Var(&opts.Delay, "delay", opts.Delay, "pause between batches in seconds")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", opts.OutputDir, "directory the result artifacts are written to")
	cmd.Flags().BoolVar(&testOnly, "test-only", false, "validate connectivity and credentials, then exit")

	return cmd
}

func newGenerator(env *cmdutil.Env, opts runconfig.InvoiceOptions) (*invoicegen.Generator, error) {
	if opts.APIKey == "" || opts.StoreID == "" {
		return nil, errors.New("api key and store id are required, set --api-key/--store-id or the config file")
	}

	env.Config.BTCPay = config.BTCPayConfig{
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
		StoreID: opts.StoreID,
	}

	client := monitoring.NewCircuitBreakerBtcPay(
		btcpay.New(env.Config, env.Logger),
		monitoring.CircuitBreakerConfigs["btcpay_api"],
		monitoring.NewExternalAPIMetrics(),
		env.Logger,
	)

	return invoicegen.New(client, env.Logger, opts), nil
}

// Run drives one full invoice creation run and exports its artifacts. The
// workflow command reuses it as its invoice step.
func Run(ctx context.Context, env *cmdutil.Env, opts runconfig.InvoiceOptions) error {
	g, err := newGenerator(env, opts)
	if err != nil {
		return err
	}

	if err := g.TestConnection(); err != nil {
		return err
	}

	report, err := g.Run(ctx)
	if err != nil {
		return err
	}

	files, err := g.Export(report)
	if err != nil {
		return err
	}

	report.PrintSummary(os.Stdout, "INVOICE GENERATION SUMMARY")
	env.Logger.Info("[Run] artifacts written", map[string]string{
		"summary": files.SummaryFile,
		"success": files.SuccessFile,
		"failed":  files.FailedFile,
	})

	cmdutil.NotifyRun(env, "invoices", report.Stats)

	return cmdutil.Exit(cmdutil.ReportExitCode(report.Stats))
}
