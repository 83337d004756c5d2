// Package workflow implements the end to end pipeline command.
package workflow

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/cmd/harness/addresses"
	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	"github.com/probstack/btcpay-harness/cmd/harness/invoices"
	"github.com/probstack/btcpay-harness/cmd/harness/populate"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	flow "github.com/probstack/btcpay-harness/internal/workflow"
)

func Command() *cobra.Command {
	var skip flow.SkipFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run address generation, invoice creation and table population end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.LoadEnv(cmd)
			if err != nil {
				return err
			}
			if env.File == nil {
				return errors.New("the workflow command requires --config")
			}

			if err := flow.CheckPrerequisites(env.File); err != nil {
				return err
			}

			addressOpts, err := runconfig.ResolveAddresses(env.File, runconfig.DefaultAddressOptions())
			if err != nil {
				return err
			}
			if !skip.Addresses && addressOpts.Mainnet && !addresses.ConfirmMainnet(cmd.InOrStdin()) {
				return errors.New("mainnet run aborted")
			}

			runner := flow.New(env.Logger, os.Stdout)
			for _, step := range flow.StandardSteps(
				func(ctx context.Context) error {
					return addresses.Run(ctx, env, addressOpts)
				},
				func(ctx context.Context) error {
					opts, err := runconfig.ResolveInvoices(env.File, runconfig.DefaultInvoiceOptions())
					if err != nil {
						return err
					}

					return invoices.Run(ctx, env, opts)
				},
				func(ctx context.Context) error {
					opts, err := runconfig.ResolvePayments(env.File, runconfig.DefaultPaymentsOptions())
					if err != nil {
						return err
					}

					return populate.Run(ctx, env, opts)
				},
				skip,
			) {
				runner.Add(step)
			}

			if dryRun {
				runner.Plan()
				return nil
			}

			ctx, stop := cmdutil.SignalContext(cmd.Context())
			defer stop()

			_, err = runner.Run(ctx)

			return err
		},
	}

	cmd.Flags().BoolVar(&skip.Addresses, "skip-addresses", false, "skip the address generation step")
	cmd.Flags().BoolVar(&skip.Invoices, "skip-invoices", false, "skip the invoice creation step")
	cmd.Flags().BoolVar(&skip.Payments, "skip-payments", false, "skip the table population step")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without executing it")

	return cmd
}
