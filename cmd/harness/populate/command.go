// Package populate implements the payment table population command.
package populate

import (
	"context"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	"github.com/probstack/btcpay-harness/internal/batch"
	"github.com/probstack/btcpay-harness/internal/dbseed"
	"github.com/probstack/btcpay-harness/internal/runconfig"
)

func Command() *cobra.Command {
	opts := runconfig.DefaultPaymentsOptions()
	var testOnly bool

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Fill the payments and invoices tables with synthetic rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.LoadEnv(cmd)
			if err != nil {
				return err
			}

			resolved, err := runconfig.ResolvePayments(env.File, opts)
			if err != nil {
				return err
			}

			if testOnly {
				repo, err := cmdutil.OpenDB(env, resolved)
				if err != nil {
					return err
				}
				defer repo.Shutdown()

				return dbseed.New(repo, env.Logger, resolved).TestConnection()
			}

			ctx, stop := cmdutil.SignalContext(cmd.Context())
			defer stop()

			return Run(ctx, env, resolved)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", opts.Host, "database host")
	cmd.Flags().IntVar(&opts.Port, "port", opts.Port, "database port")
	cmd.Flags().StringVar(&opts.Database, "database", opts.Database, "database name")
	cmd.Flags().StringVar(&opts.User, "user", opts.User, "database user")
	cmd.Flags().StringVar(&opts.Password, "password", opts.Password, "database password")
	cmd.Flags().IntVar(&opts.Count, "count", opts.Count, "rows to insert per table")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "rows inserted per statement")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", opts.OutputDir, "directory the result artifacts are written to")
	cmd.Flags().StringVar(&opts.Table, "table", opts.Table, "target table: payments, invoices or both")
	cmd.Flags().BoolVar(&testOnly, "test-only", false, "validate database connectivity, then exit")

	return cmd
}

// Run populates the configured tables and exports the per table reports.
// The workflow command reuses it as its population step.
func Run(ctx context.Context, env *cmdutil.Env, opts runconfig.PaymentsOptions) error {
	repo, err := cmdutil.OpenDB(env, opts)
	if err != nil {
		return err
	}
	defer repo.Shutdown()

	seeder := dbseed.New(repo, env.Logger, opts)

	if err := seeder.TestConnection(); err != nil {
		return err
	}
	if err := seeder.EnsureSchema(); err != nil {
		return err
	}

	result, err := seeder.Run(ctx)
	if err != nil {
		return err
	}
	if _, err := seeder.Export(result); err != nil {
		return err
	}

	if result.Payments != nil {
		result.Payments.PrintSummary(os.Stdout, "PAYMENTS POPULATION SUMMARY")
	}
	if result.Invoices != nil {
		result.Invoices.PrintSummary(os.Stdout, "INVOICES POPULATION SUMMARY")
	}

	if payments, invoices, err := seeder.Counts(); err == nil {
		env.Logger.Info("[Run] table sizes after population", map[string]string{
			"payments": strconv.FormatInt(payments, 10),
			"invoices": strconv.FormatInt(invoices, 10),
		})
	}

	stats := combineStats(result)
	cmdutil.NotifyRun(env, "populate", stats)

	return cmdutil.Exit(cmdutil.ReportExitCode(stats))
}

// combineStats folds the per table reports into one run wide view for exit
// code and webhook purposes.
func combineStats(result *dbseed.SeedResult) batch.RunStats {
	var combined batch.RunStats

	first := true
	for _, report := range []*batch.Report{result.Payments, result.Invoices} {
		if report == nil {
			continue
		}

		stats := report.Stats
		combined.TotalRequested += stats.TotalRequested
		combined.Successful += stats.Successful
		combined.Failed += stats.Failed
		combined.Interrupted = combined.Interrupted || stats.Interrupted

		if first || stats.StartTime.Before(combined.StartTime) {
			combined.StartTime = stats.StartTime
		}
		if first || stats.EndTime.After(combined.EndTime) {
			combined.EndTime = stats.EndTime
		}
		first = false
	}

	return combined
}
