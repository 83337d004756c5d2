// Package health implements the BTCPay stack health check command.
package health

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/healthcheck"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/store"
	"github.com/probstack/btcpay-harness/internal/utils/config"
)

func Command() *cobra.Command {
	opts := runconfig.DefaultHealthOptions()

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe every component of the BTCPay stack and report a verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.LoadEnv(cmd)
			if err != nil {
				return err
			}

			resolved, err := runconfig.ResolveHealth(env.File, opts)
			if err != nil {
				return err
			}

			ctx, stop := cmdutil.SignalContext(cmd.Context())
			defer stop()

			return run(ctx, env, resolved)
		},
	}

	cmd.Flags().StringVar(&opts.APIKey, "api-key", opts.APIKey, "BTCPay API key")
	cmd.Flags().StringVar(&opts.StoreID, "store-id", opts.StoreID, "BTCPay store id")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", opts.BaseURL, "BTCPay server base URL")
	cmd.Flags().StringVar(&opts.Output, "output", opts.Output, "file the results JSON is written to")
	cmd.Flags().StringVar(&opts.Watch, "watch", opts.Watch, "cron schedule for repeated checks, e.g. '@every 5m'")

	return cmd
}

func run(ctx context.Context, env *cmdutil.Env, opts runconfig.HealthOptions) error {
	if opts.APIKey == "" || opts.StoreID == "" {
		return errors.New("api key and store id are required, set --api-key/--store-id or the config file")
	}

	env.Config.BTCPay = config.BTCPayConfig{
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
		StoreID: opts.StoreID,
	}

	// The health probes use the raw client on purpose. A circuit breaker
	// would mask the very outages the checks exist to report.
	client := btcpay.New(env.Config, env.Logger)

	db := probeDB(env)
	if db != nil {
		defer db.Shutdown()
	}

	checker := healthcheck.New(client, db, env.Logger, opts)

	if opts.Watch != "" {
		err := checker.Watch(ctx, opts.Watch, func(results *healthcheck.Results) {
			handleResults(env, results, opts.Output)
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return cmdutil.Exit(cmdutil.Interrupted)
		}

		return err
	}

	results := checker.Run(ctx)
	handleResults(env, results, opts.Output)

	if results.Interrupted {
		return cmdutil.Exit(cmdutil.Interrupted)
	}

	return cmdutil.Exit(results.ExitCode())
}

// probeDB wires the optional database probe. It is present when the run
// config carries usable database settings, reports the connection error
// when they do not connect, and stays absent otherwise.
func probeDB(env *cmdutil.Env) store.DBRepo {
	if env.File == nil {
		return nil
	}

	if _, err := env.File.Payments(); err != nil {
		return nil
	}

	opts, err := runconfig.ResolvePayments(env.File, runconfig.DefaultPaymentsOptions())
	if err != nil {
		return nil
	}

	repo, err := cmdutil.OpenDB(env, opts)
	if err != nil {
		env.Logger.Error("[probeDB] database connection failed", map[string]string{
			"host":  opts.Host,
			"error": err.Error(),
		})

		return deadDB{err: err}
	}

	return repo
}

// deadDB stands in for a database that refused the connection, so the
// checker can report the failure instead of the command dying on it.
type deadDB struct {
	err error
}

func (d deadDB) DB() *gorm.DB    { return nil }
func (d deadDB) Ping() error     { return d.err }
func (d deadDB) Shutdown() error { return nil }

func handleResults(env *cmdutil.Env, results *healthcheck.Results, output string) {
	results.PrintSummary(os.Stdout)

	if output == "" {
		return
	}
	if err := results.Save(output); err != nil {
		env.Logger.Error("[handleResults] failed to save results", map[string]string{
			"path":  output,
			"error": err.Error(),
		})

		return
	}

	env.Logger.Info("[handleResults] results saved", map[string]string{"path": output})
}
