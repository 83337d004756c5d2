// Package migrate implements the schema setup command.
package migrate

import (
	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/store"
)

func Command() *cobra.Command {
	opts := runconfig.DefaultPaymentsOptions()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the payments and invoices tables when they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.LoadEnv(cmd)
			if err != nil {
				return err
			}

			resolved, err := runconfig.ResolvePayments(env.File, opts)
			if err != nil {
				return err
			}

			repo, err := cmdutil.OpenDB(env, resolved)
			if err != nil {
				return err
			}
			defer repo.Shutdown()

			return store.EnsureSchema(repo.DB(), env.Logger)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", opts.Host, "database host")
	cmd.Flags().IntVar(&opts.Port, "port", opts.Port, "database port")
	cmd.Flags().StringVar(&opts.Database, "database", opts.Database, "database name")
	cmd.Flags().StringVar(&opts.User, "user", opts.User, "database user")
	cmd.Flags().StringVar(&opts.Password, "password", opts.Password, "database password")

	return cmd
}
