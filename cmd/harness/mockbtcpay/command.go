// Package mockbtcpay implements the embedded Greenfield API emulator command.
package mockbtcpay

import (
	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	mock "github.com/probstack/btcpay-harness/internal/mockbtcpay"
)

func Command() *cobra.Command {
	opts := mock.Options{
		Addr:    ":14142",
		APIKey:  "testkey",
		StoreID: "store-1",
	}

	cmd := &cobra.Command{
		Use:   "mockbtcpay",
		Short: "Serve a mock BTCPay Greenfield API for local load testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.LoadEnv(cmd)
			if err != nil {
				return err
			}

			return mock.New(opts, env.Logger).Run()
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", opts.Addr, "listen address")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", opts.APIKey, "API key the server accepts")
	cmd.Flags().StringVar(&opts.StoreID, "store-id", opts.StoreID, "store id the server serves")
	cmd.Flags().IntVar(&opts.FailEvery, "fail-every", opts.FailEvery, "fail every Nth invoice creation with a 500")

	return cmd
}
