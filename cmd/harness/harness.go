package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/cmd/harness/addresses"
	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	"github.com/probstack/btcpay-harness/cmd/harness/health"
	"github.com/probstack/btcpay-harness/cmd/harness/invoices"
	"github.com/probstack/btcpay-harness/cmd/harness/migrate"
	"github.com/probstack/btcpay-harness/cmd/harness/mockbtcpay"
	"github.com/probstack/btcpay-harness/cmd/harness/populate"
	"github.com/probstack/btcpay-harness/cmd/harness/workflow"
)

var rootCmd = &cobra.Command{
	Use:           "harness",
	Short:         "Load testing toolkit for a BTCPay Server payment stack",
	Long: `harness drives bulk operations against a BTCPay Server deployment:
address generation and funding, invoice creation, database population and
health checks, individually or as one workflow.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a JSON run config file")

	rootCmd.AddCommand(addresses.Command())
	rootCmd.AddCommand(invoices.Command())
	rootCmd.AddCommand(populate.Command())
	rootCmd.AddCommand(migrate.Command())
	rootCmd.AddCommand(health.Command())
	rootCmd.AddCommand(workflow.Command())
	rootCmd.AddCommand(mockbtcpay.Command())
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	code := 1
	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		err = exitErr.Err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	os.Exit(code)
}
