// Package addresses implements bulk address generation and funding.
package addresses

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/probstack/btcpay-harness/cmd/harness/cmdutil"
	"github.com/probstack/btcpay-harness/internal/addressgen"
	"github.com/probstack/btcpay-harness/internal/btcrpc"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/wallet"
)

func Command() *cobra.Command {
	opts := runconfig.DefaultAddressOptions()

	cmd := &cobra.Command{
		Use:   "addresses",
		Short: "Generate Bitcoin addresses and fund them in batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.LoadEnv(cmd)
			if err != nil {
				return err
			}

			resolved, err := runconfig.ResolveAddresses(env.File, opts)
			if err != nil {
				return err
			}

			if resolved.Mainnet && !ConfirmMainnet(cmd.InOrStdin()) {
				return errors.New("mainnet run aborted")
			}

			ctx, stop := cmdutil.SignalContext(cmd.Context())
			defer stop()

			return Run(ctx, env, resolved)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", opts.Count, "number of addresses to generate")
	cmd.Flags().Float64Var(&opts.Amount, "amount", opts.Amount, "BTC sent to each address")
	cmd.Flags().Float64Var(&opts.MaxFee, "max-fee", opts.MaxFee, "maximum BTC fee per funding transaction")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "addresses funded per transaction")
	cmd.Flags().BoolVar(&opts.NoFunding, "no-funding", opts.NoFunding, "generate addresses without funding them")
	cmd.Flags().StringVar(&opts.Output, "output", opts.Output, "file the addresses JSON is written to")
	cmd.Flags().StringVar(&opts.WalletName, "wallet-name", opts.WalletName, "name of the funding wallet")
	cmd.Flags().StringVar(&opts.PrivateKey, "private-key", opts.PrivateKey, "WIF private key for the funding wallet")
	cmd.Flags().StringVar(&opts.Mnemonic, "mnemonic", opts.Mnemonic, "bip39 mnemonic for the funding wallet")
	cmd.Flags().StringVar(&opts.KeyFile, "key-file", opts.KeyFile, "file holding a WIF key or mnemonic")
	cmd.Flags().BoolVar(&opts.DerivationMode, "derivation-mode", opts.DerivationMode, "derive receive addresses from the funding wallet chain")
	cmd.Flags().IntVar(&opts.StartIndex, "start-index", opts.StartIndex, "first derivation index in derivation mode")
	cmd.Flags().BoolVar(&opts.Mainnet, "mainnet", opts.Mainnet, "run against mainnet instead of testnet")

	cmd.MarkFlagsMutuallyExclusive("private-key", "mnemonic", "key-file")

	return cmd
}

// ConfirmMainnet asks for an explicit confirmation before a run that would
// spend real coins. Anything but yes aborts.
func ConfirmMainnet(in io.Reader) bool {
	fmt.Println("WARNING: you are about to operate on Bitcoin MAINNET!")
	fmt.Print("Continue? (yes/no): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	return strings.ToLower(strings.TrimSpace(line)) == "yes"
}

// Run generates the addresses, writes the address artifact and, unless
// funding is disabled, funds them batch by batch. The workflow command
// reuses it as its address step.
func Run(ctx context.Context, env *cmdutil.Env, opts runconfig.AddressOptions) error {
	network := "testnet"
	if opts.Mainnet {
		network = "mainnet"
	}
	env.Config.Bitcoin.Network = network

	w, err := wallet.New(wallet.Options{
		Network:    network,
		WalletName: opts.WalletName,
		PrivateKey: opts.PrivateKey,
		Mnemonic:   opts.Mnemonic,
		KeyFile:    opts.KeyFile,
	}, env.Logger)
	if err != nil {
		return err
	}

	var funder btcrpc.IBtcRpc
	if !opts.NoFunding {
		wif, err := w.FundingWIF()
		if err != nil {
			return err
		}

		maxFeeSats := int64(math.Round(opts.MaxFee * 1e8))
		funder, err = btcrpc.New(env.Config, env.Logger, wif, maxFeeSats)
		if err != nil {
			return err
		}
	}

	g := addressgen.New(w, funder, env.Logger, opts)

	generated, err := g.Generate()
	if err != nil {
		return err
	}
	if err := g.SaveAddresses(generated, opts.Output); err != nil {
		return err
	}

	if opts.NoFunding {
		env.Logger.Info("[Run] funding skipped", map[string]string{
			"addresses": strconv.Itoa(len(generated)),
			"output":    opts.Output,
		})

		return nil
	}

	report, err := g.Fund(ctx, generated)
	if err != nil {
		return err
	}

	summaryPath, err := g.WriteSummary(g.BuildSummary(report))
	if err != nil {
		return err
	}

	report.PrintSummary(os.Stdout, "ADDRESS FUNDING SUMMARY")
	env.Logger.Info("[Run] funding summary written", map[string]string{"path": summaryPath})

	cmdutil.NotifyRun(env, "addresses", report.Stats)

	return cmdutil.Exit(cmdutil.ReportExitCode(report.Stats))
}
