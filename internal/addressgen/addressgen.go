package addressgen

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/batch"
	"github.com/probstack/btcpay-harness/internal/btcrpc"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
	"github.com/probstack/btcpay-harness/internal/wallet"
)

const (
	// Pause between funding transactions so consecutive spends of the same
	// wallet see each other's change.
	interBatchDelay = 2 * time.Second

	// Head start the network gets before the confirmation probe.
	confirmProbeDelay = 3 * time.Second
)

// Generator mints addresses from the wallet and funds them from the funding
// address, one multi-output transaction per batch.
type Generator struct {
	logger *logger.Logger
	wallet wallet.IWallet
	funder btcrpc.IBtcRpc
	opts   runconfig.AddressOptions

	interBatch  time.Duration
	confirmWait time.Duration
}

// BatchFunding is the shared payload of one funding transaction. Every
// address in the batch was paid by this transaction.
type BatchFunding struct {
	TxID      string `json:"txid"`
	FeeSats   int64  `json:"fee_sats"`
	NumInputs int    `json:"num_inputs"`
	Addresses int    `json:"addresses"`
	Confirmed bool   `json:"confirmed"`
}

// New builds a generator. funder may be nil when the run skips funding.
func New(w wallet.IWallet, funder btcrpc.IBtcRpc, l *logger.Logger, opts runconfig.AddressOptions) *Generator {
	return &Generator{
		logger:      l,
		wallet:      w,
		funder:      funder,
		opts:        opts,
		interBatch:  interBatchDelay,
		confirmWait: confirmProbeDelay,
	}
}

// Generate mints the configured number of addresses. Derivation mode walks
// the wallet's own chain from the start index; otherwise every key is fresh
// and independent.
func (g *Generator) Generate() ([]wallet.AddressInfo, error) {
	if g.opts.DerivationMode {
		return g.wallet.DeriveRange(g.opts.StartIndex, g.opts.Count)
	}

	return g.wallet.GenerateFresh(g.opts.Count)
}

// SaveAddresses writes the addresses artifact the other tools consume.
func (g *Generator) SaveAddresses(addresses []wallet.AddressInfo, path string) error {
	if len(addresses) == 0 {
		g.logger.Warn("[SaveAddresses] no addresses to save")
		return nil
	}

	data, err := json.MarshalIndent(addresses, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal addresses")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write addresses file")
	}

	g.logger.Info("[SaveAddresses] addresses written", map[string]string{
		"count": strconv.Itoa(len(addresses)),
		"path":  path,
	})

	return nil
}

// Fund pays every address from the funding wallet, one transaction per batch.
// The balance and UTXO pre-flight runs before any transaction is built; an
// insufficient wallet fails the whole run without touching the network
// further.
func (g *Generator) Fund(ctx context.Context, addresses []wallet.AddressInfo) (*batch.Report, error) {
	amountSats := btcToSats(g.opts.Amount)
	maxFeeSats := btcToSats(g.opts.MaxFee)

	required := (amountSats + maxFeeSats) * int64(len(addresses))
	available, err := g.funder.CurrentBalance()
	if err != nil {
		return nil, &batch.ConnectivityError{Target: "esplora", Err: err}
	}
	if available < required {
		return nil, &batch.BalanceError{RequiredSats: required, AvailableSats: available}
	}

	utxos, err := g.funder.SpendableUTXOs()
	if err != nil {
		return nil, &batch.ConnectivityError{Target: "esplora", Err: err}
	}
	if utxos == 0 {
		return nil, errors.New("no spendable UTXOs; funding wallet is empty or not yet synchronized")
	}

	g.logger.Info("[Fund] pre-flight passed", map[string]string{
		"addresses":     strconv.Itoa(len(addresses)),
		"amount_sats":   strconv.FormatInt(amountSats, 10),
		"required_sats": strconv.FormatInt(required, 10),
		"balance_sats":  strconv.FormatInt(available, 10),
		"utxos":         strconv.Itoa(utxos),
	})

	executor := batch.New(g.logger, g.opts.BatchSize, g.interBatch)
	return executor.RunBatched(ctx, len(addresses), func(ctx context.Context, indices []int) (any, error) {
		return g.fundBatch(ctx, addresses, indices, amountSats)
	})
}

func (g *Generator) fundBatch(ctx context.Context, addresses []wallet.AddressInfo, indices []int, amountSats int64) (any, error) {
	outputs := make([]btcrpc.Output, 0, len(indices))
	for _, index := range indices {
		outputs = append(outputs, btcrpc.Output{
			Address:    addresses[index-1].Address,
			AmountSats: amountSats,
		})
	}

	result, err := g.funder.SendToMany(outputs)
	if err != nil {
		return nil, err
	}

	return BatchFunding{
		TxID:      result.TxID,
		FeeSats:   result.FeeSats,
		NumInputs: result.NumInputs,
		Addresses: len(indices),
		Confirmed: g.probeConfirmation(ctx, result.TxID),
	}, nil
}

// probeConfirmation asks once, after a short wait, whether the transaction is
// visible on the network. A missing or unconfirmed answer does not fail the
// batch; a broadcast endpoint already accepted the transaction.
func (g *Generator) probeConfirmation(ctx context.Context, txID string) bool {
	if !sleep(ctx, g.confirmWait) {
		return false
	}

	confirmed, err := g.funder.ConfirmTransaction(txID)
	if err != nil {
		g.logger.Warn("[Fund] confirmation probe failed", map[string]string{
			"txid":  txID,
			"error": err.Error(),
		})
		return false
	}

	if !confirmed {
		g.logger.Info("[Fund] transaction accepted, not yet confirmed", map[string]string{
			"txid": txID,
		})
	}

	return confirmed
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// btcToSats converts a BTC amount to whole satoshis.
func btcToSats(amount float64) int64 {
	return int64(math.Round(amount * 1e8))
}
