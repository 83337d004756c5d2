package addressgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/batch"
)

// WalletInfo is the recap operators need to top the funding wallet back up.
// The WIF is included so a testnet load wallet survives losing its seed log.
type WalletInfo struct {
	WalletName  string `json:"wallet_name"`
	Network     string `json:"network"`
	BalanceSats int64  `json:"balance_sats"`
	MainAddress string `json:"main_address"`
	WIF         string `json:"wif,omitempty"`
}

// FundingSummary recaps one funding run: how much landed where, through which
// transactions, and what the wallet looks like afterwards.
type FundingSummary struct {
	Network         string         `json:"network"`
	TotalAddresses  int            `json:"total_addresses"`
	FundedAddresses int            `json:"funded_addresses"`
	FailedAddresses int            `json:"failed_addresses"`
	Interrupted     bool           `json:"interrupted,omitempty"`
	WalletInfo      WalletInfo     `json:"wallet_info"`
	Timestamp       time.Time      `json:"timestamp"`
	Batches         []BatchFunding `json:"batches"`
}

// BuildSummary assembles the funding recap from a finished report. The wallet
// balance is re-read so the summary shows what is left, not what there was.
func (g *Generator) BuildSummary(report *batch.Report) *FundingSummary {
	summary := &FundingSummary{
		Network:         g.wallet.Network(),
		TotalAddresses:  report.Stats.TotalRequested,
		FundedAddresses: report.Stats.Successful,
		FailedAddresses: report.Stats.Failed,
		Interrupted:     report.Stats.Interrupted,
		Timestamp:       time.Now(),
		Batches:         collectBatches(report),
	}

	info := WalletInfo{
		WalletName: g.wallet.Name(),
		Network:    g.wallet.Network(),
	}
	if address, err := g.wallet.FundingAddress(); err == nil {
		info.MainAddress = address
	}
	if wif, err := g.wallet.FundingWIF(); err == nil {
		info.WIF = wif
	}
	if g.funder != nil {
		if balance, err := g.funder.CurrentBalance(); err == nil {
			info.BalanceSats = balance
		} else {
			g.logger.Warn("[BuildSummary] could not re-read wallet balance", map[string]string{
				"error": err.Error(),
			})
		}
	}
	summary.WalletInfo = info

	return summary
}

// WriteSummary writes the funding recap next to the addresses artifact.
func (g *Generator) WriteSummary(summary *FundingSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal funding summary")
	}

	name := fmt.Sprintf("funding_summary_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(filepath.Dir(g.opts.Output), name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write funding summary")
	}

	g.logger.Info("[WriteSummary] funding summary written", map[string]string{
		"path":   path,
		"funded": strconv.Itoa(summary.FundedAddresses),
	})

	return path, nil
}

// collectBatches extracts the distinct per-transaction payloads from the
// report. Every outcome of a batch shares its transaction, so transitions in
// the txid mark batch boundaries.
func collectBatches(report *batch.Report) []BatchFunding {
	var batches []BatchFunding
	lastTxID := ""

	for _, outcome := range report.Outcomes {
		funding, ok := outcome.Payload.(BatchFunding)
		if !ok {
			continue
		}
		if funding.TxID == lastTxID {
			continue
		}

		batches = append(batches, funding)
		lastTxID = funding.TxID
	}

	return batches
}
