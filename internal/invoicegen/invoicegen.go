package invoicegen

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/probstack/btcpay-harness/internal/batch"
	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// Generator drives batched invoice creation against a BTCPay store. Units in
// the same batch run concurrently, so the shared rng is mutex guarded.
type Generator struct {
	logger  *logger.Logger
	client  btcpay.IBtcPay
	opts    runconfig.InvoiceOptions
	batchID string
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func New(client btcpay.IBtcPay, l *logger.Logger, opts runconfig.InvoiceOptions) *Generator {
	return &Generator{
		logger:  l,
		client:  client,
		opts:    opts,
		batchID: fmt.Sprintf("batch-%d", time.Now().Unix()),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// TestConnection proves the API key and store id work before any invoice is
// created.
func (g *Generator) TestConnection() error {
	s, err := g.client.GetStore()
	if err != nil {
		return &batch.ConnectivityError{Target: "btcpay", Err: err}
	}

	g.logger.Info("[TestConnection] connected to store", map[string]string{
		"store_id":   g.client.StoreID(),
		"store_name": s.Name,
	})
	return nil
}

// Run creates the configured number of invoices. Units in a batch are issued
// concurrently, batches are separated by the configured delay.
func (g *Generator) Run(ctx context.Context) (*batch.Report, error) {
	executor := batch.New(g.logger, g.opts.BatchSize, g.opts.DelayDuration())
	return executor.RunConcurrent(ctx, g.opts.Count, g.createInvoice)
}

// Export writes the successful, failed and summary artifact files for a run.
func (g *Generator) Export(report *batch.Report) (*batch.ExportedFiles, error) {
	return batch.Export(report, batch.ExportConfig{
		Dir:         g.opts.OutputDir,
		Kind:        "invoices",
		SummaryName: "generation_summary",
		Metadata: map[string]any{
			"store_id": g.opts.StoreID,
		},
		Configuration: map[string]any{
			"store_id": g.opts.StoreID,
			"base_url": g.opts.BaseURL,
		},
	})
}

func (g *Generator) createInvoice(_ context.Context, index int) (any, error) {
	req := g.synthRequest(index)

	inv, err := g.client.CreateInvoice(req)
	if err != nil {
		return map[string]string{
			"order_id": req.Metadata.OrderID,
			"amount":   req.Amount,
			"currency": req.Currency,
		}, err
	}

	return InvoiceRecord{
		Index:          index,
		Success:        true,
		InvoiceID:      inv.ID,
		OrderID:        req.Metadata.OrderID,
		Amount:         inv.Amount,
		Currency:       inv.Currency,
		Status:         inv.Status,
		CheckoutLink:   inv.CheckoutLink,
		CreatedTime:    inv.CreatedTime,
		ExpirationTime: inv.ExpirationTime,
	}, nil
}
