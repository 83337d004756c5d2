package invoicegen

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probstack/btcpay-harness/internal/types/environments"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

func newTestGenerator() *Generator {
	fixed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	return &Generator{
		logger:  logger.New(environments.Test),
		batchID: "batch-1710498600",
		now:     func() time.Time { return fixed },
		rng:     rand.New(rand.NewSource(1)),
	}
}

func TestSynthRequest(t *testing.T) {
	g := newTestGenerator()

	req := g.synthRequest(42)

	assert.Equal(t, "1", req.Amount)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "INV-20240315-000042", req.Metadata.OrderID)
	assert.Equal(t, "Customer-000042", req.Metadata.BuyerName)
	assert.Equal(t, "customer000042@example.com", req.Metadata.BuyerEmail)
	assert.True(t, req.Metadata.GenerationBatch)
	assert.Contains(t, itemDescriptions, req.Metadata.ItemDesc)

	assert.Regexp(t, `^ITEM-\d{4}$`, req.Metadata.ItemCode)
}

func TestSynthRequest_PosData(t *testing.T) {
	g := newTestGenerator()

	req := g.synthRequest(7)

	var pos posData
	require.NoError(t, json.Unmarshal([]byte(req.PosData), &pos))

	assert.Equal(t, 7, pos.InvoiceIndex)
	assert.Equal(t, "batch-1710498600", pos.BatchID)

	generatedAt, err := time.Parse(time.RFC3339, pos.GeneratedAt)
	require.NoError(t, err)
	assert.Equal(t, 2024, generatedAt.Year())
}

func TestSynthRequest_ItemCodeRange(t *testing.T) {
	g := newTestGenerator()

	for i := 0; i < 200; i++ {
		req := g.synthRequest(i)

		var code int
		_, err := fmt.Sscanf(req.Metadata.ItemCode, "ITEM-%d", &code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, 1000)
		assert.LessOrEqual(t, code, 9999)
	}
}

func TestOrderID(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "INV-20250102-000000", orderID(now, 0))
	assert.Equal(t, "INV-20250102-123456", orderID(now, 123456))
}
