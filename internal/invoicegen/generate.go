package invoicegen

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/probstack/btcpay-harness/internal/btcpay"
)

// Item descriptions for synthesized invoices, one is picked per invoice.
var itemDescriptions = []string{
	"Digital Product Purchase",
	"Software License",
	"Consultation Service",
	"E-book Download",
	"Course Access",
	"Premium Subscription",
	"API Access Credits",
	"Digital Asset",
	"Service Fee",
	"Product Bundle",
}

// InvoiceRecord is the success payload exported for one created invoice.
// Index and Success ride inside the record, the exporter writes payloads
// verbatim.
type InvoiceRecord struct {
	Index          int    `json:"index"`
	Success        bool   `json:"success"`
	InvoiceID      string `json:"invoice_id"`
	OrderID        string `json:"order_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	CheckoutLink   string `json:"checkout_link"`
	CreatedTime    int64  `json:"created_time"`
	ExpirationTime int64  `json:"expiration_time"`
}

type posData struct {
	InvoiceIndex int    `json:"invoiceIndex"`
	GeneratedAt  string `json:"generatedAt"`
	BatchID      string `json:"batchId"`
}

// synthRequest builds the Greenfield payload for one invoice. Amounts are a
// fixed $1; the order id carries the generation date and the unit index.
func (g *Generator) synthRequest(index int) *btcpay.CreateInvoiceRequest {
	now := g.now()

	pos, _ := json.Marshal(posData{
		InvoiceIndex: index,
		GeneratedAt:  now.Format(time.RFC3339),
		BatchID:      g.batchID,
	})

	g.mu.Lock()
	itemDesc := itemDescriptions[g.rng.Intn(len(itemDescriptions))]
	itemCode := 1000 + g.rng.Intn(9000)
	g.mu.Unlock()

	return &btcpay.CreateInvoiceRequest{
		Amount:   "1",
		Currency: "USD",
		PosData:  string(pos),
		Metadata: btcpay.InvoiceMetadata{
			OrderID:         orderID(now, index),
			ItemDesc:        itemDesc,
			ItemCode:        fmt.Sprintf("ITEM-%04d", itemCode),
			BuyerName:       fmt.Sprintf("Customer-%06d", index),
			BuyerEmail:      fmt.Sprintf("customer%06d@example.com", index),
			GenerationBatch: true,
		},
	}
}

func orderID(now time.Time, index int) string {
	return fmt.Sprintf("INV-%s-%06d", now.Format("20060102"), index)
}
