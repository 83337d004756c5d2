package dbseed

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/probstack/btcpay-harness/internal/model"
)

var (
	currencies      = []string{"USD", "EUR", "GBP", "CAD", "AUD", "JPY"}
	paymentMethods  = []string{"BTC", "LTC", "BCH", "ETH", "XMR", "DASH", "ZEC", "Credit Card", "PayPal", "Bank Transfer", "Stripe"}
	paymentStatuses = []string{"New", "Processing", "Settled", "Invalid", "Expired", "Paid"}
	invoiceStatuses = []string{"New", "Processing", "Settled", "Invalid", "Expired", "Paid"}
	itemCodes       = []string{"subscription", "donation", "top-up", "order"}
	countries       = []string{"US", "CA", "GB", "DE", "FR", "AU", "JP"}

	onChainMethods = map[string]bool{"BTC": true, "LTC": true, "BCH": true}
)

// PaymentRecord is the per-row entry written into the success artifact.
type PaymentRecord struct {
	Index         int     `json:"index"`
	Success       bool    `json:"success"`
	PaymentID     string  `json:"payment_id"`
	InvoiceDataID string  `json:"invoice_data_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
}

type InvoiceRecord struct {
	Index         int     `json:"index"`
	Success       bool    `json:"success"`
	InvoiceID     string  `json:"invoice_id"`
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	CustomerEmail string  `json:"customer_email"`
}

type customerInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type paymentMetadata struct {
	PaymentIndex    int          `json:"payment_index"`
	GeneratedAt     string       `json:"generated_at"`
	TransactionHash string       `json:"transaction_hash"`
	BlockHeight     *int         `json:"block_height"`
	Confirmations   *int         `json:"confirmations"`
	NetworkFee      *float64     `json:"network_fee"`
	PaymentProvider string       `json:"payment_provider"`
	CustomerInfo    customerInfo `json:"customer_info"`
}

type invoiceMetadata struct {
	InvoiceIndex    int          `json:"invoice_index"`
	GeneratedAt     string       `json:"generated_at"`
	SpeedPolicy     string       `json:"speed_policy"`
	PaymentProvider string       `json:"payment_provider"`
	CustomerInfo    customerInfo `json:"customer_info"`
}

// synthPayment fabricates one payment row and its artifact record. Amounts,
// methods, statuses and timestamps are randomized the same way real traffic
// would spread them: amounts between $0.50 and $100, creation within the last
// 30 days, on-chain metadata only for on-chain methods.
func synthPayment(rng *rand.Rand, index int, now time.Time) (*model.Payment, PaymentRecord) {
	paymentID := uuid.New().String()
	invoiceDataID := fmt.Sprintf("INV-%s-%06d", now.Format("20060102"), index)

	amount := roundTo(0.50+rng.Float64()*99.50, 2)
	currency := pick(rng, currencies)
	method := pick(rng, paymentMethods)
	status := pick(rng, paymentStatuses)
	accounted := (status == "Settled" || status == "Paid") && rng.Float64() > 0.1

	meta := paymentMetadata{
		PaymentIndex:    index,
		GeneratedAt:     now.Format(time.RFC3339),
		TransactionHash: fmt.Sprintf("tx_%06d", 100000+rng.Intn(900000)),
		PaymentProvider: "Stripe",
		CustomerInfo:    synthCustomer(rng, index),
	}
	if onChainMethods[method] {
		blockHeight := 800000 + rng.Intn(100000)
		confirmations := 1 + rng.Intn(6)
		networkFee := roundTo(0.0001+rng.Float64()*0.0099, 6)
		meta.BlockHeight = &blockHeight
		meta.Confirmations = &confirmations
		meta.NetworkFee = &networkFee
		meta.PaymentProvider = "BTCPay Server"
	}
	blob2, _ := json.Marshal(meta)

	row := &model.Payment{
		ID:              paymentID,
		Blob:            []byte(fmt.Sprintf("payment_data_%d_%d", index, now.Unix())),
		InvoiceDataID:   invoiceDataID,
		Accounted:       accounted,
		Blob2:           string(blob2),
		PaymentMethodID: method,
		Amount:          decimal.NewFromFloat(amount),
		Create:          randomRecentTime(rng, now),
		Currency:        currency,
		Status:          status,
	}

	record := PaymentRecord{
		Index:         index,
		Success:       true,
		PaymentID:     paymentID,
		InvoiceDataID: invoiceDataID,
		Amount:        amount,
		Currency:      currency,
		Status:        status,
		PaymentMethod: method,
	}

	return row, record
}

func synthInvoice(rng *rand.Rand, index int, now time.Time) (*model.Invoice, InvoiceRecord) {
	invoiceID := uuid.New().String()
	orderID := fmt.Sprintf("ORD-%s-%06d", now.Format("20060102"), index)
	customer := synthCustomer(rng, index)

	amount := roundTo(0.50+rng.Float64()*99.50, 2)
	currency := pick(rng, currencies)
	status := pick(rng, invoiceStatuses)

	exceptionStatus := "none"
	if rng.Intn(10) >= 8 {
		exceptionStatus = pick(rng, []string{"paidPartial", "paidOver", "paidLate"})
	}

	meta := invoiceMetadata{
		InvoiceIndex:    index,
		GeneratedAt:     now.Format(time.RFC3339),
		SpeedPolicy:     pick(rng, []string{"HighSpeed", "MediumSpeed", "LowSpeed"}),
		PaymentProvider: "BTCPay Server",
		CustomerInfo:    customer,
	}
	blob2, _ := json.Marshal(meta)

	row := &model.Invoice{
		ID:              invoiceID,
		Blob:            []byte(fmt.Sprintf("invoice_data_%d_%d", index, now.Unix())),
		Created:         randomRecentTime(rng, now),
		CustomerEmail:   customer.Email,
		ExceptionStatus: exceptionStatus,
		ItemCode:        pick(rng, itemCodes),
		OrderID:         orderID,
		Status:          status,
		Blob2:           string(blob2),
		Amount:          decimal.NewFromFloat(amount),
		Currency:        currency,
	}

	record := InvoiceRecord{
		Index:         index,
		Success:       true,
		InvoiceID:     invoiceID,
		OrderID:       orderID,
		Amount:        amount,
		Currency:      currency,
		Status:        status,
		CustomerEmail: customer.Email,
	}

	return row, record
}

func synthCustomer(rng *rand.Rand, index int) customerInfo {
	return customerInfo{
		Email:   fmt.Sprintf("customer%06d@example.com", index),
		Name:    fmt.Sprintf("Customer %06d", index),
		Country: pick(rng, countries),
	}
}

// randomRecentTime spreads timestamps across the last 30 days.
func randomRecentTime(rng *rand.Rand, now time.Time) time.Time {
	offset := time.Duration(rng.Intn(31))*24*time.Hour +
		time.Duration(rng.Intn(24))*time.Hour +
		time.Duration(rng.Intn(60))*time.Minute
	return now.Add(-offset)
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow10(places)
	return math.Round(value*factor) / factor
}
