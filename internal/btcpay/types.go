package btcpay

import "fmt"

// CreateInvoiceRequest is the Greenfield invoice creation payload. Amount
// travels as a string because BTCPay rejects float amounts.
type CreateInvoiceRequest struct {
	Amount   string          `json:"amount"`
	Currency string          `json:"currency"`
	PosData  string          `json:"posData,omitempty"`
	Metadata InvoiceMetadata `json:"metadata"`
}

// InvoiceMetadata is stored opaque by BTCPay and echoed back on the invoice,
// so field names follow the Greenfield camelCase convention.
type InvoiceMetadata struct {
	OrderID         string `json:"orderId"`
	ItemDesc        string `json:"itemDesc,omitempty"`
	ItemCode        string `json:"itemCode,omitempty"`
	BuyerName       string `json:"buyerName,omitempty"`
	BuyerEmail      string `json:"buyerEmail,omitempty"`
	GenerationBatch bool   `json:"generationBatch,omitempty"`
}

type Invoice struct {
	ID             string `json:"id"`
	StoreID        string `json:"storeId"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	CheckoutLink   string `json:"checkoutLink"`
	CreatedTime    int64  `json:"createdTime"`
	ExpirationTime int64  `json:"expirationTime"`
}

type Store struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

type Webhook struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

type PaymentMethod struct {
	PaymentMethod string `json:"paymentMethod"`
	CryptoCode    string `json:"cryptoCode"`
	Enabled       bool   `json:"enabled"`
}

// APIError is a non-2xx response from the Greenfield API. Message carries
// the server's error body when one was readable.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("btcpay returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("btcpay returned status %d: %s", e.StatusCode, e.Message)
}
