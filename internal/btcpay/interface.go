package btcpay

type IBtcPay interface {
	// Ping checks the server root answers at all, without authentication.
	Ping() error

	// CreateInvoice posts a new invoice to the configured store.
	CreateInvoice(req *CreateInvoiceRequest) (*Invoice, error)

	// GetStore fetches the configured store.
	GetStore() (*Store, error)

	// ListStores returns every store the API key can see.
	ListStores() ([]Store, error)

	// ListWebhooks returns the webhooks configured on the store.
	ListWebhooks() ([]Webhook, error)

	// ListPaymentMethods returns the payment methods enabled on the store.
	ListPaymentMethods() ([]PaymentMethod, error)

	// StoreID returns the store this client is bound to.
	StoreID() string
}
