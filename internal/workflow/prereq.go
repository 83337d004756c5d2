package workflow

import (
	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/runconfig"
)

// Placeholder values shipped in the config file template.
const (
	placeholderAPIKey  = "your_btcpay_api_key_here"
	placeholderStoreID = "your_store_id_here"
	placeholderBaseURL = "https://your-btcpay-server.com"
)

// CheckPrerequisites verifies the config file carries every generation
// section and that the BTCPay credentials are no longer template
// placeholders. It runs before any step so a half configured file fails
// fast instead of mid workflow.
func CheckPrerequisites(file *runconfig.File) error {
	hasAddresses, hasInvoices, hasPayments := file.SectionPresence()
	if !hasAddresses {
		return errors.New("missing required config section: _address_generation")
	}
	if !hasInvoices {
		return errors.New("missing required config section: _invoice_generation")
	}
	if !hasPayments {
		return errors.New("missing required config section: _payments_population")
	}

	invoices, err := file.Invoices()
	if err != nil {
		return err
	}

	if strval(invoices.APIKey) == placeholderAPIKey {
		return errors.New("configure your BTCPay API key in the config file")
	}
	if strval(invoices.StoreID) == placeholderStoreID {
		return errors.New("configure your BTCPay store ID in the config file")
	}
	if strval(invoices.BaseURL) == placeholderBaseURL {
		return errors.New("configure your BTCPay server URL in the config file")
	}
	return nil
}

func strval(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
