package runconfig

import (
	"time"
)

// Hardcoded defaults. Merging only lets a config file override a value the
// operator did not explicitly set on the command line, so these are the
// reference points the merge compares against.
const (
	DefaultBaseURL        = "https://btcpay.example.com"
	DefaultInvoiceCount   = 1000
	DefaultInvoiceBatch   = 50
	DefaultInvoiceDelay   = 0.1
	DefaultInvoiceOutDir  = "invoice_results"
	DefaultDBPort         = 5432
	DefaultPaymentsCount  = 1000
	DefaultPaymentsBatch  = 100
	DefaultPaymentsOutDir = "payment_results"
	DefaultPaymentsTable  = "payments"
	DefaultAddressAmount  = 0.001
	DefaultAddressCount   = 1000
	DefaultAddressOutput  = "generated_addresses.json"
	DefaultWalletName     = "wallet_0"
	DefaultMaxFee         = 0.0001
	DefaultFundingBatch   = 50
	DefaultHealthOutput   = "btcpay_health_results.json"
)

// InvoiceOptions is the effective configuration of one invoice generation
// run after CLI flags, config file and defaults are merged.
type InvoiceOptions struct {
	APIKey    string
	StoreID   string
	BaseURL   string
	Count     int
	BatchSize int
	Delay     float64
	OutputDir string
}

func DefaultInvoiceOptions() InvoiceOptions {
	return InvoiceOptions{
		BaseURL:   DefaultBaseURL,
		Count:     DefaultInvoiceCount,
		BatchSize: DefaultInvoiceBatch,
		Delay:     DefaultInvoiceDelay,
		OutputDir: DefaultInvoiceOutDir,
	}
}

// DelayDuration converts the configured delay, given in seconds, to a
// time.Duration.
func (o InvoiceOptions) DelayDuration() time.Duration {
	return time.Duration(o.Delay * float64(time.Second))
}

// HealthOptions is the effective configuration of one health check run. The
// server credentials come from the same config section invoice generation
// uses.
type HealthOptions struct {
	APIKey  string
	StoreID string
	BaseURL string
	Output  string
	Watch   string
}

func DefaultHealthOptions() HealthOptions {
	return HealthOptions{
		BaseURL: DefaultBaseURL,
		Output:  DefaultHealthOutput,
	}
}

type PaymentsOptions struct {
	Host      string
	Database  string
	User      string
	Password  string
	Port      int
	Count     int
	BatchSize int
	OutputDir string
	Table     string
}

func DefaultPaymentsOptions() PaymentsOptions {
	return PaymentsOptions{
		Port:      DefaultDBPort,
		Count:     DefaultPaymentsCount,
		BatchSize: DefaultPaymentsBatch,
		OutputDir: DefaultPaymentsOutDir,
		Table:     DefaultPaymentsTable,
	}
}

type AddressOptions struct {
	Amount         float64
	Count          int
	NoFunding      bool
	Output         string
	DerivationMode bool
	StartIndex     int
	WalletName     string
	MaxFee         float64
	BatchSize      int
	Mainnet        bool
	PrivateKey     string
	Mnemonic       string
	KeyFile        string
}

func DefaultAddressOptions() AddressOptions {
	return AddressOptions{
		Amount:     DefaultAddressAmount,
		Count:      DefaultAddressCount,
		Output:     DefaultAddressOutput,
		WalletName: DefaultWalletName,
		MaxFee:     DefaultMaxFee,
		BatchSize:  DefaultFundingBatch,
	}
}

// ResolveInvoices merges CLI-supplied values with the config file. A nil
// file leaves the CLI values untouched.
func ResolveInvoices(file *File, cli InvoiceOptions) (InvoiceOptions, error) {
	if file == nil {
		return cli, nil
	}

	section, err := file.Invoices()
	if err != nil {
		return InvoiceOptions{}, err
	}

	cli.APIKey = mergeString(cli.APIKey, "", section.APIKey)
	cli.StoreID = mergeString(cli.StoreID, "", section.StoreID)
	cli.BaseURL = mergeString(cli.BaseURL, DefaultBaseURL, section.BaseURL)
	cli.Count = mergeInt(cli.Count, DefaultInvoiceCount, section.Count)
	cli.BatchSize = mergeInt(cli.BatchSize, DefaultInvoiceBatch, section.BatchSize)
	cli.Delay = mergeFloat(cli.Delay, DefaultInvoiceDelay, section.Delay)
	cli.OutputDir = mergeString(cli.OutputDir, DefaultInvoiceOutDir, section.OutputDir)

	return cli, nil
}

// ResolveHealth merges CLI-supplied values with the config file's invoice
// section, which carries the server credentials health checks reuse.
func ResolveHealth(file *File, cli HealthOptions) (HealthOptions, error) {
	if file == nil {
		return cli, nil
	}

	section, err := file.Invoices()
	if err != nil {
		return HealthOptions{}, err
	}

	cli.APIKey = mergeString(cli.APIKey, "", section.APIKey)
	cli.StoreID = mergeString(cli.StoreID, "", section.StoreID)
	cli.BaseURL = mergeString(cli.BaseURL, DefaultBaseURL, section.BaseURL)

	return cli, nil
}

// ResolvePayments merges CLI-supplied values with the config file.
func ResolvePayments(file *File, cli PaymentsOptions) (PaymentsOptions, error) {
	if file == nil {
		return cli, nil
	}

	section, err := file.Payments()
	if err != nil {
		return PaymentsOptions{}, err
	}

	cli.Host = mergeString(cli.Host, "", section.Host)
	cli.Database = mergeString(cli.Database, "", section.Database)
	cli.User = mergeString(cli.User, "", section.User)
	cli.Password = mergeString(cli.Password, "", section.Password)
	cli.Port = mergeInt(cli.Port, DefaultDBPort, section.Port)
	cli.Count = mergeInt(cli.Count, DefaultPaymentsCount, section.Count)
	cli.BatchSize = mergeInt(cli.BatchSize, DefaultPaymentsBatch, section.BatchSize)
	cli.OutputDir = mergeString(cli.OutputDir, DefaultPaymentsOutDir, section.OutputDir)
	cli.Table = mergeString(cli.Table, DefaultPaymentsTable, section.Table)

	return cli, nil
}

// ResolveAddresses merges CLI-supplied values with the config file's address,
// network and key import sections.
func ResolveAddresses(file *File, cli AddressOptions) (AddressOptions, error) {
	if file == nil {
		return cli, nil
	}

	addr, network, keys, err := file.Addresses()
	if err != nil {
		return AddressOptions{}, err
	}

	cli.Amount = mergeFloat(cli.Amount, DefaultAddressAmount, addr.Amount)
	cli.Count = mergeInt(cli.Count, DefaultAddressCount, addr.Count)
	cli.NoFunding = mergeBool(cli.NoFunding, addr.NoFunding)
	cli.Output = mergeString(cli.Output, DefaultAddressOutput, addr.Output)
	cli.DerivationMode = mergeBool(cli.DerivationMode, addr.DerivationMode)
	cli.StartIndex = mergeInt(cli.StartIndex, 0, addr.StartIndex)
	cli.WalletName = mergeString(cli.WalletName, DefaultWalletName, addr.WalletName)
	cli.MaxFee = mergeFloat(cli.MaxFee, DefaultMaxFee, addr.MaxFee)
	cli.BatchSize = mergeInt(cli.BatchSize, DefaultFundingBatch, addr.BatchSize)
	cli.Mainnet = mergeBool(cli.Mainnet, network.Mainnet)
	cli.PrivateKey = mergeString(cli.PrivateKey, "", keys.PrivateKey)
	cli.Mnemonic = mergeString(cli.Mnemonic, "", keys.Mnemonic)
	cli.KeyFile = mergeString(cli.KeyFile, "", keys.KeyFile)

	return cli, nil
}

// mergeString keeps the CLI value when the operator supplied one (anything
// other than the hardcoded default), else the file value, else the default.
func mergeString(cli, def string, file *string) string {
	if cli != "" && cli != def {
		return cli
	}
	if file != nil && *file != "" {
		return *file
	}

	return def
}

func mergeInt(cli, def int, file *int) int {
	if cli != def {
		return cli
	}
	if file != nil {
		return *file
	}

	return def
}

func mergeFloat(cli, def float64, file *float64) float64 {
	if cli != def {
		return cli
	}
	if file != nil {
		return *file
	}

	return def
}

// mergeBool keeps a true CLI switch and otherwise takes the file value.
func mergeBool(cli bool, file *bool) bool {
	if cli {
		return true
	}
	if file != nil {
		return *file
	}

	return false
}
