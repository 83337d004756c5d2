package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/store"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// Checker probes a BTCPay server end to end: reachability, credentials, the
// store, and the operations the harness depends on. It deliberately uses the
// plain API client so probe results reflect the server, not a tripped
// circuit breaker.
type Checker struct {
	logger *logger.Logger
	client btcpay.IBtcPay
	db     store.DBRepo
	opts   runconfig.HealthOptions
}

type namedCheck struct {
	name string
	fn   func() (bool, string)
}

// New builds a checker. db may be nil; the database probe only runs when a
// database is configured.
func New(client btcpay.IBtcPay, db store.DBRepo, l *logger.Logger, opts runconfig.HealthOptions) *Checker {
	return &Checker{
		logger: l,
		client: client,
		db:     db,
		opts:   opts,
	}
}

// Run executes every check in order and returns the aggregated results. A
// canceled context stops the suite between checks; results cover only the
// checks that ran.
func (c *Checker) Run(ctx context.Context) *Results {
	c.logger.Info("Starting BTCPay Server health check", map[string]string{
		"base_url": c.opts.BaseURL,
	})

	checks := []namedCheck{
		{"Server Connectivity", c.checkServerConnectivity},
		{"API Authentication", c.checkAPIAuthentication},
		{"Store Health", c.checkStoreHealth},
		{"Invoice Creation", c.checkInvoiceCreation},
		{"Webhook Capability", c.checkWebhookCapability},
		{"Payment Methods", c.checkPaymentMethods},
	}
	if c.db != nil {
		checks = append(checks, namedCheck{"Database Connectivity", c.checkDatabase})
	}

	results := newResults(c.opts.BaseURL, c.client.StoreID(), len(checks))

	for _, check := range checks {
		if ctx.Err() != nil {
			results.Interrupted = true
			break
		}

		status, message := runCheck(check.fn)
		results.record(check.name, status, message)

		fields := map[string]string{"check": check.name, "message": message}
		if status == StatusPassed {
			c.logger.Info("Health check passed", fields)
		} else {
			c.logger.Error("Health check failed", fields)
		}
	}

	results.finalize()

	c.logger.Info("Health check complete", map[string]string{
		"overall_status": results.OverallStatus,
		"passed":         fmt.Sprintf("%d/%d", results.PassedTests, results.TotalTests),
	})

	return results
}

// Watch re-runs the suite on a cron schedule until the context is canceled.
// The first run happens immediately; onResults receives every run's results.
func (c *Checker) Watch(ctx context.Context, spec string, onResults func(*Results)) error {
	runner := cron.New()

	_, err := runner.AddFunc(spec, func() {
		onResults(c.Run(ctx))
	})
	if err != nil {
		return errors.Wrapf(err, "invalid watch schedule: %s", spec)
	}

	onResults(c.Run(ctx))

	runner.Start()
	<-ctx.Done()
	<-runner.Stop().Done()

	return ctx.Err()
}

// runCheck guards one probe. A panicking check is reported as an error result
// instead of killing the suite.
func runCheck(fn func() (bool, string)) (status CheckStatus, message string) {
	defer func() {
		if r := recover(); r != nil {
			status = StatusError
			message = fmt.Sprintf("Test failed with exception: %v", r)
		}
	}()

	passed, message := fn()
	if passed {
		return StatusPassed, message
	}

	return StatusFailed, message
}

func (c *Checker) checkServerConnectivity() (bool, string) {
	if err := c.client.Ping(); err != nil {
		var apiErr *btcpay.APIError
		if errors.As(err, &apiErr) {
			return false, fmt.Sprintf("Server returned HTTP %d", apiErr.StatusCode)
		}

		return false, fmt.Sprintf("Connection failed: %v", err)
	}

	return true, "Server is reachable (HTTP 200)"
}

func (c *Checker) checkAPIAuthentication() (bool, string) {
	storeID := c.client.StoreID()

	stores, err := c.client.ListStores()
	if err != nil {
		var apiErr *btcpay.APIError
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusUnauthorized {
				return false, "API authentication failed - invalid credentials"
			}

			return false, fmt.Sprintf("API request failed with HTTP %d", apiErr.StatusCode)
		}

		return false, fmt.Sprintf("API request failed: %v", err)
	}

	for _, s := range stores {
		if s.ID == storeID {
			return true, fmt.Sprintf("API authentication successful, store '%s' found", storeID)
		}
	}

	return false, fmt.Sprintf("API authentication successful, but store '%s' not found", storeID)
}

func (c *Checker) checkStoreHealth() (bool, string) {
	s, err := c.client.GetStore()
	if err != nil {
		var apiErr *btcpay.APIError
		if errors.As(err, &apiErr) {
			return false, fmt.Sprintf("Store health check failed with HTTP %d", apiErr.StatusCode)
		}

		return false, fmt.Sprintf("Store health check failed: %v", err)
	}

	name := s.Name
	if name == "" {
		name = "Unknown"
	}

	return true, fmt.Sprintf("Store health check passed: %s", name)
}

// checkInvoiceCreation creates a real, very small BTC invoice. Its order id
// marks it as a health probe so it can be told apart from generated load.
func (c *Checker) checkInvoiceCreation() (bool, string) {
	req := &btcpay.CreateInvoiceRequest{
		Amount:   "0.00001",
		Currency: "BTC",
		Metadata: btcpay.InvoiceMetadata{
			OrderID: fmt.Sprintf("health_check_%d", time.Now().Unix()),
		},
	}

	inv, err := c.client.CreateInvoice(req)
	if err != nil {
		var apiErr *btcpay.APIError
		if errors.As(err, &apiErr) {
			return false, fmt.Sprintf("Invoice creation failed with HTTP %d: %s", apiErr.StatusCode, apiErr.Message)
		}

		return false, fmt.Sprintf("Invoice creation test failed: %v", err)
	}

	return true, fmt.Sprintf("Invoice creation test passed (Invoice ID: %s)", inv.ID)
}

func (c *Checker) checkWebhookCapability() (bool, string) {
	hooks, err := c.client.ListWebhooks()
	if err != nil {
		var apiErr *btcpay.APIError
		if errors.As(err, &apiErr) {
			return false, fmt.Sprintf("Webhook capability test failed with HTTP %d", apiErr.StatusCode)
		}

		return false, fmt.Sprintf("Webhook capability test failed: %v", err)
	}

	return true, fmt.Sprintf("Webhook capability test passed (%d webhooks configured)", len(hooks))
}

func (c *Checker) checkPaymentMethods() (bool, string) {
	methods, err := c.client.ListPaymentMethods()
	if err != nil {
		var apiErr *btcpay.APIError
		if errors.As(err, &apiErr) {
			return false, fmt.Sprintf("Payment methods test failed with HTTP %d", apiErr.StatusCode)
		}

		return false, fmt.Sprintf("Payment methods test failed: %v", err)
	}

	btcMethods := 0
	for _, pm := range methods {
		if pm.CryptoCode == "BTC" {
			btcMethods++
		}
	}

	if btcMethods == 0 {
		return false, "Payment methods test failed - No BTC payment methods available"
	}

	return true, fmt.Sprintf("Payment methods test passed - BTC methods available: %d", btcMethods)
}

func (c *Checker) checkDatabase() (bool, string) {
	if err := c.db.Ping(); err != nil {
		return false, fmt.Sprintf("Database ping failed: %v", err)
	}

	sqlDB, err := c.db.DB().DB()
	if err != nil {
		return false, fmt.Sprintf("Database pool unavailable: %v", err)
	}

	stats := sqlDB.Stats()
	return true, fmt.Sprintf("Database reachable (%d open connections, %d in use)", stats.OpenConnections, stats.InUse)
}
