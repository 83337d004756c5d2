package monitoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// CircuitBreakerBtcPay wraps btcpay.IBtcPay with circuit breaker functionality.
// An open breaker fails calls immediately with gobreaker.ErrOpenState instead
// of hitting the network.
type CircuitBreakerBtcPay struct {
	wrapped        btcpay.IBtcPay
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *ExternalAPIMetrics
	logger         *logger.Logger
	timeoutConfig  TimeoutConfig
}

// NewCircuitBreakerBtcPay creates a new circuit breaker wrapper for the BTCPay client
func NewCircuitBreakerBtcPay(wrapped btcpay.IBtcPay, config CircuitBreakerConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerBtcPay {
	return NewCircuitBreakerBtcPayWithTimeout(wrapped, config, DefaultTimeoutConfig, metrics, logger)
}

// NewCircuitBreakerBtcPayWithTimeout creates a new circuit breaker wrapper with custom timeout config
func NewCircuitBreakerBtcPayWithTimeout(wrapped btcpay.IBtcPay, config CircuitBreakerConfig, timeoutConfig TimeoutConfig, metrics *ExternalAPIMetrics, logger *logger.Logger) *CircuitBreakerBtcPay {
	cb := &CircuitBreakerBtcPay{
		wrapped:       wrapped,
		metrics:       metrics,
		logger:        logger,
		timeoutConfig: timeoutConfig,
	}

	settings := gobreaker.Settings{
		Name:        "btcpay_api",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState("btcpay_api", to)
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	return cb
}

// executeWithTimeout executes a function with timeout and metrics recording
func (cb *CircuitBreakerBtcPay) executeWithTimeout(operation string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()

	// Invoice creation gets the full request timeout, probes the short one
	var timeout time.Duration
	switch operation {
	case "create_invoice":
		timeout = cb.timeoutConfig.RequestTimeout
	default:
		timeout = cb.timeoutConfig.HealthCheckTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	var result interface{}
	var err error

	go func() {
		defer close(done)
		result, err = fn()
	}()

	select {
	case <-done:
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil {
			status = "error"
			cb.logError("btcpay_api", operation, duration, err)
		}
		cb.metrics.RecordAPICall("btcpay_api", operation, status, duration)
		return result, err

	case <-ctx.Done():
		cb.metrics.RecordTimeout("btcpay_api", operation)
		cb.logError("btcpay_api", operation, time.Since(start).Seconds(), ctx.Err())
		return nil, fmt.Errorf("timeout: %v", ctx.Err())
	}
}

// BTCPay Methods with Circuit Breaker

func (cb *CircuitBreakerBtcPay) CreateInvoice(req *btcpay.CreateInvoiceRequest) (*btcpay.Invoice, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.executeWithTimeout("create_invoice", func() (interface{}, error) {
			return cb.wrapped.CreateInvoice(req)
		})
	})

	if err != nil {
		return nil, err
	}

	return result.(*btcpay.Invoice), nil
}

func (cb *CircuitBreakerBtcPay) GetStore() (*btcpay.Store, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.executeWithTimeout("get_store", func() (interface{}, error) {
			return cb.wrapped.GetStore()
		})
	})

	if err != nil {
		return nil, err
	}

	return result.(*btcpay.Store), nil
}

func (cb *CircuitBreakerBtcPay) ListStores() ([]btcpay.Store, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.executeWithTimeout("list_stores", func() (interface{}, error) {
			return cb.wrapped.ListStores()
		})
	})

	if err != nil {
		return nil, err
	}

	return result.([]btcpay.Store), nil
}

func (cb *CircuitBreakerBtcPay) ListWebhooks() ([]btcpay.Webhook, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.executeWithTimeout("list_webhooks", func() (interface{}, error) {
			return cb.wrapped.ListWebhooks()
		})
	})

	if err != nil {
		return nil, err
	}

	return result.([]btcpay.Webhook), nil
}

func (cb *CircuitBreakerBtcPay) ListPaymentMethods() ([]btcpay.PaymentMethod, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.executeWithTimeout("list_payment_methods", func() (interface{}, error) {
			return cb.wrapped.ListPaymentMethods()
		})
	})

	if err != nil {
		return nil, err
	}

	return result.([]btcpay.PaymentMethod), nil
}

func (cb *CircuitBreakerBtcPay) Ping() error {
	_, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.executeWithTimeout("ping", func() (interface{}, error) {
			return nil, cb.wrapped.Ping()
		})
	})

	return err
}

func (cb *CircuitBreakerBtcPay) StoreID() string {
	return cb.wrapped.StoreID()
}

// State exposes the current breaker state for logging and tests
func (cb *CircuitBreakerBtcPay) State() gobreaker.State {
	return cb.circuitBreaker.State()
}

// Helper functions

func (cb *CircuitBreakerBtcPay) logError(service, operation string, duration float64, err error) {
	cb.logger.Error("External API call failed", map[string]string{
		"service":    service,
		"operation":  operation,
		"duration":   strconv.FormatFloat(duration, 'f', 3, 64),
		"error":      err.Error(),
		"error_type": string(classifyError(err)),
		"cb_state":   cb.circuitBreaker.State().String(),
	})
}

// classifyError classifies errors into different types for metrics and logging.
// Status codes carried on APIError beat message sniffing.
func classifyError(err error) APIErrorType {
	if err == nil {
		return ""
	}

	apiErr := &btcpay.APIError{}
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return ErrorTypeServerError
		}
		if apiErr.StatusCode >= 400 {
			return ErrorTypeClientError
		}
	}

	errMsg := strings.ToLower(err.Error())

	// Timeout errors
	if strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") ||
		strings.Contains(errMsg, "context canceled") {
		return ErrorTypeTimeout
	}

	// Network errors
	if strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "connection") ||
		strings.Contains(errMsg, "unreachable") ||
		strings.Contains(errMsg, "no such host") {
		return ErrorTypeNetworkError
	}

	return ErrorTypeUnknown
}

// validateCircuitBreakerConfig validates circuit breaker configuration
func validateCircuitBreakerConfig(config CircuitBreakerConfig) error {
	if config.MaxRequests == 0 {
		return fmt.Errorf("max_requests must be greater than 0")
	}

	if config.ConsecutiveFailureThreshold <= 0 {
		return fmt.Errorf("consecutive_failure_threshold must be greater than 0")
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	if config.Interval < 0 {
		return fmt.Errorf("interval must be non-negative")
	}

	return nil
}
