package monitoring

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/types/environments"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// Mock BTCPay client for testing
type MockBtcPay struct {
	mock.Mock
}

func (m *MockBtcPay) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockBtcPay) CreateInvoice(req *btcpay.CreateInvoiceRequest) (*btcpay.Invoice, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*btcpay.Invoice), args.Error(1)
}

func (m *MockBtcPay) GetStore() (*btcpay.Store, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*btcpay.Store), args.Error(1)
}

func (m *MockBtcPay) ListStores() ([]btcpay.Store, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]btcpay.Store), args.Error(1)
}

func (m *MockBtcPay) ListWebhooks() ([]btcpay.Webhook, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]btcpay.Webhook), args.Error(1)
}

func (m *MockBtcPay) ListPaymentMethods() ([]btcpay.PaymentMethod, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]btcpay.PaymentMethod), args.Error(1)
}

func (m *MockBtcPay) StoreID() string {
	args := m.Called()
	return args.String(0)
}

func setupTestLogger() *logger.Logger {
	return logger.New(environments.Test)
}

func testInvoiceRequest() *btcpay.CreateInvoiceRequest {
	return &btcpay.CreateInvoiceRequest{
		Amount:   "1",
		Currency: "USD",
		Metadata: btcpay.InvoiceMetadata{OrderID: "INV-20240315-000001"},
	}
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	// Arrange
	config := CircuitBreakerConfig{
		MaxRequests:                 5,
		Interval:                    30 * time.Second,
		Timeout:                     60 * time.Second,
		ConsecutiveFailureThreshold: 3,
	}

	metrics := NewExternalAPIMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	mockClient := &MockBtcPay{}
	cb := NewCircuitBreakerBtcPay(mockClient, config, metrics, setupTestLogger())

	// Act & Assert
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_SuccessPassesThrough(t *testing.T) {
	// Arrange
	config := CircuitBreakerConfigs["btcpay_api"]

	metrics := NewExternalAPIMetrics()
	mockClient := &MockBtcPay{}
	mockClient.On("CreateInvoice", mock.Anything).Return(&btcpay.Invoice{ID: "inv1", Status: "New"}, nil)

	cb := NewCircuitBreakerBtcPay(mockClient, config, metrics, setupTestLogger())

	// Act
	invoice, err := cb.CreateInvoice(testInvoiceRequest())

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "inv1", invoice.ID)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ClosedToOpen(t *testing.T) {
	// Arrange
	config := CircuitBreakerConfig{
		MaxRequests:                 5,
		Interval:                    30 * time.Second,
		Timeout:                     60 * time.Second,
		ConsecutiveFailureThreshold: 3,
	}

	metrics := NewExternalAPIMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	mockClient := &MockBtcPay{}
	mockClient.On("CreateInvoice", mock.Anything).Return(nil, errors.New("API unavailable"))

	cb := NewCircuitBreakerBtcPay(mockClient, config, metrics, setupTestLogger())

	// Act - Trigger consecutive failures
	for i := 0; i < 3; i++ {
		_, err := cb.CreateInvoice(testInvoiceRequest())
		assert.Error(t, err)
	}

	// Assert - Circuit breaker should be open
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Verify metrics
	metricFamilies, err := registry.Gather()
	assert.NoError(t, err)

	errorCountFound := false
	stateFound := false

	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "btcpay_harness_external_api_calls_total":
			for _, metric := range mf.GetMetric() {
				labels := metric.GetLabel()
				if getLabelValue(labels, "status") == "error" {
					errorCountFound = true
					assert.Equal(t, float64(3), metric.GetCounter().GetValue())
				}
			}
		case "btcpay_harness_circuit_breaker_state":
			stateFound = true
			metric := mf.GetMetric()[0]
			assert.Equal(t, float64(gobreaker.StateOpen), metric.GetGauge().GetValue())
		}
	}

	assert.True(t, errorCountFound, "Error count metric not found")
	assert.True(t, stateFound, "Circuit breaker state metric not found")
}

func TestCircuitBreaker_OpenFailsWithoutNetworkCall(t *testing.T) {
	// Arrange
	config := CircuitBreakerConfig{
		MaxRequests:                 5,
		Interval:                    30 * time.Second,
		Timeout:                     60 * time.Second,
		ConsecutiveFailureThreshold: 2,
	}

	metrics := NewExternalAPIMetrics()
	mockClient := &MockBtcPay{}
	mockClient.On("CreateInvoice", mock.Anything).Return(nil, errors.New("network error"))

	cb := NewCircuitBreakerBtcPay(mockClient, config, metrics, setupTestLogger())

	// Force circuit breaker to open
	for i := 0; i < 2; i++ {
		_, err := cb.CreateInvoice(testInvoiceRequest())
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Act - Call when circuit is open
	invoice, err := cb.CreateInvoice(testInvoiceRequest())

	// Assert - Should fail immediately, without invoking the wrapped client
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Nil(t, invoice)
	mockClient.AssertNumberOfCalls(t, "CreateInvoice", 2)
}

func TestCircuitBreaker_GetStore(t *testing.T) {
	// Arrange
	config := CircuitBreakerConfigs["btcpay_api"]

	metrics := NewExternalAPIMetrics()
	mockClient := &MockBtcPay{}
	mockClient.On("GetStore").Return(&btcpay.Store{ID: "store-1", Name: "Test Store"}, nil)

	cb := NewCircuitBreakerBtcPay(mockClient, config, metrics, setupTestLogger())

	// Act
	store, err := cb.GetStore()

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "Test Store", store.Name)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		error        error
		expectedType APIErrorType
	}{
		{
			name:         "Server error status",
			error:        &btcpay.APIError{StatusCode: 503},
			expectedType: ErrorTypeServerError,
		},
		{
			name:         "Client error status",
			error:        &btcpay.APIError{StatusCode: 401, Message: "unauthorized"},
			expectedType: ErrorTypeClientError,
		},
		{
			name:         "Wrapped API error",
			error:        errors.Wrap(&btcpay.APIError{StatusCode: 500}, "invoice request failed"),
			expectedType: ErrorTypeServerError,
		},
		{
			name:         "Timeout error",
			error:        errors.New("request timeout after 5s"),
			expectedType: ErrorTypeTimeout,
		},
		{
			name:         "Network error",
			error:        errors.New("network unreachable"),
			expectedType: ErrorTypeNetworkError,
		},
		{
			name:         "Connection refused",
			error:        errors.New("dial tcp: connection refused"),
			expectedType: ErrorTypeNetworkError,
		},
		{
			name:         "Unknown error",
			error:        errors.New("unexpected error occurred"),
			expectedType: ErrorTypeUnknown,
		},
		{
			name:         "Nil error",
			error:        nil,
			expectedType: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyError(tt.error)
			assert.Equal(t, tt.expectedType, result)
		})
	}
}

func TestCircuitBreakerConfig_Validation(t *testing.T) {
	tests := []struct {
		name      string
		config    CircuitBreakerConfig
		shouldErr bool
	}{
		{
			name: "Valid configuration",
			config: CircuitBreakerConfig{
				MaxRequests:                 5,
				Interval:                    30 * time.Second,
				Timeout:                     60 * time.Second,
				ConsecutiveFailureThreshold: 3,
			},
			shouldErr: false,
		},
		{
			name: "Zero max requests",
			config: CircuitBreakerConfig{
				MaxRequests:                 0,
				Interval:                    30 * time.Second,
				Timeout:                     60 * time.Second,
				ConsecutiveFailureThreshold: 3,
			},
			shouldErr: true,
		},
		{
			name: "Zero failure threshold",
			config: CircuitBreakerConfig{
				MaxRequests:                 5,
				Interval:                    30 * time.Second,
				Timeout:                     60 * time.Second,
				ConsecutiveFailureThreshold: 0,
			},
			shouldErr: true,
		},
		{
			name: "Negative timeout",
			config: CircuitBreakerConfig{
				MaxRequests:                 5,
				Interval:                    30 * time.Second,
				Timeout:                     -1 * time.Second,
				ConsecutiveFailureThreshold: 3,
			},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCircuitBreakerConfig(tt.config)

			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCircuitBreakerConfig_DefaultValues(t *testing.T) {
	config, ok := CircuitBreakerConfigs["btcpay_api"]
	assert.True(t, ok, "btcpay_api config should exist")

	assert.Equal(t, uint32(5), config.MaxRequests)
	assert.Equal(t, 30*time.Second, config.Interval)
	assert.Equal(t, 60*time.Second, config.Timeout)
	assert.Equal(t, 3, config.ConsecutiveFailureThreshold)
}

// Helper function to get label value from Prometheus metric labels
func getLabelValue(labels []*dto.LabelPair, name string) string {
	for _, label := range labels {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
