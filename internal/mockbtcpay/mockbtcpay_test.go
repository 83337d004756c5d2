package mockbtcpay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/types/environments"
	"github.com/probstack/btcpay-harness/internal/utils/config"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

func newTestServer(t *testing.T, failEvery int) (*Server, *httptest.Server) {
	gin.SetMode(gin.TestMode)

	s := New(Options{
		APIKey:    "testkey",
		StoreID:   "store-1",
		FailEvery: failEvery,
	}, logger.New(environments.Test))

	ts := httptest.NewServer(s.Engine())
	t.Cleanup(ts.Close)

	return s, ts
}

func newClient(baseURL, apiKey, storeID string) btcpay.IBtcPay {
	cfg := &config.AppConfig{
		BTCPay: config.BTCPayConfig{
			BaseURL: baseURL,
			APIKey:  apiKey,
			StoreID: storeID,
		},
	}

	return btcpay.New(cfg, logger.New(environments.Test))
}

func TestCreateInvoice_RoundTrip(t *testing.T) {
	_, ts := newTestServer(t, 0)
	client := newClient(ts.URL, "testkey", "store-1")

	invoice, err := client.CreateInvoice(&btcpay.CreateInvoiceRequest{
		Amount:   "1",
		Currency: "USD",
		Metadata: btcpay.InvoiceMetadata{OrderID: "INV-20240315-000001"},
	})
	require.NoError(t, err)

	assert.Len(t, invoice.ID, 22)
	assert.Equal(t, "store-1", invoice.StoreID)
	assert.Equal(t, "1", invoice.Amount)
	assert.Equal(t, "USD", invoice.Currency)
	assert.Equal(t, "New", invoice.Status)
	assert.Contains(t, invoice.CheckoutLink, "/i/"+invoice.ID)
	assert.Greater(t, invoice.ExpirationTime, invoice.CreatedTime)
}

func TestCreateInvoice_RequiresAmount(t *testing.T) {
	_, ts := newTestServer(t, 0)
	client := newClient(ts.URL, "testkey", "store-1")

	_, err := client.CreateInvoice(&btcpay.CreateInvoiceRequest{Currency: "USD"})

	apiErr := &btcpay.APIError{}
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	_, ts := newTestServer(t, 0)
	client := newClient(ts.URL, "wrongkey", "store-1")

	_, err := client.ListStores()

	apiErr := &btcpay.APIError{}
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid API key", apiErr.Message)
}

func TestUnknownStore(t *testing.T) {
	_, ts := newTestServer(t, 0)
	client := newClient(ts.URL, "testkey", "other-store")

	_, err := client.GetStore()

	apiErr := &btcpay.APIError{}
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestFailEvery(t *testing.T) {
	srv, ts := newTestServer(t, 3)
	client := newClient(ts.URL, "testkey", "store-1")

	var succeeded, failed int
	for i := 0; i < 6; i++ {
		_, err := client.CreateInvoice(&btcpay.CreateInvoiceRequest{
			Amount:   "1",
			Currency: "USD",
		})
		if err != nil {
			failed++

			apiErr := &btcpay.APIError{}
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
			assert.Equal(t, "injected failure", apiErr.Message)
		} else {
			succeeded++
		}
	}

	// every 3rd attempt fails: attempts 3 and 6
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 2, failed)
	assert.Equal(t, int64(6), srv.InvoiceRequests())
}

func TestStoreEndpoints(t *testing.T) {
	_, ts := newTestServer(t, 0)
	client := newClient(ts.URL, "testkey", "store-1")

	store, err := client.GetStore()
	require.NoError(t, err)
	assert.Equal(t, storeName, store.Name)

	stores, err := client.ListStores()
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "store-1", stores[0].ID)

	webhooks, err := client.ListWebhooks()
	require.NoError(t, err)
	assert.Empty(t, webhooks)

	methods, err := client.ListPaymentMethods()
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "BTC", methods[0].CryptoCode)
	assert.True(t, methods[0].Enabled)
}

func TestRootAndHealthz(t *testing.T) {
	_, ts := newTestServer(t, 0)

	require.NoError(t, newClient(ts.URL, "testkey", "store-1").Ping())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, 0)
	client := newClient(ts.URL, "testkey", "store-1")

	_, err := client.CreateInvoice(&btcpay.CreateInvoiceRequest{Amount: "1", Currency: "USD"})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "btcpay_harness_http_requests_total")
	assert.Contains(t, string(body), "btcpay_harness_business_operations_total")
}
