package healthcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/probstack/btcpay-harness/internal/btcpay"
	"github.com/probstack/btcpay-harness/internal/mockbtcpay"
	"github.com/probstack/btcpay-harness/internal/runconfig"
	"github.com/probstack/btcpay-harness/internal/types/environments"
	"github.com/probstack/btcpay-harness/internal/utils/config"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) DB() *gorm.DB    { return nil }
func (f *fakeDB) Ping() error     { return f.pingErr }
func (f *fakeDB) Shutdown() error { return nil }

func newChecker(t *testing.T, apiKey, storeID string) (*Checker, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l := logger.New(environments.Test)
	srv := mockbtcpay.New(mockbtcpay.Options{
		APIKey:  "testkey",
		StoreID: "store-1",
	}, l)

	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	client := btcpay.New(&config.AppConfig{
		BTCPay: config.BTCPayConfig{
			BaseURL: ts.URL,
			APIKey:  apiKey,
			StoreID: storeID,
		},
	}, l)

	opts := runconfig.HealthOptions{
		APIKey:  apiKey,
		StoreID: storeID,
		BaseURL: ts.URL,
	}

	return New(client, nil, l, opts), ts.URL
}

func TestRun_AllHealthy(t *testing.T) {
	checker, baseURL := newChecker(t, "testkey", "store-1")

	results := checker.Run(context.Background())

	assert.Equal(t, StatusHealthy, results.OverallStatus)
	assert.Equal(t, 6, results.PassedTests)
	assert.Equal(t, 6, results.TotalTests)
	assert.Equal(t, 0, results.ExitCode())
	assert.Equal(t, baseURL, results.BaseURL)
	assert.Equal(t, "store-1", results.StoreID)
	assert.False(t, results.Interrupted)

	assert.Equal(t, "Server is reachable (HTTP 200)", results.Tests["Server Connectivity"].Message)
	assert.Contains(t, results.Tests["API Authentication"].Message, "store 'store-1' found")
	assert.Contains(t, results.Tests["Store Health"].Message, "Load Test Store")
	assert.Contains(t, results.Tests["Invoice Creation"].Message, "Invoice ID:")
	assert.Contains(t, results.Tests["Webhook Capability"].Message, "0 webhooks configured")
	assert.Contains(t, results.Tests["Payment Methods"].Message, "BTC methods available: 2")
}

func TestRun_BadCredentials(t *testing.T) {
	checker, _ := newChecker(t, "wrongkey", "store-1")

	results := checker.Run(context.Background())

	assert.Equal(t, StatusDegraded, results.OverallStatus)
	assert.Equal(t, 1, results.ExitCode())
	assert.Equal(t, 1, results.PassedTests)

	auth := results.Tests["API Authentication"]
	assert.Equal(t, StatusFailed, auth.Status)
	assert.Equal(t, "API authentication failed - invalid credentials", auth.Message)
}

func TestRun_UnknownStore(t *testing.T) {
	checker, _ := newChecker(t, "testkey", "no-such-store")

	results := checker.Run(context.Background())

	assert.Equal(t, StatusDegraded, results.OverallStatus)
	assert.Contains(t, results.Tests["API Authentication"].Message, "store 'no-such-store' not found")
	assert.Equal(t, StatusFailed, results.Tests["Store Health"].Status)
}

func TestRun_ServerDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := logger.New(environments.Test)

	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	client := btcpay.New(&config.AppConfig{
		BTCPay: config.BTCPayConfig{
			BaseURL: url,
			APIKey:  "testkey",
			StoreID: "store-1",
		},
	}, l)

	checker := New(client, nil, l, runconfig.HealthOptions{BaseURL: url, StoreID: "store-1"})
	results := checker.Run(context.Background())

	assert.Equal(t, StatusUnhealthy, results.OverallStatus)
	assert.Equal(t, 2, results.ExitCode())
	assert.Equal(t, 0, results.PassedTests)
	assert.Contains(t, results.Tests["Server Connectivity"].Message, "Connection failed")
}

func TestRun_DatabaseProbe(t *testing.T) {
	checker, _ := newChecker(t, "testkey", "store-1")
	checker.db = &fakeDB{pingErr: assert.AnError}

	results := checker.Run(context.Background())

	assert.Equal(t, 7, results.TotalTests)
	assert.Equal(t, 6, results.PassedTests)
	assert.Equal(t, StatusDegraded, results.OverallStatus)

	probe := results.Tests["Database Connectivity"]
	assert.Equal(t, StatusFailed, probe.Status)
	assert.Contains(t, probe.Message, "Database ping failed")
}

func TestRun_CanceledContext(t *testing.T) {
	checker, _ := newChecker(t, "testkey", "store-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := checker.Run(ctx)

	assert.True(t, results.Interrupted)
	assert.Empty(t, results.Tests)
	assert.Equal(t, StatusUnhealthy, results.OverallStatus)
}

func TestSave_Shape(t *testing.T) {
	checker, _ := newChecker(t, "testkey", "store-1")

	results := checker.Run(context.Background())

	path := filepath.Join(t.TempDir(), "health.json")
	require.NoError(t, results.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"timestamp", "base_url", "store_id", "tests", "overall_status", "passed_tests", "total_tests"} {
		assert.Contains(t, doc, key)
	}

	var tests map[string]CheckResult
	require.NoError(t, json.Unmarshal(doc["tests"], &tests))
	require.Contains(t, tests, "Server Connectivity")
	assert.Equal(t, StatusPassed, tests["Server Connectivity"].Status)
	assert.False(t, tests["Server Connectivity"].Timestamp.IsZero())
}

func TestPrintSummary(t *testing.T) {
	checker, _ := newChecker(t, "testkey", "store-1")

	results := checker.Run(context.Background())

	var buf bytes.Buffer
	results.PrintSummary(&buf)

	out := buf.String()
	assert.Contains(t, out, "BTCPay Server Health Check Summary")
	assert.Contains(t, out, "Overall Status: HEALTHY")
	assert.Contains(t, out, "Tests Passed:   6/6")
	assert.Contains(t, out, "[PASS] Server Connectivity")
	assert.Contains(t, out, "BTCPay Server is healthy and ready for use.")
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		status string
		code   int
	}{
		{StatusHealthy, 0},
		{StatusDegraded, 1},
		{StatusUnhealthy, 2},
	}

	for _, c := range cases {
		r := &Results{OverallStatus: c.status}
		assert.Equal(t, c.code, r.ExitCode())
	}
}

func TestWatch_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	checker, _ := newChecker(t, "testkey", "store-1")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	runs := 0
	err := checker.Watch(ctx, "@every 1h", func(r *Results) {
		runs++
		assert.Equal(t, StatusHealthy, r.OverallStatus)
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, runs)
}

func TestWatch_RejectsBadSchedule(t *testing.T) {
	checker, _ := newChecker(t, "testkey", "store-1")

	err := checker.Watch(context.Background(), "not a schedule", func(*Results) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid watch schedule")
}
