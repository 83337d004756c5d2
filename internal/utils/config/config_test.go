package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/probstack/btcpay-harness/internal/types/environments"
)

func TestNew(t *testing.T) {
	t.Run("reads harness settings from environment", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		t.Setenv("DB_HOST", "db.local")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("DB_USER", "btcpay")
		t.Setenv("DB_NAME", "btcpayserver")
		t.Setenv("DB_PASS", "secret")
		t.Setenv("DB_SSL_MODE", "disable")
		t.Setenv("BTC_NETWORK", "testnet")
		t.Setenv("BTC_ESPLORA_API_URLS", "https://blockstream.info/testnet/api, https://mempool.space/testnet/api")
		t.Setenv("BTCPAY_BASE_URL", "https://btcpay.local")
		t.Setenv("BTCPAY_API_KEY", "token123")
		t.Setenv("BTCPAY_STORE_ID", "store456")

		cfg := New()

		assert.Equal(t, environments.Test, cfg.Environment)
		assert.Equal(t, "db.local", cfg.Postgres.Host)
		assert.Equal(t, "5433", cfg.Postgres.Port)
		assert.Equal(t, "btcpayserver", cfg.Postgres.Name)
		assert.Equal(t, "testnet", cfg.Bitcoin.Network)
		assert.Equal(t, []string{
			"https://blockstream.info/testnet/api",
			"https://mempool.space/testnet/api",
		}, cfg.Bitcoin.EsploraAPIURLs)
		assert.Equal(t, "https://btcpay.local", cfg.BTCPay.BaseURL)
		assert.Equal(t, "token123", cfg.BTCPay.APIKey)
		assert.Equal(t, "store456", cfg.BTCPay.StoreID)
	})

	t.Run("applies defaults when unset", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		t.Setenv("LOG_DIR", "")
		t.Setenv("BTC_NETWORK", "")
		t.Setenv("BTC_ESPLORA_API_URLS", "")

		cfg := New()

		assert.Equal(t, "logs", cfg.LogDir)
		assert.Equal(t, "testnet", cfg.Bitcoin.Network)
		assert.Nil(t, cfg.Bitcoin.EsploraAPIURLs)
	})
}
