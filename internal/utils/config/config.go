package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/probstack/btcpay-harness/internal/types/environments"
)

// AppConfig carries process-level settings sourced from the environment.
// Per-run knobs (counts, batch sizes, amounts) live in the JSON run config
// instead; the environment only supplies ambient settings and credential
// fallbacks so secrets can stay out of config files checked into test repos.
type AppConfig struct {
	Environment environments.Environment
	LogDir      string
	Postgres    DBConnection
	Bitcoin     BitcoinConfig
	BTCPay      BTCPayConfig
	WebhookURL  string
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

type BitcoinConfig struct {
	Network        string
	EsploraAPIURLs []string
}

type BTCPayConfig struct {
	BaseURL string
	APIKey  string
	StoreID string
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	return &AppConfig{
		Environment: environments.Parse(env),
		LogDir:      envVarWithDefault("LOG_DIR", "logs"),
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Bitcoin: BitcoinConfig{
			Network:        envVarWithDefault("BTC_NETWORK", "testnet"),
			EsploraAPIURLs: envVarAsList("BTC_ESPLORA_API_URLS"),
		},
		BTCPay: BTCPayConfig{
			BaseURL: os.Getenv("BTCPAY_BASE_URL"),
			APIKey:  os.Getenv("BTCPAY_API_KEY"),
			StoreID: os.Getenv("BTCPAY_STORE_ID"),
		},
		WebhookURL: os.Getenv("RUN_WEBHOOK_URL"),
	}
}

func envVarWithDefault(envName, fallback string) string {
	if value := os.Getenv(envName); value != "" {
		return value
	}

	return fallback
}

func envVarAsList(envName string) []string {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}
