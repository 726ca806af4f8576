package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"paperdesk/internal/adapters/logger"
	"paperdesk/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "HTTP_ADDR", "GIN_MODE", "SHUTDOWN_TIMEOUT_SECONDS",
	"DEFAULT_ACCOUNT_ID", "QUOTE_SOURCE", "QUOTE_TIMEOUT_MS", "STATIC_PRICES", "QUOTE_HTTP_URL",
	"QUOTE_HTTP_PRICE_PATH", "BINANCE_API_KEY", "BINANCE_API_SECRET", "IS_TESTNET", "RISK_RULES_FILE",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "./data/paperdesk.db", cfg.DBPath)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(1), cfg.DefaultAccountID)
	assert.Equal(t, QuoteSourceStatic, cfg.QuoteSource)
	assert.Equal(t, 3*time.Second, cfg.QuoteTimeout)
	assert.Empty(t, cfg.StaticPrices)
	assert.Equal(t, "price", cfg.QuoteHTTPPricePath)
	assert.False(t, cfg.IsTestnet)
	assert.Empty(t, cfg.RiskRulesFile)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules: []\n"), 0o644))

	t.Setenv("DB_PATH", "/tmp/desk.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("DEFAULT_ACCOUNT_ID", "42")
	t.Setenv("QUOTE_SOURCE", "HTTP")
	t.Setenv("QUOTE_HTTP_URL", "https://quotes.example.com/v1/{symbol}")
	t.Setenv("QUOTE_HTTP_PRICE_PATH", "data.last")
	t.Setenv("QUOTE_TIMEOUT_MS", "250")
	t.Setenv("STATIC_PRICES", "AAPL=190.5, msft=410")
	t.Setenv("IS_TESTNET", "true")
	t.Setenv("RISK_RULES_FILE", rules)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/desk.db", cfg.DBPath)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, int64(42), cfg.DefaultAccountID)
	assert.Equal(t, QuoteSourceHTTP, cfg.QuoteSource)
	assert.Equal(t, "data.last", cfg.QuoteHTTPPricePath)
	assert.Equal(t, 250*time.Millisecond, cfg.QuoteTimeout)
	assert.Equal(t, "410", cfg.StaticPrices["MSFT"].String())
	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, rules, cfg.RiskRulesFile)
}

func TestLoadConfig_CollectsErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("DEFAULT_ACCOUNT_ID", "zero")
	t.Setenv("QUOTE_TIMEOUT_MS", "-1")
	t.Setenv("STATIC_PRICES", "AAPL")
	t.Setenv("QUOTE_SOURCE", "http")
	t.Setenv("RISK_RULES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
	for _, want := range []string{
		"LOG_FORMAT", "DEFAULT_ACCOUNT_ID", "QUOTE_TIMEOUT_MS", "STATIC_PRICES", "QUOTE_HTTP_URL", "RISK_RULES_FILE",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown quote source", map[string]string{"QUOTE_SOURCE": "bloomberg"}},
		{"negative account", map[string]string{"DEFAULT_ACCOUNT_ID": "-3"}},
		{"zero shutdown", map[string]string{"SHUTDOWN_TIMEOUT_SECONDS": "0"}},
		{"bad gin mode", map[string]string{"GIN_MODE": "prod"}},
		{"http without placeholder", map[string]string{"QUOTE_SOURCE": "http", "QUOTE_HTTP_URL": "https://x/quote"}},
		{"non-positive price", map[string]string{"STATIC_PRICES": "AAPL=0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9191\nQUOTE_SOURCE=binance\nLOG_LEVEL=warn\n"), 0o644))
	t.Setenv("LOG_LEVEL", "error") // the environment wins over the file

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.HTTPAddr)
	assert.Equal(t, QuoteSourceBinance, cfg.QuoteSource)
	assert.Equal(t, logger.LevelError, cfg.LogLevel)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "nope.env"))
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
