package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"paperdesk/internal/adapters/logger"
	"paperdesk/internal/adapters/staticquote"
	"paperdesk/internal/ports"
)

// Quote source names accepted by QUOTE_SOURCE.
const (
	QuoteSourceStatic  = "static"
	QuoteSourceBinance = "binance"
	QuoteSourceHTTP    = "http"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // text or json

	// HTTP
	HTTPAddr        string
	GinMode         string
	ShutdownTimeout time.Duration

	// Accounts
	DefaultAccountID int64

	// Quotes
	QuoteSource        string
	QuoteTimeout       time.Duration
	StaticPrices       map[string]decimal.Decimal
	QuoteHTTPURL       string
	QuoteHTTPPricePath string

	// Binance API (public endpoints work without keys)
	BinanceAPIKey    string
	BinanceAPISecret string
	IsTestnet        bool

	// Risk rules seeded for the default account on first start
	RiskRulesFile string
}

// LoadConfig loads configuration from environment variables. With no
// arguments a .env file in the working directory is read if present; named
// files must exist. Values already in the environment are never overridden.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("%w: loading env files: %w", ports.ErrConfigurationError, err)
	}

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/paperdesk.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be text or json")
	}

	// HTTP
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.GinMode = strings.ToLower(getEnv("GIN_MODE", "release"))
	switch cfg.GinMode {
	case "release", "debug", "test":
	default:
		errs = append(errs, "GIN_MODE must be release, debug or test")
	}
	shutdownSeconds, err := getEnvAsIntRequired("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SHUTDOWN_TIMEOUT_SECONDS: %v", err))
	} else if shutdownSeconds <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}
	cfg.ShutdownTimeout = time.Duration(shutdownSeconds) * time.Second

	// Accounts
	cfg.DefaultAccountID, err = getEnvAsInt64Required("DEFAULT_ACCOUNT_ID", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_ACCOUNT_ID: %v", err))
	} else if cfg.DefaultAccountID <= 0 {
		errs = append(errs, "DEFAULT_ACCOUNT_ID must be positive")
	}

	// Quotes
	timeoutMs, err := getEnvAsIntRequired("QUOTE_TIMEOUT_MS", 3000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid QUOTE_TIMEOUT_MS: %v", err))
	} else if timeoutMs <= 0 {
		errs = append(errs, "QUOTE_TIMEOUT_MS must be positive")
	}
	cfg.QuoteTimeout = time.Duration(timeoutMs) * time.Millisecond

	cfg.StaticPrices, err = staticquote.Parse(getEnv("STATIC_PRICES", ""))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STATIC_PRICES: %v", err))
	}
	cfg.QuoteHTTPURL = getEnv("QUOTE_HTTP_URL", "")
	cfg.QuoteHTTPPricePath = getEnv("QUOTE_HTTP_PRICE_PATH", "price")

	cfg.QuoteSource = strings.ToLower(getEnv("QUOTE_SOURCE", QuoteSourceStatic))
	switch cfg.QuoteSource {
	case QuoteSourceStatic, QuoteSourceBinance:
	case QuoteSourceHTTP:
		if !strings.Contains(cfg.QuoteHTTPURL, "{symbol}") {
			errs = append(errs, "QUOTE_HTTP_URL must be set and contain {symbol} when QUOTE_SOURCE=http")
		}
	default:
		errs = append(errs, "QUOTE_SOURCE must be static, binance or http")
	}

	// Binance API
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceAPISecret = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// Risk rules
	cfg.RiskRulesFile = getEnv("RISK_RULES_FILE", "")
	if cfg.RiskRulesFile != "" {
		if _, statErr := os.Stat(cfg.RiskRulesFile); statErr != nil {
			errs = append(errs, fmt.Sprintf("RISK_RULES_FILE: %v", statErr))
		}
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: configuration validation failed: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsInt64Required(key string, defaultValue int64) (int64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
