// Command fetch_klines downloads Binance futures klines into the CSV format
// read by cmd/replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"paperdesk/config"
	"paperdesk/internal/adapters/binanceclient"
	"paperdesk/internal/adapters/logger"
	"paperdesk/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDT", "futures symbol to download")
	interval := flag.String("interval", "1h", "kline interval, e.g. 1m, 15m, 1h, 1d")
	days := flag.Int("days", 90, "how many days back from now to fetch")
	output := flag.String("out", "", "CSV path (default data/<symbol>_<interval>_<from>_to_<to>.csv)")
	flag.Parse()
	if *days <= 0 {
		log.Fatalf("FATAL: -days must be positive, got %d", *days)
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStderr(cfg.LogLevel, cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Binance client (klines are public, keys are optional)
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.BinanceAPIKey,
		SecretKey:  cfg.BinanceAPISecret,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	sym := strings.ToUpper(*symbol)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)
	appLogger.Info(ctx, "Fetching klines", map[string]interface{}{
		"symbol": sym, "interval": *interval, "from": start, "to": end,
	})
	klines, err := client.GetKlinesRange(ctx, sym, *interval, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(ctx, "Fetched klines", map[string]interface{}{"count": len(klines)})

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("data/%s_%s_%s_to_%s.csv", sym, *interval, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteKlinesToCSV(klines, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	fmt.Println(filename)
}
