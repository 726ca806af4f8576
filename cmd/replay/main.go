// Command replay runs the moving-average crossover over a kline CSV against
// a throwaway paper desk and prints the resulting position and audit counts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"paperdesk/config"
	"paperdesk/internal/adapters/logger"
	"paperdesk/internal/app"
	"paperdesk/internal/domain"
	"paperdesk/internal/replay"
	"paperdesk/internal/strategy"
	"paperdesk/internal/strategy/indicators"
	"paperdesk/internal/utils"
)

type report struct {
	Strategy  string                   `json:"strategy"`
	Summary   *replay.Summary          `json:"summary"`
	Positions []*domain.Position       `json:"positions"`
	Runs      map[domain.RunStatus]int `json:"runs"`
}

func main() {
	csvPath := flag.String("csv", "", "kline CSV written by fetch_klines (required)")
	qty := flag.String("qty", "1", "quantity bought on each entry")
	fast := flag.Int("fast", 10, "fast moving average period")
	slow := flag.Int("slow", 30, "slow moving average period")
	maType := flag.String("ma", string(indicators.SimpleMovingAverage), "moving average type: SMA or EMA")
	dbPath := flag.String("db", ":memory:", "SQLite database for orders, positions and runs")
	flag.Parse()
	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	quantity, err := decimal.NewFromString(*qty)
	if err != nil {
		log.Fatalf("FATAL: invalid -qty %q: %v", *qty, err)
	}

	// 1. Load Configuration; the replay always prices from kline closes
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	cfg.DBPath = *dbPath
	cfg.QuoteSource = config.QuoteSourceStatic
	cfg.StaticPrices = nil

	appLogger := logger.NewStderr(cfg.LogLevel, cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Load klines
	klines, err := utils.ReadKlinesFromCSV(*csvPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to read klines: %v", err)
	}
	appLogger.Info(ctx, "Loaded klines", map[string]interface{}{"file": *csvPath, "count": len(klines)})

	// 3. Build the desk and the strategy
	svc, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer svc.Close()

	strat, err := strategy.New(strategy.Config{
		FastPeriod: *fast,
		SlowPeriod: *slow,
		MAType:     indicators.MovingAverageType(*maType),
	}, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create strategy: %v", err)
	}
	runner, err := replay.NewRunner(replay.Config{
		Strategy:  strat,
		Orders:    svc.Executor(),
		AccountID: cfg.DefaultAccountID,
		Quantity:  quantity,
		Logger:    appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create replay runner: %v", err)
	}

	// 4. Replay and report
	summary, runErr := runner.Run(ctx, klines)
	if runErr != nil {
		appLogger.Error(ctx, runErr, "Replay aborted")
	}
	out, err := buildReport(context.Background(), svc, cfg.DefaultAccountID, strat.Name(), summary)
	if err != nil {
		log.Fatalf("FATAL: Failed to build report: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("FATAL: Failed to write report: %v", err)
	}
	if runErr != nil {
		svc.Close()
		os.Exit(1)
	}
}

func buildReport(ctx context.Context, svc *app.Service, accountID int64, name string, summary *replay.Summary) (*report, error) {
	store := svc.Store()
	positions, err := store.ListOpenPositions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	runs, err := store.ListAgentRuns(ctx, accountID, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.RunStatus]int)
	for _, r := range runs {
		counts[r.Status]++
	}
	return &report{Strategy: name, Summary: summary, Positions: positions, Runs: counts}, nil
}
