// Package app wires the desk together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"paperdesk/config"
	"paperdesk/internal/adapters/binanceclient"
	"paperdesk/internal/adapters/httpapi"
	"paperdesk/internal/adapters/jsonquote"
	"paperdesk/internal/adapters/sqlite"
	"paperdesk/internal/adapters/staticquote"
	"paperdesk/internal/audit"
	"paperdesk/internal/execution"
	"paperdesk/internal/ledger"
	"paperdesk/internal/ports"
	"paperdesk/internal/risk"

	"golang.org/x/sync/errgroup"
)

// Service owns the object graph of a running desk.
type Service struct {
	cfg      *config.Config
	logger   ports.Logger
	repo     *sqlite.Repository
	quotes   ports.QuoteSource
	executor *execution.Executor
	gateway  *execution.Gateway
	server   *httpapi.Server
}

// New builds every component from cfg, seeds risk rules for the default
// account and returns a Service ready to Run.
func New(ctx context.Context, cfg *config.Config, logger ports.Logger) (*Service, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("app requires config and logger")
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database repository: %w", err)
	}
	svc := &Service{cfg: cfg, logger: logger, repo: repo}

	if err := svc.build(ctx); err != nil {
		if cerr := repo.Close(); cerr != nil {
			logger.Error(ctx, cerr, "Error closing database repository")
		}
		return nil, err
	}
	return svc, nil
}

func (s *Service) build(ctx context.Context) error {
	quotes, err := newQuoteSource(ctx, s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize quote source: %w", err)
	}
	s.quotes = quotes

	evaluator, err := risk.NewEvaluator(risk.EvaluatorConfig{
		Rules:        s.repo,
		Orders:       s.repo,
		Positions:    s.repo,
		Quotes:       quotes,
		QuoteTimeout: s.cfg.QuoteTimeout,
		Logger:       s.logger,
	})
	if err != nil {
		return err
	}
	book, err := ledger.New(s.repo, s.logger)
	if err != nil {
		return err
	}
	recorder, err := audit.NewRecorder(s.repo, s.logger)
	if err != nil {
		return err
	}
	s.executor, err = execution.NewExecutor(execution.ExecutorConfig{
		Orders:   s.repo,
		Risk:     evaluator,
		Ledger:   book,
		Recorder: recorder,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}
	settings, err := execution.NewSettings(s.repo, s.logger)
	if err != nil {
		return err
	}
	s.gateway, err = execution.NewGateway(settings, s.executor, recorder, s.logger)
	if err != nil {
		return err
	}

	if err := s.seedRiskRules(ctx); err != nil {
		return err
	}

	s.server, err = httpapi.NewServer(httpapi.ServerConfig{
		Addr:             s.cfg.HTTPAddr,
		DefaultAccountID: s.cfg.DefaultAccountID,
		GinMode:          s.cfg.GinMode,
		ShutdownTimeout:  s.cfg.ShutdownTimeout,
		Store:            s.repo,
		Orders:           s.executor,
		Gateway:          s.gateway,
		Health:           s.repo.Ping,
		Logger:           s.logger,
	})
	return err
}

func (s *Service) seedRiskRules(ctx context.Context) error {
	if s.cfg.RiskRulesFile == "" {
		return nil
	}
	rules, err := risk.LoadSeedFile(s.cfg.RiskRulesFile)
	if err != nil {
		return err
	}
	n, err := risk.Seed(ctx, s.repo, s.cfg.DefaultAccountID, rules)
	if err != nil {
		return fmt.Errorf("failed to seed risk rules: %w", err)
	}
	s.logger.Info(ctx, "Risk rules seeded", map[string]interface{}{
		"file":      s.cfg.RiskRulesFile,
		"accountID": s.cfg.DefaultAccountID,
		"created":   n,
	})
	return nil
}

// newQuoteSource picks the quote adapter named by cfg.QuoteSource.
func newQuoteSource(ctx context.Context, cfg *config.Config, logger ports.Logger) (ports.QuoteSource, error) {
	switch cfg.QuoteSource {
	case config.QuoteSourceBinance:
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceAPISecret,
			UseTestnet: cfg.IsTestnet,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.QuoteTimeout)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			// Orders without a price hint will be rejected until Binance is reachable.
			logger.Warn(ctx, "Binance ping failed at startup", map[string]interface{}{"error": err.Error()})
		}
		return client, nil
	case config.QuoteSourceHTTP:
		return jsonquote.New(jsonquote.Config{
			URL:       cfg.QuoteHTTPURL,
			PricePath: cfg.QuoteHTTPPricePath,
			Logger:    logger,
		})
	case config.QuoteSourceStatic, "":
		src := staticquote.New(cfg.StaticPrices)
		if len(cfg.StaticPrices) == 0 {
			logger.Warn(ctx, "No STATIC_PRICES configured; orders need a price_hint")
		} else {
			logger.Info(ctx, "Static quote source configured", map[string]interface{}{"symbols": src.Symbols()})
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unknown quote source %q", ports.ErrConfigurationError, cfg.QuoteSource)
	}
}

// Handler exposes the HTTP handler without binding a port.
func (s *Service) Handler() http.Handler { return s.server.Handler() }

// Store returns the repository backing the desk.
func (s *Service) Store() ports.Store { return s.repo }

// Executor returns the paper order executor.
func (s *Service) Executor() *execution.Executor { return s.executor }

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info(ctx, "Starting paperdesk", map[string]interface{}{
		"addr":        s.cfg.HTTPAddr,
		"quoteSource": s.cfg.QuoteSource,
		"account":     s.cfg.DefaultAccountID,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := s.server.Start(gctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			s.logger.Info(gctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	err := group.Wait()
	s.logger.Info(context.Background(), "paperdesk stopped")
	return err
}

// Close releases the database.
func (s *Service) Close() error {
	return s.repo.Close()
}
