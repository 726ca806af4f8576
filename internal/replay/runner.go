// Package replay drives a strategy over historical klines and routes its
// signals through the paper executor.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
)

// OrderSubmitter is the slice of the executor the runner needs.
type OrderSubmitter interface {
	SubmitPaper(ctx context.Context, accountID int64, req domain.OrderRequest) (domain.ExecutionResult, error)
}

// Config wires a Runner.
type Config struct {
	Strategy   ports.Strategy
	Orders     OrderSubmitter
	AccountID  int64
	Quantity   decimal.Decimal // size of each entry
	StrategyID *int64          // optional, stamped on every order
	Logger     ports.Logger
}

// Summary counts what happened during a replay.
type Summary struct {
	Bars     int             `json:"bars"`
	Signals  int             `json:"signals"`
	Skipped  int             `json:"skipped"`
	Filled   int             `json:"filled"`
	Rejected int             `json:"rejected"`
	Held     decimal.Decimal `json:"held"`
}

// Runner replays klines through a long-only crossover loop: BUY opens a
// position of Quantity when flat, SELL closes whatever is held.
type Runner struct {
	cfg Config
}

// NewRunner validates cfg.
func NewRunner(cfg Config) (*Runner, error) {
	switch {
	case cfg.Strategy == nil:
		return nil, errors.New("strategy is required for replay")
	case cfg.Orders == nil:
		return nil, errors.New("order submitter is required for replay")
	case cfg.Logger == nil:
		return nil, errors.New("logger is required for replay")
	case cfg.AccountID <= 0:
		return nil, fmt.Errorf("account id must be positive, got %d", cfg.AccountID)
	case !cfg.Quantity.IsPositive():
		return nil, fmt.Errorf("quantity must be positive, got %s", cfg.Quantity)
	}
	return &Runner{cfg: cfg}, nil
}

// Run walks klines in order. Each bar sees a window of the strategy's
// required size ending at that bar. A persistence error from the executor
// stops the replay; business rejections are counted and the replay goes on.
func (r *Runner) Run(ctx context.Context, klines []*domain.Kline) (*Summary, error) {
	sum := &Summary{Held: decimal.Zero}
	window := r.cfg.Strategy.RequiredDataPoints()

	for i, k := range klines {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Bars++
		if i+1 < window {
			continue
		}
		side, ok := r.cfg.Strategy.Signal(ctx, klines[i+1-window:i+1])
		if !ok {
			continue
		}
		sum.Signals++

		qty := r.cfg.Quantity
		if side == domain.Sell {
			qty = sum.Held
		}
		if (side == domain.Buy && sum.Held.IsPositive()) || (side == domain.Sell && !qty.IsPositive()) {
			sum.Skipped++
			continue
		}

		res, err := r.cfg.Orders.SubmitPaper(ctx, r.cfg.AccountID, domain.OrderRequest{
			Symbol:     k.Symbol,
			Side:       string(side),
			OrderType:  string(domain.Market),
			Quantity:   qty,
			StrategyID: r.cfg.StrategyID,
			PriceHint:  decimal.NewNullDecimal(decimal.NewFromFloat(k.Close)),
		})
		if err != nil {
			return sum, fmt.Errorf("replay stopped at %s: %w", k.OpenTime.UTC().Format(time.RFC3339), err)
		}

		fields := map[string]interface{}{
			"symbol":   k.Symbol,
			"side":     side,
			"quantity": qty.String(),
			"close":    k.Close,
			"status":   res.Status,
			"runID":    res.RunID,
		}
		if res.Status != domain.ResultFilled {
			sum.Rejected++
			fields["error"] = res.Error
			r.cfg.Logger.Warn(ctx, "Replay order not filled", fields)
			continue
		}
		sum.Filled++
		if side == domain.Buy {
			sum.Held = sum.Held.Add(qty)
		} else {
			sum.Held = sum.Held.Sub(qty)
		}
		r.cfg.Logger.Debug(ctx, "Replay order filled", fields)
	}

	r.cfg.Logger.Info(ctx, "Replay finished", map[string]interface{}{
		"bars":     sum.Bars,
		"signals":  sum.Signals,
		"filled":   sum.Filled,
		"rejected": sum.Rejected,
		"skipped":  sum.Skipped,
		"held":     sum.Held.String(),
	})
	return sum, nil
}
