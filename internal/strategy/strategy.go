// Package strategy holds the moving-average crossover used by replays.
package strategy

import (
	"context"
	"fmt"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
	"paperdesk/internal/strategy/indicators"
)

// Config holds parameters for the crossover strategy.
type Config struct {
	FastPeriod int                          // e.g. 10
	SlowPeriod int                          // e.g. 30
	MAType     indicators.MovingAverageType // SMA when empty
}

// Strategy buys when the fast average crosses above the slow one and sells
// when it crosses back below.
type Strategy struct {
	cfg    Config
	fast   *indicators.MovingAverage
	slow   *indicators.MovingAverage
	logger ports.Logger
}

var _ ports.Strategy = (*Strategy)(nil)

// New creates a new Strategy instance.
func New(cfg Config, logger ports.Logger) (*Strategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("fast MA period (%d) must be less than slow MA period (%d)", cfg.FastPeriod, cfg.SlowPeriod)
	}
	fast, err := indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: cfg.FastPeriod},
		Type:            cfg.MAType,
	})
	if err != nil {
		return nil, fmt.Errorf("fast MA: %w", err)
	}
	slow, err := indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: cfg.SlowPeriod},
		Type:            cfg.MAType,
	})
	if err != nil {
		return nil, fmt.Errorf("slow MA: %w", err)
	}
	return &Strategy{cfg: cfg, fast: fast, slow: slow, logger: logger}, nil
}

// Name returns e.g. "SMA(10)/SMA(30) crossover".
func (s *Strategy) Name() string {
	return fmt.Sprintf("%s/%s crossover", s.fast.Name(), s.slow.Name())
}

// RequiredDataPoints is the slow period plus the previous bar needed to see a cross.
func (s *Strategy) RequiredDataPoints() int {
	return s.slow.RequiredDataPoints() + 1
}

// Signal compares both averages on the last bar and the bar before it.
func (s *Strategy) Signal(ctx context.Context, klines []*domain.Kline) (domain.OrderSide, bool) {
	if len(klines) < s.RequiredDataPoints() {
		s.logger.Debug(ctx, "Not enough kline data for strategy evaluation", map[string]interface{}{
			"required": s.RequiredDataPoints(),
			"got":      len(klines),
		})
		return "", false
	}

	prev := klines[:len(klines)-1]
	values := make([]float64, 0, 4)
	for _, calc := range []struct {
		ind    indicators.Indicator
		window []*domain.Kline
	}{
		{s.fast, prev}, {s.slow, prev}, {s.fast, klines}, {s.slow, klines},
	} {
		v, err := calc.ind.Calculate(ctx, calc.window)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to calculate moving average", map[string]interface{}{"indicator": calc.ind.Name()})
			return "", false
		}
		values = append(values, v)
	}

	last := klines[len(klines)-1]
	fields := map[string]interface{}{
		"symbol":   last.Symbol,
		"openTime": last.OpenTime,
		"close":    last.Close,
		"fast":     values[2],
		"slow":     values[3],
	}
	switch indicators.DetectCross(values[0], values[1], values[2], values[3]) {
	case indicators.CrossUp:
		s.logger.Info(ctx, "Fast MA crossed above slow MA", fields)
		return domain.Buy, true
	case indicators.CrossDown:
		s.logger.Info(ctx, "Fast MA crossed below slow MA", fields)
		return domain.Sell, true
	}
	return "", false
}
