package indicators

import (
	"context"
	"fmt"

	"paperdesk/internal/domain"
)

// MovingAverageType selects the averaging method.
type MovingAverageType string

const (
	SimpleMovingAverage      MovingAverageType = "SMA"
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators.
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA over kline closes.
type MovingAverage struct {
	BaseIndicator
	maType MovingAverageType
}

var _ Indicator = (*MovingAverage)(nil)

// NewMovingAverage validates config and returns the indicator. An empty type
// defaults to SMA.
func NewMovingAverage(config MovingAverageConfig) (*MovingAverage, error) {
	if config.Period <= 0 {
		return nil, fmt.Errorf("moving average period must be positive, got %d", config.Period)
	}
	switch config.Type {
	case "":
		config.Type = SimpleMovingAverage
	case SimpleMovingAverage, ExponentialMovingAverage:
	default:
		return nil, fmt.Errorf("unsupported moving average type: %s", config.Type)
	}
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		maType:        config.Type,
	}, nil
}

// Name returns e.g. "SMA(20)".
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s(%d)", m.maType, m.Config.Period)
}

// Calculate computes the moving average of the window ending at the last kline.
func (m *MovingAverage) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(klines) < m.Config.Period {
		return 0, fmt.Errorf("%w: %s needs %d klines, got %d", ErrInsufficientData, m.Name(), m.Config.Period, len(klines))
	}
	if m.maType == ExponentialMovingAverage {
		return m.ema(klines), nil
	}
	return sma(klines[len(klines)-m.Config.Period:]), nil
}

func sma(klines []*domain.Kline) float64 {
	total := 0.0
	for _, k := range klines {
		total += k.Close
	}
	return total / float64(len(klines))
}

// ema seeds with the SMA of the first period closes and folds in the rest.
func (m *MovingAverage) ema(klines []*domain.Kline) float64 {
	period := m.Config.Period
	multiplier := 2.0 / float64(period+1)
	value := sma(klines[:period])
	for _, k := range klines[period:] {
		value = (k.Close-value)*multiplier + value
	}
	return value
}

// Cross describes how a fast series moved relative to a slow one between two
// consecutive bars.
type Cross int

const (
	NoCross Cross = iota
	CrossUp
	CrossDown
)

// DetectCross compares the previous and current fast/slow values. Touching
// the slow line counts as being on the previous side.
func DetectCross(prevFast, prevSlow, fast, slow float64) Cross {
	switch {
	case prevFast <= prevSlow && fast > slow:
		return CrossUp
	case prevFast >= prevSlow && fast < slow:
		return CrossDown
	default:
		return NoCross
	}
}
