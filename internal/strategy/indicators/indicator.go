package indicators

import (
	"context"
	"errors"

	"paperdesk/internal/domain"
)

// ErrInsufficientData is returned when fewer klines are supplied than the
// indicator needs.
var ErrInsufficientData = errors.New("insufficient data")

// Indicator computes a single value from a kline window.
type Indicator interface {
	// Calculate computes the indicator value for the window ending at the last kline.
	Calculate(ctx context.Context, klines []*domain.Kline) (float64, error)

	// RequiredDataPoints returns the minimum number of klines needed for calculation.
	RequiredDataPoints() int

	// Name returns a short label such as "SMA(20)".
	Name() string
}

// IndicatorConfig holds common configuration for indicators.
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators.
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of klines needed for calculation.
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}
