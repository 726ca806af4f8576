package ports

import (
	"context"

	"paperdesk/internal/domain"
)

// Strategy decides, from a window of klines, whether to trade.
// It returns the side to submit and true, or false when no action is due.
type Strategy interface {
	// RequiredDataPoints returns the minimum number of klines needed for the strategy calculations.
	RequiredDataPoints() int

	// Signal evaluates the window ending at the most recent kline.
	Signal(ctx context.Context, klines []*domain.Kline) (domain.OrderSide, bool)
}
