package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price observation for a symbol.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	Source    string
	Timestamp time.Time
}

// QuoteSource resolves current market prices.
// Implementations must honour ctx cancellation; callers bound every call with a timeout.
type QuoteSource interface {
	// GetPrice returns the latest quote for symbol.
	// Returns nil, nil if the source has no price for the symbol.
	GetPrice(ctx context.Context, symbol string) (*Quote, error)
}
