package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the net holding of one account in one symbol.
// Quantity never goes negative; AvgCost is zero whenever Quantity is zero.
type Position struct {
	AccountID     int64           `json:"account_id"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	LastPrice     decimal.Decimal `json:"last_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsOpen checks if the position holds a non-zero quantity.
func (p *Position) IsOpen() bool {
	return p != nil && !p.Quantity.IsZero()
}
