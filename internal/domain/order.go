package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeInForce is applied when a request does not carry a TIF tag.
const DefaultTimeInForce = "DAY"

// Order is a single trade instruction against a paper account.
type Order struct {
	ID            int64               `json:"id"`
	AccountID     int64               `json:"account_id"`
	StrategyID    *int64              `json:"strategy_id,omitempty"`
	Symbol        string              `json:"symbol"`
	Side          OrderSide           `json:"side"`
	Type          OrderType           `json:"order_type"`
	Quantity      decimal.Decimal     `json:"quantity"`
	LimitPrice    decimal.NullDecimal `json:"limit_price"`
	StopPrice     decimal.NullDecimal `json:"stop_price"`
	TimeInForce   string              `json:"tif"`
	Status        OrderStatus         `json:"status"`
	BrokerOrderID *string             `json:"broker_order_id,omitempty"`
	RejectReason  *string             `json:"reject_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// OrderRequest is the raw order instruction submitted by a caller.
// Fields are kept loose on purpose; Normalize produces the canonical form.
type OrderRequest struct {
	Symbol     string              `json:"symbol"`
	Side       string              `json:"side"`
	OrderType  string              `json:"order_type"`
	Quantity   decimal.Decimal     `json:"quantity"`
	LimitPrice decimal.NullDecimal `json:"limit_price"`
	StopPrice  decimal.NullDecimal `json:"stop_price"`
	TIF        string              `json:"tif"`
	StrategyID *int64              `json:"strategy_id,omitempty"`
	PriceHint  decimal.NullDecimal `json:"price_hint"`
}

// Normalize returns a copy of the request with symbol, side, type and TIF
// trimmed and uppercased, and defaults applied for side, type and TIF.
func (r OrderRequest) Normalize() OrderRequest {
	n := r
	n.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	n.Side = upperOr(r.Side, string(Buy))
	n.OrderType = upperOr(r.OrderType, string(Market))
	n.TIF = upperOr(r.TIF, DefaultTimeInForce)
	return n
}

func upperOr(s, fallback string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	return s
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status OrderStatus // empty means any status
	Limit  int
}
