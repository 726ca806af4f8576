// Package ledger maintains per-account positions with weighted-average-cost accounting.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"

	"github.com/shopspring/decimal"
)

// Apply returns the position that results from filling qty at price on top of cur.
//
// BUY adds to the quantity and re-weights the average cost. SELL reduces the
// quantity, floored at zero, and keeps the average cost unless the position is
// closed, in which case it resets to zero. Last price, market value and
// unrealized P&L are marked at the fill price.
func Apply(cur domain.Position, side domain.OrderSide, qty, price decimal.Decimal) domain.Position {
	next := cur
	switch side {
	case domain.Buy:
		newQty := cur.Quantity.Add(qty)
		if newQty.IsPositive() {
			next.AvgCost = cur.Quantity.Mul(cur.AvgCost).Add(qty.Mul(price)).Div(newQty)
		} else {
			next.AvgCost = decimal.Zero
		}
		next.Quantity = newQty
	case domain.Sell:
		newQty := decimal.Max(decimal.Zero, cur.Quantity.Sub(qty))
		if newQty.IsZero() {
			next.AvgCost = decimal.Zero
		}
		next.Quantity = newQty
	}
	next.LastPrice = price
	next.MarketValue = next.Quantity.Mul(price)
	next.UnrealizedPnL = price.Sub(next.AvgCost).Mul(next.Quantity)
	return next
}

// Ledger applies fills to stored positions.
type Ledger struct {
	positions ports.PositionRepository
	logger    ports.Logger
	now       func() time.Time
}

// New creates a Ledger over the given position store.
func New(positions ports.PositionRepository, logger ports.Logger) (*Ledger, error) {
	if positions == nil {
		return nil, errors.New("position repository is required for ledger")
	}
	if logger == nil {
		return nil, errors.New("logger is required for ledger")
	}
	return &Ledger{positions: positions, logger: logger, now: time.Now}, nil
}

// ApplyFill updates the (account, symbol) position for one fill and persists it.
// It is called exactly once per FILLED transition; repeated calls apply again.
func (l *Ledger) ApplyFill(ctx context.Context, accountID int64, symbol string, side domain.OrderSide, qty, price decimal.Decimal) (*domain.Position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	cur, err := l.positions.FindPosition(ctx, accountID, symbol)
	if err != nil {
		return nil, fmt.Errorf("ledger: load position %s: %w", symbol, err)
	}
	base := domain.Position{AccountID: accountID, Symbol: symbol}
	if cur != nil {
		base = *cur
	}

	next := Apply(base, side, qty, price)
	next.AccountID = accountID
	next.Symbol = symbol
	next.UpdatedAt = l.now().UTC()

	if err := l.positions.UpsertPosition(ctx, &next); err != nil {
		return nil, fmt.Errorf("ledger: store position %s: %w", symbol, err)
	}

	l.logger.Info(ctx, "Position updated", map[string]interface{}{
		"accountID": accountID,
		"symbol":    symbol,
		"side":      side,
		"fillQty":   qty.String(),
		"fillPrice": price.String(),
		"quantity":  next.Quantity.String(),
		"avgCost":   next.AvgCost.String(),
	})
	return &next, nil
}
