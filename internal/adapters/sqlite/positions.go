package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
)

const positionColumns = `account_id, symbol, quantity, avg_cost, last_price, market_value, unrealized_pnl, updated_at`

// --- PositionRepository Implementation ---

// UpsertPosition inserts or replaces the position keyed by (account, symbol).
func (r *Repository) UpsertPosition(ctx context.Context, pos *domain.Position) error {
	const query = `
	INSERT INTO positions (account_id, symbol, quantity, avg_cost, last_price, market_value, unrealized_pnl, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (account_id, symbol) DO UPDATE SET
		quantity = excluded.quantity,
		avg_cost = excluded.avg_cost,
		last_price = excluded.last_price,
		market_value = excluded.market_value,
		unrealized_pnl = excluded.unrealized_pnl,
		updated_at = excluded.updated_at`

	pos.Symbol = normalizeSymbol(pos.Symbol)
	if pos.UpdatedAt.IsZero() {
		pos.UpdatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, query,
		pos.AccountID, pos.Symbol, pos.Quantity, pos.AvgCost, pos.LastPrice, pos.MarketValue, pos.UnrealizedPnL,
		pos.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert position %s for account %d: %w: %w", pos.Symbol, pos.AccountID, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Position upserted", map[string]interface{}{
		"accountID": pos.AccountID,
		"symbol":    pos.Symbol,
		"quantity":  pos.Quantity.String(),
	})
	return nil
}

// FindPosition retrieves the position for an account and symbol.
func (r *Repository) FindPosition(ctx context.Context, accountID int64, symbol string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE account_id = ? AND symbol = ?`

	pos, err := scanPosition(r.db.QueryRowContext(ctx, query, accountID, normalizeSymbol(symbol)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query position %s for account %d: %w: %w", symbol, accountID, ports.ErrQueryFailed, err)
	}
	return pos, nil
}

// ListOpenPositions retrieves positions with non-zero quantity, ordered by symbol.
// Quantities are stored as text, so the zero filter runs on decoded decimals.
func (r *Repository) ListOpenPositions(ctx context.Context, accountID int64) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE account_id = ? ORDER BY symbol ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions for account %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position during ListOpenPositions: %w: %w", ports.ErrQueryFailed, err)
		}
		if pos.IsOpen() {
			positions = append(positions, pos)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return positions, nil
}

func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	err := s.Scan(&p.AccountID, &p.Symbol, &p.Quantity, &p.AvgCost, &p.LastPrice, &p.MarketValue, &p.UnrealizedPnL, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
