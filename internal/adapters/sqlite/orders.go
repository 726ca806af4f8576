package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
)

const (
	defaultOrderLimit = 100
	orderColumns      = `id, account_id, strategy_id, symbol, side, order_type, quantity, limit_price, stop_price,
	       tif, status, broker_order_id, reject_reason, created_at, updated_at`
)

// --- OrderRepository Implementation ---

// CreateOrder saves a new order and returns its assigned ID.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) (int64, error) {
	const query = `
	INSERT INTO orders (account_id, strategy_id, symbol, side, order_type, quantity, limit_price, stop_price,
	                    tif, status, broker_order_id, reject_reason, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := r.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	order.Symbol = normalizeSymbol(order.Symbol)
	if order.TimeInForce == "" {
		order.TimeInForce = domain.DefaultTimeInForce
	}
	if order.Status == "" {
		order.Status = domain.StatusNew
	}

	result, err := r.db.ExecContext(ctx, query,
		order.AccountID, nullInt64(order.StrategyID), order.Symbol, string(order.Side), string(order.Type),
		order.Quantity, order.LimitPrice, order.StopPrice, order.TimeInForce, string(order.Status),
		nullString(order.BrokerOrderID), nullString(order.RejectReason), order.CreatedAt.UTC(), order.UpdatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert order for symbol %s: %w: %w", order.Symbol, ports.ErrInsertFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for order %s: %w: %w", order.Symbol, ports.ErrInsertFailed, err)
	}
	order.ID = id
	r.logger.Debug(ctx, "Order created", map[string]interface{}{"orderID": id, "symbol": order.Symbol, "status": order.Status})
	return id, nil
}

// UpdateOrderStatus changes an order's status. Broker id and reject reason
// keep their stored values when the update leaves them nil.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id int64, update ports.OrderStatusUpdate) error {
	const query = `
	UPDATE orders
	SET status = ?, broker_order_id = COALESCE(?, broker_order_id),
	    reject_reason = COALESCE(?, reject_reason), updated_at = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(update.Status), nullString(update.BrokerOrderID), nullString(update.RejectReason), r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update order ID %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update order ID %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order ID %d not found for update: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Order status updated", map[string]interface{}{"orderID": id, "status": update.Status})
	return nil
}

// FindOrderByID retrieves an order by its unique ID.
func (r *Repository) FindOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query order by ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return order, nil
}

// ListOrders retrieves an account's orders, newest first.
func (r *Repository) ListOrders(ctx context.Context, accountID int64, filter domain.OrderFilter) ([]*domain.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOrderLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if filter.Status != "" {
		query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = ? AND status = ? ORDER BY id DESC LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, accountID, string(filter.Status), limit)
	} else {
		query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = ? ORDER BY id DESC LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, accountID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for account %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order during ListOrders: %w: %w", ports.ErrQueryFailed, err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return orders, nil
}

// CountOrdersSince counts the account's non-rejected orders created at or after since.
func (r *Repository) CountOrdersSince(ctx context.Context, accountID int64, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE account_id = ? AND created_at >= ? AND status != ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, accountID, since.UTC(), string(domain.StatusRejected)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders for account %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	return count, nil
}

// scanOrder scans a row into a domain.Order struct.
func scanOrder(s scanner) (*domain.Order, error) {
	o := &domain.Order{}
	var (
		strategyID           sql.NullInt64
		side, orderType      string
		status               string
		brokerID, rejectText sql.NullString
	)
	err := s.Scan(
		&o.ID, &o.AccountID, &strategyID, &o.Symbol, &side, &orderType, &o.Quantity, &o.LimitPrice, &o.StopPrice,
		&o.TimeInForce, &status, &brokerID, &rejectText, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	o.StrategyID = int64Ptr(strategyID)
	o.Side = domain.OrderSide(side)
	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	o.BrokerOrderID = stringPtr(brokerID)
	o.RejectReason = stringPtr(rejectText)
	return o, nil
}
