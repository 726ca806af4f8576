// Package execution runs orders through risk checks, simulated fills and the
// position ledger, behind a global mode and kill-switch gateway.
package execution

import (
	"context"
	"errors"
	"fmt"

	"paperdesk/internal/audit"
	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
	"paperdesk/internal/risk"

	"github.com/shopspring/decimal"
)

// ErrIllegalTransition is returned when a status override violates the order state machine.
var ErrIllegalTransition = errors.New("illegal order status transition")

const reasonMissingSymbol = "missing symbol"

// RiskChecker evaluates pre-trade rules.
type RiskChecker interface {
	Evaluate(ctx context.Context, c risk.Check) (risk.Decision, error)
}

// FillApplier books fills into positions.
type FillApplier interface {
	ApplyFill(ctx context.Context, accountID int64, symbol string, side domain.OrderSide, qty, price decimal.Decimal) (*domain.Position, error)
}

// ExecutorConfig holds the collaborators of an Executor.
type ExecutorConfig struct {
	Orders   ports.OrderRepository
	Risk     RiskChecker
	Ledger   FillApplier
	Recorder *audit.Recorder
	Logger   ports.Logger
}

// Executor drives the paper order lifecycle.
type Executor struct {
	orders   ports.OrderRepository
	risk     RiskChecker
	ledger   FillApplier
	recorder *audit.Recorder
	logger   ports.Logger
	locks    *accountLocks
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Orders == nil || cfg.Risk == nil || cfg.Ledger == nil || cfg.Recorder == nil {
		return nil, errors.New("executor requires orders, risk, ledger and recorder")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required for executor")
	}
	return &Executor{
		orders:   cfg.Orders,
		risk:     cfg.Risk,
		ledger:   cfg.Ledger,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		locks:    newAccountLocks(),
	}, nil
}

// SubmitPaper opens its own audit run and submits the order in paper mode,
// bypassing the mode and kill-switch guards.
func (e *Executor) SubmitPaper(ctx context.Context, accountID int64, req domain.OrderRequest) (domain.ExecutionResult, error) {
	run, err := e.recorder.Open(ctx, accountID, req.StrategyID, domain.RunTypeExecute, req)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	return e.Submit(ctx, run, accountID, req)
}

// Submit validates, risk-checks, records and simulates one order inside an
// already open run. The run is finalized exactly once on every path.
// Business rejections are returned as results; a non-nil error means the
// store failed.
func (e *Executor) Submit(ctx context.Context, run *audit.Run, accountID int64, req domain.OrderRequest) (domain.ExecutionResult, error) {
	unlock := e.locks.lock(accountID)
	defer unlock()

	n := req.Normalize()
	res := domain.ExecutionResult{RunID: run.ID()}
	logFields := map[string]interface{}{"traceID": run.TraceID(), "accountID": accountID, "symbol": n.Symbol}

	if n.Symbol == "" {
		res.Status = domain.ResultRejected
		res.Error = reasonMissingSymbol
		if err := run.Fail(ctx, reasonMissingSymbol, nil); err != nil {
			return res, err
		}
		return res, nil
	}

	order := &domain.Order{
		AccountID:   accountID,
		StrategyID:  n.StrategyID,
		Symbol:      n.Symbol,
		Side:        domain.OrderSide(n.Side),
		Type:        domain.OrderType(n.OrderType),
		Quantity:    n.Quantity,
		LimitPrice:  n.LimitPrice,
		StopPrice:   n.StopPrice,
		TimeInForce: n.TIF,
	}

	if !order.Side.Valid() {
		return e.rejectNew(ctx, run, res, order, "unsupported side "+n.Side)
	}
	if !order.Type.Valid() {
		return e.rejectNew(ctx, run, res, order, "unsupported order type "+n.OrderType)
	}

	decision, err := e.risk.Evaluate(ctx, risk.Check{
		AccountID: accountID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		PriceHint: n.PriceHint,
	})
	if err != nil {
		return e.abort(ctx, run, res, err)
	}
	if !decision.Allowed {
		return e.rejectNew(ctx, run, res, order, decision.Reason())
	}

	order.Status = domain.StatusSubmitted
	orderID, err := e.orders.CreateOrder(ctx, order)
	if err != nil {
		return e.abort(ctx, run, res, err)
	}
	res.OrderID = &orderID
	logFields["orderID"] = orderID

	ref := decision.ReferencePrice
	filled := false
	switch order.Type {
	case domain.Market:
		filled = true
	case domain.Limit:
		if !order.LimitPrice.Valid || !order.LimitPrice.Decimal.IsPositive() {
			return e.rejectExisting(ctx, run, res, orderID, "missing limit_price")
		}
		limit := order.LimitPrice.Decimal
		filled = (order.Side == domain.Buy && ref.LessThanOrEqual(limit)) ||
			(order.Side == domain.Sell && ref.GreaterThanOrEqual(limit))
	}

	if !filled {
		res.Success = true
		res.Status = domain.ResultSubmitted
		res.ReferencePrice = decimal.NewNullDecimal(ref)
		if err := run.Succeed(ctx, map[string]interface{}{"order_id": orderID, "status": domain.StatusSubmitted}); err != nil {
			return res, err
		}
		e.logger.Info(ctx, "Order resting without fill", logFields)
		return res, nil
	}

	brokerRef := fmt.Sprintf("paper-%d", orderID)
	if err := e.orders.UpdateOrderStatus(ctx, orderID, ports.OrderStatusUpdate{
		Status:        domain.StatusFilled,
		BrokerOrderID: &brokerRef,
	}); err != nil {
		return e.abort(ctx, run, res, err)
	}
	if _, err := e.ledger.ApplyFill(ctx, accountID, order.Symbol, order.Side, order.Quantity, ref); err != nil {
		return e.abort(ctx, run, res, err)
	}

	res.Success = true
	res.Status = domain.ResultFilled
	res.FillPrice = decimal.NewNullDecimal(ref)
	if err := run.Succeed(ctx, map[string]interface{}{
		"order_id":   orderID,
		"status":     domain.StatusFilled,
		"fill_price": ref,
	}); err != nil {
		return res, err
	}
	logFields["fillPrice"] = ref.String()
	e.logger.Info(ctx, "Paper order filled", logFields)
	return res, nil
}

// rejectNew stores the order directly as REJECTED and fails the run.
func (e *Executor) rejectNew(ctx context.Context, run *audit.Run, res domain.ExecutionResult, order *domain.Order, reason string) (domain.ExecutionResult, error) {
	order.Status = domain.StatusRejected
	order.RejectReason = &reason
	orderID, err := e.orders.CreateOrder(ctx, order)
	if err != nil {
		return e.abort(ctx, run, res, err)
	}
	return e.finishRejected(ctx, run, res, orderID, reason)
}

// rejectExisting moves a stored order to REJECTED and fails the run.
func (e *Executor) rejectExisting(ctx context.Context, run *audit.Run, res domain.ExecutionResult, orderID int64, reason string) (domain.ExecutionResult, error) {
	if err := e.orders.UpdateOrderStatus(ctx, orderID, ports.OrderStatusUpdate{
		Status:       domain.StatusRejected,
		RejectReason: &reason,
	}); err != nil {
		return e.abort(ctx, run, res, err)
	}
	return e.finishRejected(ctx, run, res, orderID, reason)
}

func (e *Executor) finishRejected(ctx context.Context, run *audit.Run, res domain.ExecutionResult, orderID int64, reason string) (domain.ExecutionResult, error) {
	res.Success = false
	res.Status = domain.ResultRejected
	res.OrderID = &orderID
	res.Error = reason
	if err := run.Fail(ctx, reason, map[string]interface{}{"order_id": orderID}); err != nil {
		return res, err
	}
	e.logger.Info(ctx, "Order rejected", map[string]interface{}{
		"traceID": run.TraceID(),
		"orderID": orderID,
		"reason":  reason,
	})
	return res, nil
}

// abort fails the run with the error text, best effort, and returns err.
func (e *Executor) abort(ctx context.Context, run *audit.Run, res domain.ExecutionResult, err error) (domain.ExecutionResult, error) {
	e.logger.Error(ctx, err, "Order execution aborted", map[string]interface{}{"traceID": run.TraceID(), "runID": run.ID()})
	if !run.Finalized() {
		if ferr := run.Fail(ctx, err.Error(), nil); ferr != nil {
			e.logger.Warn(ctx, "Could not mark run as failed", map[string]interface{}{"runID": run.ID(), "error": ferr.Error()})
		}
	}
	res.Success = false
	res.Error = err.Error()
	return res, err
}

// OverrideStatus moves an order to status outside the normal flow. The order
// state machine still applies and positions are never touched.
func (e *Executor) OverrideStatus(ctx context.Context, orderID int64, status domain.OrderStatus, brokerRef, reason *string) (*domain.Order, error) {
	order, err := e.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %d: %w", orderID, ports.ErrNotFound)
	}

	unlock := e.locks.lock(order.AccountID)
	defer unlock()

	// Re-read under the account lock so a concurrent fill is observed.
	order, err = e.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %d: %w", orderID, ports.ErrNotFound)
	}
	if !domain.CanTransition(order.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, order.Status, status)
	}

	if err := e.orders.UpdateOrderStatus(ctx, orderID, ports.OrderStatusUpdate{
		Status:        status,
		BrokerOrderID: brokerRef,
		RejectReason:  reason,
	}); err != nil {
		return nil, err
	}
	e.logger.Info(ctx, "Order status overridden", map[string]interface{}{"orderID": orderID, "from": order.Status, "to": status})
	return e.orders.FindOrderByID(ctx, orderID)
}
