package ports

import (
	"context"
	"time"

	"paperdesk/internal/domain"
)

// OrderStatusUpdate carries the optional fields written with a status change.
// Nil pointers leave the stored value untouched.
type OrderStatusUpdate struct {
	Status        domain.OrderStatus
	BrokerOrderID *string
	RejectReason  *string
}

// OrderRepository persists the append-only order trail.
type OrderRepository interface {
	// CreateOrder saves a new order and returns its assigned ID.
	CreateOrder(ctx context.Context, order *domain.Order) (int64, error)
	// UpdateOrderStatus changes an order's status. Returns ErrNotFound for unknown IDs.
	UpdateOrderStatus(ctx context.Context, id int64, update OrderStatusUpdate) error
	// FindOrderByID retrieves an order by its unique ID.
	// Returns nil, nil if not found.
	FindOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	// ListOrders retrieves an account's orders, newest first.
	ListOrders(ctx context.Context, accountID int64, filter domain.OrderFilter) ([]*domain.Order, error)
	// CountOrdersSince counts the account's non-rejected orders created at or after since.
	CountOrdersSince(ctx context.Context, accountID int64, since time.Time) (int, error)
}

// PositionRepository stores one net position per (account, symbol).
type PositionRepository interface {
	// UpsertPosition inserts or replaces the position keyed by (account, symbol).
	UpsertPosition(ctx context.Context, pos *domain.Position) error
	// FindPosition retrieves the position for an account and symbol.
	// Returns nil, nil if the account never held the symbol.
	FindPosition(ctx context.Context, accountID int64, symbol string) (*domain.Position, error)
	// ListOpenPositions retrieves positions with non-zero quantity, ordered by symbol.
	ListOpenPositions(ctx context.Context, accountID int64) ([]*domain.Position, error)
}

// RiskRuleRepository stores per-account pre-trade rules.
type RiskRuleRepository interface {
	// CreateRiskRule saves a new rule and returns its assigned ID.
	CreateRiskRule(ctx context.Context, rule *domain.RiskRule) (int64, error)
	// ListRiskRules retrieves an account's rules in creation order.
	ListRiskRules(ctx context.Context, accountID int64, enabledOnly bool) ([]*domain.RiskRule, error)
	// SetRiskRuleEnabled toggles a rule owned by the account. Returns ErrNotFound for unknown rules.
	SetRiskRuleEnabled(ctx context.Context, accountID, id int64, enabled bool) error
}

// AgentRunRepository stores the audit trail of execution attempts.
type AgentRunRepository interface {
	// CreateAgentRun saves a new run and returns its assigned ID.
	CreateAgentRun(ctx context.Context, run *domain.AgentRun) (int64, error)
	// FinishAgentRun writes the terminal status, output and error of a run.
	FinishAgentRun(ctx context.Context, id int64, status domain.RunStatus, output, errText *string) error
	// FindAgentRunByID retrieves a run by its unique ID.
	// Returns nil, nil if not found.
	FindAgentRunByID(ctx context.Context, id int64) (*domain.AgentRun, error)
	// ListAgentRuns retrieves an account's most recent runs, newest first.
	ListAgentRuns(ctx context.Context, accountID int64, limit int) ([]*domain.AgentRun, error)
}

// SettingsRepository is a generic key/value store for process-wide settings.
type SettingsRepository interface {
	// GetSetting returns the value stored under key and whether it exists.
	GetSetting(ctx context.Context, key string) (string, bool, error)
	// SetSetting stores value under key, replacing any previous value.
	SetSetting(ctx context.Context, key, value string) error
}

// StrategyRepository stores user strategies.
type StrategyRepository interface {
	// CreateStrategy saves a new strategy and returns its assigned ID.
	CreateStrategy(ctx context.Context, s *domain.Strategy) (int64, error)
	// ListStrategies retrieves an account's strategies, optionally filtered by status.
	ListStrategies(ctx context.Context, accountID int64, status string) ([]*domain.Strategy, error)
}

// Store bundles every repository the engine needs. The SQLite adapter implements it in full.
type Store interface {
	OrderRepository
	PositionRepository
	RiskRuleRepository
	AgentRunRepository
	SettingsRepository
	StrategyRepository
}
