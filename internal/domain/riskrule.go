package domain

import "time"

// RuleType tags the kind of constraint a RiskRule enforces.
type RuleType string

const (
	RuleMaxOrdersPerDay     RuleType = "max_orders_per_day"
	RuleMaxOrderNotionalUSD RuleType = "max_order_notional_usd"
	RuleMaxPositionValueUSD RuleType = "max_position_value_usd"
	RuleAllowedSymbols      RuleType = "allowed_symbols"
)

// RiskRule is a named pre-trade constraint owned by an account.
// Config holds the JSON payload exactly as stored; it is decoded per RuleType
// at evaluation time.
type RiskRule struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Name      string    `json:"name"`
	RuleType  RuleType  `json:"rule_type"`
	Config    string    `json:"value_json"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
