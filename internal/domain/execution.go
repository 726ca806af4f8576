package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExecutionMode selects where orders are routed.
type ExecutionMode string

const (
	ModePaper ExecutionMode = "PAPER"
	ModeLive  ExecutionMode = "LIVE"
)

// ParseExecutionMode validates a mode string, case-insensitively.
func ParseExecutionMode(s string) (ExecutionMode, bool) {
	m := ExecutionMode(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case ModePaper, ModeLive:
		return m, true
	}
	return "", false
}

// ExecutionConfig is the process-wide execution state.
type ExecutionConfig struct {
	Mode       ExecutionMode `json:"mode"`
	KillSwitch bool          `json:"kill_switch"`
}

// DefaultExecutionConfig is what an empty settings store reads as.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{Mode: ModePaper}
}

// ResultStatus is the outward status of an execution attempt. It extends the
// order statuses with BLOCKED for guard rejections that never create an order.
type ResultStatus string

const (
	ResultFilled    ResultStatus = ResultStatus(StatusFilled)
	ResultSubmitted ResultStatus = ResultStatus(StatusSubmitted)
	ResultRejected  ResultStatus = ResultStatus(StatusRejected)
	ResultBlocked   ResultStatus = "BLOCKED"
)

// ReasonCode is a machine-readable code for system-level guard outcomes.
type ReasonCode string

const (
	ReasonKillSwitch         ReasonCode = "KILL_SWITCH"
	ReasonLiveNotImplemented ReasonCode = "LIVE_NOT_IMPLEMENTED"
)

// ExecutionResult is returned for every submission attempt.
type ExecutionResult struct {
	Success        bool                `json:"success"`
	Status         ResultStatus        `json:"status,omitempty"`
	OrderID        *int64              `json:"order_id,omitempty"`
	FillPrice      decimal.NullDecimal `json:"fill_price"`
	ReferencePrice decimal.NullDecimal `json:"reference_price"`
	Error          string              `json:"error,omitempty"`
	ReasonCode     ReasonCode          `json:"reason_code,omitempty"`
	RunID          int64               `json:"run_id"`
	Mode           ExecutionMode       `json:"mode,omitempty"`
}
