package domain

import "time"

// RunStatus is the state of an audit run.
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// RunTypeExecute marks runs that wrap an order submission.
const RunTypeExecute = "execute"

// AgentRun records one execution attempt, independent of any order it produced.
type AgentRun struct {
	ID         int64      `json:"id"`
	AccountID  int64      `json:"account_id"`
	StrategyID *int64     `json:"strategy_id,omitempty"`
	TraceID    string     `json:"trace_id"`
	RunType    string     `json:"run_type"`
	InputJSON  string     `json:"input_json"`
	OutputJSON *string    `json:"output_json,omitempty"`
	Status     RunStatus  `json:"status"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
