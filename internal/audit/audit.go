// Package audit records agent runs: one RUNNING row per execution attempt,
// finalized exactly once as SUCCESS or FAILED.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"

	"github.com/google/uuid"
)

// ErrRunFinalized is returned when a run that already reached a terminal
// status is finalized again.
var ErrRunFinalized = errors.New("agent run already finalized")

// Recorder opens audit runs.
type Recorder struct {
	repo   ports.AgentRunRepository
	logger ports.Logger
}

// NewRecorder creates a Recorder backed by repo.
func NewRecorder(repo ports.AgentRunRepository, logger ports.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, errors.New("agent run repository is required for audit recorder")
	}
	if logger == nil {
		return nil, errors.New("logger is required for audit recorder")
	}
	return &Recorder{repo: repo, logger: logger}, nil
}

// Open persists a RUNNING run with a fresh trace id and a JSON snapshot of input.
func (r *Recorder) Open(ctx context.Context, accountID int64, strategyID *int64, runType string, input any) (*Run, error) {
	snapshot, err := marshalSnapshot(input)
	if err != nil {
		return nil, fmt.Errorf("audit: encode run input: %w", err)
	}
	rec := &domain.AgentRun{
		AccountID:  accountID,
		StrategyID: strategyID,
		TraceID:    uuid.NewString(),
		RunType:    runType,
		InputJSON:  snapshot,
		Status:     domain.RunRunning,
	}
	id, err := r.repo.CreateAgentRun(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("audit: open run: %w", err)
	}
	r.logger.Debug(ctx, "Agent run opened", map[string]interface{}{"runID": id, "traceID": rec.TraceID, "runType": runType})
	return &Run{id: id, traceID: rec.TraceID, accountID: accountID, recorder: r}, nil
}

// Run is the handle of an open audit run.
type Run struct {
	id        int64
	traceID   string
	accountID int64
	recorder  *Recorder

	mu        sync.Mutex
	finalized bool
}

// ID returns the store id of the run.
func (r *Run) ID() int64 { return r.id }

// TraceID returns the random id used to correlate log lines of this run.
func (r *Run) TraceID() string { return r.traceID }

// Finalized reports whether Succeed or Fail has been called.
func (r *Run) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Succeed marks the run SUCCESS with the given output snapshot.
func (r *Run) Succeed(ctx context.Context, output any) error {
	return r.finish(ctx, domain.RunSuccess, output, "")
}

// Fail marks the run FAILED with reason as its error text. output may be nil.
func (r *Run) Fail(ctx context.Context, reason string, output any) error {
	return r.finish(ctx, domain.RunFailed, output, reason)
}

func (r *Run) finish(ctx context.Context, status domain.RunStatus, output any, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return fmt.Errorf("%w: run %d", ErrRunFinalized, r.id)
	}

	var outPtr, errPtr *string
	if output != nil {
		snapshot, err := marshalSnapshot(output)
		if err != nil {
			return fmt.Errorf("audit: encode run output: %w", err)
		}
		outPtr = &snapshot
	}
	if reason != "" {
		errPtr = &reason
	}

	if err := r.recorder.repo.FinishAgentRun(ctx, r.id, status, outPtr, errPtr); err != nil {
		return fmt.Errorf("audit: finish run %d: %w", r.id, err)
	}
	r.finalized = true

	fields := map[string]interface{}{"runID": r.id, "traceID": r.traceID, "accountID": r.accountID, "status": status}
	if reason != "" {
		fields["reason"] = reason
	}
	r.recorder.logger.Info(ctx, "Agent run finished", fields)
	return nil
}

func marshalSnapshot(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
