package execution

import (
	"context"
	"errors"

	"paperdesk/internal/audit"
	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
)

// Gateway is the single entry point for mode-aware order execution.
type Gateway struct {
	settings *Settings
	executor *Executor
	recorder *audit.Recorder
	logger   ports.Logger
}

// NewGateway creates a Gateway.
func NewGateway(settings *Settings, executor *Executor, recorder *audit.Recorder, logger ports.Logger) (*Gateway, error) {
	if settings == nil || executor == nil || recorder == nil || logger == nil {
		return nil, errors.New("gateway requires settings, executor, recorder and logger")
	}
	return &Gateway{settings: settings, executor: executor, recorder: recorder, logger: logger}, nil
}

// ExecuteOrder opens an audit run, applies the kill switch and mode guards,
// and hands PAPER orders to the executor.
func (g *Gateway) ExecuteOrder(ctx context.Context, accountID int64, req domain.OrderRequest) (domain.ExecutionResult, error) {
	run, err := g.recorder.Open(ctx, accountID, req.StrategyID, domain.RunTypeExecute, req)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	cfg, err := g.settings.Get(ctx)
	if err != nil {
		if ferr := run.Fail(ctx, err.Error(), nil); ferr != nil {
			g.logger.Warn(ctx, "Could not mark run as failed", map[string]interface{}{"runID": run.ID(), "error": ferr.Error()})
		}
		return domain.ExecutionResult{RunID: run.ID(), Error: err.Error()}, err
	}

	res := domain.ExecutionResult{RunID: run.ID(), Mode: cfg.Mode}
	switch {
	case cfg.KillSwitch:
		res.Status = domain.ResultBlocked
		res.ReasonCode = domain.ReasonKillSwitch
		res.Error = "kill switch is enabled"
		g.logger.Warn(ctx, "Order blocked by kill switch", map[string]interface{}{"traceID": run.TraceID(), "accountID": accountID})
		return res, run.Fail(ctx, "kill_switch_enabled", nil)
	case cfg.Mode == domain.ModeLive:
		res.Status = domain.ResultRejected
		res.ReasonCode = domain.ReasonLiveNotImplemented
		res.Error = "live execution adapter not implemented yet"
		g.logger.Warn(ctx, "Order rejected in LIVE mode", map[string]interface{}{"traceID": run.TraceID(), "accountID": accountID})
		return res, run.Fail(ctx, "live_mode_not_implemented", nil)
	}

	res, err = g.executor.Submit(ctx, run, accountID, req)
	res.Mode = cfg.Mode
	return res, err
}

// GetConfig returns the current execution config.
func (g *Gateway) GetConfig(ctx context.Context) (domain.ExecutionConfig, error) {
	return g.settings.Get(ctx)
}

// SetConfig applies a partial config update.
func (g *Gateway) SetConfig(ctx context.Context, u ConfigUpdate) (domain.ExecutionConfig, error) {
	return g.settings.Set(ctx, u)
}
