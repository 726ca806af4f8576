package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
)

const (
	defaultRunLimit = 50
	runColumns      = `id, account_id, strategy_id, trace_id, run_type, input_json, output_json, status, error, started_at, finished_at`
)

// --- AgentRunRepository Implementation ---

// CreateAgentRun saves a new run and returns its assigned ID.
func (r *Repository) CreateAgentRun(ctx context.Context, run *domain.AgentRun) (int64, error) {
	const query = `
	INSERT INTO agent_runs (account_id, strategy_id, trace_id, run_type, input_json, status, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	if run.StartedAt.IsZero() {
		run.StartedAt = r.now()
	}
	if run.Status == "" {
		run.Status = domain.RunRunning
	}
	if run.InputJSON == "" {
		run.InputJSON = "{}"
	}

	result, err := r.db.ExecContext(ctx, query,
		run.AccountID, nullInt64(run.StrategyID), run.TraceID, run.RunType, run.InputJSON, string(run.Status),
		run.StartedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert agent run %s: %w: %w", run.TraceID, ports.ErrInsertFailed, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for agent run %s: %w: %w", run.TraceID, ports.ErrInsertFailed, err)
	}
	run.ID = id
	return id, nil
}

// FinishAgentRun writes the terminal status, output and error of a run.
func (r *Repository) FinishAgentRun(ctx context.Context, id int64, status domain.RunStatus, output, errText *string) error {
	const query = `
	UPDATE agent_runs
	SET status = ?, output_json = COALESCE(?, output_json), error = COALESCE(?, error), finished_at = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(status), nullString(output), nullString(errText), r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish agent run %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for agent run %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("agent run %d not found: %w", id, ports.ErrNotFound)
	}
	return nil
}

// FindAgentRunByID retrieves a run by its unique ID.
func (r *Repository) FindAgentRunByID(ctx context.Context, id int64) (*domain.AgentRun, error) {
	query := `SELECT ` + runColumns + ` FROM agent_runs WHERE id = ?`
	run, err := scanAgentRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query agent run %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return run, nil
}

// ListAgentRuns retrieves an account's most recent runs, newest first.
func (r *Repository) ListAgentRuns(ctx context.Context, accountID int64, limit int) ([]*domain.AgentRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	query := `SELECT ` + runColumns + ` FROM agent_runs WHERE account_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent runs for account %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	runs := make([]*domain.AgentRun, 0)
	for rows.Next() {
		run, err := scanAgentRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent run: %w: %w", ports.ErrQueryFailed, err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent run rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return runs, nil
}

func scanAgentRun(s scanner) (*domain.AgentRun, error) {
	run := &domain.AgentRun{}
	var (
		strategyID      sql.NullInt64
		status          string
		output, errText sql.NullString
		finishedAt      sql.NullTime
	)
	err := s.Scan(&run.ID, &run.AccountID, &strategyID, &run.TraceID, &run.RunType, &run.InputJSON, &output,
		&status, &errText, &run.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	run.StrategyID = int64Ptr(strategyID)
	run.Status = domain.RunStatus(status)
	run.OutputJSON = stringPtr(output)
	run.Error = stringPtr(errText)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// --- StrategyRepository Implementation ---

// CreateStrategy saves a new strategy and returns its assigned ID.
func (r *Repository) CreateStrategy(ctx context.Context, s *domain.Strategy) (int64, error) {
	const query = `
	INSERT INTO strategies (account_id, name, market, symbol, timeframe, config_json, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := r.now()
	s.CreatedAt, s.UpdatedAt = now, now
	s.Symbol = normalizeSymbol(s.Symbol)
	if s.Timeframe == "" {
		s.Timeframe = "1d"
	}
	if s.ConfigJSON == "" {
		s.ConfigJSON = "{}"
	}
	s.Status = strings.ToUpper(strings.TrimSpace(s.Status))
	if s.Status == "" {
		s.Status = "ACTIVE"
	}

	result, err := r.db.ExecContext(ctx, query,
		s.AccountID, s.Name, s.Market, s.Symbol, s.Timeframe, s.ConfigJSON, s.Status, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert strategy %s: %w: %w", s.Name, ports.ErrInsertFailed, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for strategy %s: %w: %w", s.Name, ports.ErrInsertFailed, err)
	}
	s.ID = id
	return id, nil
}

// ListStrategies retrieves an account's strategies, optionally filtered by status.
func (r *Repository) ListStrategies(ctx context.Context, accountID int64, status string) ([]*domain.Strategy, error) {
	query := `
	SELECT id, account_id, name, market, symbol, timeframe, config_json, status, created_at, updated_at
	FROM strategies WHERE account_id = ?`
	args := []interface{}{accountID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, strings.ToUpper(status))
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies for account %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	out := make([]*domain.Strategy, 0)
	for rows.Next() {
		s := &domain.Strategy{}
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Name, &s.Market, &s.Symbol, &s.Timeframe, &s.ConfigJSON,
			&s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w: %w", ports.ErrQueryFailed, err)
		}
		out = append(out, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategy rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return out, nil
}
