package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
)

// --- RiskRuleRepository Implementation ---

// CreateRiskRule saves a new rule and returns its assigned ID.
func (r *Repository) CreateRiskRule(ctx context.Context, rule *domain.RiskRule) (int64, error) {
	const query = `
	INSERT INTO risk_rules (account_id, name, rule_type, value_json, enabled, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	now := r.now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	if rule.Config == "" {
		rule.Config = "{}"
	}

	result, err := r.db.ExecContext(ctx, query,
		rule.AccountID, rule.Name, string(rule.RuleType), rule.Config, rule.Enabled, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert risk rule %s: %w: %w", rule.Name, ports.ErrInsertFailed, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for risk rule %s: %w: %w", rule.Name, ports.ErrInsertFailed, err)
	}
	rule.ID = id
	r.logger.Info(ctx, "Risk rule created", map[string]interface{}{"ruleID": id, "name": rule.Name, "type": rule.RuleType})
	return id, nil
}

// ListRiskRules retrieves an account's rules in creation order.
func (r *Repository) ListRiskRules(ctx context.Context, accountID int64, enabledOnly bool) ([]*domain.RiskRule, error) {
	query := `
	SELECT id, account_id, name, rule_type, value_json, enabled, created_at, updated_at
	FROM risk_rules WHERE account_id = ?`
	if enabledOnly {
		query += ` AND enabled = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk rules for account %d: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	rules := make([]*domain.RiskRule, 0)
	for rows.Next() {
		rule := &domain.RiskRule{}
		var ruleType string
		if err := rows.Scan(&rule.ID, &rule.AccountID, &rule.Name, &ruleType, &rule.Config, &rule.Enabled,
			&rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan risk rule: %w: %w", ports.ErrQueryFailed, err)
		}
		rule.RuleType = domain.RuleType(ruleType)
		rules = append(rules, rule)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk rule rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return rules, nil
}

// SetRiskRuleEnabled toggles a rule owned by the account.
func (r *Repository) SetRiskRuleEnabled(ctx context.Context, accountID, id int64, enabled bool) error {
	const query = `UPDATE risk_rules SET enabled = ?, updated_at = ? WHERE id = ? AND account_id = ?`

	result, err := r.db.ExecContext(ctx, query, enabled, r.now(), id, accountID)
	if err != nil {
		return fmt.Errorf("failed to update risk rule %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for risk rule %d: %w: %w", id, ports.ErrUpdateFailed, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("risk rule %d not found for account %d: %w", id, accountID, ports.ErrNotFound)
	}
	r.logger.Info(ctx, "Risk rule toggled", map[string]interface{}{"ruleID": id, "enabled": enabled})
	return nil
}

// --- SettingsRepository Implementation ---

// GetSetting returns the value stored under key and whether it exists.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w: %w", key, ports.ErrQueryFailed, err)
	}
	return value, true, nil
}

// SetSetting stores value under key, replacing any previous value.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	const query = `
	INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, key, value, r.now()); err != nil {
		return fmt.Errorf("failed to write setting %s: %w: %w", key, ports.ErrUpdateFailed, err)
	}
	return nil
}
