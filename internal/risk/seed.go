package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"

	"gopkg.in/yaml.v3"
)

// SeedRule is one entry of a risk rule seed file.
type SeedRule struct {
	Name     string                 `yaml:"name"`
	RuleType string                 `yaml:"rule_type"`
	Value    map[string]interface{} `yaml:"value"`
	Enabled  *bool                  `yaml:"enabled"`
}

type seedFile struct {
	Rules []SeedRule `yaml:"rules"`
}

// LoadSeedFile reads and validates a YAML seed file of the form
//
//	rules:
//	  - name: daily cap
//	    rule_type: max_orders_per_day
//	    value: {count: 20}
func LoadSeedFile(path string) ([]SeedRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read risk seed file %s: %w", path, err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse risk seed file %s: %w", path, err)
	}
	for i, r := range f.Rules {
		if _, err := r.toRiskRule(0); err != nil {
			return nil, fmt.Errorf("risk seed file %s entry %d: %w", path, i, err)
		}
	}
	return f.Rules, nil
}

func (s SeedRule) toRiskRule(accountID int64) (*domain.RiskRule, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ports.ErrInvalidRequest)
	}
	ruleType := domain.RuleType(strings.TrimSpace(s.RuleType))
	value := s.Value
	if value == nil {
		value = map[string]interface{}{}
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleConfig, err)
	}
	if err := Validate(ruleType, string(payload)); err != nil {
		return nil, err
	}
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}
	return &domain.RiskRule{
		AccountID: accountID,
		Name:      name,
		RuleType:  ruleType,
		Config:    string(payload),
		Enabled:   enabled,
	}, nil
}

// Seed stores rules for an account that has none yet. It returns the number
// of rules created.
func Seed(ctx context.Context, repo ports.RiskRuleRepository, accountID int64, rules []SeedRule) (int, error) {
	existing, err := repo.ListRiskRules(ctx, accountID, false)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	created := 0
	for _, s := range rules {
		rule, err := s.toRiskRule(accountID)
		if err != nil {
			return created, err
		}
		if _, err := repo.CreateRiskRule(ctx, rule); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
