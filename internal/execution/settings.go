package execution

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
)

// Setting keys in the key/value store.
const (
	KeyExecutionMode = "execution_mode"
	KeyKillSwitch    = "kill_switch"
)

// ErrInvalidMode is returned by Settings.Set for modes other than PAPER and LIVE.
var ErrInvalidMode = errors.New("mode must be PAPER or LIVE")

// ConfigUpdate is a partial update of the execution config. Nil fields are left unchanged.
type ConfigUpdate struct {
	Mode       *string `json:"mode"`
	KillSwitch *bool   `json:"kill_switch"`
}

// Settings reads and writes the process-wide execution config.
type Settings struct {
	repo   ports.SettingsRepository
	logger ports.Logger
	mu     sync.Mutex
}

// NewSettings creates a settings handle over repo.
func NewSettings(repo ports.SettingsRepository, logger ports.Logger) (*Settings, error) {
	if repo == nil {
		return nil, errors.New("settings repository is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for settings")
	}
	return &Settings{repo: repo, logger: logger}, nil
}

// Get returns the current config. Missing keys read as PAPER and kill switch off.
func (s *Settings) Get(ctx context.Context) (domain.ExecutionConfig, error) {
	cfg := domain.DefaultExecutionConfig()

	mode, ok, err := s.repo.GetSetting(ctx, KeyExecutionMode)
	if err != nil {
		return cfg, fmt.Errorf("execution: read mode: %w", err)
	}
	if ok {
		parsed, valid := domain.ParseExecutionMode(mode)
		if valid {
			cfg.Mode = parsed
		} else {
			s.logger.Warn(ctx, "Stored execution mode is invalid, using PAPER", map[string]interface{}{"value": mode})
		}
	}

	kill, ok, err := s.repo.GetSetting(ctx, KeyKillSwitch)
	if err != nil {
		return cfg, fmt.Errorf("execution: read kill switch: %w", err)
	}
	if ok {
		cfg.KillSwitch = truthy(kill)
	}
	return cfg, nil
}

// Set applies a partial update and returns the resulting config. The mode is
// validated before anything is written.
func (s *Settings) Set(ctx context.Context, u ConfigUpdate) (domain.ExecutionConfig, error) {
	var mode domain.ExecutionMode
	if u.Mode != nil {
		parsed, ok := domain.ParseExecutionMode(*u.Mode)
		if !ok {
			return domain.ExecutionConfig{}, fmt.Errorf("%w: %q", ErrInvalidMode, *u.Mode)
		}
		mode = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Mode != nil {
		if err := s.repo.SetSetting(ctx, KeyExecutionMode, string(mode)); err != nil {
			return domain.ExecutionConfig{}, fmt.Errorf("execution: write mode: %w", err)
		}
	}
	if u.KillSwitch != nil {
		if err := s.repo.SetSetting(ctx, KeyKillSwitch, strconv.Itoa(boolToInt(*u.KillSwitch))); err != nil {
			return domain.ExecutionConfig{}, fmt.Errorf("execution: write kill switch: %w", err)
		}
	}

	cfg, err := s.Get(ctx)
	if err != nil {
		return cfg, err
	}
	s.logger.Info(ctx, "Execution config updated", map[string]interface{}{"mode": cfg.Mode, "killSwitch": cfg.KillSwitch})
	return cfg, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
