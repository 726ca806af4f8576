package execution

import (
	"context"
	"testing"

	"paperdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Defaults(t *testing.T) {
	e := setupEngine(t, nil)
	cfg, err := e.settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ModePaper, cfg.Mode)
	assert.False(t, cfg.KillSwitch)
}

func TestSettings_KillSwitchTruthyValues(t *testing.T) {
	tests := []struct {
		stored string
		want   bool
	}{
		{"1", true},
		{"true", true},
		{"ON", true},
		{"Yes", true},
		{"0", false},
		{"false", false},
		{"enabled", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			e := setupEngine(t, nil)
			ctx := context.Background()
			require.NoError(t, e.repo.SetSetting(ctx, KeyKillSwitch, tt.stored))

			cfg, err := e.settings.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.KillSwitch)
		})
	}
}

func TestSettings_SetValidatesModeFirst(t *testing.T) {
	e := setupEngine(t, nil)
	ctx := context.Background()

	_, err := e.settings.Set(ctx, ConfigUpdate{Mode: strPtr("DEMO"), KillSwitch: boolPtr(true)})
	assert.ErrorIs(t, err, ErrInvalidMode)

	cfg, err := e.settings.Get(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.KillSwitch, "nothing is written when the mode is invalid")
	assert.Equal(t, domain.ModePaper, cfg.Mode)

	cfg, err = e.settings.Set(ctx, ConfigUpdate{Mode: strPtr(" live ")})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLive, cfg.Mode)

	stored, ok, err := e.repo.GetSetting(ctx, KeyExecutionMode)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "LIVE", stored)
}

func TestSettings_InvalidStoredModeReadsAsPaper(t *testing.T) {
	e := setupEngine(t, nil)
	ctx := context.Background()
	require.NoError(t, e.repo.SetSetting(ctx, KeyExecutionMode, "SANDBOX"))

	cfg, err := e.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ModePaper, cfg.Mode)
}

func TestAccountLocks_Release(t *testing.T) {
	l := newAccountLocks()
	unlockA := l.lock(1)
	unlockB := l.lock(2)
	assert.Equal(t, 2, l.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, l.size())
}
