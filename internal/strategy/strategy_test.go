package strategy

import (
	"context"
	"testing"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"
	"paperdesk/internal/strategy/indicators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

func klines(values ...float64) []*domain.Kline {
	out := make([]*domain.Kline, len(values))
	for i, v := range values {
		out[i] = &domain.Kline{Symbol: "BTCUSDT", Close: v}
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logger  ports.Logger
		wantErr bool
	}{
		{"valid config", Config{FastPeriod: 10, SlowPeriod: 30}, &mockLogger{}, false},
		{"ema", Config{FastPeriod: 5, SlowPeriod: 20, MAType: indicators.ExponentialMovingAverage}, &mockLogger{}, false},
		{"nil logger", Config{FastPeriod: 10, SlowPeriod: 30}, nil, true},
		{"fast not below slow", Config{FastPeriod: 30, SlowPeriod: 30}, &mockLogger{}, true},
		{"zero fast period", Config{FastPeriod: 0, SlowPeriod: 30}, &mockLogger{}, true},
		{"unknown MA type", Config{FastPeriod: 2, SlowPeriod: 3, MAType: "HMA"}, &mockLogger{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, tt.logger)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.SlowPeriod+1, s.RequiredDataPoints())
		})
	}
}

func TestStrategy_Name(t *testing.T) {
	s, err := New(Config{FastPeriod: 10, SlowPeriod: 30}, &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, "SMA(10)/SMA(30) crossover", s.Name())
}

func TestStrategy_Signal(t *testing.T) {
	tests := []struct {
		name     string
		klines   []*domain.Kline
		wantSide domain.OrderSide
		wantOK   bool
	}{
		{"cross up", klines(10, 9, 8, 12), domain.Buy, true},
		{"cross down", klines(8, 9, 10, 6), domain.Sell, true},
		{"flat", klines(10, 10, 10, 10), "", false},
		{"steady uptrend", klines(1, 2, 3, 4), "", false},
		{"only the last two bars matter", klines(50, 1, 10, 9, 8, 12), domain.Buy, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &mockLogger{}
			s, err := New(Config{FastPeriod: 2, SlowPeriod: 3}, log)
			require.NoError(t, err)

			side, ok := s.Signal(context.Background(), tt.klines)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSide, side)
			assert.Len(t, log.infoMsgs, map[bool]int{true: 1, false: 0}[tt.wantOK])
		})
	}
}

func TestStrategy_SignalInsufficientData(t *testing.T) {
	log := &mockLogger{}
	s, err := New(Config{FastPeriod: 2, SlowPeriod: 3}, log)
	require.NoError(t, err)

	_, ok := s.Signal(context.Background(), klines(1, 2, 3))
	assert.False(t, ok)
	assert.Contains(t, log.debugMsgs, "Not enough kline data for strategy evaluation")
}

func TestStrategy_SignalCanceled(t *testing.T) {
	log := &mockLogger{}
	s, err := New(Config{FastPeriod: 2, SlowPeriod: 3}, log)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := s.Signal(ctx, klines(10, 9, 8, 12))
	assert.False(t, ok)
	assert.Len(t, log.errorMsgs, 1)
}
