package indicators

import (
	"context"
	"testing"
	"time"

	"paperdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closes(values ...float64) []*domain.Kline {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, len(values))
	for i, v := range values {
		klines[i] = &domain.Kline{OpenTime: start.Add(time.Duration(i) * time.Hour), Close: v}
	}
	return klines
}

func TestNewMovingAverage(t *testing.T) {
	tests := []struct {
		name     string
		config   MovingAverageConfig
		wantName string
		wantErr  bool
	}{
		{"sma", MovingAverageConfig{IndicatorConfig{Period: 3}, SimpleMovingAverage}, "SMA(3)", false},
		{"ema", MovingAverageConfig{IndicatorConfig{Period: 9}, ExponentialMovingAverage}, "EMA(9)", false},
		{"default type", MovingAverageConfig{IndicatorConfig{Period: 5}, ""}, "SMA(5)", false},
		{"zero period", MovingAverageConfig{IndicatorConfig{Period: 0}, SimpleMovingAverage}, "", true},
		{"invalid type", MovingAverageConfig{IndicatorConfig{Period: 3}, "WMA"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma, err := NewMovingAverage(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, ma.Name())
			assert.Equal(t, tt.config.Period, ma.RequiredDataPoints())
		})
	}
}

func TestMovingAverage_Calculate(t *testing.T) {
	klines := closes(100, 102, 101, 103, 104)

	tests := []struct {
		name     string
		config   MovingAverageConfig
		klines   []*domain.Kline
		expected float64
		wantErr  error
	}{
		{
			name:     "SMA uses the trailing window",
			config:   MovingAverageConfig{IndicatorConfig{Period: 3}, SimpleMovingAverage},
			klines:   klines,
			expected: 102.666667, // (101 + 103 + 104) / 3
		},
		{
			name:     "EMA seeded with SMA",
			config:   MovingAverageConfig{IndicatorConfig{Period: 3}, ExponentialMovingAverage},
			klines:   klines,
			expected: 103.0,
		},
		{
			name:     "exact window",
			config:   MovingAverageConfig{IndicatorConfig{Period: 5}, SimpleMovingAverage},
			klines:   klines,
			expected: 102.0,
		},
		{
			name:    "insufficient data",
			config:  MovingAverageConfig{IndicatorConfig{Period: 6}, SimpleMovingAverage},
			klines:  klines,
			wantErr: ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma, err := NewMovingAverage(tt.config)
			require.NoError(t, err)
			value, err := ma.Calculate(context.Background(), tt.klines)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, value, 0.0001)
		})
	}
}

func TestMovingAverage_CalculateCanceled(t *testing.T) {
	ma, err := NewMovingAverage(MovingAverageConfig{IndicatorConfig{Period: 2}, SimpleMovingAverage})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ma.Calculate(ctx, closes(1, 2, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectCross(t *testing.T) {
	tests := []struct {
		name     string
		prevFast float64
		prevSlow float64
		fast     float64
		slow     float64
		want     Cross
	}{
		{"up", 9, 10, 11, 10, CrossUp},
		{"up from touch", 10, 10, 10.5, 10, CrossUp},
		{"down", 11, 10, 9, 10, CrossDown},
		{"down from touch", 10, 10, 9.5, 10, CrossDown},
		{"stays above", 11, 10, 12, 10, NoCross},
		{"stays below", 8, 10, 9, 10, NoCross},
		{"lands on slow", 9, 10, 10, 10, NoCross},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCross(tt.prevFast, tt.prevSlow, tt.fast, tt.slow))
		})
	}
}
