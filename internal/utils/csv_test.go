package utils

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paperdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadKlinesFile(t *testing.T) {
	open := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []*domain.Kline{
		{OpenTime: open, CloseTime: open.Add(time.Minute - time.Millisecond), Symbol: "ETHUSDT", Interval: "1m",
			Open: 3400.5, High: 3410, Low: 3399.25, Close: 3405.75, Volume: 12.345},
		{OpenTime: open.Add(time.Minute), CloseTime: open.Add(2*time.Minute - time.Millisecond), Symbol: "ETHUSDT", Interval: "1m",
			Open: 3405.75, High: 3406, Low: 3401, Close: 3402, Volume: 8},
	}
	path := filepath.Join(t.TempDir(), "nested", "eth.csv")

	require.NoError(t, WriteKlinesToCSV(in, path))
	out, err := ReadKlinesFromCSV(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, in[0].CloseTime.Equal(out[0].CloseTime), "millisecond close time survives")
	assert.Equal(t, *in[1], *out[1])
}

func TestWriteKlines_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKlines(&buf, nil))
	assert.Equal(t, "open_time,close_time,symbol,interval,open,high,low,close,volume\n", buf.String())
}

func TestReadKlines_ReorderedColumns(t *testing.T) {
	data := "symbol,close,open_time,close_time,interval,open,high,low,volume,trades\n" +
		"BTCUSDT,101,2024-01-01T00:00:00Z,2024-01-01T00:59:59.999Z,1h,100,102,99,5,42\n"

	klines, err := ReadKlines(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, klines, 1)
	assert.Equal(t, "BTCUSDT", klines[0].Symbol)
	assert.Equal(t, 101.0, klines[0].Close)
	assert.Equal(t, 102.0, klines[0].High)
}

func TestReadKlines_Errors(t *testing.T) {
	const header = "open_time,close_time,symbol,interval,open,high,low,close,volume\n"
	const row = "2024-01-01T00:00:00Z,2024-01-01T00:00:59Z,BTCUSDT,1m,1,1,1,1,1\n"
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"empty", "", "empty kline file"},
		{"missing column", "open_time,close_time,symbol,interval,open,high,low,close\n", `missing column "volume"`},
		{"bad time", header + "yesterday,2024-01-01T00:00:59Z,BTCUSDT,1m,1,1,1,1,1\n", "line 2: invalid open_time"},
		{"bad number", header + "2024-01-01T00:00:00Z,2024-01-01T00:00:59Z,BTCUSDT,1m,1,1,x,1,1\n", "line 2: invalid low"},
		{"short row", header + "2024-01-01T00:00:00Z,BTCUSDT\n", "line 2"},
		{"out of order", header + row + row, "line 3: open_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadKlines(strings.NewReader(tt.data))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReadKlinesFromCSV_MissingFile(t *testing.T) {
	_, err := ReadKlinesFromCSV(filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}
