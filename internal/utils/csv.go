// Package utils reads and writes kline CSV files shared by fetch_klines and replay.
package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"paperdesk/internal/domain"
)

var klineHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteKlinesToCSV writes klines to filename, creating parent directories.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", filename, err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteKlines(file, klines); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteKlines writes a header row followed by one row per kline.
func WriteKlines(w io.Writer, klines []*domain.Kline) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(klineHeader); err != nil {
		return err
	}
	for _, k := range klines {
		err := writer.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339Nano),
			k.CloseTime.UTC().Format(time.RFC3339Nano),
			k.Symbol,
			k.Interval,
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatFloat(k.Volume, 'f', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadKlinesFromCSV loads a file written by WriteKlinesToCSV.
func ReadKlinesFromCSV(filename string) ([]*domain.Kline, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	klines, err := ReadKlines(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return klines, nil
}

// ReadKlines parses kline CSV. Columns are matched by header name so extra
// columns are ignored; rows must be in ascending open_time order.
func ReadKlines(r io.Reader) ([]*domain.Kline, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty kline file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range klineHeader {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var klines []*domain.Kline
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		k, err := parseKline(record, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if n := len(klines); n > 0 && !k.OpenTime.After(klines[n-1].OpenTime) {
			return nil, fmt.Errorf("line %d: open_time %s is not after the previous row", line, k.OpenTime.Format(time.RFC3339))
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseKline(record []string, col map[string]int) (*domain.Kline, error) {
	k := &domain.Kline{
		Symbol:   record[col["symbol"]],
		Interval: record[col["interval"]],
	}
	var err error
	if k.OpenTime, err = time.Parse(time.RFC3339Nano, record[col["open_time"]]); err != nil {
		return nil, fmt.Errorf("invalid open_time: %w", err)
	}
	if k.CloseTime, err = time.Parse(time.RFC3339Nano, record[col["close_time"]]); err != nil {
		return nil, fmt.Errorf("invalid close_time: %w", err)
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &k.Open}, {"high", &k.High}, {"low", &k.Low}, {"close", &k.Close}, {"volume", &k.Volume},
	} {
		if *f.dst, err = strconv.ParseFloat(record[col[f.name]], 64); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}
	return k, nil
}
