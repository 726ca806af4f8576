// Package jsonquote resolves prices from any HTTP endpoint that returns JSON.
package jsonquote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paperdesk/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	// SymbolPlaceholder is replaced by the requested symbol in Config.URL.
	SymbolPlaceholder = "{symbol}"
	// SourceName is the Quote.Source value set by this adapter.
	SourceName = "http"

	defaultPricePath = "price"
	maxBodyBytes     = 1 << 20
)

var _ ports.QuoteSource = (*Source)(nil)

// Config configures a Source.
type Config struct {
	URL        string // e.g. https://example.com/quote/{symbol}
	PricePath  string // gjson path to the price, default "price"
	HTTPClient *http.Client
	Logger     ports.Logger
}

// Source fetches a quote per request.
type Source struct {
	url    string
	path   string
	client *http.Client
	logger ports.Logger
}

// New creates a Source.
func New(cfg Config) (*Source, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required for json quote source")
	}
	if !strings.Contains(cfg.URL, SymbolPlaceholder) {
		return nil, fmt.Errorf("%w: quote URL must contain %s", ports.ErrConfigurationError, SymbolPlaceholder)
	}
	if _, err := url.Parse(strings.ReplaceAll(cfg.URL, SymbolPlaceholder, "X")); err != nil {
		return nil, fmt.Errorf("%w: quote URL: %w", ports.ErrConfigurationError, err)
	}
	path := strings.TrimSpace(cfg.PricePath)
	if path == "" {
		path = defaultPricePath
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Source{url: cfg.URL, path: path, client: client, logger: cfg.Logger}, nil
}

// GetPrice requests the configured URL for symbol and extracts the price.
// A 404, a missing path or a non-positive value yields nil, nil.
func (s *Source) GetPrice(ctx context.Context, symbol string) (*ports.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ports.ErrInvalidRequest)
	}
	target := strings.ReplaceAll(s.url, SymbolPlaceholder, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("quote %s: %w: %w", symbol, ports.ErrTimeout, err)
		case errors.Is(err, context.Canceled):
			return nil, fmt.Errorf("quote %s: %w: %w", symbol, ports.ErrContextCanceled, err)
		}
		return nil, fmt.Errorf("quote %s: %w: %w", symbol, ports.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("quote %s: reading body: %w: %w", symbol, ports.ErrQuoteUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("quote %s: %w", symbol, ports.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("quote %s: %w", symbol, ports.ErrAuthenticationFailed)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("quote %s: %w: status %d", symbol, ports.ErrQuoteUnavailable, resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("quote %s: %w: response is not valid JSON", symbol, ports.ErrQuoteUnavailable)
	}
	res := gjson.GetBytes(body, s.path)
	if !res.Exists() {
		s.logger.Debug(ctx, "Quote path missing from response", map[string]interface{}{"symbol": symbol, "path": s.path})
		return nil, nil
	}
	price, err := decimal.NewFromString(strings.TrimSpace(res.String()))
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w: price %q: %w", symbol, ports.ErrQuoteUnavailable, res.String(), err)
	}
	if !price.IsPositive() {
		return nil, nil
	}
	return &ports.Quote{Symbol: symbol, Price: price, Source: SourceName, Timestamp: time.Now().UTC()}, nil
}
