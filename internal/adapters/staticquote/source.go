// Package staticquote serves fixed prices from configuration.
package staticquote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"paperdesk/internal/ports"

	"github.com/shopspring/decimal"
)

// SourceName is the Quote.Source value set by this adapter.
const SourceName = "static"

var _ ports.QuoteSource = (*Source)(nil)

// Source is an immutable symbol to price table.
type Source struct {
	prices map[string]decimal.Decimal
}

// New copies prices into a Source. Symbols are uppercased.
func New(prices map[string]decimal.Decimal) *Source {
	m := make(map[string]decimal.Decimal, len(prices))
	for sym, p := range prices {
		m[strings.ToUpper(strings.TrimSpace(sym))] = p
	}
	return &Source{prices: m}
}

// Parse reads a comma separated SYMBOL=PRICE list, e.g. "AAPL=190.5,MSFT=410".
// Empty input yields an empty table.
func Parse(spec string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sym, raw, ok := strings.Cut(entry, "=")
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if !ok || sym == "" {
			return nil, fmt.Errorf("%w: static price %q must look like SYMBOL=PRICE", ports.ErrConfigurationError, entry)
		}
		p, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: static price for %s: %w", ports.ErrConfigurationError, sym, err)
		}
		if !p.IsPositive() {
			return nil, fmt.Errorf("%w: static price for %s must be > 0", ports.ErrConfigurationError, sym)
		}
		prices[sym] = p
	}
	return prices, nil
}

// GetPrice returns the configured price, or nil, nil for unknown symbols.
func (s *Source) GetPrice(ctx context.Context, symbol string) (*ports.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	p, ok := s.prices[sym]
	if !ok {
		return nil, nil
	}
	return &ports.Quote{Symbol: sym, Price: p, Source: SourceName, Timestamp: time.Now().UTC()}, nil
}

// Symbols lists the configured symbols in sorted order.
func (s *Source) Symbols() []string {
	out := make([]string, 0, len(s.prices))
	for sym := range s.prices {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
