package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paperdesk/internal/domain"
	"paperdesk/internal/ports"

	"github.com/shopspring/decimal"
)

// DefaultQuoteTimeout bounds a single quote lookup when none is configured.
const DefaultQuoteTimeout = 3 * time.Second

const (
	reasonBadQuantity     = "quantity must be > 0"
	reasonNoPrice         = "unable to resolve market price"
	reasonInsufficientQty = "insufficient position quantity for SELL"
)

// Check is the order under evaluation.
type Check struct {
	AccountID int64
	Symbol    string
	Side      domain.OrderSide
	Quantity  decimal.Decimal
	PriceHint decimal.NullDecimal
}

// Decision is the outcome of a risk evaluation.
type Decision struct {
	Allowed        bool
	Reasons        []string
	ReferencePrice decimal.Decimal
}

// Reason joins all rejection reasons.
func (d Decision) Reason() string {
	return strings.Join(d.Reasons, "; ")
}

func reject(reason string) Decision {
	return Decision{Allowed: false, Reasons: []string{reason}}
}

// EvaluatorConfig holds the collaborators of an Evaluator.
type EvaluatorConfig struct {
	Rules        ports.RiskRuleRepository
	Orders       ports.OrderRepository
	Positions    ports.PositionRepository
	Quotes       ports.QuoteSource
	QuoteTimeout time.Duration
	Logger       ports.Logger
}

// Evaluator runs pre-trade checks against an account's enabled risk rules.
type Evaluator struct {
	rules        ports.RiskRuleRepository
	orders       ports.OrderRepository
	positions    ports.PositionRepository
	quotes       ports.QuoteSource
	quoteTimeout time.Duration
	logger       ports.Logger
	now          func() time.Time
}

// NewEvaluator creates an Evaluator. Quotes may be nil, in which case every
// order must carry a price hint.
func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Rules == nil || cfg.Orders == nil || cfg.Positions == nil {
		return nil, errors.New("risk evaluator requires rule, order and position repositories")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required for risk evaluator")
	}
	timeout := cfg.QuoteTimeout
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}
	return &Evaluator{
		rules:        cfg.Rules,
		orders:       cfg.Orders,
		positions:    cfg.Positions,
		quotes:       cfg.Quotes,
		quoteTimeout: timeout,
		logger:       cfg.Logger,
		now:          time.Now,
	}, nil
}

// Evaluate checks an order against the hard guards and every enabled rule of
// the account. Rule failures accumulate; quantity and price failures stop early.
// A returned error means the store could not be read.
func (e *Evaluator) Evaluate(ctx context.Context, c Check) (Decision, error) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Symbol))
	if !c.Quantity.IsPositive() {
		return reject(reasonBadQuantity), nil
	}

	price := e.resolvePrice(ctx, symbol, c.PriceHint)
	if !price.IsPositive() {
		return reject(reasonNoPrice), nil
	}

	pos, err := e.positions.FindPosition(ctx, c.AccountID, symbol)
	if err != nil {
		return Decision{}, fmt.Errorf("risk: load position %s: %w", symbol, err)
	}
	held := decimal.Zero
	if pos != nil {
		held = pos.Quantity
	}

	var reasons []string
	if c.Side == domain.Sell && held.LessThan(c.Quantity) {
		reasons = append(reasons, reasonInsufficientQty)
	}

	rules, err := e.rules.ListRiskRules(ctx, c.AccountID, true)
	if err != nil {
		return Decision{}, fmt.Errorf("risk: load rules: %w", err)
	}

	in := &input{
		Symbol:   symbol,
		Side:     c.Side,
		Quantity: c.Quantity,
		Price:    price,
		HeldQty:  held,
	}
	var (
		counted    bool
		countToday int
	)
	in.ordersToday = func(ctx context.Context) (int, error) {
		if counted {
			return countToday, nil
		}
		n, err := e.orders.CountOrdersSince(ctx, c.AccountID, startOfDayUTC(e.now()))
		if err != nil {
			return 0, fmt.Errorf("risk: count orders: %w", err)
		}
		counted, countToday = true, n
		return n, nil
	}

	for _, stored := range rules {
		rule, err := Decode(stored.RuleType, stored.Config)
		if err != nil {
			e.logger.Warn(ctx, "Risk rule could not be decoded", map[string]interface{}{
				"ruleID": stored.ID,
				"name":   stored.Name,
				"type":   stored.RuleType,
				"error":  err.Error(),
			})
			reasons = append(reasons, "invalid risk rule config: "+stored.Name)
			continue
		}
		reason, err := rule.check(ctx, in)
		if err != nil {
			return Decision{}, err
		}
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	d := Decision{Allowed: len(reasons) == 0, Reasons: reasons, ReferencePrice: price}
	if !d.Allowed {
		e.logger.Info(ctx, "Order rejected by risk checks", map[string]interface{}{
			"accountID": c.AccountID,
			"symbol":    symbol,
			"reasons":   d.Reason(),
		})
	}
	return d, nil
}

// resolvePrice uses the hint when present, otherwise asks the quote source
// under a bounded timeout. Any failure yields zero.
func (e *Evaluator) resolvePrice(ctx context.Context, symbol string, hint decimal.NullDecimal) decimal.Decimal {
	if hint.Valid {
		return hint.Decimal
	}
	if e.quotes == nil {
		return decimal.Zero
	}

	qctx, cancel := context.WithTimeout(ctx, e.quoteTimeout)
	defer cancel()

	q, err := e.quotes.GetPrice(qctx, symbol)
	if err != nil {
		e.logger.Warn(ctx, "Quote lookup failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return decimal.Zero
	}
	if q == nil {
		return decimal.Zero
	}
	return q.Price
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
