package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"paperdesk/internal/domain"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownRuleType is returned for rule type tags without a registered decoder.
	ErrUnknownRuleType = errors.New("unknown risk rule type")
	// ErrInvalidRuleConfig is returned when a rule payload cannot be decoded.
	ErrInvalidRuleConfig = errors.New("invalid risk rule config")
)

// Rule is one decoded pre-trade constraint. The set of implementations is closed.
type Rule interface {
	// Type returns the persisted type tag of the rule.
	Type() domain.RuleType
	// check returns a rejection reason, or "" when the order passes.
	check(ctx context.Context, in *input) (string, error)
}

// input is what a rule sees about the order being evaluated.
type input struct {
	Symbol      string
	Side        domain.OrderSide
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	HeldQty     decimal.Decimal
	ordersToday func(ctx context.Context) (int, error)
}

// MaxOrdersPerDay caps the number of non-rejected orders per UTC day.
type MaxOrdersPerDay struct {
	Count int `mapstructure:"count"`
}

func (MaxOrdersPerDay) Type() domain.RuleType { return domain.RuleMaxOrdersPerDay }

func (r MaxOrdersPerDay) check(ctx context.Context, in *input) (string, error) {
	if r.Count <= 0 {
		return "", nil
	}
	n, err := in.ordersToday(ctx)
	if err != nil {
		return "", err
	}
	if n >= r.Count {
		return fmt.Sprintf("max_orders_per_day exceeded (%d)", r.Count), nil
	}
	return "", nil
}

// MaxOrderNotional caps quantity times reference price of a single order.
type MaxOrderNotional struct {
	USD decimal.Decimal `mapstructure:"usd"`
}

func (MaxOrderNotional) Type() domain.RuleType { return domain.RuleMaxOrderNotionalUSD }

func (r MaxOrderNotional) check(_ context.Context, in *input) (string, error) {
	if !r.USD.IsPositive() {
		return "", nil
	}
	notional := in.Quantity.Mul(in.Price)
	if notional.GreaterThan(r.USD) {
		return fmt.Sprintf("order notional %s > %s", notional.StringFixed(2), r.USD.StringFixed(2)), nil
	}
	return "", nil
}

// MaxPositionValue caps the value of the position the order would leave behind.
type MaxPositionValue struct {
	USD decimal.Decimal `mapstructure:"usd"`
}

func (MaxPositionValue) Type() domain.RuleType { return domain.RuleMaxPositionValueUSD }

func (r MaxPositionValue) check(_ context.Context, in *input) (string, error) {
	if !r.USD.IsPositive() {
		return "", nil
	}
	projected := in.HeldQty.Add(in.Quantity)
	if in.Side == domain.Sell {
		projected = decimal.Max(decimal.Zero, in.HeldQty.Sub(in.Quantity))
	}
	value := projected.Mul(in.Price)
	if value.GreaterThan(r.USD) {
		return fmt.Sprintf("position value %s > %s", value.StringFixed(2), r.USD.StringFixed(2)), nil
	}
	return "", nil
}

// AllowedSymbols restricts trading to a whitelist. An empty list allows everything.
type AllowedSymbols struct {
	Symbols []string `mapstructure:"symbols"`
}

func (AllowedSymbols) Type() domain.RuleType { return domain.RuleAllowedSymbols }

func (r AllowedSymbols) check(_ context.Context, in *input) (string, error) {
	if len(r.Symbols) == 0 {
		return "", nil
	}
	for _, s := range r.Symbols {
		if strings.ToUpper(strings.TrimSpace(s)) == in.Symbol {
			return "", nil
		}
	}
	return fmt.Sprintf("symbol %s not in allowed list", in.Symbol), nil
}

type decoder func(cfg map[string]interface{}) (Rule, error)

func decodeInto[T Rule](cfg map[string]interface{}) (Rule, error) {
	var rule T
	if err := decodeMap(cfg, &rule); err != nil {
		return nil, err
	}
	return rule, nil
}

var registry = map[domain.RuleType]decoder{
	domain.RuleMaxOrdersPerDay:     decodeInto[MaxOrdersPerDay],
	domain.RuleMaxOrderNotionalUSD: decodeInto[MaxOrderNotional],
	domain.RuleMaxPositionValueUSD: decodeInto[MaxPositionValue],
	domain.RuleAllowedSymbols:      decodeInto[AllowedSymbols],
}

// RuleTypes lists the registered rule type tags.
func RuleTypes() []domain.RuleType {
	return []domain.RuleType{
		domain.RuleMaxOrdersPerDay,
		domain.RuleMaxOrderNotionalUSD,
		domain.RuleMaxPositionValueUSD,
		domain.RuleAllowedSymbols,
	}
}

// Decode parses a stored payload into the typed rule registered for ruleType.
// An empty payload is treated as an empty object.
func Decode(ruleType domain.RuleType, payload string) (Rule, error) {
	dec, ok := registry[ruleType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, ruleType)
	}
	if strings.TrimSpace(payload) == "" {
		payload = "{}"
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleConfig, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidRuleConfig)
	}
	rule, err := dec(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleConfig, err)
	}
	return rule, nil
}

// Validate reports whether payload is a usable config for ruleType.
func Validate(ruleType domain.RuleType, payload string) error {
	_, err := Decode(ruleType, payload)
	return err
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook lets numeric and string config values land in decimal fields.
func decimalHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(v))
	case nil:
		return decimal.Zero, nil
	}
	return data, nil
}

func decodeMap(cfg map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decimalHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(cfg)
}
