package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"paperdesk/internal/adapters/sqlite"
	"paperdesk/internal/domain"
	"paperdesk/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) GetPrice(ctx context.Context, symbol string) (*ports.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Quote), args.Error(1)
}

const account = int64(1)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hint(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func setupEvaluator(t *testing.T, quotes ports.QuoteSource) (*Evaluator, *sqlite.Repository) {
	t.Helper()
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: ":memory:", Logger: &mockLogger{}})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ev, err := NewEvaluator(EvaluatorConfig{
		Rules:        repo,
		Orders:       repo,
		Positions:    repo,
		Quotes:       quotes,
		QuoteTimeout: 50 * time.Millisecond,
		Logger:       &mockLogger{},
	})
	require.NoError(t, err)
	return ev, repo
}

func addRule(t *testing.T, repo *sqlite.Repository, name string, rt domain.RuleType, cfg string) {
	t.Helper()
	_, err := repo.CreateRiskRule(context.Background(), &domain.RiskRule{
		AccountID: account, Name: name, RuleType: rt, Config: cfg, Enabled: true,
	})
	require.NoError(t, err)
}

func holdPosition(t *testing.T, repo *sqlite.Repository, symbol, qty string) {
	t.Helper()
	require.NoError(t, repo.UpsertPosition(context.Background(), &domain.Position{
		AccountID: account, Symbol: symbol, Quantity: dec(qty), AvgCost: dec("100"), LastPrice: dec("100"),
		MarketValue: dec(qty).Mul(dec("100")), UnrealizedPnL: decimal.Zero,
	}))
}

func TestEvaluator_HardChecks(t *testing.T) {
	tests := []struct {
		name        string
		check       Check
		wantAllowed bool
		wantReasons []string
	}{
		{
			name:        "zero quantity",
			check:       Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: decimal.Zero, PriceHint: hint("100")},
			wantReasons: []string{"quantity must be > 0"},
		},
		{
			name:        "non positive hint",
			check:       Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("0")},
			wantReasons: []string{"unable to resolve market price"},
		},
		{
			name:        "oversell",
			check:       Check{AccountID: account, Symbol: "AAPL", Side: domain.Sell, Quantity: dec("1"), PriceHint: hint("100")},
			wantReasons: []string{"insufficient position quantity for SELL"},
		},
		{
			name:        "plain buy",
			check:       Check{AccountID: account, Symbol: "aapl", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("100")},
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, _ := setupEvaluator(t, nil)
			d, err := ev.Evaluate(context.Background(), tt.check)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, d.Allowed)
			assert.Equal(t, tt.wantReasons, d.Reasons)
		})
	}
}

func TestEvaluator_QuoteSource(t *testing.T) {
	t.Run("uses quote when no hint", func(t *testing.T) {
		quotes := new(MockQuoteSource)
		quotes.On("GetPrice", mock.Anything, "AAPL").Return(&ports.Quote{Symbol: "AAPL", Price: dec("187.5")}, nil)
		ev, _ := setupEvaluator(t, quotes)

		d, err := ev.Evaluate(context.Background(), Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1")})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, dec("187.5").Equal(d.ReferencePrice))
		quotes.AssertExpectations(t)
	})

	t.Run("hint wins over quote", func(t *testing.T) {
		quotes := new(MockQuoteSource)
		ev, _ := setupEvaluator(t, quotes)

		d, err := ev.Evaluate(context.Background(), Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("42")})
		require.NoError(t, err)
		assert.True(t, dec("42").Equal(d.ReferencePrice))
		quotes.AssertNotCalled(t, "GetPrice", mock.Anything, mock.Anything)
	})

	for name, ret := range map[string][]interface{}{
		"quote error":   {nil, errors.New("upstream down")},
		"missing quote": {nil, nil},
		"zero price":    {&ports.Quote{Symbol: "AAPL", Price: decimal.Zero}, nil},
	} {
		t.Run(name, func(t *testing.T) {
			quotes := new(MockQuoteSource)
			quotes.On("GetPrice", mock.Anything, "AAPL").Return(ret...)
			ev, _ := setupEvaluator(t, quotes)

			d, err := ev.Evaluate(context.Background(), Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1")})
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, []string{"unable to resolve market price"}, d.Reasons)
		})
	}

	t.Run("quote is bounded by timeout", func(t *testing.T) {
		quotes := new(MockQuoteSource)
		quotes.On("GetPrice", mock.Anything, "AAPL").
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.DeadlineExceeded)
		ev, _ := setupEvaluator(t, quotes)

		start := time.Now()
		d, err := ev.Evaluate(context.Background(), Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1")})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestEvaluator_Rules(t *testing.T) {
	tests := []struct {
		name        string
		rules       [][3]string // name, type, config
		held        string
		check       Check
		wantReasons []string
	}{
		{
			name:        "allowed symbols rejects",
			rules:       [][3]string{{"whitelist", string(domain.RuleAllowedSymbols), `{"symbols":["MSFT"]}`}},
			check:       Check{Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("100")},
			wantReasons: []string{"symbol AAPL not in allowed list"},
		},
		{
			name:  "allowed symbols passes case insensitively",
			rules: [][3]string{{"whitelist", string(domain.RuleAllowedSymbols), `{"symbols":["aapl"]}`}},
			check: Check{Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("100")},
		},
		{
			name:        "notional exceeded",
			rules:       [][3]string{{"notional", string(domain.RuleMaxOrderNotionalUSD), `{"usd":1000}`}},
			check:       Check{Symbol: "AAPL", Side: domain.Buy, Quantity: dec("11"), PriceHint: hint("100")},
			wantReasons: []string{"order notional 1100.00 > 1000.00"},
		},
		{
			name:  "notional at limit passes",
			rules: [][3]string{{"notional", string(domain.RuleMaxOrderNotionalUSD), `{"usd":1000}`}},
			check: Check{Symbol: "AAPL", Side: domain.Buy, Quantity: dec("10"), PriceHint: hint("100")},
		},
		{
			name:        "position value includes held quantity",
			rules:       [][3]string{{"posval", string(domain.RuleMaxPositionValueUSD), `{"usd":"1500"}`}},
			held:        "10",
			check:       Check{Symbol: "AAPL", Side: domain.Buy, Quantity: dec("6"), PriceHint: hint("100")},
			wantReasons: []string{"position value 1600.00 > 1500.00"},
		},
		{
			name:  "sell shrinks projected position",
			rules: [][3]string{{"posval", string(domain.RuleMaxPositionValueUSD), `{"usd":500}`}},
			held:  "10",
			check: Check{Symbol: "AAPL", Side: domain.Sell, Quantity: dec("6"), PriceHint: hint("100")},
		},
		{
			name:  "zero limit disables rule",
			rules: [][3]string{{"off", string(domain.RuleMaxOrderNotionalUSD), `{"usd":0}`}},
			check: Check{Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1000"), PriceHint: hint("100")},
		},
		{
			name: "broken and unknown rules fail closed in id order",
			rules: [][3]string{
				{"broken", string(domain.RuleMaxOrdersPerDay), `{"count":`},
				{"mystery", "max_leverage", `{}`},
			},
			check:       Check{Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("100")},
			wantReasons: []string{"invalid risk rule config: broken", "invalid risk rule config: mystery"},
		},
		{
			name: "failures accumulate after oversell guard",
			rules: [][3]string{
				{"whitelist", string(domain.RuleAllowedSymbols), `{"symbols":["MSFT"]}`},
				{"notional", string(domain.RuleMaxOrderNotionalUSD), `{"usd":50}`},
			},
			check: Check{Symbol: "AAPL", Side: domain.Sell, Quantity: dec("1"), PriceHint: hint("100")},
			wantReasons: []string{
				"insufficient position quantity for SELL",
				"symbol AAPL not in allowed list",
				"order notional 100.00 > 50.00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, repo := setupEvaluator(t, nil)
			for _, r := range tt.rules {
				addRule(t, repo, r[0], domain.RuleType(r[1]), r[2])
			}
			if tt.held != "" {
				holdPosition(t, repo, "AAPL", tt.held)
			}
			tt.check.AccountID = account

			d, err := ev.Evaluate(context.Background(), tt.check)
			require.NoError(t, err)
			assert.Equal(t, len(tt.wantReasons) == 0, d.Allowed)
			assert.Equal(t, tt.wantReasons, d.Reasons)
		})
	}
}

func TestEvaluator_MaxOrdersPerDay(t *testing.T) {
	ev, repo := setupEvaluator(t, nil)
	ctx := context.Background()
	addRule(t, repo, "daily", domain.RuleMaxOrdersPerDay, `{"count":2}`)

	createOrder := func(status domain.OrderStatus, at time.Time) {
		_, err := repo.CreateOrder(ctx, &domain.Order{
			AccountID: account, Symbol: "AAPL", Side: domain.Buy, Type: domain.Market, Quantity: dec("1"),
			Status: status, CreatedAt: at,
		})
		require.NoError(t, err)
	}
	now := time.Now().UTC()
	createOrder(domain.StatusFilled, now.Add(-48*time.Hour))
	createOrder(domain.StatusRejected, now)
	createOrder(domain.StatusFilled, now)

	check := Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("10")}
	d, err := ev.Evaluate(ctx, check)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "one counted order today, limit two")

	createOrder(domain.StatusSubmitted, now)
	d, err = ev.Evaluate(ctx, check)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "max_orders_per_day exceeded (2)", d.Reason())
}

func TestEvaluator_DisabledRulesIgnored(t *testing.T) {
	ev, repo := setupEvaluator(t, nil)
	ctx := context.Background()
	id, err := repo.CreateRiskRule(ctx, &domain.RiskRule{
		AccountID: account, Name: "whitelist", RuleType: domain.RuleAllowedSymbols, Config: `{"symbols":["MSFT"]}`, Enabled: false,
	})
	require.NoError(t, err)

	check := Check{AccountID: account, Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), PriceHint: hint("10")}
	d, err := ev.Evaluate(ctx, check)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, repo.SetRiskRuleEnabled(ctx, account, id, true))
	d, err = ev.Evaluate(ctx, check)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestDecision_Reason(t *testing.T) {
	d := Decision{Reasons: []string{"a", "b"}}
	assert.Equal(t, "a; b", d.Reason())
	assert.Equal(t, "", Decision{}.Reason())
}
