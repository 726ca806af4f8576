package risk

import (
	"testing"

	"paperdesk/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		ruleType domain.RuleType
		payload  string
		want     Rule
		wantErr  error
	}{
		{
			name:     "orders per day numeric",
			ruleType: domain.RuleMaxOrdersPerDay,
			payload:  `{"count": 5}`,
			want:     MaxOrdersPerDay{Count: 5},
		},
		{
			name:     "orders per day string count",
			ruleType: domain.RuleMaxOrdersPerDay,
			payload:  `{"count": "5"}`,
			want:     MaxOrdersPerDay{Count: 5},
		},
		{
			name:     "empty payload disables",
			ruleType: domain.RuleMaxOrdersPerDay,
			payload:  "",
			want:     MaxOrdersPerDay{},
		},
		{
			name:     "allowed symbols",
			ruleType: domain.RuleAllowedSymbols,
			payload:  `{"symbols": ["MSFT", "aapl"]}`,
			want:     AllowedSymbols{Symbols: []string{"MSFT", "aapl"}},
		},
		{
			name:     "unknown type",
			ruleType: "max_leverage",
			payload:  `{}`,
			wantErr:  ErrUnknownRuleType,
		},
		{
			name:     "broken json",
			ruleType: domain.RuleMaxOrderNotionalUSD,
			payload:  `{"usd":`,
			wantErr:  ErrInvalidRuleConfig,
		},
		{
			name:     "array payload",
			ruleType: domain.RuleMaxOrderNotionalUSD,
			payload:  `[1,2]`,
			wantErr:  ErrInvalidRuleConfig,
		},
		{
			name:     "non numeric count",
			ruleType: domain.RuleMaxOrdersPerDay,
			payload:  `{"count": "many"}`,
			wantErr:  ErrInvalidRuleConfig,
		},
		{
			name:     "non numeric usd",
			ruleType: domain.RuleMaxPositionValueUSD,
			payload:  `{"usd": "lots"}`,
			wantErr:  ErrInvalidRuleConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.ruleType, tt.payload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ruleType, got.Type())
		})
	}
}

func TestDecode_DecimalLimits(t *testing.T) {
	for _, payload := range []string{`{"usd": 1500.5}`, `{"usd": "1500.5"}`} {
		rule, err := Decode(domain.RuleMaxOrderNotionalUSD, payload)
		require.NoError(t, err, payload)
		notional, ok := rule.(MaxOrderNotional)
		require.True(t, ok)
		assert.True(t, decimal.RequireFromString("1500.5").Equal(notional.USD), payload)
	}
}

func TestValidate(t *testing.T) {
	for _, rt := range RuleTypes() {
		assert.NoError(t, Validate(rt, "{}"), rt)
	}
	assert.Error(t, Validate("nope", "{}"))
}
