package rule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huerta/internal/service/promotion/domain"
)

func TestCELRuleEngine(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	fact := domain.Fact{
		Subtotal:  decimal.NewFromInt(1600),
		ItemCount: 2,
		Code:      "TEST10",
		Now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		condition string
		want      bool
	}{
		{condition: "", want: true},
		{condition: "subtotal >= 1000.0", want: true},
		{condition: "item_count >= 3", want: false},
		{condition: `code.startsWith("TEST") && item_count == 2`, want: true},
		{condition: `now < timestamp("2026-01-01T00:00:00Z")`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got, err := engine.Evaluate(tt.condition, fact)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCELRuleEngine_Compile(t *testing.T) {
	engine, err := NewCELRuleEngine()
	require.NoError(t, err)

	assert.NoError(t, engine.Compile("subtotal > 0.0"))
	assert.Error(t, engine.Compile("subtotal +"), "syntax error")
	assert.Error(t, engine.Compile("subtotal * 2.0"), "non-bool result")
	assert.Error(t, engine.Compile("unknown_var > 1"), "undeclared variable")
}
