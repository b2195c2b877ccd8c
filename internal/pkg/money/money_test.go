package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		pct    string
		want   string
	}{
		{name: "ten percent of 1600", amount: "1600", pct: "10", want: "160"},
		{name: "rounds half away from zero", amount: "0.25", pct: "10", want: "0.03"},
		{name: "zero amount", amount: "0", pct: "50", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.pct))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestClamp(t *testing.T) {
	lo, hi := decimal.Zero, decimal.NewFromInt(100)
	assert.True(t, Clamp(decimal.NewFromInt(-5), lo, hi).Equal(lo))
	assert.True(t, Clamp(decimal.NewFromInt(250), lo, hi).Equal(hi))
	assert.True(t, Clamp(decimal.NewFromInt(42), lo, hi).Equal(decimal.NewFromInt(42)))
}

func TestWithinTolerance(t *testing.T) {
	want := decimal.NewFromInt(1000)
	assert.True(t, WithinTolerance(want, decimal.NewFromInt(1005), decimal.NewFromInt(1)))
	assert.False(t, WithinTolerance(want, decimal.NewFromInt(1011), decimal.NewFromInt(1)))
	assert.True(t, WithinTolerance(decimal.Zero, decimal.Zero, decimal.NewFromInt(1)))
}

func TestJSONNumbers(t *testing.T) {
	b, err := json.Marshal(map[string]decimal.Decimal{"total": decimal.RequireFromString("1440.00")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":1440}`, string(b))
}
