// Package money 统一金额的精度与序列化规则。
package money

import "github.com/shopspring/decimal"

// Places 是所有金额保留的小数位数。
const Places = 2

func init() {
	// 金额在 JSON 中以数字而非字符串出现，与前端约定一致
	decimal.MarshalJSONWithoutQuotes = true
}

// Round 四舍五入到分（远离零方向）。
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Clamp 将 d 限制在 [lo, hi] 区间内。
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Percent 计算 amount 的 pct%，结果已取整到分。
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// Times 返回单价 × 数量。
func Times(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// FromFloat 用于测试和配置中的字面量金额。
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

// WithinTolerance 判断 got 相对 want 的偏差是否不超过 pct%。
func WithinTolerance(want, got, pct decimal.Decimal) bool {
	diff := want.Sub(got).Abs()
	if want.IsZero() {
		return diff.IsZero()
	}
	return diff.LessThanOrEqual(want.Abs().Mul(pct).Div(decimal.NewFromInt(100)))
}
