package risk

import "github.com/shopspring/decimal"

// PositionQuantity computes the order quantity for a fixed-fractional risk budget.
// Formula: Quantity = (FixedBalance × RiskFraction × Leverage) / EntryPrice
//
// Example: $500 balance, 2% risk, 5x leverage at 50000 = 0.001
func PositionQuantity(balance, fraction decimal.Decimal, leverage int, entry decimal.Decimal) decimal.Decimal {
	if entry.Sign() <= 0 || leverage <= 0 {
		return decimal.Zero
	}
	return balance.Mul(fraction).Mul(decimal.NewFromInt(int64(leverage))).Div(entry)
}

// FloorToStep rounds v down to a multiple of step. A non-positive step leaves v unchanged.
func FloorToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.Sign() <= 0 {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

// RoundToTick rounds a price to the nearest tick.
func RoundToTick(price, tick decimal.Decimal) decimal.Decimal {
	if tick.Sign() <= 0 {
		return price
	}
	return price.Div(tick).Round(0).Mul(tick)
}

// ProtectionPrices derives stop-loss and take-profit from percentages relative to entry.
// A zero percentage yields no level.
func ProtectionPrices(long bool, entry, slPct, tpPct decimal.Decimal) (sl, tp *decimal.Decimal) {
	one := decimal.NewFromInt(1)
	if slPct.Sign() > 0 {
		var v decimal.Decimal
		if long {
			v = entry.Mul(one.Sub(slPct))
		} else {
			v = entry.Mul(one.Add(slPct))
		}
		sl = &v
	}
	if tpPct.Sign() > 0 {
		var v decimal.Decimal
		if long {
			v = entry.Mul(one.Add(tpPct))
		} else {
			v = entry.Mul(one.Sub(tpPct))
		}
		tp = &v
	}
	return sl, tp
}
