package risk

import (
	"fmt"
	"math"
	"strings"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
)

// StageSpec is one rung of the staged take-profit ladder.
// Multiplier scales the base take-profit distance from entry.
type StageSpec struct {
	Fraction   float64 `mapstructure:"fraction" json:"fraction"`
	Multiplier float64 `mapstructure:"multiplier" json:"multiplier"`
}

// Config holds the per-execution risk parameters. Percentages are fractions (0.02 = 2%).
type Config struct {
	FixedBalance         float64        `mapstructure:"fixed_balance" json:"fixed_balance"`
	RiskFraction         float64        `mapstructure:"risk_fraction" json:"risk_fraction"`
	Leverage             int            `mapstructure:"leverage" json:"leverage"`
	SymbolLeverage       map[string]int `mapstructure:"symbol_leverage" json:"symbol_leverage,omitempty"`
	MaxLeveragePerSymbol int            `mapstructure:"max_leverage_per_symbol" json:"max_leverage_per_symbol"`
	StopLossPct          float64        `mapstructure:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct        float64        `mapstructure:"take_profit_pct" json:"take_profit_pct"`
	MinOrderValue        float64        `mapstructure:"min_order_value" json:"min_order_value"`
	MinStopDistancePct   float64        `mapstructure:"min_stop_distance_pct" json:"min_stop_distance_pct"`
	EntryOrderType       string         `mapstructure:"entry_order_type" json:"entry_order_type"`
	StagedTakeProfit     []StageSpec    `mapstructure:"staged_take_profit" json:"staged_take_profit"`
}

const (
	DefaultRiskFraction         = 0.02
	DefaultLeverage             = 1
	DefaultMaxLeveragePerSymbol = 20
	DefaultStopLossPct          = 0.02
	DefaultTakeProfitPct        = 0.03
	DefaultMinOrderValue        = 5.0
	DefaultMinStopDistancePct   = 0.001
)

// DefaultStages is the 30/30/40 ladder at 1x, 2x and 3x the take-profit distance.
func DefaultStages() []StageSpec {
	return []StageSpec{
		{Fraction: 0.3, Multiplier: 1},
		{Fraction: 0.3, Multiplier: 2},
		{Fraction: 0.4, Multiplier: 3},
	}
}

// SetDefaults fills zero values with defaults
func (c *Config) SetDefaults() {
	if c.RiskFraction == 0 {
		c.RiskFraction = DefaultRiskFraction
	}
	if c.Leverage == 0 {
		c.Leverage = DefaultLeverage
	}
	if c.MaxLeveragePerSymbol == 0 {
		c.MaxLeveragePerSymbol = DefaultMaxLeveragePerSymbol
	}
	if c.StopLossPct == 0 {
		c.StopLossPct = DefaultStopLossPct
	}
	if c.TakeProfitPct == 0 {
		c.TakeProfitPct = DefaultTakeProfitPct
	}
	if c.MinOrderValue == 0 {
		c.MinOrderValue = DefaultMinOrderValue
	}
	if c.MinStopDistancePct == 0 {
		c.MinStopDistancePct = DefaultMinStopDistancePct
	}
	if c.EntryOrderType == "" {
		c.EntryOrderType = "Market"
	}
	if len(c.StagedTakeProfit) == 0 {
		c.StagedTakeProfit = DefaultStages()
	}
}

// Validate checks the config shape. The leverage cap itself is enforced by
// the leverage coordinator so that it surfaces per symbol.
func (c *Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return boterrors.NewConfigError("risk", "validate", fmt.Sprintf(format, args...))
	}

	if c.FixedBalance <= 0 {
		return fail("fixed balance must be greater than 0")
	}
	if c.RiskFraction <= 0 || c.RiskFraction > 1 {
		return fail("risk fraction must be in (0, 1], got %v", c.RiskFraction)
	}
	if c.Leverage < 1 {
		return fail("leverage must be at least 1, got %d", c.Leverage)
	}
	if c.MaxLeveragePerSymbol < 1 {
		return fail("max leverage per symbol must be at least 1, got %d", c.MaxLeveragePerSymbol)
	}
	for symbol, lev := range c.SymbolLeverage {
		if lev < 1 {
			return fail("leverage for %s must be at least 1, got %d", symbol, lev)
		}
	}
	if c.StopLossPct < 0 || c.StopLossPct >= 1 {
		return fail("stop loss pct must be in [0, 1), got %v", c.StopLossPct)
	}
	if c.TakeProfitPct < 0 {
		return fail("take profit pct must not be negative, got %v", c.TakeProfitPct)
	}
	if c.MinOrderValue < 0 {
		return fail("min order value must not be negative")
	}
	if c.MinStopDistancePct < 0 || c.MinStopDistancePct >= 1 {
		return fail("min stop distance pct must be in [0, 1), got %v", c.MinStopDistancePct)
	}
	switch strings.ToLower(c.EntryOrderType) {
	case "market", "limit":
	default:
		return fail("entry order type must be Market or Limit, got %q", c.EntryOrderType)
	}

	sum := 0.0
	prev := 0.0
	for i, st := range c.StagedTakeProfit {
		if st.Fraction <= 0 {
			return fail("staged take profit level %d: fraction must be positive", i+1)
		}
		if st.Multiplier <= prev {
			return fail("staged take profit level %d: multipliers must be positive and increasing", i+1)
		}
		prev = st.Multiplier
		sum += st.Fraction
	}
	if len(c.StagedTakeProfit) > 0 && math.Abs(sum-1) > 1e-9 {
		return fail("staged take profit fractions must sum to 1, got %v", sum)
	}

	return nil
}

// LeverageFor returns the configured leverage for a symbol
func (c *Config) LeverageFor(symbol string) int {
	if lev, ok := c.SymbolLeverage[strings.ToUpper(symbol)]; ok {
		return lev
	}
	return c.Leverage
}

// Clone returns a deep copy so snapshots never share mutable state
func (c *Config) Clone() *Config {
	out := *c
	if c.SymbolLeverage != nil {
		out.SymbolLeverage = make(map[string]int, len(c.SymbolLeverage))
		for k, v := range c.SymbolLeverage {
			out.SymbolLeverage[strings.ToUpper(k)] = v
		}
	}
	out.StagedTakeProfit = append([]StageSpec(nil), c.StagedTakeProfit...)
	return &out
}
