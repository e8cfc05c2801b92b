package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/risk"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func testConfig(balance float64) *risk.Config {
	cfg := &risk.Config{
		FixedBalance:  balance,
		RiskFraction:  0.02,
		Leverage:      5,
		StopLossPct:   0.02,
		TakeProfitPct: 0.03,
		MinOrderValue: 5,
	}
	cfg.SetDefaults()
	return cfg
}

func signal(symbol string, side types.Side, entry string) *types.TradingSignal {
	return &types.TradingSignal{ID: "sig-1", Symbol: symbol, Side: side, Confidence: 0.8, EntryPriceHint: dp(entry)}
}

func fixedID() string { return "link-1" }

func assertKind(t *testing.T, err error, kind BuildErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryValidation))
	var be *BuildError
	require.True(t, errors.As(err, &be), "expected BuildError, got %v", err)
	assert.Equal(t, kind, be.Kind)
}

func TestBuildLongDerivesProtectionFromConfig(t *testing.T) {
	b := NewBuilder().WithIDGenerator(fixedID)
	req, err := b.Build(signal("BTCUSDT", types.SideLong, "116000"), testConfig(10000), types.PositionIndexLong, 5, nil)
	require.NoError(t, err)

	require.NotNil(t, req.StopLoss)
	require.NotNil(t, req.TakeProfit)
	assert.True(t, req.StopLoss.Equal(d("113680")), "sl %s", req.StopLoss)
	assert.True(t, req.TakeProfit.Equal(d("119480")), "tp %s", req.TakeProfit)
	assert.Equal(t, types.TpslModeFull, req.TpslMode)
	assert.Equal(t, types.OrderTypeMarket, req.SlOrderType)
	assert.Equal(t, types.OrderTypeMarket, req.TpOrderType)
	assert.Equal(t, types.PositionIndexLong, req.PositionIndex)
	assert.Equal(t, "link-1", req.ClientOrderID)
	assert.True(t, req.Quantity.Equal(d("0.008")), "qty %s", req.Quantity)
	assert.Nil(t, req.Price)
	assert.Empty(t, req.TPLevels)
}

func TestBuildShortWithInvalidStopLoss(t *testing.T) {
	sig := signal("ETHUSDT", types.SideShort, "3000")
	sig.StopLoss = dp("2900")

	req, err := NewBuilder().Build(sig, testConfig(10000), types.PositionIndexShort, 5, nil)
	assert.Nil(t, req)
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryValidation))
}

func TestBuildSizingPassesMinimumNotional(t *testing.T) {
	req, err := NewBuilder().Build(signal("BTCUSDT", types.SideLong, "50000"), testConfig(500), types.PositionIndexOneWay, 5, nil)
	require.NoError(t, err)
	assert.True(t, req.Quantity.Equal(d("0.001")), "qty %s", req.Quantity)
	assert.True(t, req.Notional().Equal(d("50")))
}

func TestBuildUsesSignalLevelsAndQuantity(t *testing.T) {
	sig := signal("ETHUSDT", types.SideShort, "3000")
	sig.StopLoss = dp("3100")
	sig.TakeProfit = dp("2800")
	sig.SuggestedQuantity = dp("0.25")

	req, err := NewBuilder().Build(sig, testConfig(500), types.PositionIndexShort, 3, nil)
	require.NoError(t, err)
	assert.True(t, req.StopLoss.Equal(d("3100")))
	assert.True(t, req.TakeProfit.Equal(d("2800")))
	assert.True(t, req.Quantity.Equal(d("0.25")))
	assert.Equal(t, 3, req.Leverage)
}

func TestBuildNeverDropsConfiguredProtection(t *testing.T) {
	sides := []types.Side{types.SideLong, types.SideShort}
	entries := []string{"0.5", "1", "25.37", "3000", "116000"}

	for _, side := range sides {
		for _, entry := range entries {
			sig := signal("XUSDT", side, entry)
			sig.SuggestedQuantity = dp("1000")
			req, err := NewBuilder().Build(sig, testConfig(500), types.PositionIndexOneWay, 1, nil)
			require.NoError(t, err, "%s @ %s", side, entry)
			assert.NotNil(t, req.StopLoss, "%s @ %s", side, entry)
			assert.NotNil(t, req.TakeProfit, "%s @ %s", side, entry)
			assert.True(t, req.HasProtection())
		}
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		sig    func() *types.TradingSignal
		cfg    func() *risk.Config
		spec   *types.InstrumentSpec
		expect BuildErrorKind
	}{
		{
			name:   "missing entry",
			sig:    func() *types.TradingSignal { s := signal("BTCUSDT", types.SideLong, "1"); s.EntryPriceHint = nil; return s },
			cfg:    func() *risk.Config { return testConfig(500) },
			expect: MissingEntryPrice,
		},
		{
			name:   "zero entry",
			sig:    func() *types.TradingSignal { return signal("BTCUSDT", types.SideLong, "0") },
			cfg:    func() *risk.Config { return testConfig(500) },
			expect: MissingEntryPrice,
		},
		{
			name:   "below min order value",
			sig:    func() *types.TradingSignal { return signal("BTCUSDT", types.SideLong, "50000") },
			cfg:    func() *risk.Config { c := testConfig(500); c.MinOrderValue = 100; return c },
			expect: BelowMinOrderValue,
		},
		{
			name:   "quantity floors to zero",
			sig:    func() *types.TradingSignal { return signal("BTCUSDT", types.SideLong, "116000") },
			cfg:    func() *risk.Config { return testConfig(500) },
			expect: BelowMinOrderValue,
		},
		{
			name: "instrument min notional",
			sig:  func() *types.TradingSignal { return signal("BTCUSDT", types.SideLong, "50000") },
			cfg:  func() *risk.Config { return testConfig(500) },
			spec: &types.InstrumentSpec{
				Symbol: "BTCUSDT", QtyStep: d("0.001"), TickSize: d("0.1"), MinNotional: d("100"),
			},
			expect: BelowMinOrderValue,
		},
		{
			name: "above max qty",
			sig:  func() *types.TradingSignal { s := signal("BTCUSDT", types.SideLong, "100"); s.SuggestedQuantity = dp("20"); return s },
			cfg:  func() *risk.Config { return testConfig(500) },
			spec: &types.InstrumentSpec{
				Symbol: "BTCUSDT", QtyStep: d("1"), TickSize: d("0.1"), MaxOrderQty: d("10"),
			},
			expect: AboveMaxOrderQty,
		},
		{
			name: "below min qty",
			sig:  func() *types.TradingSignal { s := signal("BTCUSDT", types.SideLong, "100"); s.SuggestedQuantity = dp("2"); return s },
			cfg:  func() *risk.Config { return testConfig(500) },
			spec: &types.InstrumentSpec{
				Symbol: "BTCUSDT", QtyStep: d("1"), TickSize: d("0.1"), MinOrderQty: d("5"),
			},
			expect: BelowMinOrderQty,
		},
		{
			name: "staged without take profit",
			sig: func() *types.TradingSignal {
				s := signal("BTCUSDT", types.SideLong, "100")
				s.SuggestedQuantity = dp("1")
				s.StagedExit = true
				return s
			},
			cfg:    func() *risk.Config { c := testConfig(500); c.TakeProfitPct = 0; return c },
			expect: StagedExitWithoutTP,
		},
		{
			name: "staged level too small",
			sig: func() *types.TradingSignal {
				s := signal("BTCUSDT", types.SideLong, "50000")
				s.SuggestedQuantity = dp("0.002")
				s.StagedExit = true
				return s
			},
			cfg:    func() *risk.Config { return testConfig(500) },
			expect: StagedLevelTooSmall,
		},
		{
			name: "staged short ladder crosses zero",
			sig: func() *types.TradingSignal {
				s := signal("XUSDT", types.SideShort, "100")
				s.SuggestedQuantity = dp("10")
				s.StagedExit = true
				return s
			},
			cfg:    func() *risk.Config { c := testConfig(500); c.TakeProfitPct = 0.5; return c },
			expect: InvalidProtectionLevel,
		},
		{
			name: "staged with limit entry",
			sig: func() *types.TradingSignal {
				s := signal("BTCUSDT", types.SideLong, "100")
				s.SuggestedQuantity = dp("1")
				s.StagedExit = true
				return s
			},
			cfg:    func() *risk.Config { c := testConfig(500); c.EntryOrderType = "Limit"; return c },
			expect: StagedExitLimitEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewBuilder().Build(tt.sig(), tt.cfg(), types.PositionIndexOneWay, 5, tt.spec)
			assert.Nil(t, req)
			assertKind(t, err, tt.expect)
		})
	}
}

func TestBuildStagedLadder(t *testing.T) {
	tests := []struct {
		name   string
		side   types.Side
		qty    string
		prices []string
		qtys   []string
	}{
		{"long even split", types.SideLong, "1", []string{"103", "106", "109"}, []string{"0.3", "0.3", "0.4"}},
		{"long remainder on last", types.SideLong, "0.107", []string{"103", "106", "109"}, []string{"0.032", "0.032", "0.043"}},
		{"short ladder", types.SideShort, "1", []string{"97", "94", "91"}, []string{"0.3", "0.3", "0.4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := signal("XUSDT", tt.side, "100")
			sig.SuggestedQuantity = dp(tt.qty)
			sig.StagedExit = true

			req, err := NewBuilder().Build(sig, testConfig(500), types.PositionIndexOneWay, 1, nil)
			require.NoError(t, err)
			assert.Equal(t, types.TpslModePartial, req.TpslMode)
			assert.Equal(t, types.OrderTypeLimit, req.TpOrderType)
			assert.Equal(t, types.OrderTypeMarket, req.SlOrderType)
			require.Len(t, req.TPLevels, 3)

			sum := decimal.Zero
			for i, lvl := range req.TPLevels {
				assert.True(t, lvl.Price.Equal(d(tt.prices[i])), "level %d price %s", i, lvl.Price)
				assert.True(t, lvl.Quantity.Equal(d(tt.qtys[i])), "level %d qty %s", i, lvl.Quantity)
				sum = sum.Add(lvl.Quantity)
			}
			assert.True(t, sum.Equal(req.Quantity), "levels sum %s != %s", sum, req.Quantity)
			assert.True(t, req.TakeProfit.Equal(req.TPLevels[2].Price), "entry tp %s", req.TakeProfit)
			require.NotNil(t, req.StopLoss)
		})
	}
}

func TestBuildLimitEntryCarriesPrice(t *testing.T) {
	cfg := testConfig(500)
	cfg.EntryOrderType = "limit"
	sig := signal("ETHUSDT", types.SideLong, "3000.004")
	sig.SuggestedQuantity = dp("0.1")

	req, err := NewBuilder().Build(sig, cfg, types.PositionIndexOneWay, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, types.OrderTypeLimit, req.OrderType)
	require.NotNil(t, req.Price)
	assert.True(t, req.Price.Equal(d("3000")))
}

func TestBuildAssignsUniqueClientOrderIDs(t *testing.T) {
	b := NewBuilder()
	sig := signal("BTCUSDT", types.SideLong, "50000")
	first, err := b.Build(sig, testConfig(500), types.PositionIndexOneWay, 5, nil)
	require.NoError(t, err)
	second, err := b.Build(sig, testConfig(500), types.PositionIndexOneWay, 5, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, first.ClientOrderID)
	assert.NotEqual(t, first.ClientOrderID, second.ClientOrderID)
	assert.LessOrEqual(t, len(first.ClientOrderID), 36)
}
