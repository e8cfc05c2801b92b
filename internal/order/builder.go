// Package order assembles a single self-contained order request from a
// signal and a risk snapshot. Protective legs are attached here and nowhere else.
package order

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/risk"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

type Builder struct {
	newID func() string
}

func NewBuilder() *Builder {
	return &Builder{newID: uuid.NewString}
}

// WithIDGenerator replaces the client order id source.
func (b *Builder) WithIDGenerator(fn func() string) *Builder {
	b.newID = fn
	return b
}

func buildErr(kind BuildErrorKind, format string, args ...interface{}) error {
	be := &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...)}
	return boterrors.WrapError(be, boterrors.ErrorCategoryValidation, "order", "build").
		WithMessage(string(kind))
}

// Build produces the order request for a signal. The returned request needs
// no further mutation before transmission.
func (b *Builder) Build(sig *types.TradingSignal, cfg *risk.Config, idx types.PositionIndex, leverage int, spec *types.InstrumentSpec) (*types.OrderRequest, error) {
	if spec == nil {
		spec = types.DefaultInstrumentSpec(sig.Symbol)
	}
	if !sig.Side.Valid() {
		return nil, boterrors.NewValidationError("order", "build", fmt.Sprintf("unknown side %q", sig.Side))
	}
	if sig.EntryPriceHint == nil || sig.EntryPriceHint.Sign() <= 0 {
		return nil, buildErr(MissingEntryPrice, "signal %s carries no usable entry price", sig.ID)
	}

	entry := risk.RoundToTick(*sig.EntryPriceHint, spec.TickSize)
	if entry.Sign() <= 0 {
		return nil, buildErr(MissingEntryPrice, "entry %s rounds to zero at tick %s", sig.EntryPriceHint, spec.TickSize)
	}

	qty, err := b.quantity(sig, cfg, leverage, entry, spec)
	if err != nil {
		return nil, err
	}

	long := sig.Side == types.SideLong
	sl, tp := sig.StopLoss, sig.TakeProfit
	cfgSL, cfgTP := risk.ProtectionPrices(long, entry,
		decimal.NewFromFloat(cfg.StopLossPct), decimal.NewFromFloat(cfg.TakeProfitPct))
	if sl == nil {
		sl = cfgSL
	}
	if tp == nil {
		tp = cfgTP
	}
	sl = roundPtr(sl, spec.TickSize)
	tp = roundPtr(tp, spec.TickSize)

	if err := risk.ValidateProtection(sig.Side, entry, sl, tp, decimal.NewFromFloat(cfg.MinStopDistancePct)); err != nil {
		return nil, err
	}

	req := &types.OrderRequest{
		ClientOrderID: b.newID(),
		Symbol:        strings.ToUpper(sig.Symbol),
		Side:          sig.Side,
		OrderType:     entryOrderType(cfg.EntryOrderType),
		Quantity:      qty,
		EntryPrice:    entry,
		PositionIndex: idx,
		Leverage:      leverage,
		StopLoss:      sl,
		TakeProfit:    tp,
		TpslMode:      types.TpslModeFull,
		SlOrderType:   types.OrderTypeMarket,
		TpOrderType:   types.OrderTypeMarket,
	}
	if req.OrderType == types.OrderTypeLimit {
		p := entry
		req.Price = &p
	}

	if sig.StagedExit {
		if tp == nil {
			return nil, buildErr(StagedExitWithoutTP, "staged exit requested without a take profit")
		}
		// Ladder legs attach to an open position, which a resting limit entry does not have yet
		if req.OrderType == types.OrderTypeLimit {
			return nil, buildErr(StagedExitLimitEntry, "staged exit requires a market entry")
		}
		levels, err := stagedLevels(sig.Side, entry, *tp, qty, cfg.StagedTakeProfit, spec)
		if err != nil {
			return nil, err
		}
		// The entry carries the final level for the whole size so it is never left without a TP
		last := levels[len(levels)-1].Price
		req.TakeProfit = &last
		req.TPLevels = levels
		req.TpslMode = types.TpslModePartial
		req.TpOrderType = types.OrderTypeLimit
	}

	return req, nil
}

func (b *Builder) quantity(sig *types.TradingSignal, cfg *risk.Config, leverage int, entry decimal.Decimal, spec *types.InstrumentSpec) (decimal.Decimal, error) {
	var raw decimal.Decimal
	if sig.SuggestedQuantity != nil && sig.SuggestedQuantity.Sign() > 0 {
		raw = *sig.SuggestedQuantity
	} else {
		raw = risk.PositionQuantity(decimal.NewFromFloat(cfg.FixedBalance), decimal.NewFromFloat(cfg.RiskFraction), leverage, entry)
	}
	qty := risk.FloorToStep(raw, spec.QtyStep)

	minValue := decimal.NewFromFloat(cfg.MinOrderValue)
	if spec.MinNotional.GreaterThan(minValue) {
		minValue = spec.MinNotional
	}
	notional := qty.Mul(entry)
	if qty.Sign() <= 0 || notional.LessThan(minValue) {
		return decimal.Zero, buildErr(BelowMinOrderValue, "order value %s (qty %s at %s) below minimum %s",
			notional.StringFixed(4), qty, entry, minValue)
	}
	if spec.MinOrderQty.Sign() > 0 && qty.LessThan(spec.MinOrderQty) {
		return decimal.Zero, buildErr(BelowMinOrderQty, "quantity %s below minimum %s", qty, spec.MinOrderQty)
	}
	if spec.MaxOrderQty.Sign() > 0 && qty.GreaterThan(spec.MaxOrderQty) {
		return decimal.Zero, buildErr(AboveMaxOrderQty, "quantity %s above maximum %s", qty, spec.MaxOrderQty)
	}
	return qty, nil
}

// stagedLevels splits qty across the ladder. Every level but the last is
// floored to the step; the last takes the remainder so the sum is exact.
func stagedLevels(side types.Side, entry, tp, qty decimal.Decimal, stages []risk.StageSpec, spec *types.InstrumentSpec) ([]types.TPLevel, error) {
	if len(stages) == 0 {
		stages = risk.DefaultStages()
	}
	distance := tp.Sub(entry).Abs()

	levels := make([]types.TPLevel, 0, len(stages))
	allocated := decimal.Zero
	for i, st := range stages {
		fraction := decimal.NewFromFloat(st.Fraction)
		offset := distance.Mul(decimal.NewFromFloat(st.Multiplier))

		var price decimal.Decimal
		if side == types.SideLong {
			price = entry.Add(offset)
		} else {
			price = entry.Sub(offset)
		}
		price = risk.RoundToTick(price, spec.TickSize)
		if price.Sign() <= 0 {
			return nil, buildErr(InvalidProtectionLevel, "take profit level %d price %s is not positive", i+1, price)
		}
		if err := risk.ValidateProtection(side, entry, nil, &price, decimal.Zero); err != nil {
			return nil, err
		}

		var q decimal.Decimal
		if i == len(stages)-1 {
			q = qty.Sub(allocated)
		} else {
			q = risk.FloorToStep(qty.Mul(fraction), spec.QtyStep)
		}
		if q.Sign() <= 0 {
			return nil, buildErr(StagedLevelTooSmall, "quantity %s too small for take profit level %d", qty, i+1)
		}
		allocated = allocated.Add(q)

		levels = append(levels, types.TPLevel{Price: price, Quantity: q, Fraction: fraction})
	}
	return levels, nil
}

func roundPtr(v *decimal.Decimal, tick decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	r := risk.RoundToTick(*v, tick)
	return &r
}

func entryOrderType(s string) types.OrderType {
	if strings.EqualFold(s, string(types.OrderTypeLimit)) {
		return types.OrderTypeLimit
	}
	return types.OrderTypeMarket
}
