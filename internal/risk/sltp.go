package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// ValidateProtection enforces side-aware ordering of protective levels:
// LONG needs SL < entry < TP, SHORT needs TP < entry < SL. Absent levels are
// skipped. An invalid level is always an error and is never adjusted.
func ValidateProtection(side types.Side, entry decimal.Decimal, sl, tp *decimal.Decimal, minDistancePct decimal.Decimal) error {
	fail := func(format string, args ...interface{}) error {
		return boterrors.NewValidationError("sltp", "validate", fmt.Sprintf(format, args...)).
			WithContext("side", string(side)).
			WithContext("entry", entry.String())
	}

	if !side.Valid() {
		return fail("unknown side %q", side)
	}
	if entry.Sign() <= 0 {
		return fail("entry price must be positive, got %s", entry)
	}

	if sl != nil {
		switch side {
		case types.SideLong:
			if !sl.LessThan(entry) {
				return fail("stop loss %s must be below entry %s for LONG", sl, entry)
			}
		case types.SideShort:
			if !sl.GreaterThan(entry) {
				return fail("stop loss %s must be above entry %s for SHORT", sl, entry)
			}
		}

		if minDistancePct.Sign() > 0 {
			distance := entry.Sub(*sl).Abs().Div(entry)
			if distance.LessThan(minDistancePct) {
				return fail("stop loss %s is %s from entry, below minimum %s", sl, distance.StringFixed(6), minDistancePct)
			}
		}
	}

	if tp != nil {
		switch side {
		case types.SideLong:
			if !tp.GreaterThan(entry) {
				return fail("take profit %s must be above entry %s for LONG", tp, entry)
			}
		case types.SideShort:
			if !tp.LessThan(entry) {
				return fail("take profit %s must be below entry %s for SHORT", tp, entry)
			}
		}
	}

	return nil
}
