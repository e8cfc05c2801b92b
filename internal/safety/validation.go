package safety

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
}

func invalid(code, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Message: fmt.Sprintf(format, args...), Code: code}
}

var valid = ValidationResult{Valid: true}

// Validator re-checks the domain invariants of incoming signals
type Validator struct {
	// MaxSignalAge rejects signals older than this. Zero disables the check.
	MaxSignalAge time.Duration
	now          func() time.Time
}

// NewValidator creates a new validator instance
func NewValidator(maxSignalAge time.Duration) *Validator {
	return &Validator{MaxSignalAge: maxSignalAge, now: time.Now}
}

// ValidateSignal runs every signal-level check and returns the first failure
func (v *Validator) ValidateSignal(sig *types.TradingSignal) ValidationResult {
	if sig == nil {
		return invalid("SIGNAL_NIL", "signal is nil")
	}
	if r := v.ValidateSymbol(sig.Symbol); !r.Valid {
		return r
	}
	if !sig.Side.Valid() {
		return invalid("SIDE_INVALID", "side %q must be LONG or SHORT", sig.Side)
	}
	if r := v.ValidatePercentageRange(sig.Confidence, 0, 1, "confidence"); !r.Valid {
		return r
	}
	if sig.EntryPriceHint != nil {
		if r := v.ValidatePrice(*sig.EntryPriceHint, sig.Symbol); !r.Valid {
			return r
		}
	}
	if sig.SuggestedQuantity != nil {
		if r := v.ValidateQuantity(*sig.SuggestedQuantity, sig.Symbol); !r.Valid {
			return r
		}
	}
	for name, p := range map[string]*decimal.Decimal{"stop loss": sig.StopLoss, "take profit": sig.TakeProfit} {
		if p != nil && p.Sign() <= 0 {
			return invalid("PROTECTION_NOT_POSITIVE", "%s %s for %s must be positive", name, p, sig.Symbol)
		}
	}
	if !sig.CreatedAt.IsZero() {
		if r := v.ValidateTimestamp(sig.CreatedAt, "signal"); !r.Valid {
			return r
		}
	}
	return valid
}

// ValidatePrice validates a price value for trading
func (v *Validator) ValidatePrice(price decimal.Decimal, symbol string) ValidationResult {
	if price.Sign() <= 0 {
		return invalid("INVALID_PRICE_NEGATIVE", "invalid price %s for %s: price must be positive", price, symbol)
	}
	// Reject obvious data errors
	if price.GreaterThan(decimal.New(1, 10)) {
		return invalid("PRICE_OUT_OF_BOUNDS", "suspicious price %s for %s: exceeds reasonable bounds", price, symbol)
	}
	return valid
}

// ValidateQuantity validates a quantity value for trading
func (v *Validator) ValidateQuantity(quantity decimal.Decimal, symbol string) ValidationResult {
	if quantity.Sign() <= 0 {
		return invalid("INVALID_QUANTITY_NEGATIVE", "invalid quantity %s for %s: quantity must be positive", quantity, symbol)
	}
	if quantity.GreaterThan(decimal.New(1, 9)) {
		return invalid("QUANTITY_OUT_OF_BOUNDS", "suspicious quantity %s for %s: exceeds reasonable bounds", quantity, symbol)
	}
	return valid
}

// ValidateSymbol validates a trading symbol format
func (v *Validator) ValidateSymbol(symbol string) ValidationResult {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return invalid("SYMBOL_EMPTY", "symbol cannot be empty")
	}
	if len(symbol) < 3 {
		return invalid("SYMBOL_TOO_SHORT", "symbol '%s' too short: minimum 3 characters required", symbol)
	}
	if len(symbol) > 20 {
		return invalid("SYMBOL_TOO_LONG", "symbol '%s' too long: maximum 20 characters allowed", symbol)
	}
	for _, char := range symbol {
		if !((char >= 'A' && char <= 'Z') || (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
			return invalid("SYMBOL_INVALID_CHARS", "symbol '%s' contains invalid characters: only alphanumeric allowed", symbol)
		}
	}
	return valid
}

// ValidateTimestamp rejects timestamps from the future and, when configured, stale ones
func (v *Validator) ValidateTimestamp(timestamp time.Time, context string) ValidationResult {
	now := v.now()
	if timestamp.After(now.Add(time.Minute)) {
		return invalid("TIMESTAMP_FUTURE", "%s timestamp %s is in the future", context, timestamp.Format(time.RFC3339))
	}
	if v.MaxSignalAge > 0 && now.Sub(timestamp) > v.MaxSignalAge {
		return invalid("TIMESTAMP_STALE", "%s is %s old, older than %s", context, now.Sub(timestamp).Round(time.Second), v.MaxSignalAge)
	}
	return valid
}

// ValidatePercentageRange validates a fraction is within expected bounds
func (v *Validator) ValidatePercentageRange(percentage float64, min, max float64, context string) ValidationResult {
	if math.IsNaN(percentage) || math.IsInf(percentage, 0) {
		return invalid("PERCENTAGE_NAN", "%s is not a finite number", context)
	}
	if percentage < min {
		return invalid("PERCENTAGE_BELOW_MIN", "%s %.4f below minimum %.4f", context, percentage, min)
	}
	if percentage > max {
		return invalid("PERCENTAGE_ABOVE_MAX", "%s %.4f above maximum %.4f", context, percentage, max)
	}
	return valid
}
