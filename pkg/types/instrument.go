package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentSpec carries the exchange trading filters for a symbol.
type InstrumentSpec struct {
	Symbol      string
	QtyStep     decimal.Decimal
	TickSize    decimal.Decimal
	MinOrderQty decimal.Decimal
	MaxOrderQty decimal.Decimal
	MinNotional decimal.Decimal
	MaxLeverage int
}

// DefaultInstrumentSpec is used when no instrument provider is available.
func DefaultInstrumentSpec(symbol string) *InstrumentSpec {
	return &InstrumentSpec{
		Symbol:      symbol,
		QtyStep:     decimal.New(1, -3),
		TickSize:    decimal.New(1, -2),
		MinOrderQty: decimal.New(1, -3),
		MaxOrderQty: decimal.Zero,
		MinNotional: decimal.Zero,
	}
}

type Ticker struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}
