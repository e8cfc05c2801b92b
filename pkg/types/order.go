package types

import "github.com/shopspring/decimal"

type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// TpslMode controls whether protective legs close the whole position or staged fractions.
type TpslMode string

const (
	TpslModeFull    TpslMode = "Full"
	TpslModePartial TpslMode = "Partial"
)

// TPLevel is one rung of a staged take-profit ladder.
type TPLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Fraction decimal.Decimal
}

// OrderRequest is built once per signal and never mutated afterwards.
// ClientOrderID is stable across transport retries so the exchange can deduplicate.
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          Side
	OrderType     OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	EntryPrice    decimal.Decimal
	PositionIndex PositionIndex
	Leverage      int
	StopLoss      *decimal.Decimal
	TakeProfit    *decimal.Decimal
	TpslMode      TpslMode
	SlOrderType   OrderType
	TpOrderType   OrderType
	TPLevels      []TPLevel
}

// Notional is quantity times the reference entry price.
func (r *OrderRequest) Notional() decimal.Decimal {
	return r.Quantity.Mul(r.EntryPrice)
}

// HasProtection reports whether any protective leg is attached.
func (r *OrderRequest) HasProtection() bool {
	return r.StopLoss != nil || r.TakeProfit != nil || len(r.TPLevels) > 0
}
