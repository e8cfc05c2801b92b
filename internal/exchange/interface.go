package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// Gateway is the exchange capability the execution engine depends on.
// SubmitOrder errors are BotErrors of category EXCHANGE_REJECTION or TRANSPORT
// (see IsRejection and IsTransient).
type Gateway interface {
	// Exchange identification
	GetName() string

	// SetLeverage applies leverage to one side of a symbol. Best effort.
	SetLeverage(ctx context.Context, symbol string, side types.Side, leverage int) error

	// SubmitOrder transmits a fully built request exactly as given.
	SubmitOrder(ctx context.Context, req *types.OrderRequest) (*OrderAck, error)

	// GetPositionMode reports the account position mode.
	GetPositionMode(ctx context.Context) (types.PositionMode, error)
}

// InstrumentProvider is implemented by gateways that know symbol trading filters.
type InstrumentProvider interface {
	GetInstrumentSpec(ctx context.Context, symbol string) (*types.InstrumentSpec, error)
}

// PriceSource is implemented by gateways that can quote a reference price.
type PriceSource interface {
	GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// OrderAck is the exchange acknowledgement of an accepted order.
type OrderAck struct {
	OrderID       string
	ClientOrderID string
	Status        string
	// Warnings carries non-fatal follow-up failures, e.g. a ladder leg that was not placed.
	Warnings []string
}
