package adapters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/exchange"
	"github.com/ducminhle1904/futures-executor/internal/exchange/bybit"
	"github.com/ducminhle1904/futures-executor/internal/monitoring"
	"github.com/ducminhle1904/futures-executor/internal/position"
	"github.com/ducminhle1904/futures-executor/internal/safety"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

const component = "bybit_adapter"

// modeProbeSymbol is queried to detect the account position mode. Bybit
// lists both hedge slots for a named symbol even when they are empty.
const modeProbeSymbol = "BTCUSDT"

// bybitAPI is the subset of the Bybit client the adapter drives
type bybitAPI interface {
	PlaceFuturesOrder(ctx context.Context, params bybit.FuturesOrderParams) (*bybit.Order, error)
	SetLeverage(ctx context.Context, symbol, buyLeverage, sellLeverage string) error
	SetTradingStop(ctx context.Context, params bybit.TradingStopParams) error
	GetPositions(ctx context.Context, symbol string) ([]bybit.PositionInfo, error)
	GetOrderByLinkID(ctx context.Context, symbol, orderLinkID string) (*bybit.Order, error)
	GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetInstrumentSpec(ctx context.Context, symbol string) (*types.InstrumentSpec, error)
}

// BybitAdapter implements exchange.Gateway, InstrumentProvider and PriceSource for Bybit
type BybitAdapter struct {
	api      bybitAPI
	env      string
	limiter  *safety.RateLimiter
	breakers *safety.CircuitBreakerManager
	log      zerolog.Logger
}

// NewBybitAdapter creates a new Bybit adapter instance
func NewBybitAdapter(config *exchange.BybitConfig, log zerolog.Logger) (*BybitAdapter, error) {
	if config == nil {
		return nil, &exchange.ExchangeError{
			Code:    "MISSING_CONFIG",
			Message: "Bybit configuration is required",
		}
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    config.APIKey,
		APISecret: config.APISecret,
		Testnet:   config.Testnet,
		Demo:      config.Demo,
		Category:  config.Category,
	})

	a := newBybitAdapter(client, config, log)
	a.env = client.GetEnvironment()
	return a, nil
}

func newBybitAdapter(api bybitAPI, config *exchange.BybitConfig, log zerolog.Logger) *BybitAdapter {
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	failures := config.BreakerFailures
	if failures <= 0 {
		failures = 5
	}

	log = log.With().Str("component", component).Logger()
	breakers := safety.NewCircuitBreakerManager(safety.CircuitBreakerConfig{
		FailureThreshold: uint32(failures),
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
		// Only transport trouble says anything about exchange health
		IsFailure: exchange.IsTransient,
	}, func(name string, from, to safety.CircuitBreakerState) {
		monitoring.SetCircuitState(name, int(to))
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
	})

	return &BybitAdapter{
		api:      api,
		limiter:  safety.NewRateLimiter("bybit", rps, rps),
		breakers: breakers,
		log:      log,
	}
}

// GetName returns the exchange name
func (b *BybitAdapter) GetName() string {
	return "Bybit"
}

// GetEnvironment returns the current environment string
func (b *BybitAdapter) GetEnvironment() string {
	return b.env
}

// Connected reports false while any breaker is open
func (b *BybitAdapter) Connected() bool {
	return !b.breakers.HasOpenCircuits()
}

// guard runs fn behind the rate limiter and the per-operation breaker.
// fn must return classified errors so the breaker can tell transport failures apart.
func (b *BybitAdapter) guard(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return boterrors.CategorizeError(err, component, op)
	}

	err := b.breakers.GetOrCreate(op).Call(ctx, fn)
	if errors.Is(err, safety.ErrCircuitOpen) {
		return boterrors.NewTransportError(component, op, err).WithContext("code", exchange.ErrCircuitOpen.Code)
	}
	return err
}

// convertError maps client errors onto the engine taxonomy
func (b *BybitAdapter) convertError(op string, err error) error {
	if err == nil {
		return nil
	}

	var bybitErr *bybit.BybitError
	if errors.As(err, &bybitErr) {
		return exchange.Classify(&exchange.ExchangeError{
			Code:        strconv.Itoa(bybitErr.Code),
			Message:     bybitErr.Message,
			Details:     bybitErr.Details,
			IsRetryable: bybit.IsRetryableError(err),
		}, component, op)
	}
	return boterrors.CategorizeError(err, component, op)
}

// SetLeverage applies leverage for a symbol. Bybit sets both sides in one
// call, so the second side of a pair usually answers "not modified".
func (b *BybitAdapter) SetLeverage(ctx context.Context, symbol string, side types.Side, leverage int) error {
	lev := strconv.Itoa(leverage)
	return b.guard(ctx, "set_leverage", func(ctx context.Context) error {
		return b.convertError("set_leverage", b.api.SetLeverage(ctx, symbol, lev, lev))
	})
}

// SubmitOrder places the entry with its protective legs. A staged ladder is
// attached right after the entry; ladder failures become warnings.
func (b *BybitAdapter) SubmitOrder(ctx context.Context, req *types.OrderRequest) (*exchange.OrderAck, error) {
	params := toFuturesParams(req)

	var order *bybit.Order
	duplicate := false
	err := b.guard(ctx, "place_order", func(ctx context.Context) error {
		o, err := b.api.PlaceFuturesOrder(ctx, params)
		if bybit.IsDuplicateOrderLinkID(err) {
			duplicate = true
			return nil
		}
		if err != nil {
			return b.convertError("place_order", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	ack := &exchange.OrderAck{ClientOrderID: req.ClientOrderID, Status: "New"}
	if duplicate {
		// An earlier attempt reached the exchange even though its response was lost
		existing, err := b.lookupOrder(ctx, req)
		if err != nil {
			return nil, err
		}
		ack.OrderID = existing.OrderID
		if existing.OrderStatus != "" {
			ack.Status = existing.OrderStatus
		}
		ack.Warnings = append(ack.Warnings, "order "+req.ClientOrderID+" was already accepted by an earlier attempt")
	} else {
		ack.OrderID = order.OrderID
	}

	if len(req.TPLevels) > 1 {
		ack.Warnings = append(ack.Warnings, b.placeLadder(ctx, req)...)
	}
	return ack, nil
}

// lookupOrder resolves a duplicate client id to the live order. When the
// order cannot be found the outcome is unknown, which is never a rejection.
func (b *BybitAdapter) lookupOrder(ctx context.Context, req *types.OrderRequest) (*bybit.Order, error) {
	var order *bybit.Order
	err := b.guard(ctx, "order_lookup", func(ctx context.Context) error {
		o, err := b.api.GetOrderByLinkID(ctx, req.Symbol, req.ClientOrderID)
		if err != nil {
			return b.convertError("order_lookup", err)
		}
		order = o
		return nil
	})
	if err != nil {
		b.log.Error().Err(err).Str("symbol", req.Symbol).Str("client_order_id", req.ClientOrderID).Msg("duplicate client order id with unknown order state")
		return nil, boterrors.WrapError(err, boterrors.ErrorCategoryInternal, component, "place_order").
			WithMessage("duplicate client order id " + req.ClientOrderID + ", order state unknown").
			WithContext("client_order_id", req.ClientOrderID)
	}
	return order, nil
}

// placeLadder adds the partial legs below the final level. The final level
// already rides on the entry as a full-size take profit.
func (b *BybitAdapter) placeLadder(ctx context.Context, req *types.OrderRequest) []string {
	var warnings []string
	for i, level := range req.TPLevels[:len(req.TPLevels)-1] {
		stop := bybit.TradingStopParams{
			Symbol:       req.Symbol,
			PositionIdx:  int(req.PositionIndex),
			TpslMode:     bybit.TpslModePartial,
			TakeProfit:   level.Price.String(),
			TpSize:       level.Quantity.String(),
			TpOrderType:  bybit.OrderType(req.TpOrderType),
			TpLimitPrice: level.Price.String(),
		}
		err := b.guard(ctx, "trading_stop", func(ctx context.Context) error {
			return b.convertError("trading_stop", b.api.SetTradingStop(ctx, stop))
		})
		if err != nil {
			msg := fmt.Sprintf("take profit level %d at %s for %s not placed: %v", i+1, level.Price, level.Quantity, err)
			b.log.Warn().Str("symbol", req.Symbol).Str("client_order_id", req.ClientOrderID).Msg(msg)
			warnings = append(warnings, msg)
		}
	}
	return warnings
}

// toFuturesParams renders the request without changing any value in it
func toFuturesParams(req *types.OrderRequest) bybit.FuturesOrderParams {
	side := bybit.OrderSideBuy
	if req.Side == types.SideShort {
		side = bybit.OrderSideSell
	}

	params := bybit.FuturesOrderParams{
		Symbol:      req.Symbol,
		Side:        side,
		OrderType:   bybit.OrderType(req.OrderType),
		Qty:         req.Quantity.String(),
		OrderLinkID: req.ClientOrderID,
		PositionIdx: int(req.PositionIndex),
		TpslMode:    bybit.TpslMode(req.TpslMode),
		SlOrderType: bybit.OrderType(req.SlOrderType),
		TpOrderType: bybit.OrderType(req.TpOrderType),
	}
	if req.OrderType == types.OrderTypeLimit && req.Price != nil {
		params.Price = req.Price.String()
	}
	if req.StopLoss != nil {
		params.StopLoss = req.StopLoss.String()
	}

	if req.TakeProfit != nil {
		params.TakeProfit = req.TakeProfit.String()
	}

	// A staged entry is created with a full-size pair at the final level.
	// The partial legs below it go through trading-stop once the entry exists.
	if len(req.TPLevels) > 0 {
		params.TpslMode = bybit.TpslModeFull
		params.SlOrderType = ""
		params.TpOrderType = ""
		return params
	}
	if req.TpslMode == types.TpslModePartial && req.TpOrderType == types.OrderTypeLimit && params.TakeProfit != "" {
		params.TpLimitPrice = params.TakeProfit
	}
	return params
}

// GetPositionMode reports hedge mode when the exchange lists hedge slots
func (b *BybitAdapter) GetPositionMode(ctx context.Context) (types.PositionMode, error) {
	var positions []bybit.PositionInfo
	err := b.guard(ctx, "positions", func(ctx context.Context) error {
		p, err := b.api.GetPositions(ctx, modeProbeSymbol)
		if err != nil {
			return b.convertError("positions", err)
		}
		positions = p
		return nil
	})
	if err != nil {
		return "", err
	}

	indexes := make([]int, 0, len(positions))
	for _, p := range positions {
		indexes = append(indexes, p.PositionIdx)
	}
	return position.ModeFromIndexes(indexes), nil
}

// GetInstrumentSpec returns trading filters for a symbol
func (b *BybitAdapter) GetInstrumentSpec(ctx context.Context, symbol string) (*types.InstrumentSpec, error) {
	var spec *types.InstrumentSpec
	err := b.guard(ctx, "instrument_info", func(ctx context.Context) error {
		s, err := b.api.GetInstrumentSpec(ctx, symbol)
		if err != nil {
			return b.convertError("instrument_info", err)
		}
		spec = s
		return nil
	})
	return spec, err
}

// GetLatestPrice retrieves the latest price for a symbol
func (b *BybitAdapter) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := b.guard(ctx, "ticker", func(ctx context.Context) error {
		p, err := b.api.GetLatestPrice(ctx, symbol)
		if err != nil {
			return b.convertError("ticker", err)
		}
		price = p
		return nil
	})
	return price, err
}
