// Package exchangetest provides a scriptable exchange gateway for tests.
package exchangetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-executor/internal/exchange"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// SubmitOutcome scripts one SubmitOrder call. A nil Err with a nil Ack accepts.
type SubmitOutcome struct {
	Ack *exchange.OrderAck
	Err error
}

// Gateway is an in-memory exchange.Gateway with scripted outcomes.
type Gateway struct {
	mu sync.Mutex

	Mode        types.PositionMode
	ModeErr     error
	LeverageErr func(symbol string, side types.Side) error
	Specs       map[string]*types.InstrumentSpec
	SpecErr     error
	Prices      map[string]decimal.Decimal

	// Block, when set, holds SubmitOrder until it is closed or the context ends.
	Block chan struct{}
	// Entered receives one value per SubmitOrder call before it blocks.
	Entered chan struct{}

	outcomes      []SubmitOutcome
	leverageCalls []LeverageCall
	submitted     []types.OrderRequest
	submitCalls   int
}

type LeverageCall struct {
	Symbol   string
	Side     types.Side
	Leverage int
}

func New(mode types.PositionMode) *Gateway {
	return &Gateway{
		Mode:   mode,
		Specs:  make(map[string]*types.InstrumentSpec),
		Prices: make(map[string]decimal.Decimal),
	}
}

// Script queues outcomes for consecutive SubmitOrder calls.
func (g *Gateway) Script(outcomes ...SubmitOutcome) {
	g.mu.Lock()
	g.outcomes = append(g.outcomes, outcomes...)
	g.mu.Unlock()
}

func (g *Gateway) GetName() string { return "fake" }

func (g *Gateway) SetLeverage(ctx context.Context, symbol string, side types.Side, leverage int) error {
	g.mu.Lock()
	g.leverageCalls = append(g.leverageCalls, LeverageCall{Symbol: symbol, Side: side, Leverage: leverage})
	fn := g.LeverageErr
	g.mu.Unlock()

	if fn != nil {
		return fn(symbol, side)
	}
	return nil
}

func (g *Gateway) SubmitOrder(ctx context.Context, req *types.OrderRequest) (*exchange.OrderAck, error) {
	g.mu.Lock()
	g.submitCalls++
	n := g.submitCalls
	g.submitted = append(g.submitted, *req)
	var out SubmitOutcome
	if len(g.outcomes) > 0 {
		out = g.outcomes[0]
		g.outcomes = g.outcomes[1:]
	}
	block, entered := g.Block, g.Entered
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if out.Err != nil {
		return nil, out.Err
	}
	if out.Ack != nil {
		return out.Ack, nil
	}
	return &exchange.OrderAck{
		OrderID:       fmt.Sprintf("fake-%d", n),
		ClientOrderID: req.ClientOrderID,
		Status:        "New",
	}, nil
}

func (g *Gateway) GetPositionMode(ctx context.Context) (types.PositionMode, error) {
	if g.ModeErr != nil {
		return "", g.ModeErr
	}
	return g.Mode, nil
}

func (g *Gateway) GetInstrumentSpec(ctx context.Context, symbol string) (*types.InstrumentSpec, error) {
	if g.SpecErr != nil {
		return nil, g.SpecErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if spec, ok := g.Specs[symbol]; ok {
		return spec, nil
	}
	return types.DefaultInstrumentSpec(symbol), nil
}

func (g *Gateway) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.Prices[symbol]; ok {
		return p, nil
	}
	return decimal.Zero, fmt.Errorf("no price for %s", symbol)
}

func (g *Gateway) LeverageCalls() []LeverageCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]LeverageCall(nil), g.leverageCalls...)
}

func (g *Gateway) Submitted() []types.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]types.OrderRequest(nil), g.submitted...)
}

func (g *Gateway) SubmitCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitCalls
}
