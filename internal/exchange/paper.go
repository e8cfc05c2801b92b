package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// PaperGateway accepts every order in process. It backs the dry-run mode.
type PaperGateway struct {
	mu       sync.Mutex
	mode     types.PositionMode
	prices   map[string]decimal.Decimal
	leverage map[string]int
	orders   []types.OrderRequest
}

func NewPaperGateway(mode types.PositionMode) *PaperGateway {
	return &PaperGateway{
		mode:     mode,
		prices:   make(map[string]decimal.Decimal),
		leverage: make(map[string]int),
	}
}

func (p *PaperGateway) GetName() string { return "paper" }

func (p *PaperGateway) SetLeverage(ctx context.Context, symbol string, side types.Side, leverage int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.leverage[strings.ToUpper(symbol)+"/"+string(side)] = leverage
	p.mu.Unlock()
	return nil
}

func (p *PaperGateway) SubmitOrder(ctx context.Context, req *types.OrderRequest) (*OrderAck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.orders = append(p.orders, *req)
	p.mu.Unlock()

	return &OrderAck{
		OrderID:       "paper-" + uuid.NewString(),
		ClientOrderID: req.ClientOrderID,
		Status:        "New",
	}, nil
}

func (p *PaperGateway) GetPositionMode(ctx context.Context) (types.PositionMode, error) {
	return p.mode, nil
}

// SetPrice seeds the reference price used when signals carry no entry hint.
func (p *PaperGateway) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	p.prices[strings.ToUpper(symbol)] = price
	p.mu.Unlock()
}

func (p *PaperGateway) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no paper price for %s", symbol)
	}
	return price, nil
}

// Leverage returns the leverage last applied to a symbol side.
func (p *PaperGateway) Leverage(symbol string, side types.Side) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leverage[strings.ToUpper(symbol)+"/"+string(side)]
}

// Orders returns a copy of every accepted request.
func (p *PaperGateway) Orders() []types.OrderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.OrderRequest(nil), p.orders...)
}
