package adapters

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/futures-executor/internal/exchange"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// Factory creates gateways based on configuration
type Factory struct {
	log zerolog.Logger

	// PaperMode is the position mode the paper gateway reports
	PaperMode types.PositionMode
}

// NewFactory creates a new gateway factory instance
func NewFactory(log zerolog.Logger) *Factory {
	return &Factory{log: log, PaperMode: types.PositionModeOneWay}
}

// CreateGateway creates a gateway for the configured exchange
func (f *Factory) CreateGateway(config exchange.ExchangeConfig) (exchange.Gateway, error) {
	if err := exchange.ValidateConfig(config); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(config.Name)) {
	case "bybit":
		return NewBybitAdapter(config.Bybit, f.log)
	case "paper":
		return exchange.NewPaperGateway(f.PaperMode), nil
	default:
		// ValidateConfig rejects unknown names
		return nil, fmt.Errorf("exchange %q is not supported", config.Name)
	}
}
