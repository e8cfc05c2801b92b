package exchange

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

func TestPaperGateway(t *testing.T) {
	ctx := context.Background()
	gw := NewPaperGateway(types.PositionModeHedge)

	mode, err := gw.GetPositionMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.PositionModeHedge, mode)

	require.NoError(t, gw.SetLeverage(ctx, "btcusdt", types.SideLong, 5))
	assert.Equal(t, 5, gw.Leverage("BTCUSDT", types.SideLong))

	ack, err := gw.SubmitOrder(ctx, &types.OrderRequest{ClientOrderID: "abc", Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, "abc", ack.ClientOrderID)
	assert.NotEmpty(t, ack.OrderID)
	assert.Len(t, gw.Orders(), 1)

	_, err = gw.GetLatestPrice(ctx, "ETHUSDT")
	assert.Error(t, err)
	gw.SetPrice("ETHUSDT", decimal.NewFromInt(3000))
	price, err := gw.GetLatestPrice(ctx, "ethusdt")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(3000)))
}

func TestPaperGatewayHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := NewPaperGateway(types.PositionModeOneWay)
	_, err := gw.SubmitOrder(ctx, &types.OrderRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	transient := Classify(&ExchangeError{Code: "10006", Message: "rate limit", IsRetryable: true}, "bybit", "submit")
	assert.True(t, IsTransient(transient))
	assert.False(t, IsRejection(transient))

	rejected := Classify(&ExchangeError{Code: "110007", Message: "insufficient balance"}, "bybit", "submit")
	assert.True(t, IsRejection(rejected))
	assert.False(t, IsTransient(rejected))

	assert.Nil(t, Classify(nil, "bybit", "submit"))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ExchangeConfig
		wantErr bool
	}{
		{"paper", ExchangeConfig{Name: "paper"}, false},
		{"bybit ok", ExchangeConfig{Name: "Bybit", Bybit: &BybitConfig{APIKey: "k", APISecret: "s"}}, false},
		{"bybit no creds", ExchangeConfig{Name: "bybit", Bybit: &BybitConfig{}}, true},
		{"bybit no config", ExchangeConfig{Name: "bybit"}, true},
		{"missing name", ExchangeConfig{}, true},
		{"unsupported", ExchangeConfig{Name: "binance"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
