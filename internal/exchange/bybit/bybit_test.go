package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuturesOrderParams(t *testing.T) {
	t.Run("full mode omits order types", func(t *testing.T) {
		p := FuturesOrderParams{
			Symbol:      "BTCUSDT",
			Side:        OrderSideSell,
			OrderType:   OrderTypeMarket,
			Qty:         "0.008",
			OrderLinkID: "4b6f6a1e-8a47-4c5e-9a3c-3f1d2e6b7c8d",
			PositionIdx: 2,
			TakeProfit:  "113680",
			StopLoss:    "119480",
			TpslMode:    TpslModeFull,
			TpOrderType: OrderTypeMarket,
			SlOrderType: OrderTypeMarket,
		}
		got, err := p.toAPIParams()
		require.NoError(t, err)
		assert.Equal(t, "linear", got["category"])
		assert.Equal(t, 2, got["positionIdx"])
		assert.Equal(t, "Full", got["tpslMode"])
		assert.Equal(t, "113680", got["takeProfit"])
		assert.Equal(t, "119480", got["stopLoss"])
		assert.NotContains(t, got, "tpOrderType")
		assert.NotContains(t, got, "price")
	})

	t.Run("partial limit take profit", func(t *testing.T) {
		p := FuturesOrderParams{
			Symbol:       "ETHUSDT",
			Side:         OrderSideBuy,
			OrderType:    OrderTypeLimit,
			Qty:          "1",
			Price:        "2500",
			StopLoss:     "2450",
			TakeProfit:   "2575",
			TpLimitPrice: "2575",
			TpslMode:     TpslModePartial,
			TpOrderType:  OrderTypeLimit,
			SlOrderType:  OrderTypeMarket,
		}
		got, err := p.toAPIParams()
		require.NoError(t, err)
		assert.Equal(t, "GTC", got["timeInForce"])
		assert.Equal(t, "Partial", got["tpslMode"])
		assert.Equal(t, "Limit", got["tpOrderType"])
		assert.Equal(t, "2575", got["tpLimitPrice"])
		assert.Equal(t, "Market", got["slOrderType"])
		assert.Equal(t, 0, got["positionIdx"])
	})

	t.Run("no protection omits tpsl mode", func(t *testing.T) {
		got, err := FuturesOrderParams{Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeMarket, Qty: "1", TpslMode: TpslModeFull}.toAPIParams()
		require.NoError(t, err)
		assert.NotContains(t, got, "tpslMode")
	})

	errCases := []struct {
		name string
		p    FuturesOrderParams
	}{
		{"missing symbol", FuturesOrderParams{Side: OrderSideBuy, OrderType: OrderTypeMarket, Qty: "1"}},
		{"missing qty", FuturesOrderParams{Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeMarket}},
		{"limit without price", FuturesOrderParams{Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeLimit, Qty: "1"}},
		{"long link id", FuturesOrderParams{Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeMarket, Qty: "1", OrderLinkID: "0123456789012345678901234567890123456"}},
		{"limit tp without limit price", FuturesOrderParams{Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeMarket, Qty: "1", TakeProfit: "1", TpOrderType: OrderTypeLimit}},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.p.toAPIParams()
			assert.Error(t, err)
		})
	}
}

func TestTradingStopParams(t *testing.T) {
	got, err := TradingStopParams{
		Symbol:      "BTCUSDT",
		PositionIdx: 1,
		TpslMode:    TpslModePartial,
		TakeProfit:  "120000",
		TpSize:      "0.003",
		TpOrderType: OrderTypeLimit,
	}.toAPIParams("linear")
	require.NoError(t, err)
	assert.Equal(t, "0.003", got["tpSize"])
	assert.Equal(t, "120000", got["tpLimitPrice"])
	assert.Equal(t, 1, got["positionIdx"])

	_, err = TradingStopParams{Symbol: "BTCUSDT", TpslMode: TpslModePartial, TakeProfit: "1"}.toAPIParams("linear")
	assert.Error(t, err)

	_, err = TradingStopParams{Symbol: "BTCUSDT"}.toAPIParams("linear")
	assert.Error(t, err)
}

func TestDecodeResult(t *testing.T) {
	var out Order
	err := decodeResult(&bybit_api.ServerResponse{
		RetCode: 0,
		Result:  map[string]interface{}{"orderId": "abc", "orderLinkId": "link"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.OrderID)

	err = decodeResult(&bybit_api.ServerResponse{RetCode: ErrCodeInsufficientBalance, RetMsg: "ab not enough"}, &out)
	var bybitErr *BybitError
	require.ErrorAs(t, err, &bybitErr)
	assert.Equal(t, ErrCodeInsufficientBalance, bybitErr.Code)

	assert.Error(t, decodeResult("garbage", &out))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
		auth      bool
	}{
		{ErrCodeRateLimitExceeded, true, false},
		{ErrCodeServiceRestarting, true, false},
		{ErrCodeServerTimeout, true, false},
		{http.StatusBadGateway, true, false},
		{ErrCodeInsufficientBalance, false, false},
		{ErrCodeInvalidQuantity, false, false},
		{ErrCodeInvalidAPIKey, false, true},
		{ErrCodePermissionDenied, false, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewBybitError(tt.code, "x"))
			assert.Equal(t, tt.retryable, IsRetryableError(err))
			assert.Equal(t, tt.auth, IsAuthenticationError(err))
		})
	}

	assert.True(t, IsLeverageNotModified(NewBybitError(ErrCodeLeverageNotModified, "leverage not modified")))
	assert.True(t, IsDuplicateOrderLinkID(NewBybitError(ErrCodeDuplicateOrderLinkID, "OrderLinkedID is duplicate")))
	assert.False(t, IsDuplicateOrderLinkID(NewBybitError(ErrCodeInsufficientBalance, "ab not enough")))
	assert.NoError(t, ParseAPIError(0, "OK"))
}

func TestInstrumentSpec(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		Result: map[string]interface{}{
			"category": "linear",
			"list": []map[string]interface{}{
				{
					"symbol":         "BTCUSDT",
					"leverageFilter": map[string]string{"minLeverage": "1", "maxLeverage": "100.00"},
					"priceFilter":    map[string]string{"tickSize": "0.10"},
					"lotSizeFilter": map[string]string{
						"qtyStep":          "0.001",
						"minOrderQty":      "0.001",
						"maxOrderQty":      "1190",
						"maxMktOrderQty":   "119",
						"minNotionalValue": "5",
					},
				},
			},
		},
	}

	info, err := parseInstrumentInfo(resp, "btcusdt")
	require.NoError(t, err)
	spec := info.Spec()
	assert.True(t, spec.QtyStep.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, spec.TickSize.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, spec.MaxOrderQty.Equal(decimal.NewFromInt(119)))
	assert.True(t, spec.MinNotional.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 100, spec.MaxLeverage)

	_, err = parseInstrumentInfo(resp, "ETHUSDT")
	assert.Error(t, err)
}

func TestParseLatestPrice(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		Result: map[string]interface{}{
			"list": []map[string]string{{"symbol": "BTCUSDT", "lastPrice": "116580.5", "markPrice": "116579"}},
		},
	}
	price, err := parseLatestPrice(resp, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "116580.5", price.String())

	_, err = parseLatestPrice(resp, "SOLUSDT")
	assert.Error(t, err)
}

func TestParsePositions(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		Result: map[string]interface{}{
			"list": []map[string]interface{}{
				{"symbol": "BTCUSDT", "positionIdx": 1, "size": "0", "updatedTime": "1700000000000"},
				{"symbol": "BTCUSDT", "positionIdx": 2, "size": "0"},
			},
		},
	}
	positions, err := parsePositions(resp)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, 1, positions[0].PositionIdx)
	assert.Equal(t, int64(1700000000000), positions[0].UpdatedTime.UnixMilli())
	assert.Equal(t, 2, positions[1].PositionIdx)
}

// stubServer answers every V5 call with the given envelope and records request paths
func stubServer(t *testing.T, retCode int, retMsg string, result interface{}) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": retCode,
			"retMsg":  retMsg,
			"result":  result,
			"time":    1700000000000,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
}

func TestSetLeverageNotModifiedIsSuccess(t *testing.T) {
	srv, paths := stubServer(t, ErrCodeLeverageNotModified, "leverage not modified", map[string]interface{}{})
	c := NewClient(Config{APIKey: "k", APISecret: "s", BaseURL: srv.URL})

	require.NoError(t, c.SetLeverage(context.Background(), "BTCUSDT", "10", "10"))
	assert.Equal(t, []string{"/v5/position/set-leverage"}, paths())
}

func TestPlaceFuturesOrderRejected(t *testing.T) {
	srv, _ := stubServer(t, ErrCodeInsufficientBalance, "ab not enough for new order", map[string]interface{}{})
	c := NewClient(Config{APIKey: "k", APISecret: "s", BaseURL: srv.URL})

	_, err := c.PlaceFuturesOrder(context.Background(), FuturesOrderParams{
		Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeMarket, Qty: "0.001",
	})
	var bybitErr *BybitError
	require.ErrorAs(t, err, &bybitErr)
	assert.Equal(t, ErrCodeInsufficientBalance, bybitErr.Code)
	assert.False(t, IsRetryableError(err))
}

func TestPlaceFuturesOrderAccepted(t *testing.T) {
	srv, paths := stubServer(t, 0, "OK", map[string]string{"orderId": "1321003749386327552", "orderLinkId": "link-1"})
	c := NewClient(Config{APIKey: "k", APISecret: "s", BaseURL: srv.URL})

	order, err := c.PlaceFuturesOrder(context.Background(), FuturesOrderParams{
		Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeMarket, Qty: "0.001", OrderLinkID: "link-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "1321003749386327552", order.OrderID)
	assert.Equal(t, []string{"/v5/order/create"}, paths())
}

func TestGetOrderByLinkID(t *testing.T) {
	t.Run("open order", func(t *testing.T) {
		srv, paths := stubServer(t, 0, "OK", map[string]interface{}{
			"list": []map[string]string{{"orderId": "42", "orderLinkId": "link-1", "orderStatus": "New"}},
		})
		c := NewClient(Config{APIKey: "k", APISecret: "s", BaseURL: srv.URL})

		order, err := c.GetOrderByLinkID(context.Background(), "BTCUSDT", "link-1")
		require.NoError(t, err)
		assert.Equal(t, "42", order.OrderID)
		assert.Equal(t, "New", order.OrderStatus)
		assert.Equal(t, []string{"/v5/order/realtime"}, paths())
	})

	t.Run("not found anywhere", func(t *testing.T) {
		srv, paths := stubServer(t, 0, "OK", map[string]interface{}{"list": []interface{}{}})
		c := NewClient(Config{APIKey: "k", APISecret: "s", BaseURL: srv.URL})

		_, err := c.GetOrderByLinkID(context.Background(), "BTCUSDT", "link-2")
		var bybitErr *BybitError
		require.ErrorAs(t, err, &bybitErr)
		assert.Equal(t, ErrCodeOrderNotFound, bybitErr.Code)
		assert.Equal(t, []string{"/v5/order/realtime", "/v5/order/history"}, paths())
	})
}

func TestClientEnvironment(t *testing.T) {
	assert.Equal(t, "demo", NewClient(Config{Demo: true}).GetEnvironment())
	assert.Equal(t, "testnet", NewClient(Config{Testnet: true}).GetEnvironment())
	assert.Equal(t, "mainnet", NewClient(Config{}).GetEnvironment())
	assert.Equal(t, CategoryLinear, NewClient(Config{}).Category())
}
