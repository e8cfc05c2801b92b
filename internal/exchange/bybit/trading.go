package bybit

import (
	"context"
	"fmt"
	"time"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// OrderType represents the type of an order
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// TimeInForce represents how long an order remains active
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good Till Cancelled
	TimeInForceIOC TimeInForce = "IOC" // Immediate Or Cancel
)

// TpslMode selects whether TP/SL cover the whole position or a given size
type TpslMode string

const (
	TpslModeFull    TpslMode = "Full"
	TpslModePartial TpslMode = "Partial"
)

// Order is the acknowledgement returned by order create. OrderStatus is only
// filled by order queries.
type Order struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	OrderStatus string `json:"orderStatus,omitempty"`
}

// FuturesOrderParams holds parameters for placing derivatives orders
type FuturesOrderParams struct {
	Category     string      `json:"category"`                 // "linear", "inverse"
	Symbol       string      `json:"symbol"`                   // Trading pair symbol
	Side         OrderSide   `json:"side"`                     // Buy or Sell
	OrderType    OrderType   `json:"orderType"`                // Market or Limit
	Qty          string      `json:"qty"`                      // Order quantity
	Price        string      `json:"price,omitempty"`          // Price for limit orders
	TimeInForce  TimeInForce `json:"timeInForce,omitempty"`    // GTC, IOC
	OrderLinkID  string      `json:"orderLinkId,omitempty"`    // Client order ID, max 36 chars
	PositionIdx  int         `json:"positionIdx"`              // 0: one-way, 1: hedge buy, 2: hedge sell
	TakeProfit   string      `json:"takeProfit,omitempty"`     // Take profit trigger price
	StopLoss     string      `json:"stopLoss,omitempty"`       // Stop loss trigger price
	TpslMode     TpslMode    `json:"tpslMode,omitempty"`       // Full or Partial
	TpOrderType  OrderType   `json:"tpOrderType,omitempty"`    // Market or Limit (Partial only)
	SlOrderType  OrderType   `json:"slOrderType,omitempty"`    // Market or Limit (Partial only)
	TpLimitPrice string      `json:"tpLimitPrice,omitempty"`   // Required for Limit TP
	SlLimitPrice string      `json:"slLimitPrice,omitempty"`   // Required for Limit SL
	TpTriggerBy  string      `json:"tpTriggerBy,omitempty"`    // TP trigger price type
	SlTriggerBy  string      `json:"slTriggerBy,omitempty"`    // SL trigger price type
	ReduceOnly   bool        `json:"reduceOnly,omitempty"`     // Reduce only flag
}

const maxOrderLinkIDLen = 36

// toAPIParams validates the params and renders the request map
func (p FuturesOrderParams) toAPIParams() (map[string]interface{}, error) {
	if p.Category == "" {
		p.Category = CategoryLinear
	}
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if p.Side == "" {
		return nil, fmt.Errorf("side is required")
	}
	if p.OrderType == "" {
		return nil, fmt.Errorf("orderType is required")
	}
	if p.Qty == "" {
		return nil, fmt.Errorf("qty is required")
	}
	if p.OrderType == OrderTypeLimit && p.Price == "" {
		return nil, fmt.Errorf("price is required for limit orders")
	}
	if len(p.OrderLinkID) > maxOrderLinkIDLen {
		return nil, fmt.Errorf("orderLinkId exceeds %d characters", maxOrderLinkIDLen)
	}
	if p.TpOrderType == OrderTypeLimit && p.TakeProfit != "" && p.TpLimitPrice == "" {
		return nil, fmt.Errorf("tpLimitPrice is required for limit take profit")
	}

	if p.OrderType == OrderTypeLimit && p.TimeInForce == "" {
		p.TimeInForce = TimeInForceGTC
	}

	apiParams := map[string]interface{}{
		"category":    p.Category,
		"symbol":      p.Symbol,
		"side":        string(p.Side),
		"orderType":   string(p.OrderType),
		"qty":         p.Qty,
		"positionIdx": p.PositionIdx,
	}

	if p.Price != "" {
		apiParams["price"] = p.Price
	}
	if p.TimeInForce != "" {
		apiParams["timeInForce"] = string(p.TimeInForce)
	}
	if p.OrderLinkID != "" {
		apiParams["orderLinkId"] = p.OrderLinkID
	}
	if p.ReduceOnly {
		apiParams["reduceOnly"] = true
	}

	if p.TakeProfit == "" && p.StopLoss == "" {
		return apiParams, nil
	}

	if p.TpslMode != "" {
		apiParams["tpslMode"] = string(p.TpslMode)
	}
	if p.TakeProfit != "" {
		apiParams["takeProfit"] = p.TakeProfit
		if p.TpTriggerBy != "" {
			apiParams["tpTriggerBy"] = p.TpTriggerBy
		}
	}
	if p.StopLoss != "" {
		apiParams["stopLoss"] = p.StopLoss
		if p.SlTriggerBy != "" {
			apiParams["slTriggerBy"] = p.SlTriggerBy
		}
	}
	// Order types are only accepted in Partial mode; Full always uses Market
	if p.TpslMode == TpslModePartial {
		if p.TakeProfit != "" && p.TpOrderType != "" {
			apiParams["tpOrderType"] = string(p.TpOrderType)
			if p.TpLimitPrice != "" {
				apiParams["tpLimitPrice"] = p.TpLimitPrice
			}
		}
		if p.StopLoss != "" && p.SlOrderType != "" {
			apiParams["slOrderType"] = string(p.SlOrderType)
			if p.SlLimitPrice != "" {
				apiParams["slLimitPrice"] = p.SlLimitPrice
			}
		}
	}

	return apiParams, nil
}

// PlaceFuturesOrder places a derivatives order with attached TP/SL
func (c *Client) PlaceFuturesOrder(ctx context.Context, params FuturesOrderParams) (*Order, error) {
	if params.Category == "" {
		params.Category = c.category
	}
	apiParams, err := params.toAPIParams()
	if err != nil {
		return nil, NewBybitError(ErrCodeInvalidParameter, err.Error(), "local validation")
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place futures order: %w", err)
	}

	var order Order
	if err := decodeResult(result, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByLinkID finds an order by client id, looking at open orders first
// and then at order history. A missing order is ErrCodeOrderNotFound.
func (c *Client) GetOrderByLinkID(ctx context.Context, symbol, orderLinkID string) (*Order, error) {
	params := map[string]interface{}{
		"category":    c.category,
		"symbol":      symbol,
		"orderLinkId": orderLinkID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}
	order, err := parseOrderList(result)
	if err != nil || order != nil {
		return order, err
	}

	result, err = c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	order, err = parseOrderList(result)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, NewBybitError(ErrCodeOrderNotFound, "order not found", orderLinkID)
	}
	return order, nil
}

func parseOrderList(response interface{}) (*Order, error) {
	var list struct {
		List []Order `json:"list"`
	}
	if err := decodeResult(response, &list); err != nil {
		return nil, err
	}
	if len(list.List) == 0 {
		return nil, nil
	}
	return &list.List[0], nil
}

// SetLeverage sets buy and sell leverage for a symbol. A "not modified"
// response counts as success since the leverage is already in effect.
func (c *Client) SetLeverage(ctx context.Context, symbol, buyLeverage, sellLeverage string) error {
	params := map[string]interface{}{
		"category":     c.category,
		"symbol":       symbol,
		"buyLeverage":  buyLeverage,
		"sellLeverage": sellLeverage,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
	if err != nil {
		return fmt.Errorf("failed to set leverage: %w", err)
	}

	if err := decodeResult(result, nil); err != nil && !IsLeverageNotModified(err) {
		return err
	}
	return nil
}

// TradingStopParams sets TP/SL on an open position. In Partial mode
// TpSize limits the take profit to part of the position.
type TradingStopParams struct {
	Symbol       string
	PositionIdx  int
	TpslMode     TpslMode
	TakeProfit   string
	StopLoss     string
	TpSize       string
	SlSize       string
	TpOrderType  OrderType
	TpLimitPrice string
}

func (p TradingStopParams) toAPIParams(category string) (map[string]interface{}, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if p.TakeProfit == "" && p.StopLoss == "" {
		return nil, fmt.Errorf("takeProfit or stopLoss is required")
	}
	mode := p.TpslMode
	if mode == "" {
		mode = TpslModeFull
	}
	if mode == TpslModePartial && p.TakeProfit != "" && p.TpSize == "" {
		return nil, fmt.Errorf("tpSize is required in partial mode")
	}

	params := map[string]interface{}{
		"category":    category,
		"symbol":      p.Symbol,
		"positionIdx": p.PositionIdx,
		"tpslMode":    string(mode),
	}
	if p.TakeProfit != "" {
		params["takeProfit"] = p.TakeProfit
	}
	if p.StopLoss != "" {
		params["stopLoss"] = p.StopLoss
	}
	if mode == TpslModePartial {
		if p.TpSize != "" {
			params["tpSize"] = p.TpSize
		}
		if p.SlSize != "" {
			params["slSize"] = p.SlSize
		}
		if p.TpOrderType != "" {
			params["tpOrderType"] = string(p.TpOrderType)
			if p.TpOrderType == OrderTypeLimit {
				limit := p.TpLimitPrice
				if limit == "" {
					limit = p.TakeProfit
				}
				params["tpLimitPrice"] = limit
			}
		}
	}
	return params, nil
}

// SetTradingStop sets take profit and stop loss for a position
func (c *Client) SetTradingStop(ctx context.Context, params TradingStopParams) error {
	apiParams, err := params.toAPIParams(c.category)
	if err != nil {
		return NewBybitError(ErrCodeInvalidParameter, err.Error(), "local validation")
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).SetPositionTradingStop(ctx)
	if err != nil {
		return fmt.Errorf("failed to set trading stop: %w", err)
	}
	return decodeResult(result, nil)
}

// PositionInfo represents a derivatives position slot
type PositionInfo struct {
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Size        string    `json:"size"`
	AvgPrice    string    `json:"avgPrice"`
	Leverage    string    `json:"leverage"`
	TakeProfit  string    `json:"takeProfit"`
	StopLoss    string    `json:"stopLoss"`
	PositionIdx int       `json:"positionIdx"`
	UpdatedTime time.Time `json:"-"`
}

// GetPositions retrieves positions. Bybit lists one entry per slot, so
// hedge mode accounts report positionIdx 1 and 2.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]PositionInfo, error) {
	params := map[string]interface{}{
		"category": c.category,
	}
	if symbol != "" {
		params["symbol"] = symbol
	} else {
		params["settleCoin"] = "USDT"
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	return parsePositions(result)
}

func parsePositions(response interface{}) ([]PositionInfo, error) {
	var positionResult struct {
		List []struct {
			PositionInfo
			UpdatedTime string `json:"updatedTime"`
		} `json:"list"`
	}
	if err := decodeResult(response, &positionResult); err != nil {
		return nil, err
	}

	positions := make([]PositionInfo, 0, len(positionResult.List))
	for _, item := range positionResult.List {
		pos := item.PositionInfo
		pos.UpdatedTime = parseTimestamp(item.UpdatedTime)
		positions = append(positions, pos)
	}
	return positions, nil
}
