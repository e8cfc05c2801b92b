package bybit

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// GetLatestPrice gets the last traded price for a symbol
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get latest price: %w", err)
	}
	return parseLatestPrice(result, symbol)
}

func parseLatestPrice(response interface{}, symbol string) (decimal.Decimal, error) {
	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
			MarkPrice string `json:"markPrice"`
		} `json:"list"`
	}
	if err := decodeResult(response, &tickerResult); err != nil {
		return decimal.Zero, err
	}

	for _, t := range tickerResult.List {
		if !strings.EqualFold(t.Symbol, symbol) {
			continue
		}
		price := parseDecimal(t.LastPrice)
		if !price.IsPositive() {
			price = parseDecimal(t.MarkPrice)
		}
		if !price.IsPositive() {
			return decimal.Zero, fmt.Errorf("no usable price for %s", symbol)
		}
		return price, nil
	}
	return decimal.Zero, NewBybitError(ErrCodeSymbolNotFound, fmt.Sprintf("ticker %s not found", symbol))
}
