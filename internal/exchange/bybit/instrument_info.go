package bybit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// InstrumentInfo represents the trading filters of a derivatives instrument
type InstrumentInfo struct {
	Symbol         string `json:"symbol"`
	Status         string `json:"status"`
	BaseCoin       string `json:"baseCoin"`
	QuoteCoin      string `json:"quoteCoin"`
	ContractType   string `json:"contractType"`
	LeverageFilter struct {
		MinLeverage  string `json:"minLeverage"`
		MaxLeverage  string `json:"maxLeverage"`
		LeverageStep string `json:"leverageStep"`
	} `json:"leverageFilter"`
	PriceFilter struct {
		MinPrice string `json:"minPrice"`
		MaxPrice string `json:"maxPrice"`
		TickSize string `json:"tickSize"`
	} `json:"priceFilter"`
	LotSizeFilter struct {
		MinNotionalValue string `json:"minNotionalValue"`
		MaxOrderQty      string `json:"maxOrderQty"`
		MaxMktOrderQty   string `json:"maxMktOrderQty"`
		MinOrderQty      string `json:"minOrderQty"`
		QtyStep          string `json:"qtyStep"`
	} `json:"lotSizeFilter"`
}

// Spec converts the filters into the engine's instrument spec
func (ii *InstrumentInfo) Spec() *types.InstrumentSpec {
	spec := &types.InstrumentSpec{
		Symbol:      ii.Symbol,
		QtyStep:     parseDecimal(ii.LotSizeFilter.QtyStep),
		TickSize:    parseDecimal(ii.PriceFilter.TickSize),
		MinOrderQty: parseDecimal(ii.LotSizeFilter.MinOrderQty),
		MaxOrderQty: parseDecimal(ii.LotSizeFilter.MaxOrderQty),
		MinNotional: parseDecimal(ii.LotSizeFilter.MinNotionalValue),
		MaxLeverage: parseInt(ii.LeverageFilter.MaxLeverage),
	}
	// Market orders have a tighter ceiling on Bybit
	if mkt := parseDecimal(ii.LotSizeFilter.MaxMktOrderQty); mkt.IsPositive() &&
		(spec.MaxOrderQty.IsZero() || mkt.LessThan(spec.MaxOrderQty)) {
		spec.MaxOrderQty = mkt
	}
	return spec
}

type cachedInstrument struct {
	info      *InstrumentInfo
	fetchedAt time.Time
}

// InstrumentManager caches instrument filters per symbol
type InstrumentManager struct {
	client         *Client
	instruments    map[string]cachedInstrument
	mutex          sync.RWMutex
	updateInterval time.Duration
	now            func() time.Time
}

// NewInstrumentManager creates a new instrument manager
func NewInstrumentManager(client *Client) *InstrumentManager {
	return &InstrumentManager{
		client:         client,
		instruments:    make(map[string]cachedInstrument),
		updateInterval: 1 * time.Hour, // Update every hour
		now:            time.Now,
	}
}

// GetInstrumentInfo retrieves and caches instrument information
func (im *InstrumentManager) GetInstrumentInfo(ctx context.Context, symbol string) (*InstrumentInfo, error) {
	symbol = strings.ToUpper(symbol)

	im.mutex.RLock()
	cached, exists := im.instruments[symbol]
	im.mutex.RUnlock()
	if exists && im.now().Sub(cached.fetchedAt) < im.updateInterval {
		return cached.info, nil
	}

	params := map[string]interface{}{
		"category": im.client.category,
		"symbol":   symbol,
	}
	result, err := im.client.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instrument info: %w", err)
	}

	info, err := parseInstrumentInfo(result, symbol)
	if err != nil {
		return nil, err
	}

	im.Store(info)
	return info, nil
}

// GetSpec returns the engine spec for a symbol
func (im *InstrumentManager) GetSpec(ctx context.Context, symbol string) (*types.InstrumentSpec, error) {
	info, err := im.GetInstrumentInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return info.Spec(), nil
}

// Store puts an instrument into the cache
func (im *InstrumentManager) Store(info *InstrumentInfo) {
	im.mutex.Lock()
	im.instruments[strings.ToUpper(info.Symbol)] = cachedInstrument{info: info, fetchedAt: im.now()}
	im.mutex.Unlock()
}

// RefreshInstruments clears the instrument cache
func (im *InstrumentManager) RefreshInstruments() {
	im.mutex.Lock()
	im.instruments = make(map[string]cachedInstrument)
	im.mutex.Unlock()
}

// IsInstrumentCached checks if an instrument is cached
func (im *InstrumentManager) IsInstrumentCached(symbol string) bool {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	_, exists := im.instruments[strings.ToUpper(symbol)]
	return exists
}

func parseInstrumentInfo(response interface{}, targetSymbol string) (*InstrumentInfo, error) {
	var instrumentResult struct {
		Category string           `json:"category"`
		List     []InstrumentInfo `json:"list"`
	}
	if err := decodeResult(response, &instrumentResult); err != nil {
		return nil, err
	}

	for i := range instrumentResult.List {
		if strings.EqualFold(instrumentResult.List[i].Symbol, targetSymbol) {
			return &instrumentResult.List[i], nil
		}
	}
	return nil, NewBybitError(ErrCodeSymbolNotFound, fmt.Sprintf("instrument %s not found", targetSymbol))
}

// GetInstrumentSpec returns the cached engine spec for a symbol
func (c *Client) GetInstrumentSpec(ctx context.Context, symbol string) (*types.InstrumentSpec, error) {
	return c.instruments.GetSpec(ctx, symbol)
}
