package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

const (
	CategoryLinear  = "linear"
	CategoryInverse = "inverse"

	demoBaseURL = "https://api-demo.bybit.com"
)

// Client wraps the Bybit V5 API client for derivatives execution
type Client struct {
	httpClient  *bybit_api.Client
	instruments *InstrumentManager
	category    string
	testnet     bool
	demo        bool
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool   // Demo trading environment
	Category  string // linear (default) or inverse
	BaseURL   string // overrides the environment URL
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		switch {
		case config.Demo:
			// Demo trading environment (paper trading)
			baseURL = demoBaseURL
		case config.Testnet:
			baseURL = bybit_api.TESTNET
		default:
			baseURL = bybit_api.MAINNET
		}
	}

	category := config.Category
	if category == "" {
		category = CategoryLinear
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	c := &Client{
		httpClient: httpClient,
		category:   category,
		testnet:    config.Testnet,
		demo:       config.Demo,
	}
	c.instruments = NewInstrumentManager(c)
	return c
}

// Category returns the product category orders are placed in
func (c *Client) Category() string {
	return c.category
}

// Instruments returns the instrument cache
func (c *Client) Instruments() *InstrumentManager {
	return c.instruments
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.demo {
		return "demo"
	} else if c.testnet {
		return "testnet"
	}
	return "mainnet"
}
