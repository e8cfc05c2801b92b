package exchange

import (
	"fmt"
	"strings"
)

// ExchangeConfig holds configuration for creating gateway instances
type ExchangeConfig struct {
	Name  string       `json:"name"`            // bybit or paper
	Bybit *BybitConfig `json:"bybit,omitempty"` // Bybit-specific config
}

// BybitConfig holds Bybit-specific configuration
type BybitConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Testnet   bool   `json:"testnet"` // Use testnet infrastructure
	Demo      bool   `json:"demo"`    // Use demo trading (paper trading)
	Category  string `json:"category"`

	// Client-side protection
	RequestsPerSecond int `json:"requests_per_second"`
	BreakerFailures   int `json:"breaker_failures"`
}

// SupportedExchanges lists the gateway names NewGateway accepts
func SupportedExchanges() []string {
	return []string{"bybit", "paper"}
}

// ValidateConfig validates the exchange configuration
func ValidateConfig(config ExchangeConfig) error {
	name := strings.ToLower(strings.TrimSpace(config.Name))
	switch name {
	case "":
		return &ExchangeError{Code: "MISSING_EXCHANGE_NAME", Message: "Exchange name is required"}
	case "paper":
		return nil
	case "bybit":
		if config.Bybit == nil {
			return &ExchangeError{Code: "MISSING_CONFIG", Message: "Bybit configuration is required"}
		}
		if config.Bybit.APIKey == "" || config.Bybit.APISecret == "" {
			return &ExchangeError{
				Code:    "MISSING_CREDENTIALS",
				Message: "Bybit API credentials are required",
				Details: "set BYBIT_API_KEY and BYBIT_API_SECRET",
			}
		}
		return nil
	default:
		return &ExchangeError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("Exchange '%s' is not supported", config.Name),
			Details: "Supported exchanges: " + strings.Join(SupportedExchanges(), ", "),
		}
	}
}
