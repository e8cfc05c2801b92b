package bybit

import (
	"errors"
	"fmt"
	"net/http"
)

// BybitError represents a Bybit API error with additional context
type BybitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *BybitError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Bybit API error %d: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Common Bybit V5 error codes
const (
	ErrCodeServerTimeout          = 10000
	ErrCodeInvalidParameter       = 10001
	ErrCodeInvalidTimestamp       = 10002
	ErrCodeInvalidAPIKey          = 10003
	ErrCodeInvalidSignature       = 10004
	ErrCodePermissionDenied       = 10005
	ErrCodeRateLimitExceeded      = 10006
	ErrCodeServiceRestarting      = 10016
	ErrCodeOrderNotFound          = 110001
	ErrCodeInvalidOrderType       = 110004
	ErrCodeInsufficientBalance    = 110007
	ErrCodeSymbolNotFound         = 110009
	ErrCodeInvalidQuantity        = 110020
	ErrCodeInvalidPrice           = 110021
	ErrCodePositionModeMismatch   = 110025
	ErrCodeLeverageNotModified    = 110043
	ErrCodeLeverageExceedsRiskCap = 110044
	ErrCodeDuplicateOrderLinkID   = 110072
)

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	var bybitErr *BybitError
	if !errors.As(err, &bybitErr) {
		return false
	}
	switch bybitErr.Code {
	case ErrCodeServerTimeout, ErrCodeRateLimitExceeded, ErrCodeServiceRestarting,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsAuthenticationError checks if the error is related to authentication
func IsAuthenticationError(err error) bool {
	var bybitErr *BybitError
	if errors.As(err, &bybitErr) {
		switch bybitErr.Code {
		case ErrCodeInvalidAPIKey, ErrCodeInvalidSignature, ErrCodeInvalidTimestamp, ErrCodePermissionDenied:
			return true
		}
	}
	return false
}

// IsRateLimitError checks if the error is due to rate limiting
func IsRateLimitError(err error) bool {
	var bybitErr *BybitError
	return errors.As(err, &bybitErr) && bybitErr.Code == ErrCodeRateLimitExceeded
}

// IsLeverageNotModified reports the "leverage not modified" response, which
// means the requested leverage is already in effect
func IsLeverageNotModified(err error) bool {
	var bybitErr *BybitError
	return errors.As(err, &bybitErr) && bybitErr.Code == ErrCodeLeverageNotModified
}

// IsDuplicateOrderLinkID reports that an order with the same orderLinkId
// already exists, typically accepted by an attempt whose response was lost
func IsDuplicateOrderLinkID(err error) bool {
	var bybitErr *BybitError
	return errors.As(err, &bybitErr) && bybitErr.Code == ErrCodeDuplicateOrderLinkID
}

// NewBybitError creates a new BybitError
func NewBybitError(code int, message string, details ...string) *BybitError {
	err := &BybitError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// ParseAPIError extracts error information from the API response
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return NewBybitError(retCode, retMsg, GetErrorDescription(retCode))
}

// ErrorCodes maps common error codes to human-readable messages
var ErrorCodes = map[int]string{
	ErrCodeServerTimeout:          "Server timeout",
	ErrCodeInvalidParameter:       "Invalid parameter",
	ErrCodeInvalidTimestamp:       "Request outside recv window",
	ErrCodeInvalidAPIKey:          "Invalid API key",
	ErrCodeInvalidSignature:       "Invalid signature",
	ErrCodePermissionDenied:       "Permission denied",
	ErrCodeRateLimitExceeded:      "Rate limit exceeded",
	ErrCodeServiceRestarting:      "Service restarting",
	ErrCodeOrderNotFound:          "Order not found",
	ErrCodeInvalidOrderType:       "Invalid order type",
	ErrCodeInsufficientBalance:    "Insufficient balance",
	ErrCodeSymbolNotFound:         "Symbol not found",
	ErrCodeInvalidQuantity:        "Invalid quantity",
	ErrCodeInvalidPrice:           "Invalid price",
	ErrCodePositionModeMismatch:   "Position index does not match position mode",
	ErrCodeLeverageNotModified:    "Leverage not modified",
	ErrCodeLeverageExceedsRiskCap: "Leverage exceeds risk limit",
	ErrCodeDuplicateOrderLinkID:   "OrderLinkedID is duplicate",
}

// GetErrorDescription returns a human-readable description for an error code
func GetErrorDescription(code int) string {
	if desc, exists := ErrorCodes[code]; exists {
		return desc
	}
	return fmt.Sprintf("Unknown error code: %d", code)
}
