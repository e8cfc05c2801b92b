package exchange

import (
	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
)

// ExchangeError represents standardized errors from exchanges
type ExchangeError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	IsRetryable bool   `json:"is_retryable"`
}

func (e *ExchangeError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Details != "" {
		return msg + ": " + e.Details
	}
	return msg
}

// Common error types
var (
	ErrCircuitOpen = &ExchangeError{
		Code:        "CIRCUIT_OPEN",
		Message:     "Exchange circuit breaker is open",
		IsRetryable: true,
	}

	ErrRateLimitExceeded = &ExchangeError{
		Code:        "RATE_LIMIT_EXCEEDED",
		Message:     "API rate limit exceeded",
		IsRetryable: true,
	}

	ErrUnsupported = &ExchangeError{
		Code:        "UNSUPPORTED",
		Message:     "Operation not supported by exchange",
		IsRetryable: false,
	}
)

// Classify maps an exchange error onto the engine taxonomy: retryable
// errors become TRANSPORT, the rest EXCHANGE_REJECTION.
func Classify(err *ExchangeError, component, operation string) *boterrors.BotError {
	if err == nil {
		return nil
	}
	if err.IsRetryable {
		return boterrors.NewTransportError(component, operation, err).WithContext("code", err.Code)
	}
	return boterrors.NewRejectionError(component, operation, err).WithContext("code", err.Code)
}

// IsRejection reports whether the exchange refused the request on its merits
func IsRejection(err error) bool {
	return boterrors.IsCategory(err, boterrors.ErrorCategoryRejection)
}

// IsTransient reports whether the failure may succeed if retried
func IsTransient(err error) bool {
	return boterrors.IsCategory(err, boterrors.ErrorCategoryTransport)
}
