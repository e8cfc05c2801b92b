package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrorCategory classifies an execution failure
type ErrorCategory string

const (
	// Per-signal fatal, surfaced before any network call
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryValidation    ErrorCategory = "VALIDATION"

	// Leverage failures never block an order
	ErrorCategoryLeverage ErrorCategory = "LEVERAGE"

	// Exchange outcomes on order submit
	ErrorCategoryRejection ErrorCategory = "EXCHANGE_REJECTION"
	ErrorCategoryTransport ErrorCategory = "TRANSPORT"

	// Slot already in flight
	ErrorCategoryConflict ErrorCategory = "CONFLICT"

	// Gateway-level classification before mapping to the categories above
	ErrorCategoryCredentials ErrorCategory = "CREDENTIALS"
	ErrorCategoryRateLimit   ErrorCategory = "RATE_LIMIT"
	ErrorCategoryInternal    ErrorCategory = "INTERNAL"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal reports whether the error ends the signal without a submission attempt
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryConfiguration ||
		e.Category == ErrorCategoryValidation ||
		e.Category == ErrorCategoryCredentials
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

// WithMessage replaces the default message of a wrapped error
func (e *BotError) WithMessage(message string) *BotError {
	e.Message = message
	return e
}

// Only transport failures are retried. Everything else is final for the signal.
func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryTransport, ErrorCategoryRateLimit:
		return true
	default:
		return false
	}
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrorCategoryTransport, component, operation).WithMessage("timeout")
	}
	if stderrors.Is(err, context.Canceled) {
		return WrapError(err, ErrorCategoryInternal, component, operation).WithMessage("cancelled")
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return WrapError(err, ErrorCategoryTransport, component, operation).WithMessage("timeout")
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") ||
		strings.Contains(errMsg, "eof") {
		return WrapError(err, ErrorCategoryTransport, component, operation).WithMessage("network failure")
	}

	if strings.Contains(errMsg, "api key") || strings.Contains(errMsg, "api secret") ||
		strings.Contains(errMsg, "authentication") || strings.Contains(errMsg, "unauthorized") {
		return WrapError(err, ErrorCategoryCredentials, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	// Unknown failures are not retried: resubmitting an order with unknown outcome is unsafe
	return WrapError(err, ErrorCategoryInternal, component, operation)
}

// Common error constructors
func NewConfigError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message)
}

func NewLeverageError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryLeverage, component, operation).WithMessage("leverage not applied")
}

func NewRejectionError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryRejection, component, operation).WithMessage("rejected by exchange")
}

func NewTransportError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryTransport, component, operation).WithMessage("transport failure")
}

func NewConflictError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConflict, component, operation, message)
}

func NewCredentialsError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryCredentials, component, operation, message)
}

// CategoryOf returns the category of the first BotError in the chain
func CategoryOf(err error) (ErrorCategory, bool) {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr.Category, true
	}
	return "", false
}

// IsCategory reports whether err carries the given category
func IsCategory(err error, category ErrorCategory) bool {
	c, ok := CategoryOf(err)
	return ok && c == category
}

// IsRetryable reports whether err is a retryable BotError
func IsRetryable(err error) bool {
	var botErr *BotError
	return stderrors.As(err, &botErr) && botErr.Retryable
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	mu               sync.RWMutex
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BotError
	MaxRecentErrors  int
	LastErrorAt      time.Time
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	if err == nil {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++
	es.LastErrorAt = time.Now()

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the error rate for a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	es.mu.RLock()
	defer es.mu.RUnlock()

	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}

// HasRecentErrors checks if there have been errors in the recent history
func (es *ErrorStats) HasRecentErrors(category ErrorCategory, count int) bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	recentCount := 0
	for _, err := range es.RecentErrors {
		if err.Category == category {
			recentCount++
		}
	}
	return recentCount >= count
}

// Snapshot returns a copy of the per-category counters
func (es *ErrorStats) Snapshot() map[ErrorCategory]int {
	es.mu.RLock()
	defer es.mu.RUnlock()

	out := make(map[ErrorCategory]int, len(es.ErrorsByCategory))
	for k, v := range es.ErrorsByCategory {
		out[k] = v
	}
	return out
}

// RecentMessages returns the rendered recent errors, oldest first
func (es *ErrorStats) RecentMessages() []string {
	es.mu.RLock()
	defer es.mu.RUnlock()

	out := make([]string, 0, len(es.RecentErrors))
	for _, err := range es.RecentErrors {
		out = append(out, err.Error())
	}
	return out
}
