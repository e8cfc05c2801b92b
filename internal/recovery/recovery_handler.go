package recovery

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/futures-executor/internal/errors"
)

// RetryConfig defines how retryable failures are re-attempted
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Delay before the first retry
	Multiplier float64       // Exponential growth per retry
	MaxDelay   time.Duration // Cap on a single delay
	Jitter     bool          // Add up to 10% random jitter
}

// DefaultRetryConfig returns the order submission policy
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   5 * time.Second,
		Jitter:     true,
	}
}

// RecoveryHandler retries operations that fail with a retryable BotError
type RecoveryHandler struct {
	errorStats  *errors.ErrorStats
	retryConfig RetryConfig
	logger      zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	// sleep waits for d or until ctx ends
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRecoveryHandler creates a new recovery handler. stats may be shared with
// the health checker; nil allocates a private one.
func NewRecoveryHandler(config RetryConfig, stats *errors.ErrorStats, logger zerolog.Logger) *RecoveryHandler {
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if stats == nil {
		stats = errors.NewErrorStats(50) // Keep last 50 errors
	}
	return &RecoveryHandler{
		errorStats:  stats,
		retryConfig: config,
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay returns the backoff before retry number attempt (1-based), without jitter
func (rh *RecoveryHandler) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := time.Duration(float64(rh.retryConfig.BaseDelay) * math.Pow(rh.retryConfig.Multiplier, float64(attempt-1)))
	if rh.retryConfig.MaxDelay > 0 && delay > rh.retryConfig.MaxDelay {
		delay = rh.retryConfig.MaxDelay
	}
	return delay
}

// addJitter adds random jitter to delay to avoid thundering herd
func (rh *RecoveryHandler) addJitter(delay time.Duration) time.Duration {
	if !rh.retryConfig.Jitter || delay <= 0 {
		return delay
	}
	rh.rngMu.Lock()
	defer rh.rngMu.Unlock()
	return delay + time.Duration(rh.rng.Int63n(int64(delay)/10+1))
}

// ExecuteWithRecovery runs fn until it succeeds, fails with a non-retryable
// error, exhausts MaxRetries or ctx ends. fn receives the 1-based attempt
// number. The attempt count made is returned with the last error.
func (rh *RecoveryHandler) ExecuteWithRecovery(
	ctx context.Context,
	component, operation string,
	fn func(ctx context.Context, attempt int) error,
) (int, error) {
	var lastError error
	maxAttempts := rh.retryConfig.MaxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastError != nil {
				return attempt - 1, lastError
			}
			return attempt - 1, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				rh.logger.Info().Str("component", component).Str("operation", operation).
					Int("attempts", attempt).Msg("operation succeeded after retry")
			}
			return attempt, nil
		}

		lastError = err
		botError := errors.CategorizeError(err, component, operation)
		rh.errorStats.RecordError(botError)

		if !botError.IsRetryable() {
			rh.logger.Debug().Err(err).Str("category", string(botError.Category)).Int("attempt", attempt).
				Msg("non-retryable failure")
			return attempt, err
		}
		if attempt == maxAttempts {
			rh.logger.Error().Err(err).Str("operation", operation).Int("attempts", attempt).
				Msg("retries exhausted")
			return attempt, err
		}

		delay := rh.addJitter(rh.Delay(attempt))
		rh.logger.Warn().Err(err).Str("operation", operation).Int("attempt", attempt).
			Dur("backoff", delay).Msg("retryable failure, backing off")

		if err := rh.sleep(ctx, delay); err != nil {
			return attempt, lastError
		}
	}

	return maxAttempts, lastError
}

// GetErrorStats returns the current error statistics
func (rh *RecoveryHandler) GetErrorStats() *errors.ErrorStats {
	return rh.errorStats
}
