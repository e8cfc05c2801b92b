// Package execution turns validated trading signals into exactly one
// submitted order per (symbol, position index) slot.
package execution

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/futures-executor/internal/config"
	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/exchange"
	"github.com/ducminhle1904/futures-executor/internal/leverage"
	"github.com/ducminhle1904/futures-executor/internal/monitoring"
	"github.com/ducminhle1904/futures-executor/internal/order"
	"github.com/ducminhle1904/futures-executor/internal/position"
	"github.com/ducminhle1904/futures-executor/internal/recovery"
	"github.com/ducminhle1904/futures-executor/internal/risk"
	"github.com/ducminhle1904/futures-executor/internal/safety"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

const component = "execution"

// Options configures a Coordinator. Zero values get defaults.
type Options struct {
	SubmitTimeout   time.Duration // per submit attempt, default 10s
	LeverageTimeout time.Duration // for the whole leverage step, default 5s
	Retry           recovery.RetryConfig
	MaxSignalAge    time.Duration

	Modes     *position.ModeCache
	Leverage  *leverage.Coordinator
	Builder   *order.Builder
	Validator *safety.Validator
	Stats     *boterrors.ErrorStats
	Health    *monitoring.HealthChecker
	Logger    zerolog.Logger
}

// Coordinator drives each signal through
// IDLE -> LEVERAGE_PENDING -> BUILDING -> SUBMITTING -> {ACCEPTED, REJECTED, ERROR}.
type Coordinator struct {
	gateway     exchange.Gateway
	instruments exchange.InstrumentProvider
	prices      exchange.PriceSource
	risk        config.RiskProvider

	modes     *position.ModeCache
	leverage  *leverage.Coordinator
	builder   *order.Builder
	validator *safety.Validator
	recovery  *recovery.RecoveryHandler
	stats     *boterrors.ErrorStats
	health    *monitoring.HealthChecker
	slots     *SlotRegistry
	events    broadcaster

	submitTimeout   time.Duration
	leverageTimeout time.Duration

	async sync.WaitGroup
	log   zerolog.Logger
	now   func() time.Time
}

func NewCoordinator(gw exchange.Gateway, riskProvider config.RiskProvider, opts Options) *Coordinator {
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 10 * time.Second
	}
	if opts.LeverageTimeout <= 0 {
		opts.LeverageTimeout = 5 * time.Second
	}
	if opts.Retry == (recovery.RetryConfig{}) {
		opts.Retry = recovery.DefaultRetryConfig()
	}
	if opts.Modes == nil {
		opts.Modes = position.NewModeCache()
	}
	if opts.Leverage == nil {
		opts.Leverage = leverage.NewCoordinator(gw, opts.Logger)
	}
	if opts.Builder == nil {
		opts.Builder = order.NewBuilder()
	}
	if opts.Validator == nil {
		opts.Validator = safety.NewValidator(opts.MaxSignalAge)
	}
	if opts.Stats == nil {
		opts.Stats = boterrors.NewErrorStats(50)
	}

	log := opts.Logger.With().Str("component", component).Logger()
	c := &Coordinator{
		gateway:         gw,
		risk:            riskProvider,
		modes:           opts.Modes,
		leverage:        opts.Leverage,
		builder:         opts.Builder,
		validator:       opts.Validator,
		recovery:        recovery.NewRecoveryHandler(opts.Retry, opts.Stats, log),
		stats:           opts.Stats,
		health:          opts.Health,
		slots:           NewSlotRegistry(),
		submitTimeout:   opts.SubmitTimeout,
		leverageTimeout: opts.LeverageTimeout,
		log:             log,
		now:             time.Now,
	}
	if ip, ok := gw.(exchange.InstrumentProvider); ok {
		c.instruments = ip
	}
	if ps, ok := gw.(exchange.PriceSource); ok {
		c.prices = ps
	}
	return c
}

// Subscribe returns a channel receiving every final result. Delivery never
// blocks execution; a subscriber that falls behind loses events.
func (c *Coordinator) Subscribe(buffer int) <-chan types.ExecutionResult {
	return c.events.subscribe(buffer)
}

// State exposes the current state of a slot
func (c *Coordinator) State(symbol string, idx types.PositionIndex) types.ExecutionState {
	return c.slots.State(NewSlotKey(symbol, idx))
}

// ExecuteAsync validates the signal and claims its slot in the caller's
// goroutine, then finishes the execution in the background. Signals handed
// over in order therefore contend for slots in that same order.
func (c *Coordinator) ExecuteAsync(ctx context.Context, sig *types.TradingSignal) <-chan types.ExecutionResult {
	done := make(chan types.ExecutionResult, 1)
	adm, res, ok := c.admit(sig)
	if !ok {
		done <- res
		close(done)
		return done
	}

	c.async.Add(1)
	go func() {
		defer c.async.Done()
		done <- c.run(ctx, adm)
		close(done)
	}()
	return done
}

// Close waits for background executions and closes subscriber channels
func (c *Coordinator) Close() {
	c.async.Wait()
	c.events.close()
}

// Execute processes one signal and returns its final result. It never panics
// on bad input and always releases the slot it acquired.
func (c *Coordinator) Execute(ctx context.Context, sig *types.TradingSignal) types.ExecutionResult {
	adm, res, ok := c.admit(sig)
	if !ok {
		return res
	}
	return c.run(ctx, adm)
}

// admission is a validated signal that holds its slot
type admission struct {
	sig *types.TradingSignal
	cfg *risk.Config
	key SlotKey
	res types.ExecutionResult
}

// admit runs every check that needs no network and claims the slot. When it
// returns false the signal is already finished and res is its final result.
func (c *Coordinator) admit(sig *types.TradingSignal) (*admission, types.ExecutionResult, bool) {
	res := types.ExecutionResult{StartedAt: c.now()}
	if sig == nil {
		return nil, c.finish(res, types.StatusRejected, boterrors.NewValidationError(component, "validate", "signal is nil")), false
	}
	res.SignalID = sig.ID
	res.Symbol = strings.ToUpper(sig.Symbol)
	res.Side = sig.Side

	if v := c.validator.ValidateSignal(sig); !v.Valid {
		return nil, c.finish(res, types.StatusRejected,
			boterrors.NewValidationError(component, "validate", v.Message).WithContext("code", v.Code)), false
	}

	cfg, err := c.risk.Snapshot()
	if err != nil {
		if _, ok := boterrors.CategoryOf(err); !ok {
			err = boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, component, "risk_snapshot")
		}
		return nil, c.finish(res, types.StatusRejected, err), false
	}

	res.PositionIndex = position.Resolve(c.modes.Mode(), sig.Side)
	key := NewSlotKey(res.Symbol, res.PositionIndex)
	if !c.slots.TryAcquire(key) {
		monitoring.RecordConflict(res.Symbol)
		return nil, c.finish(res, types.StatusConflict,
			boterrors.NewConflictError(component, "acquire", fmt.Sprintf("execution already in flight for %s", key)).
				WithContext("slot", key.String())), false
	}
	return &admission{sig: sig, cfg: cfg, key: key, res: res}, res, true
}

// run drives an admitted signal to its final state. The slot is free again
// before subscribers hear about the result.
func (c *Coordinator) run(ctx context.Context, adm *admission) types.ExecutionResult {
	res, status, err := c.process(ctx, adm)
	c.slots.Release(adm.key)
	return c.finish(res, status, err)
}

func (c *Coordinator) process(ctx context.Context, adm *admission) (types.ExecutionResult, types.ExecutionStatus, error) {
	res, cfg, key := adm.res, adm.cfg, adm.key
	log := c.log.With().Str("signal_id", res.SignalID).Str("slot", key.String()).Logger()

	// LEVERAGE_PENDING
	c.slots.Transition(key, types.StateLeveragePending)
	spec := c.instrumentSpec(ctx, res.Symbol, log)
	desired := cfg.LeverageFor(res.Symbol)
	if err := c.ensureLeverage(ctx, res.Symbol, desired, maxLeverage(cfg, spec)); err != nil {
		if boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration) {
			c.slots.Transition(key, types.StateRejected)
			return res, types.StatusRejected, err
		}
		res.LeverageWarning = err.Error()
	}

	// BUILDING
	c.slots.Transition(key, types.StateBuilding)
	input := c.withEntryPrice(ctx, adm.sig, log)
	req, err := c.builder.Build(input, cfg, res.PositionIndex, desired, spec)
	if err != nil {
		c.slots.Transition(key, types.StateRejected)
		return res, types.StatusRejected, err
	}
	res.Request = req

	// SUBMITTING
	c.slots.Transition(key, types.StateSubmitting)
	ack, attempts, err := c.submit(ctx, req)
	res.Attempts = attempts
	if err != nil {
		status := classifySubmitError(ctx, err)
		if status == types.StatusRejected {
			c.slots.Transition(key, types.StateRejected)
		} else {
			c.slots.Transition(key, types.StateError)
		}
		return res, status, err
	}

	c.slots.Transition(key, types.StateAccepted)
	res.ExchangeOrderID = ack.OrderID
	res.Warnings = ack.Warnings
	return res, types.StatusSubmitted, nil
}

func (c *Coordinator) ensureLeverage(ctx context.Context, symbol string, desired, maxLev int) error {
	levCtx, cancel := context.WithTimeout(ctx, c.leverageTimeout)
	defer cancel()
	_, err := c.leverage.Ensure(levCtx, symbol, desired, maxLev)
	return err
}

// maxLeverage is the tighter of the configured cap and the instrument limit
func maxLeverage(cfg *risk.Config, spec *types.InstrumentSpec) int {
	limit := cfg.MaxLeveragePerSymbol
	if spec != nil && spec.MaxLeverage > 0 && (limit <= 0 || spec.MaxLeverage < limit) {
		limit = spec.MaxLeverage
	}
	return limit
}

func (c *Coordinator) instrumentSpec(ctx context.Context, symbol string, log zerolog.Logger) *types.InstrumentSpec {
	if c.instruments == nil {
		return types.DefaultInstrumentSpec(symbol)
	}
	spec, err := c.instruments.GetInstrumentSpec(ctx, symbol)
	if err != nil || spec == nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("instrument spec unavailable, using defaults")
		return types.DefaultInstrumentSpec(symbol)
	}
	return spec
}

// withEntryPrice fills a missing entry hint from the price source. The
// caller's signal is never modified.
func (c *Coordinator) withEntryPrice(ctx context.Context, sig *types.TradingSignal, log zerolog.Logger) *types.TradingSignal {
	if sig.EntryPriceHint != nil || c.prices == nil {
		return sig
	}
	priceCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	price, err := c.prices.GetLatestPrice(priceCtx, sig.Symbol)
	if err != nil || !price.IsPositive() {
		log.Warn().Err(err).Msg("no entry price available")
		return sig
	}
	cp := *sig
	cp.EntryPriceHint = &price
	return &cp
}

func (c *Coordinator) submit(ctx context.Context, req *types.OrderRequest) (*exchange.OrderAck, int, error) {
	var ack *exchange.OrderAck
	attempts, err := c.recovery.ExecuteWithRecovery(ctx, component, "submit_order", func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
		defer cancel()

		a, err := c.gateway.SubmitOrder(attemptCtx, req)
		if err == nil {
			monitoring.RecordSubmitAttempt("accepted")
			ack = a
			return nil
		}

		// A timed-out attempt may still be retried; the caller giving up may not
		if ctx.Err() == nil && stderrors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			err = boterrors.NewTransportError(component, "submit_order", err).
				WithMessage(fmt.Sprintf("submit timed out after %s", c.submitTimeout))
		}
		monitoring.RecordSubmitAttempt(strings.ToLower(string(boterrors.CategorizeError(err, component, "submit_order").Category)))
		return err
	})
	return ack, attempts, err
}

// classifySubmitError maps a final submit failure to REJECTED or ERROR
func classifySubmitError(ctx context.Context, err error) types.ExecutionStatus {
	if ctx.Err() != nil {
		return types.StatusError
	}
	switch boterrors.CategorizeError(err, component, "submit_order").Category {
	case boterrors.ErrorCategoryRejection, boterrors.ErrorCategoryValidation:
		return types.StatusRejected
	default:
		return types.StatusError
	}
}

func (c *Coordinator) finish(res types.ExecutionResult, status types.ExecutionStatus, err error) types.ExecutionResult {
	res.Status = status
	res.FinishedAt = c.now()
	if err != nil {
		res.Err = err
		res.Reason = err.Error()

		botErr := boterrors.CategorizeError(err, component, "execute")
		monitoring.RecordError(string(botErr.Category))
		// Submit failures were already counted by the retry loop
		if res.Attempts == 0 {
			c.stats.RecordError(botErr)
		}
	}

	monitoring.RecordExecution(string(status), res.Duration())
	if c.health != nil {
		c.health.RecordExecution(string(status), res.FinishedAt)
	}
	c.logResult(res)
	c.events.publish(res)
	return res
}

func (c *Coordinator) logResult(res types.ExecutionResult) {
	var ev *zerolog.Event
	switch res.Status {
	case types.StatusSubmitted:
		ev = c.log.Info()
	case types.StatusConflict:
		ev = c.log.Warn()
	default:
		ev = c.log.Error().Err(res.Err)
	}
	ev = ev.Str("signal_id", res.SignalID).
		Str("symbol", res.Symbol).
		Str("side", string(res.Side)).
		Int("position_idx", int(res.PositionIndex)).
		Str("status", string(res.Status)).
		Int("attempts", res.Attempts).
		Dur("duration", res.Duration())
	if res.ExchangeOrderID != "" {
		ev = ev.Str("order_id", res.ExchangeOrderID)
	}
	if res.LeverageWarning != "" {
		ev = ev.Str("leverage_warning", res.LeverageWarning)
	}
	if len(res.Warnings) > 0 {
		ev = ev.Strs("warnings", res.Warnings)
	}
	ev.Msg("execution finished")
}
