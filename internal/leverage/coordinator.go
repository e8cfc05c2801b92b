// Package leverage applies per-symbol leverage at most once per change.
package leverage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/monitoring"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

type Outcome string

const (
	Applied Outcome = "applied"
	Skipped Outcome = "skipped"
)

// Setter is the exchange capability the coordinator needs.
type Setter interface {
	SetLeverage(ctx context.Context, symbol string, side types.Side, leverage int) error
}

// State is the leverage last confirmed on the exchange for a symbol.
type State struct {
	Symbol          string
	AppliedLeverage int
	LastSetAt       time.Time
}

// Coordinator owns all leverage state. Mutation for a symbol is serialized by
// a per-symbol lock so the two hedge legs never race on it.
type Coordinator struct {
	setter Setter
	log    zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	locks  map[string]chan struct{}
	states map[string]State
}

func NewCoordinator(setter Setter, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		setter: setter,
		log:    log.With().Str("component", "leverage").Logger(),
		now:    time.Now,
		locks:  make(map[string]chan struct{}),
		states: make(map[string]State),
	}
}

func (c *Coordinator) lockFor(symbol string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[symbol]
	if !ok {
		l = make(chan struct{}, 1)
		c.locks[symbol] = l
	}
	return l
}

// Ensure applies desired leverage to both sides of symbol unless it is already
// applied. Exceeding maxLeverage is a CONFIG error raised before any network
// call; exchange failures are LEVERAGE errors and leave the state untouched.
func (c *Coordinator) Ensure(ctx context.Context, symbol string, desired, maxLeverage int) (Outcome, error) {
	symbol = strings.ToUpper(symbol)

	if desired <= 0 {
		monitoring.RecordLeverageUpdate("invalid")
		return "", boterrors.NewConfigError("leverage", "ensure", fmt.Sprintf("leverage must be positive, got %d", desired)).
			WithContext("symbol", symbol)
	}
	if maxLeverage > 0 && desired > maxLeverage {
		monitoring.RecordLeverageUpdate("invalid")
		return "", boterrors.NewConfigError("leverage", "ensure",
			fmt.Sprintf("leverage %dx exceeds cap %dx for %s", desired, maxLeverage, symbol)).
			WithContext("symbol", symbol)
	}

	lock := c.lockFor(symbol)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return "", boterrors.NewLeverageError("leverage", "ensure", ctx.Err())
	}
	defer func() { <-lock }()

	if st, ok := c.State(symbol); ok && st.AppliedLeverage == desired {
		monitoring.RecordLeverageUpdate(string(Skipped))
		return Skipped, nil
	}

	var errs []error
	for _, side := range []types.Side{types.SideLong, types.SideShort} {
		if err := c.setter.SetLeverage(ctx, symbol, side, desired); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", side, err))
		}
	}
	if len(errs) > 0 {
		monitoring.RecordLeverageUpdate("failed")
		err := boterrors.NewLeverageError("leverage", "ensure", errors.Join(errs...)).
			WithContext("symbol", symbol).
			WithContext("leverage", desired)
		c.log.Warn().Err(err).Str("symbol", symbol).Int("leverage", desired).Msg("leverage not applied, continuing with exchange leverage")
		return "", err
	}

	c.mu.Lock()
	c.states[symbol] = State{Symbol: symbol, AppliedLeverage: desired, LastSetAt: c.now()}
	c.mu.Unlock()

	monitoring.RecordLeverageUpdate(string(Applied))
	c.log.Info().Str("symbol", symbol).Int("leverage", desired).Msg("leverage applied")
	return Applied, nil
}

// State returns a copy of the cached state for symbol.
func (c *Coordinator) State(symbol string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[strings.ToUpper(symbol)]
	return st, ok
}

// Invalidate drops the cached state so the next Ensure hits the exchange.
func (c *Coordinator) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.states, strings.ToUpper(symbol))
	c.mu.Unlock()
}

// Reset drops all cached state, e.g. after a risk config reload.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.states = make(map[string]State)
	c.mu.Unlock()
}
