package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-executor/internal/config"
	"github.com/ducminhle1904/futures-executor/internal/exchange/exchangetest"
	"github.com/ducminhle1904/futures-executor/internal/execution"
	"github.com/ducminhle1904/futures-executor/internal/leverage"
	"github.com/ducminhle1904/futures-executor/internal/position"
	"github.com/ducminhle1904/futures-executor/internal/risk"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

func staticRisk(t *testing.T) config.RiskProvider {
	t.Helper()
	p, err := config.NewStatic(risk.Config{
		FixedBalance:  10000,
		RiskFraction:  0.02,
		Leverage:      5,
		StopLossPct:   0.02,
		TakeProfitPct: 0.03,
		MinOrderValue: 5,
	})
	require.NoError(t, err)
	return p
}

func TestRiskReloadedResetsLeverage(t *testing.T) {
	gw := exchangetest.New(types.PositionModeHedge)
	lev := leverage.NewCoordinator(gw, zerolog.Nop())
	ctx := context.Background()

	_, err := lev.Ensure(ctx, "BTCUSDT", 5, 20)
	require.NoError(t, err)
	calls := len(gw.LeverageCalls())

	var out bytes.Buffer
	riskReloaded(lev, &out, "paper")(&risk.Config{Leverage: 5, RiskFraction: 0.02})

	_, ok := lev.State("BTCUSDT")
	assert.False(t, ok)
	assert.Contains(t, out.String(), "EXECUTOR CONFIGURATION")

	outcome, err := lev.Ensure(ctx, "BTCUSDT", 5, 20)
	require.NoError(t, err)
	assert.Equal(t, leverage.Applied, outcome)
	assert.Greater(t, len(gw.LeverageCalls()), calls, "leverage is applied again after a reload")
}

func TestDispatchClaimsSlotsInArrivalOrder(t *testing.T) {
	gw := exchangetest.New(types.PositionModeOneWay)
	gw.Block = make(chan struct{})
	modes := position.NewModeCache()
	modes.Set(types.PositionModeOneWay)
	coord := execution.NewCoordinator(gw, staticRisk(t), execution.Options{Modes: modes, Logger: zerolog.Nop()})
	events := coord.Subscribe(4)

	src := strings.NewReader(`{"id":"a","symbol":"BTCUSDT","side":"LONG","confidence":0.8,"entry_price":"116000"}
{"id":"b","symbol":"BTCUSDT","side":"LONG","confidence":0.8,"entry_price":"116000"}
`)
	require.NoError(t, dispatchFrom(context.Background(), coord, src, zerolog.Nop()))

	close(gw.Block)
	coord.Close()

	status := make(map[string]types.ExecutionStatus)
	for res := range events {
		status[res.SignalID] = res.Status
	}
	assert.Equal(t, types.StatusSubmitted, status["a"])
	assert.Equal(t, types.StatusConflict, status["b"])
	assert.Equal(t, 1, gw.SubmitCalls())
}
