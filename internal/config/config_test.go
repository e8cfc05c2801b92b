package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/risk"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

const riskYAML = `
fixed_balance: 500
risk_fraction: 0.02
leverage: 5
max_leverage_per_symbol: 10
stop_loss_pct: 0.02
take_profit_pct: 0.03
min_order_value: 5
symbol_leverage:
  ETHUSDT: 3
staged_take_profit:
  - fraction: 0.5
    multiplier: 1
  - fraction: 0.5
    multiplier: 2
`

func TestLoadRiskFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	writeFile(t, path, riskYAML)

	store, err := LoadRiskFile(path, zerolog.Nop())
	require.NoError(t, err)

	cfg, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.FixedBalance)
	assert.Equal(t, 5, cfg.Leverage)
	assert.Equal(t, 3, cfg.LeverageFor("ETHUSDT"))
	assert.Equal(t, "Market", cfg.EntryOrderType)
	require.Len(t, cfg.StagedTakeProfit, 2)
	assert.Equal(t, 2.0, cfg.StagedTakeProfit[1].Multiplier)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	writeFile(t, path, riskYAML)
	store, err := LoadRiskFile(path, zerolog.Nop())
	require.NoError(t, err)

	a, _ := store.Snapshot()
	a.Leverage = 99
	b, _ := store.Snapshot()
	assert.Equal(t, 5, b.Leverage)
}

func TestReloadKeepsPreviousOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	writeFile(t, path, riskYAML)
	store, err := LoadRiskFile(path, zerolog.Nop())
	require.NoError(t, err)

	var notified []*risk.Config
	store.OnChange(func(c *risk.Config) { notified = append(notified, c) })

	writeFile(t, path, "fixed_balance: -1\n")
	err = store.Reload()
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration))

	cfg, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.FixedBalance)
	assert.Empty(t, notified)

	writeFile(t, path, "fixed_balance: 900\nleverage: 2\n")
	require.NoError(t, store.Reload())
	cfg, _ = store.Snapshot()
	assert.Equal(t, 900.0, cfg.FixedBalance)
	require.Len(t, notified, 1)
	assert.Equal(t, 2, notified[0].Leverage)
}

func TestReloadNotifiesEveryListener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	writeFile(t, path, riskYAML)
	store, err := LoadRiskFile(path, zerolog.Nop())
	require.NoError(t, err)

	var order []string
	var first, second *risk.Config
	store.OnChange(func(c *risk.Config) {
		order = append(order, "first")
		first = c
		c.Leverage = 42
		// Registering from inside a listener must not deadlock
		store.OnChange(func(*risk.Config) { order = append(order, "late") })
	})
	store.OnChange(func(c *risk.Config) {
		order = append(order, "second")
		second = c
	})

	writeFile(t, path, "fixed_balance: 700\nleverage: 4\n")
	require.NoError(t, store.Reload())
	assert.Equal(t, []string{"first", "second"}, order)
	require.NotNil(t, second)
	assert.Equal(t, 700.0, second.FixedBalance)
	assert.Equal(t, 4, second.Leverage, "listeners get their own copy")
	assert.NotSame(t, first, second)

	cfg, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Leverage)

	order = nil
	require.NoError(t, store.Reload())
	assert.Equal(t, []string{"first", "second", "late"}, order)
}

func TestLoadRiskFileMissing(t *testing.T) {
	_, err := LoadRiskFile(filepath.Join(t.TempDir(), "nope.yaml"), zerolog.Nop())
	assert.Error(t, err)
}

func TestResolveRiskPath(t *testing.T) {
	assert.Equal(t, filepath.Join("configs", "risk.yaml"), ResolveRiskPath("risk"))
	assert.Equal(t, filepath.Join("configs", "risk.json"), ResolveRiskPath("risk.json"))
	assert.Equal(t, "/etc/executor/risk.yaml", ResolveRiskPath("/etc/executor/risk.yaml"))
}

func TestStatic(t *testing.T) {
	s, err := NewStatic(risk.Config{FixedBalance: 100})
	require.NoError(t, err)
	cfg, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultLeverage, cfg.Leverage)

	_, err = NewStatic(risk.Config{})
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	writeFile(t, envFile, "EXECUTOR_EXCHANGE=paper\nEXECUTOR_SUBMIT_TIMEOUT=3s\n")
	t.Cleanup(func() {
		os.Unsetenv("EXECUTOR_EXCHANGE")
		os.Unsetenv("EXECUTOR_SUBMIT_TIMEOUT")
	})
	t.Setenv("EXECUTOR_MAX_RETRIES", "1")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "paper", cfg.Exchange)
	assert.Equal(t, 3*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Nil(t, cfg.ExchangeConfig().Bybit)
}

func TestLoadEnvRejectsBybitWithoutCredentials(t *testing.T) {
	t.Setenv("EXECUTOR_EXCHANGE", "bybit")
	t.Setenv("EXECUTOR_BYBIT_API_KEY", "")
	t.Setenv("BYBIT_API_KEY", "")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadEnvMissingFileIsIgnored(t *testing.T) {
	t.Setenv("EXECUTOR_EXCHANGE", "paper")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
