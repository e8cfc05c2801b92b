package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/futures-executor/internal/config"
	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/exchange"
	"github.com/ducminhle1904/futures-executor/internal/exchange/adapters"
	"github.com/ducminhle1904/futures-executor/internal/execution"
	"github.com/ducminhle1904/futures-executor/internal/intake"
	"github.com/ducminhle1904/futures-executor/internal/leverage"
	"github.com/ducminhle1904/futures-executor/internal/logger"
	"github.com/ducminhle1904/futures-executor/internal/monitoring"
	"github.com/ducminhle1904/futures-executor/internal/notifications"
	"github.com/ducminhle1904/futures-executor/internal/position"
	"github.com/ducminhle1904/futures-executor/internal/recovery"
	"github.com/ducminhle1904/futures-executor/internal/risk"
	"github.com/ducminhle1904/futures-executor/pkg/reporting"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

func main() {
	var (
		riskFile    = flag.String("config", "", "Risk parameter file (e.g., risk.yaml); overrides EXECUTOR_RISK_FILE")
		envFile     = flag.String("env", ".env", "Environment file path (default: .env)")
		signalsPath = flag.String("signals", "-", "JSON-lines signal source, - for stdin")
		dryRun      = flag.Bool("dry-run", false, "Use the in-process paper gateway instead of the exchange")
		report      = flag.Bool("report", true, "Write the session xlsx report and print a summary on exit")
	)
	flag.Parse()

	if err := run(*riskFile, *envFile, *signalsPath, *dryRun, *report); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(riskFile, envFile, signalsPath string, dryRun, report bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if riskFile != "" {
		cfg.RiskFile = riskFile
	}
	if dryRun {
		cfg.Exchange = "paper"
	}

	sessionLog, err := logger.New(logger.Options{
		Name:    "executor",
		Dir:     cfg.LogDir,
		Level:   cfg.LogLevel,
		Console: os.Stdout,
	})
	if err != nil {
		return err
	}
	defer sessionLog.Close()
	log := sessionLog.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	riskStore, err := config.LoadRiskFile(config.ResolveRiskPath(cfg.RiskFile), log)
	if err != nil {
		return err
	}
	riskStore.Watch()
	riskCfg, _ := riskStore.Snapshot()
	reporting.PrintRiskConfig(os.Stdout, riskCfg, environmentName(cfg, dryRun))

	factory := adapters.NewFactory(log)
	factory.PaperMode = types.PositionMode(strings.ToUpper(cfg.PositionMode))
	if factory.PaperMode == "" {
		factory.PaperMode = types.PositionModeOneWay
	}
	gw, err := factory.CreateGateway(cfg.ExchangeConfig())
	if err != nil {
		return err
	}

	modes, err := loadPositionMode(ctx, gw, cfg.PositionMode, log)
	if err != nil {
		return err
	}

	stats := boterrors.NewErrorStats(50)
	health := monitoring.NewHealthChecker(stats, connectivity(gw))
	lev := leverage.NewCoordinator(gw, log)
	riskStore.OnChange(riskReloaded(lev, os.Stdout, environmentName(cfg, dryRun)))

	coord := execution.NewCoordinator(gw, riskStore, execution.Options{
		SubmitTimeout:   cfg.SubmitTimeout,
		LeverageTimeout: cfg.LeverageTimeout,
		Retry: recovery.RetryConfig{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
			Multiplier: 2,
			MaxDelay:   cfg.RetryMaxDelay,
			Jitter:     true,
		},
		MaxSignalAge: cfg.MaxSignalAge,
		Modes:        modes,
		Leverage:     lev,
		Stats:        stats,
		Health:       health,
		Logger:       log,
	})

	srv := startHTTP(cfg.MetricsAddr, health, log)

	var subscribers sync.WaitGroup
	trades := coord.Subscribe(cfg.SubscriberBuffer)
	subscribers.Add(1)
	go func() {
		defer subscribers.Done()
		for res := range trades {
			sessionLog.Trade(res)
		}
	}()

	if cfg.TelegramEnabled() {
		alerts := coord.Subscribe(cfg.SubscriberBuffer)
		notifier := notifications.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		subscribers.Add(1)
		go func() {
			defer subscribers.Done()
			// Alerts still in the buffer at shutdown are delivered before exit
			notifications.Forward(context.Background(), notifier, alerts, log)
		}()
	}

	collector := reporting.NewCollector()
	if report {
		results := coord.Subscribe(cfg.SubscriberBuffer)
		subscribers.Add(1)
		go func() {
			defer subscribers.Done()
			collector.Run(context.Background(), results)
		}()
	}

	startedAt := time.Now()
	streamErr := dispatch(ctx, coord, signalsPath, log)

	coord.Close()
	subscribers.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}

	if report {
		results := collector.Results()
		reporting.PrintSummary(os.Stdout, results)
		path := reporting.DefaultReportPath(cfg.ReportDir, startedAt, "xlsx")
		if err := reporting.WriteExecutionsXLSX(results, path); err != nil {
			log.Error().Err(err).Msg("failed to write execution report")
		} else {
			log.Info().Str("path", path).Int("executions", len(results)).Msg("execution report written")
		}
	}

	if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
		return streamErr
	}
	return nil
}

// dispatch executes every signal from the source concurrently and returns
// once the source is exhausted or ctx ends.
func dispatch(ctx context.Context, coord *execution.Coordinator, path string, log zerolog.Logger) error {
	var src io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open signal source: %w", err)
		}
		defer f.Close()
		src = f
	}
	return dispatchFrom(ctx, coord, src, log)
}

// dispatchFrom hands signals to the coordinator one by one, so slots are
// claimed in the order the signals arrive.
func dispatchFrom(ctx context.Context, coord *execution.Coordinator, src io.Reader, log zerolog.Logger) error {
	signals := make(chan *types.TradingSignal)
	reader := intake.NewReader(log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- reader.Stream(ctx, src, signals)
		close(signals)
	}()

	for sig := range signals {
		coord.ExecuteAsync(ctx, sig)
	}
	err := <-errCh
	if reader.Skipped() > 0 {
		log.Warn().Int("skipped", reader.Skipped()).Msg("some signal lines could not be decoded")
	}
	return err
}

// riskReloaded returns the listener run after every risk config reload.
// Cached leverage may predate new per-symbol values or caps.
func riskReloaded(lev *leverage.Coordinator, out io.Writer, env string) func(*risk.Config) {
	return func(c *risk.Config) {
		lev.Reset()
		reporting.PrintRiskConfig(out, c, env)
	}
}

// loadPositionMode reads the account mode once. A configured mode wins over
// the exchange.
func loadPositionMode(ctx context.Context, gw exchange.Gateway, override string, log zerolog.Logger) (*position.ModeCache, error) {
	modes := position.NewModeCache()
	if override != "" {
		modes.Set(types.PositionMode(strings.ToUpper(override)))
		log.Info().Str("position_mode", string(modes.Mode())).Msg("position mode from configuration")
		return modes, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	mode, err := modes.Load(loadCtx, gw)
	if err != nil {
		return nil, fmt.Errorf("failed to read position mode (set EXECUTOR_POSITION_MODE to skip): %w", err)
	}
	log.Info().Str("position_mode", string(mode)).Msg("position mode from exchange")
	return modes, nil
}

func connectivity(gw exchange.Gateway) monitoring.ConnectivityCheck {
	if c, ok := gw.(interface{ Connected() bool }); ok {
		return c.Connected
	}
	return nil
}

func startHTTP(addr string, health *monitoring.HealthChecker, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/healthz", health)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return srv
}

func environmentName(cfg *config.Config, dryRun bool) string {
	switch {
	case dryRun || cfg.Exchange == "paper":
		return "paper (dry run)"
	case cfg.BybitTestnet:
		return "bybit testnet"
	case cfg.BybitDemo:
		return "bybit demo"
	default:
		return "bybit mainnet"
	}
}
